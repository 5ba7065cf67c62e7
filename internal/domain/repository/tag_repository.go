package repository

import (
	"context"

	"github.com/leondli/tagserver/internal/domain/entity"
)

// TagRepository defines the interface for tag data access. Each method runs
// in its own transaction.
type TagRepository interface {
	// FindByIdentifier retrieves a tag by its generated identifier
	FindByIdentifier(ctx context.Context, identifier string) (*entity.Tag, error)

	// FindByMAC retrieves a tag by MAC address
	FindByMAC(ctx context.Context, mac string) (*entity.Tag, error)

	// Create registers a new tag for the MAC address
	Create(ctx context.Context, mac string) (*entity.Tag, error)

	// AttachImage records the image path and size on the tag
	AttachImage(ctx context.Context, tag *entity.Tag, path string, size int64) error
}
