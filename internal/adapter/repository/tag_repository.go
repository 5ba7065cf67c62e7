package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leondli/tagserver/internal/domain/entity"
	"github.com/leondli/tagserver/internal/domain/repository"
	apperrors "github.com/leondli/tagserver/pkg/errors"
)

// TagModel is the Gorm model for tags table
type TagModel struct {
	ID         int64   `gorm:"primaryKey;autoIncrement"`
	Identifier string  `gorm:"size:36;uniqueIndex;not null"`
	MACAddress string  `gorm:"column:mac_address;size:17;uniqueIndex;not null"`
	ImagePath  *string `gorm:"size:500"`
	ImageSize  *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name
func (TagModel) TableName() string {
	return "tags"
}

// ToEntity converts TagModel to entity.Tag
func (m *TagModel) ToEntity() *entity.Tag {
	tag := &entity.Tag{
		ID:         m.ID,
		Identifier: m.Identifier,
		MACAddress: m.MACAddress,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.ImagePath != nil && m.ImageSize != nil {
		tag.Image = &entity.Image{Path: *m.ImagePath, Size: *m.ImageSize}
	}
	return tag
}

// Models lists the Gorm models owned by this package, in migration order
func Models() []interface{} {
	return []interface{}{&TagModel{}}
}

// Option configures a tag repository
type Option func(*tagRepository)

// WithQueryTimeout bounds every transaction
func WithQueryTimeout(d time.Duration) Option {
	return func(r *tagRepository) {
		r.queryTimeout = d
	}
}

// WithClock overrides the time source used for created_at/updated_at
func WithClock(now func() time.Time) Option {
	return func(r *tagRepository) {
		r.now = now
	}
}

// tagRepository implements repository.TagRepository
type tagRepository struct {
	db           *gorm.DB
	queryTimeout time.Duration
	now          func() time.Time
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *gorm.DB, opts ...Option) repository.TagRepository {
	r := &tagRepository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// transaction runs fn in a transaction bounded by the query timeout.
// Gorm commits on nil and rolls back on error or panic.
func (r *tagRepository) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *tagRepository) findBy(ctx context.Context, column, value string) (*entity.Tag, error) {
	var model TagModel
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		return tx.Where(column+" = ?", value).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

func (r *tagRepository) FindByIdentifier(ctx context.Context, identifier string) (*entity.Tag, error) {
	return r.findBy(ctx, "identifier", identifier)
}

func (r *tagRepository) FindByMAC(ctx context.Context, mac string) (*entity.Tag, error) {
	return r.findBy(ctx, "mac_address", mac)
}

func (r *tagRepository) Create(ctx context.Context, mac string) (*entity.Tag, error) {
	var model TagModel
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		var existing TagModel
		err := tx.Where("mac_address = ?", mac).First(&existing).Error
		if err == nil {
			return apperrors.ErrAlreadyExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := r.now().UTC()
		model = TagModel{
			Identifier: uuid.NewString(),
			MACAddress: mac,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		// a concurrent registration won the race to the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrAlreadyExists
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

func (r *tagRepository) AttachImage(ctx context.Context, tag *entity.Tag, path string, size int64) error {
	now := r.now().UTC()
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&TagModel{}).
			Where("id = ?", tag.ID).
			Updates(map[string]interface{}{
				"image_path": path,
				"image_size": size,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	tag.Image = &entity.Image{Path: path, Size: size}
	tag.UpdatedAt = now
	return nil
}
