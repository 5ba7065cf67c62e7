package entity

import (
	"errors"
	"io"
	"time"
)

// MACAddressMaxLength is the storage width of a MAC address
const MACAddressMaxLength = 17

// Tag represents a registered hardware tag
type Tag struct {
	ID         int64     `json:"-"`
	Identifier string    `json:"identifier"`
	MACAddress string    `json:"mac_address"`
	Image      *Image    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Image is the most recently accepted image of a tag. Path and size are
// always recorded together.
type Image struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// HasImage reports whether an image has been attached
func (t *Tag) HasImage() bool {
	return t.Image != nil
}

// RegisterInput represents tag registration input
type RegisterInput struct {
	MACAddress *string `json:"tag_mac_address"`
}

// RegisterResponse represents the registration data returned to client
type RegisterResponse struct {
	MACAddress string `json:"tag_mac_address"`
	Identifier string `json:"tag_uuid"`
}

// ToRegisterResponse converts Tag to RegisterResponse
func (t *Tag) ToRegisterResponse() *RegisterResponse {
	return &RegisterResponse{
		MACAddress: t.MACAddress,
		Identifier: t.Identifier,
	}
}

// ErrUploadTooLarge marks a request body that exceeded the upload limit
// before the file part could be read
var ErrUploadTooLarge = errors.New("upload exceeds size limit")

// ImageUpload is an uploaded file as declared by the client
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader

	// Err is set when the multipart body could not be parsed
	Err error
}
