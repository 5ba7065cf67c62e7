package tag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/leondli/tagserver/internal/adapter/storage"
	"github.com/leondli/tagserver/internal/domain/entity"
	"github.com/leondli/tagserver/internal/domain/repository"
	"github.com/leondli/tagserver/internal/infrastructure/logger"
	apperrors "github.com/leondli/tagserver/pkg/errors"
)

// Rejection messages returned to clients
const (
	MsgMACRequired     = "tag_mac_address is required"
	MsgMACTooLong      = "tag_mac_address must be at most 17 characters"
	MsgMACFormat       = "tag_mac_address must be six colon-separated hex octets, e.g. AA:BB:CC:DD:EE:FF"
	MsgImageRequired   = "image file is required"
	MsgImageNotJPEG    = "image must be a JPEG"
	MsgImageSize       = "Inappropriate image size"
	MsgImageContent    = "image content is not a JPEG"
	MsgImageUnreadable = "failed to read image"
)

const jpegContentTypePrefix = "image/jpeg"

var macPattern = regexp.MustCompile(`^[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}$`)

// UseCase defines the tag use case interface
type UseCase interface {
	Register(ctx context.Context, input *entity.RegisterInput) (*entity.RegisterResponse, error)
	AttachImage(ctx context.Context, identifier string, upload *entity.ImageUpload) (*entity.Tag, error)
}

// Config holds the validation limits of the tag use case
type Config struct {
	MaxImageSize  int64
	VerifyContent bool
	StrictMAC     bool
}

type tagUseCase struct {
	tagRepo repository.TagRepository
	images  storage.ImageStorage
	cfg     Config
	log     zerolog.Logger
}

// NewUseCase creates a new tag use case
func NewUseCase(
	tagRepo repository.TagRepository,
	images storage.ImageStorage,
	cfg Config,
) UseCase {
	return &tagUseCase{
		tagRepo: tagRepo,
		images:  images,
		cfg:     cfg,
		log:     logger.NewLogger("tag"),
	}
}

func (u *tagUseCase) Register(ctx context.Context, input *entity.RegisterInput) (*entity.RegisterResponse, error) {
	if input == nil || input.MACAddress == nil {
		return nil, apperrors.ValidationError(MsgMACRequired)
	}

	mac := strings.TrimSpace(*input.MACAddress)
	if err := u.validateMAC(mac); err != nil {
		return nil, err
	}

	tag, err := u.tagRepo.Create(ctx, mac)
	if err != nil {
		if apperrors.IsAlreadyExists(err) {
			return nil, apperrors.AlreadyExistsError(fmt.Sprintf("Tag with MAC address %s already exists", mac))
		}
		return nil, apperrors.InternalError("failed to create tag", err)
	}

	u.log.Info().
		Str("identifier", tag.Identifier).
		Str("mac_address", tag.MACAddress).
		Msg("Tag registered")

	return tag.ToRegisterResponse(), nil
}

func (u *tagUseCase) validateMAC(mac string) error {
	if mac == "" {
		return apperrors.ValidationError(MsgMACRequired)
	}
	if len(mac) > entity.MACAddressMaxLength {
		return apperrors.ValidationError(MsgMACTooLong)
	}
	if u.cfg.StrictMAC && !macPattern.MatchString(mac) {
		return apperrors.ValidationError(MsgMACFormat)
	}
	return nil
}

// AttachImage validates the upload, stores it and records it on the tag.
// The tag is only updated after the file has been written.
func (u *tagUseCase) AttachImage(ctx context.Context, identifier string, upload *entity.ImageUpload) (*entity.Tag, error) {
	tag, err := u.tagRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFoundError("Tag")
		}
		return nil, apperrors.InternalError("failed to get tag", err)
	}

	content, err := u.validateUpload(upload)
	if err != nil {
		u.log.Debug().
			Str("identifier", identifier).
			Err(err).
			Msg("Image rejected")
		return nil, err
	}

	path, err := u.images.Save(ctx, tag.Identifier, content)
	if err != nil {
		return nil, apperrors.InternalError("failed to store image", err)
	}

	// record what actually landed on disk
	size, err := u.images.GetSize(ctx, path)
	if err != nil {
		return nil, apperrors.InternalError("failed to stat image", err)
	}
	if size != int64(len(content)) {
		return nil, apperrors.InternalError("failed to store image",
			fmt.Errorf("short write: %d of %d bytes", size, len(content)))
	}

	if err := u.tagRepo.AttachImage(ctx, tag, path, size); err != nil {
		// the file stays on disk unreferenced, like any superseded image
		return nil, apperrors.InternalError("failed to record image", err)
	}

	u.log.Info().
		Str("identifier", tag.Identifier).
		Str("path", path).
		Int64("size", size).
		Msg("Image attached")

	return tag, nil
}

func (u *tagUseCase) validateUpload(upload *entity.ImageUpload) ([]byte, error) {
	if upload != nil && upload.Err != nil {
		if errors.Is(upload.Err, entity.ErrUploadTooLarge) {
			return nil, apperrors.ValidationError(MsgImageSize)
		}
		return nil, apperrors.ValidationError(MsgImageRequired)
	}
	if upload == nil || upload.Body == nil || upload.Filename == "" {
		return nil, apperrors.ValidationError(MsgImageRequired)
	}
	if !strings.HasPrefix(upload.ContentType, jpegContentTypePrefix) {
		return nil, apperrors.ValidationError(MsgImageNotJPEG)
	}

	// one byte past the limit is enough to tell it was exceeded
	content, err := io.ReadAll(io.LimitReader(upload.Body, u.cfg.MaxImageSize+1))
	if err != nil {
		return nil, apperrors.ValidationError(MsgImageUnreadable)
	}
	if len(content) == 0 || int64(len(content)) > u.cfg.MaxImageSize {
		return nil, apperrors.ValidationError(MsgImageSize)
	}

	if u.cfg.VerifyContent && !mimetype.Detect(content).Is(jpegContentTypePrefix) {
		return nil, apperrors.ValidationError(MsgImageContent)
	}
	return content, nil
}
