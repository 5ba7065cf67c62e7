package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leondli/tagserver/internal/domain/entity"
	"github.com/leondli/tagserver/internal/usecase/tag"
	"github.com/leondli/tagserver/pkg/response"
)

// ImageField is the multipart field carrying the image
const ImageField = "image"

// TagHandler handles tag requests
type TagHandler struct {
	tagUseCase   tag.UseCase
	exposeErrors bool
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tagUseCase tag.UseCase, exposeErrors bool) *TagHandler {
	return &TagHandler{tagUseCase: tagUseCase, exposeErrors: exposeErrors}
}

// Register godoc
// @Summary Register a tag by MAC address
// @Tags tags
// @Accept json
// @Produce json
// @Param request body entity.RegisterInput true "Tag input"
// @Success 201 {object} entity.RegisterResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /add_tag [post]
func (h *TagHandler) Register(c *gin.Context) {
	var input entity.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		if errors.Is(err, io.EOF) {
			response.BadRequest(c, tag.MsgMACRequired)
			return
		}
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.tagUseCase.Register(c.Request.Context(), &input)
	if err != nil {
		handleError(c, err, styleError, h.exposeErrors)
		return
	}

	response.Created(c, resp)
}

// AttachImage godoc
// @Summary Attach a JPEG image to a tag
// @Tags tags
// @Accept multipart/form-data
// @Produce json
// @Param identifier path string true "Tag identifier"
// @Param image formData file true "JPEG image"
// @Success 200 {object} response.StatusResponse
// @Failure 400 {object} response.StatusResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /update_tag/{identifier} [post]
func (h *TagHandler) AttachImage(c *gin.Context) {
	identifier := c.Param("identifier")

	upload, closeFn := readUpload(c)
	defer closeFn()

	if _, err := h.tagUseCase.AttachImage(c.Request.Context(), identifier, upload); err != nil {
		handleError(c, err, styleStatus, h.exposeErrors)
		return
	}

	response.StatusOK(c)
}

// readUpload extracts the image part. A missing part yields a nil upload;
// parse failures are carried in ImageUpload.Err so the tag lookup still
// runs first.
func readUpload(c *gin.Context) (*entity.ImageUpload, func()) {
	noop := func() {}

	header, err := c.FormFile(ImageField)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrMissingFile):
			return nil, noop
		case errors.As(err, &maxErr):
			return &entity.ImageUpload{Err: entity.ErrUploadTooLarge}, noop
		default:
			return &entity.ImageUpload{Err: err}, noop
		}
	}

	file, err := header.Open()
	if err != nil {
		return &entity.ImageUpload{Err: err}, noop
	}

	return &entity.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}, closer(file)
}

func closer(file multipart.File) func() {
	return func() {
		_ = file.Close()
	}
}
