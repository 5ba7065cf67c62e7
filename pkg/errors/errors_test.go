package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorClassification(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		notFound   bool
		exists     bool
		validation bool
	}{
		{"not found", NotFoundError("tag"), true, false, false},
		{"already exists", AlreadyExistsError("duplicate"), false, true, false},
		{"validation", ValidationError("bad"), false, false, true},
		{"internal", InternalError("boom", errors.New("db down")), false, false, false},
		{"wrapped", fmt.Errorf("outer: %w", NotFoundError("tag")), true, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.notFound, IsNotFound(tc.err))
			assert.Equal(t, tc.exists, IsAlreadyExists(tc.err))
			assert.Equal(t, tc.validation, IsValidation(tc.err))
		})
	}
}

func TestAppErrorMessage(t *testing.T) {
	err := InternalError("failed to create tag", errors.New("connection refused"))
	assert.Equal(t, "failed to create tag: connection refused", err.Error())

	assert.Equal(t, "tag not found: resource not found", NotFoundError("tag").Error())
}

func TestInternalErrorWithoutCause(t *testing.T) {
	err := InternalError("unexpected", nil)
	assert.ErrorIs(t, err, ErrInternalServer)
}

func TestGetAppError(t *testing.T) {
	wrapped := fmt.Errorf("ctx: %w", ValidationError("image must be a JPEG"))
	appErr := GetAppError(wrapped)
	if assert.NotNil(t, appErr) {
		assert.Equal(t, "image must be a JPEG", appErr.Message)
	}

	assert.Nil(t, GetAppError(errors.New("plain")))
}
