package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status values used in upload responses
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// RequestIDKey is the key used to store request ID in gin context
const RequestIDKey = "X-Request-ID"

// ErrorResponse is the body returned for registration, lookup and server failures
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the body returned by the image attach endpoint
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// JSON sends data with the given status
func JSON(c *gin.Context, httpStatus int, data interface{}) {
	c.JSON(httpStatus, data)
}

// Success sends a 200 response
func Success(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

// Created sends a 201 response
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// StatusOK sends {"status":"success"}
func StatusOK(c *gin.Context) {
	JSON(c, http.StatusOK, StatusResponse{Status: StatusSuccess})
}

// Fail sends {"status":"fail","message":...} with the given status
func Fail(c *gin.Context, httpStatus int, message string) {
	JSON(c, httpStatus, StatusResponse{Status: StatusFail, Message: message})
}

// Error sends {"error":...} with the given status
func Error(c *gin.Context, httpStatus int, message string) {
	JSON(c, httpStatus, ErrorResponse{Error: message})
}

// BadRequest sends a bad request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// NotFound sends a not found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError sends an internal server error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, data interface{}) {
	JSON(c, http.StatusServiceUnavailable, data)
}
