package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform response shape for every JSON endpoint. Success
// responses carry data and optional meta; failures carry error and optional
// details.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// HTTPError is a handler failure with a client-facing status and message.
// Details are included in the envelope when present.
type HTTPError struct {
	Status  int
	Message string
	Details interface{}
}

func (e *HTTPError) Error() string { return e.Message }

func NewHTTPError(status int, message string) *HTTPError {
	return &HTTPError{Status: status, Message: message}
}

func BadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message)
}

func Unauthorized(message string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message)
}

func NotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message)
}

func Conflict(message string) *HTTPError {
	return NewHTTPError(http.StatusConflict, message)
}

func Internal(message string) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message)
}

// WithDetails attaches structured details to the error.
func (e *HTTPError) WithDetails(details interface{}) *HTTPError {
	return &HTTPError{Status: e.Status, Message: e.Message, Details: details}
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

func respondMeta(c *gin.Context, data, meta interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: meta})
}

func respondErr(c *gin.Context, err error) {
	if httpErr, ok := err.(*HTTPError); ok {
		c.AbortWithStatusJSON(httpErr.Status, Envelope{
			Success: false,
			Error:   httpErr.Message,
			Details: httpErr.Details,
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, Envelope{
		Success: false,
		Error:   "internal server error",
	})
}

// recoveryHandler turns panics into the standard failure envelope.
func recoveryHandler(c *gin.Context, _ interface{}) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, Envelope{
		Success: false,
		Error:   "internal server error",
	})
}
