package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openflighthpc/cluster-builder/internal/errdef"
)

// ErrorResponse is the JSON:API error document (https://jsonapi.org/format/#errors) returned for
// every failed request.
type ErrorResponse struct {
	Errors []ErrorObject `json:"errors"`
}

type ErrorObject struct {
	Status string       `json:"status"`
	Title  string       `json:"title"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
}

type ErrorSource struct {
	Pointer string `json:"pointer"`
}

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ginErr := c.Errors.Last()
		if ginErr == nil || c.Writer.Written() {
			return
		}
		err := ginErr.Err

		status := statusOf(err)
		if status == http.StatusInternalServerError && c.Writer.Status() != http.StatusOK {
			// aborted using c.AbortWithError
			status = c.Writer.Status()
		}

		object := ErrorObject{
			Status: strconv.Itoa(status),
			Title:  http.StatusText(status),
			Detail: err.Error(),
		}
		if title, ok := errdef.Title(err); ok {
			object.Title = title
		}
		if pointer, ok := errdef.Pointer(err); ok {
			object.Source = &ErrorSource{Pointer: pointer}
		}
		if status == http.StatusInternalServerError {
			id, _ := GetCorrelationID(c.Request.Context())
			object.Detail = fmt.Sprintf("something went wrong. We'll look into it if you send us the id %q :)", id)
		}

		c.JSON(status, ErrorResponse{Errors: []ErrorObject{object}})
	}
}

func statusOf(err error) int {
	if status, ok := errdef.UpstreamStatus(err); ok {
		return status
	}

	switch {
	case errdef.IsBadRequest(err):
		return http.StatusBadRequest
	case errdef.IsUnauthorized(err):
		return http.StatusUnauthorized
	case errdef.IsPaymentRequired(err):
		return http.StatusPaymentRequired
	case errdef.IsForbidden(err):
		return http.StatusForbidden
	case errdef.IsNotFound(err):
		return http.StatusNotFound
	case errdef.IsConflict(err):
		return http.StatusConflict
	case errdef.IsUnsupportedMediaType(err):
		return http.StatusUnsupportedMediaType
	case errdef.IsBadGateway(err):
		return http.StatusBadGateway
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}

	return http.StatusInternalServerError
}
