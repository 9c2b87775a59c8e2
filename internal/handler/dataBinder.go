package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/openflighthpc/cluster-builder/internal/errdef"
)

// SchemaErrorTitle is the title of error responses to request bodies failing validation.
const SchemaErrorTitle = "JSON schema error"

func DataBinder(c *gin.Context, req any) error {
	if c.ContentType() != "application/json" {
		reason := fmt.Sprintf("%s only accepts content of type application/json", c.FullPath())
		return errdef.NewUnsupportedMediaType("%s", reason)
	}

	if err := c.ShouldBindJSON(req); err != nil {
		return BindingError(err)
	}

	return nil
}

// BindingError converts an error returned by gin's binding into a bad request. The first field
// error is reported with a JSON pointer to the offending field.
func BindingError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return errdef.WithTitle(errdef.NewBadRequest("error binding data: %v", err), SchemaErrorTitle)
	}

	fieldErr := validationErrors[0]
	badRequest := errdef.WithTitle(errdef.NewBadRequest("%s", formatFieldError(fieldErr)), SchemaErrorTitle)
	return errdef.WithPointer(badRequest, pointer(fieldErr.Namespace()))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is a required property", field)
	case "oneOf", "oneof":
		return fmt.Sprintf("'%s' must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("'%s' is not a 'uri'", field)
	default:
		return fmt.Sprintf("'%s' failed validation (%s)", field, e.Tag())
	}
}

// pointer turns a validator namespace like "createClusterRequest.cluster.name" into "/cluster/name".
// The root struct name is dropped.
func pointer(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		return ""
	}
	return "/" + strings.ReplaceAll(path, ".", "/")
}
