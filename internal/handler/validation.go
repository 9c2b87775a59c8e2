package handler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func oneOf(fl validator.FieldLevel) bool {
	matches := strings.Split(fl.Param(), " ")
	value := fl.Field().String()
	for _, match := range matches {
		if match == value {
			return true
		}
	}
	return false
}

// jsonName makes field errors refer to the JSON name of a field rather than its Go name.
func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// RegisterValidation Inspiration: https://blog.logrocket.com/gin-binding-in-go-a-tutorial-with-examples/
func RegisterValidation() error {
	v, err := engine()
	if err != nil {
		return err
	}
	v.RegisterTagNameFunc(jsonName)
	return v.RegisterValidation("oneOf", oneOf)
}

// RegisterStructValidation registers a struct level validation for each of the given types with
// gin's validation engine.
func RegisterStructValidation(fn validator.StructLevelFunc, types ...any) error {
	v, err := engine()
	if err != nil {
		return err
	}
	v.RegisterStructValidation(fn, types...)
	return nil
}

func engine() (*validator.Validate, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return v, nil
	}
	return nil, fmt.Errorf("error getting validation engine")
}
