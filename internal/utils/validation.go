package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, fieldMessage(e))
	}
	return strings.Join(messages, ", ")
}

func fieldMessage(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", field, e.Param())
	}
	return fmt.Sprintf("%s failed the %s check", field, e.Tag())
}

func bind(c *gin.Context, obj any, b binding.Binding) bool {
	if err := c.ShouldBindWith(obj, b); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			BadRequest(c, "Validation failed: "+FormatValidationError(err))
		} else {
			BadRequest(c, "Invalid request payload: "+err.Error())
		}
		return false
	}
	return true
}

// BindAndValidate binds the JSON request body to a struct and validates its
// binding tags. If either fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj any) bool {
	return bind(c, obj, binding.JSON)
}

// BindQuery is BindAndValidate for query strings.
func BindQuery(c *gin.Context, obj any) bool {
	return bind(c, obj, binding.Query)
}

// BindForm is BindAndValidate for multipart and urlencoded forms.
func BindForm(c *gin.Context, obj any) bool {
	return bind(c, obj, binding.Form)
}
