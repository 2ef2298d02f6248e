package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/labstack/echo/v4"
	"gopkg.in/go-playground/validator.v9"
)

// CustomValidator plugs validator.v9 into echo's c.Validate.
type CustomValidator struct {
	validate *validator.Validate
}

// NewCustomValidator reports fields by their JSON names.
func NewCustomValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validate: v}
}

func (v *CustomValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// bindAndValidate decodes the JSON body into req and validates it. The
// returned map is nil on success and otherwise holds one entry per field.
func bindAndValidate(c echo.Context, req interface{}) (map[string]any, error) {
	if err := c.Bind(req); err != nil {
		return nil, err
	}
	if err := c.Validate(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]any, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = validationMessage(fe)
			}
			return details, nil
		}
		return nil, err
	}
	return nil, nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "numeric":
		return "must contain digits only"
	case "ip":
		return "must be a valid IP address"
	case "url":
		return "must be a valid URL"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
