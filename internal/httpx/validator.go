package httpx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// ValidateStruct checks validate tags and returns one detail per failing field.
func ValidateStruct(s any) []ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ErrorDetail{{Field: "", Message: err.Error()}}
	}

	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		var message string
		switch fe.Tag() {
		case "required", "notblank":
			message = fmt.Sprintf("%s is required", field)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}

		details = append(details, ErrorDetail{
			Field:   strings.ToLower(field[:1]) + field[1:],
			Message: message,
		})
	}
	return details
}
