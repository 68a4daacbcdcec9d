package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Bucket type validation
	validate.RegisterValidation("bucket_type", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		for _, v := range []string{"purchased", "promotional", "subscription"} {
			if t == v {
				return true
			}
		}
		return false
	})

	// Billing period validation
	validate.RegisterValidation("billing_period", func(fl validator.FieldLevel) bool {
		p := fl.Field().String()
		return p == "monthly" || p == "yearly" || p == ""
	})

	// Generation kind validation
	validate.RegisterValidation("generation_kind", func(fl validator.FieldLevel) bool {
		k := fl.Field().String()
		for _, v := range []string{"image", "image_hd", "upscale", "video"} {
			if k == v {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field -> message, or nil
// when the struct is valid.
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = messageFor(fieldErr)
	}
	return details
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return "Value is too short or too small (min: " + fe.Param() + ")"
	case "max":
		return "Value is too long or too large (max: " + fe.Param() + ")"
	case "bucket_type":
		return "Must be one of: purchased, promotional, subscription"
	case "billing_period":
		return "Must be one of: monthly, yearly"
	case "generation_kind":
		return "Must be one of: image, upscale, variation"
	case "url":
		return "Must be a valid URL"
	default:
		return "Invalid value"
	}
}
