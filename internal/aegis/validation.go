package aegis

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

type RouteRequest struct {
	StartArea int `json:"startArea" validate:"required,min=1"`
	EndArea   int `json:"endArea" validate:"required,min=1"`
	Month     int `json:"month" validate:"required,min=1,max=12"`
	Hour      int `json:"hour" validate:"min=0,max=23"`
	Year      int `json:"year" validate:"required,min=1"`
}

type CompareRequest struct {
	A     int `json:"a" validate:"required,min=1"`
	B     int `json:"b" validate:"required,min=1"`
	Month int `json:"month" validate:"required,min=1,max=12"`
	Hour  int `json:"hour" validate:"min=0,max=23"`
	Year  int `json:"year" validate:"required,min=1"`
}

type TrendsRequest struct {
	Area  int `json:"id" validate:"required,min=1"`
	Year  int `json:"year" validate:"required,min=1"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

type SignupRequest struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
}

type SOSRequest struct {
	Location struct {
		Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
		Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	} `json:"location"`
	Timestamp string `json:"timestamp"`
}

func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return CodeError{code: http.StatusBadRequest, msg: formatValidationError(err).Error()}
	}
	return nil
}

// formatValidationError reports the first failed field in a readable form.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "email":
			return fmt.Errorf("%s: must be a valid email address", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}
