package validators

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"task-reminder/internal/http/dto"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names instead of Go ones.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func ValidateCreateTaskRequest(r *dto.CreateTaskRequest) error {
	if err := validate.Struct(r); err != nil {
		return toHTTPError(err)
	}
	if strings.TrimSpace(r.Body()) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	return nil
}

func ValidateUpdateTaskRequest(r *dto.UpdateTaskRequest) error {
	if err := validate.Struct(r); err != nil {
		return toHTTPError(err)
	}
	return nil
}

func toHTTPError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	fe := verrs[0]
	return echo.NewHTTPError(http.StatusBadRequest, describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
