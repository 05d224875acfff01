// Package validation plugs go-playground/validator into Echo and turns field
// errors into apperr validation failures keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	govalidator "github.com/go-playground/validator/v10"

	"github.com/iliyamo/cinema-booking/internal/apperr"
)

// Validator satisfies echo.Validator.
type Validator struct {
	v *govalidator.Validate
}

// New registers the custom tags used by request bodies:
//
//	ymd   a YYYY-MM-DD calendar date
//	hhmm  a 24h HH:MM wall-clock time
func New() *Validator {
	v := govalidator.New(govalidator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("ymd", layout("2006-01-02"))
	_ = v.RegisterValidation("hhmm", layout("15:04"))
	return &Validator{v: v}
}

func layout(l string) govalidator.Func {
	return func(fl govalidator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != len(l) {
			return false
		}
		_, err := time.Parse(l, s)
		return err == nil
	}
}

// Validate checks i and returns an *apperr.Error describing every invalid field.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs govalidator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(apperr.ReasonInvalidInput, err.Error())
	}
	fields := Fields(verrs)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return apperr.Wrap(apperr.KindValidation, apperr.ReasonInvalidInput, strings.Join(parts, "; "), err)
}

// Fields maps each failing field to a readable message.
func Fields(errs govalidator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field()] = message(e)
	}
	return out
}

func message(e govalidator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return fmt.Sprintf("the minimum value is %s", e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		return fmt.Sprintf("the maximum value is %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", e.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "ymd":
		return "must be formatted as YYYY-MM-DD"
	case "hhmm":
		return "must be formatted as HH:MM"
	default:
		return "this field is invalid"
	}
}
