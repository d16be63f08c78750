package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/warp/shift-engine/schedule"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	for tag, fn := range map[string]validator.Func{
		"clock12": validateClock12,
		"weekday": validateWeekday,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

// validateClock12 accepts "H:MM AM/PM" strings.
func validateClock12(fl validator.FieldLevel) bool {
	_, err := schedule.ParseClockTime(fl.Field().String())
	return err == nil
}

func validateWeekday(fl validator.FieldLevel) bool {
	_, err := schedule.ParseWeekday(fl.Field().String())
	return err == nil
}

// fieldErrors flattens validator output into API field errors.
func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		fe := FieldError{Field: e.Field(), Tag: e.Tag()}
		switch e.Tag() {
		case "required":
			fe.Message = fmt.Sprintf("%s is required", e.Field())
		case "required_with":
			fe.Message = fmt.Sprintf("%s is required when %s is set", e.Field(), e.Param())
		case "max":
			fe.Message = fmt.Sprintf("%s must be at most %s long", e.Field(), e.Param())
		case "oneof":
			fe.Message = fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
		case "datetime":
			fe.Message = fmt.Sprintf("%s must be a YYYY-MM-DD date", e.Field())
		case "clock12":
			fe.Message = fmt.Sprintf("%s must look like 09:00 AM", e.Field())
		case "weekday":
			fe.Message = fmt.Sprintf("%s contains an unknown weekday", e.Field())
		default:
			fe.Message = fmt.Sprintf("%s failed %s validation", e.Field(), e.Tag())
		}
		out = append(out, fe)
	}
	return out
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the 400 response itself and reports whether the caller may proceed.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		if fields := fieldErrors(err); fields != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Code:    "validation_failed",
				Details: fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}
