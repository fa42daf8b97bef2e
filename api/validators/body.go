// Package validators turns raw request input into validated values or
// VALIDATION errors carrying per-field details.
package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
)

const maxJSONBodyBytes = 1 << 20

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Field errors are reported under their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}()

// tagMessages maps validator tags to a message; %s receives the tag param.
var tagMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"url":      "must be a valid url",
	"uuid":     "must be a valid uuid",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"gte":      "must be %s or more",
	"lte":      "must be %s or less",
	"oneof":    "must be one of: %s",
}

// DecodeJSONBody reads a single JSON object into dest, rejecting unknown
// fields, then applies dest's validate tags.
func DecodeJSONBody(r *http.Request, dest any) error {
	defer io.Copy(io.Discard, r.Body)

	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, msg).
			WithDetails(map[string]any{"error": err.Error()})
	}
	return ValidateStruct(dest)
}

// ValidateStruct applies validate tags to values assembled by hand, e.g. from
// multipart forms.
func ValidateStruct(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func fieldMessage(fe validator.FieldError) string {
	tmpl, ok := tagMessages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, fe.Param())
	}
	return tmpl
}
