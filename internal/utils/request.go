package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ms-restaurant/internal/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return strings.Join(parts, "; ")
}

// DecodeAndValidate decodes a JSON body into T and runs its validate tags.
func DecodeAndValidate[T any](r *http.Request) (*T, error) {
	defer r.Body.Close()

	var body T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return nil, apperr.BadRequest("Invalid request body: %v", err)
	}

	if err := Validate(body); err != nil {
		return nil, err
	}
	return &body, nil
}

func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return mapValidationErrors(ve)
		}
		return err
	}
	return nil
}

func mapValidationErrors(errs validator.ValidationErrors) *ValidationError {
	out := &ValidationError{}
	for _, e := range errs {
		var message string
		switch e.Tag() {
		case "required":
			message = "is required"
		case "uuid", "uuid4":
			message = "must be a valid UUID"
		case "min":
			message = "must be at least " + e.Param()
		case "max":
			message = "must be at most " + e.Param()
		case "gte":
			message = "must be greater than or equal to " + e.Param()
		case "gt":
			message = "must be greater than " + e.Param()
		case "oneof":
			message = "must be one of: " + e.Param()
		case "excluded_with":
			message = "cannot be combined with " + strings.ToLower(e.Param())
		case "url":
			message = "must be a valid URL"
		default:
			message = "is invalid"
		}
		out.Errors = append(out.Errors, FieldError{
			Field:   lowerFirst(e.Namespace()),
			Message: message,
		})
	}
	return out
}

// lowerFirst turns "CreateOrderRequest.Items[0].Quantity" into "items[0].quantity".
func lowerFirst(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

// QueryInt reads an integer query parameter, falling back when absent.
func QueryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.BadRequest("Query parameter %s must be an integer", key)
	}
	return n, nil
}

func RequireParam(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.BadRequest("%s is required", name)
	}
	return nil
}

// MustPositive is a small guard used by services for amounts and points.
func MustPositive(name string, n int64) error {
	if n <= 0 {
		return apperr.BadRequest("%s must be greater than 0", name)
	}
	return nil
}
