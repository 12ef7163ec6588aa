package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists the input fields that failed validation, keyed by
// field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// validateStruct runs the validate tags of s and converts failures into a
// *ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = name + " is required"
		case "email":
			fields[name] = name + " must be a valid email address"
		case "url":
			fields[name] = name + " must be an absolute URL"
		case "max":
			fields[name] = fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		case "gt":
			fields[name] = fmt.Sprintf("%s must be greater than %s", name, fe.Param())
		default:
			fields[name] = fmt.Sprintf("%s failed %q validation", name, fe.Tag())
		}
	}
	return &ValidationError{Fields: fields}
}
