package utils

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// ValidationError maps json field names to the rule each one failed
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

// ValidateStruct validates a struct using go-playground/validator
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		details := make(map[string]string, len(validationErrors))
		for _, fe := range validationErrors {
			details[fe.Field()] = fe.Tag()
		}
		return &ValidationError{Fields: details}
	}
	return nil
}

// InvalidFields returns the sorted json names of the fields of s that fail validation
func InvalidFields(s interface{}) ([]string, error) {
	err := ValidateStruct(s)
	if err == nil {
		return nil, nil
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		return nil, err
	}

	fields := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields, nil
}
