package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/trackify-io/trackify/pkg/errs"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var validationErr = errors.New("request validation")

// Validate checks v against its validate tags. Failures are returned as an
// *errs.ValidateError whose fields mirror the JSON shape of v.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.NewValidateError(err)
	}

	validateErr := errs.NewValidateError(validationErr)
	root := reflect.TypeOf(v)
	for _, fe := range fieldErrs {
		path := jsonPath(root, strings.Split(fe.StructNamespace(), ".")[1:])
		if len(path) > 0 {
			setField(validateErr.Fields, path, formatError(fe))
		}
	}
	return validateErr
}

// IsEmail reports whether v is a syntactically valid email address.
func IsEmail(v string) bool {
	return validate.Var(v, "required,email") == nil
}

// jsonPath maps struct field names to their JSON names, skipping names that
// cannot be resolved.
func jsonPath(t reflect.Type, fields []string) []string {
	path := make([]string, 0, len(fields))
	for _, name := range fields {
		for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Map {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			break
		}
		// slice elements show up as Items[0]
		name, _, _ = strings.Cut(name, "[")
		f, ok := t.FieldByName(name)
		if !ok {
			continue
		}
		path = append(path, fieldName(f))
		t = f.Type
	}
	return path
}

func setField(node map[string]interface{}, path []string, msg string) {
	for _, name := range path[:len(path)-1] {
		child, ok := node[name].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			node[name] = child
		}
		node = child
	}
	node[path[len(path)-1]] = msg
}

func formatError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field missing"
	case "oneof":
		return fmt.Sprintf("invalid value: %v", fe.Value())
	case "gt":
		return fmt.Sprintf("value must be > %s", fe.Param())
	case "gte":
		return fmt.Sprintf("value must be >= %s", fe.Param())
	case "lt":
		return fmt.Sprintf("value must be < %s", fe.Param())
	case "lte":
		return fmt.Sprintf("value must be <= %s", fe.Param())
	case "min":
		return fmt.Sprintf("length must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("length must be at most %s", fe.Param())
	case "email":
		return "invalid email"
	case "url":
		return "invalid url"
	}
	return fe.Error()
}

func fieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}
