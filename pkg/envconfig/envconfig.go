// Package envconfig populates structs from environment variables.
//
// Unlike most env loaders it never applies `default` tags: values that are
// absent from the environment keep whatever the struct already holds, so it
// can be layered on top of a YAML file.
package envconfig

import (
	"encoding"
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Reader looks up a single key.
type Reader func(key string) (value string, ok bool, err error)

var EnvironmentReader Reader = func(key string) (string, bool, error) {
	value, ok := os.LookupEnv(key)
	return value, ok, nil
}

type ParseError struct {
	Key   string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("envconfig: failed to assign %s to %s: %v", e.Key, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Process reads the process environment.
func Process(prefix string, dst any) error {
	return ProcessWithReader(prefix, dst, EnvironmentReader)
}

// ProcessWithReader walks dst (a pointer to struct). A field's key is the
// prefix joined with its `envconfig` tag, or its upper-cased name when the
// tag is absent. Nested structs extend the prefix, embedded ones do not.
func ProcessWithReader(prefix string, dst any, reader Reader) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("envconfig: dst must be a pointer to struct")
	}
	return process(strings.ToUpper(prefix), v.Elem(), reader)
}

func process(prefix string, v reflect.Value, reader Reader) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := v.Field(i)
		tag := field.Tag.Get("envconfig")
		if tag == "-" {
			continue
		}

		if field.Anonymous && fv.Kind() == reflect.Struct {
			if err := process(prefix, fv, reader); err != nil {
				return err
			}
			continue
		}

		name := tag
		if name == "" {
			name = strings.ToUpper(field.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "_" + name
		}

		if fv.Kind() == reflect.Struct && !decodable(fv) {
			if err := process(key, fv, reader); err != nil {
				return err
			}
			continue
		}

		value, ok, err := reader(key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := assign(fv, value); err != nil {
			return &ParseError{Key: key, Field: field.Name, Err: err}
		}
	}
	return nil
}

func decodable(v reflect.Value) bool {
	if !v.CanAddr() {
		return false
	}
	ptr := v.Addr().Interface()
	if _, ok := ptr.(yaml.Unmarshaler); ok {
		return true
	}
	_, ok := ptr.(encoding.TextUnmarshaler)
	return ok
}

func assign(v reflect.Value, value string) error {
	if v.Kind() == reflect.String {
		v.SetString(value)
		return nil
	}
	ptr := reflect.New(v.Type())
	if err := yaml.Unmarshal([]byte(value), ptr.Interface()); err != nil {
		return err
	}
	v.Set(ptr.Elem())
	return nil
}
