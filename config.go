package agentos

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/golobby/cast"
)

// Config binding errors
var (
	ErrConfigNotPointer = errors.New("config target must be a non-nil struct pointer")
	ErrConfigBadValue   = errors.New("config value cannot be converted")
)

// BindConfig copies a descriptor's opaque config bag into a typed struct.
// Fields are matched by the `config` tag, falling back to the lowercased
// field name. String values are coerced to the field type, so manifests may
// carry "8080" for an int field or "30s"-style values for strings.
//
// Modules call this from Init to avoid hand-rolled map plumbing:
//
//	type authConfig struct {
//		Issuer   string `config:"issuer"`
//		TokenTTL int    `config:"token_ttl"`
//	}
//	var cfg authConfig
//	if err := agentos.BindConfig(config, &cfg); err != nil { ... }
func BindConfig(config map[string]any, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrConfigNotPointer
	}

	elem := rv.Elem()
	rt := elem.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		key := field.Tag.Get("config")
		if key == "" {
			key = strings.ToLower(field.Name)
		}
		raw, ok := config[key]
		if !ok || raw == nil {
			continue
		}
		if err := setConfigField(elem.Field(i), raw); err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrConfigBadValue, key, err)
		}
	}
	return nil
}

// setConfigField assigns raw to the field, coercing string values through
// golobby/cast when the types do not match directly.
func setConfigField(field reflect.Value, raw any) error {
	rawValue := reflect.ValueOf(raw)
	if rawValue.Type().AssignableTo(field.Type()) {
		field.Set(rawValue)
		return nil
	}
	if rawValue.Type().ConvertibleTo(field.Type()) && rawValue.Kind() != reflect.String {
		field.Set(rawValue.Convert(field.Type()))
		return nil
	}

	converted, err := cast.FromType(fmt.Sprint(raw), field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert %v to %s: %w", raw, field.Type(), err)
	}
	field.Set(reflect.ValueOf(converted))
	return nil
}
