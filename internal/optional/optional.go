// Package optional contains a safer alternative to pointers.
package optional

import (
	"encoding/json"
	"errors"
	"reflect"
)

// Value is an optional value. The zero value is None.
type Value[T any] struct {
	indirect *T
}

// None constructs an empty value.
func None[T any]() Value[T] {
	return Value[T]{nil}
}

// Some constructs a non-empty value unless the value is a nil pointer,
// in which case we return an empty value.
func Some[T any](value T) Value[T] {
	rv := reflect.ValueOf(&value).Elem()
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return None[T]()
	}
	return Value[T]{&value}
}

var (
	_ json.Marshaler   = Value[int]{}
	_ json.Unmarshaler = &Value[int]{}
)

// MarshalJSON implements json.Marshaler. An empty value becomes null.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if v.indirect == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(*v.indirect)
}

// UnmarshalJSON implements json.Unmarshaler. A null input becomes None.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		v.indirect = nil
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*v = Some(value)
	return nil
}

// IsNone returns whether the value is empty.
func (v Value[T]) IsNone() bool {
	return v.indirect == nil
}

// Unwrap returns the underlying value or panics if the value is empty.
func (v Value[T]) Unwrap() T {
	if v.indirect == nil {
		panic(errors.New("is none"))
	}
	return *v.indirect
}

// UnwrapOr returns the underlying value or the fallback when empty.
func (v Value[T]) UnwrapOr(fallback T) T {
	if v.indirect == nil {
		return fallback
	}
	return *v.indirect
}
