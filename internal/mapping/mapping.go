// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package mapping converts between Go structs and the generic
// map representation values take while flowing through schemas.
package mapping

import (
	"github.com/go-viper/mapstructure/v2"
)

// TagName is the struct tag consulted for field names.
const TagName = "json"

// ToMap flattens a struct (or map) into a map keyed by json tag names.
func ToMap(v any) (map[string]any, error) {
	var m map[string]any
	err := decode(v, &m)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Decode converts v into a T, matching map keys to json tag names.
func Decode[T any](v any) (T, error) {
	var t T
	err := decode(v, &t)
	return t, err
}

func decode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: TagName,
		Result:  out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
