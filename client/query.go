// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package client

import (
	"bytes"
	"encoding/json"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/z5labs/contract/route"
	"github.com/z5labs/contract/schema"
)

// encodeQuery renders query fields as a query string without the leading '?'.
//
// By default values are tokenized: arrays become indexed keys (tags[0]=a),
// objects become bracketed keys (filter[name]=a) and nil becomes an empty
// value. With jsonQuery set each value is JSON encoded instead, except
// strings which could not be mistaken for another JSON value.
func encodeQuery(fields []route.Field, jsonQuery bool) (string, error) {
	var items []string
	add := func(key, value string) {
		items = append(items, key+"="+encodeURIComponent(value))
	}

	for _, f := range fields {
		key := encodeURIComponent(f.Name)
		if !jsonQuery {
			err := tokenize(key, f.Value, add)
			if err != nil {
				return "", err
			}
			continue
		}

		if s, ok := f.Value.(string); ok && !ambiguous(s) {
			add(key, s)
			continue
		}
		b, err := marshalJSON(f.Value)
		if err != nil {
			return "", err
		}
		add(key, string(b))
	}
	return strings.Join(items, "&"), nil
}

func tokenize(key string, v any, add func(key, value string)) error {
	switch x := v.(type) {
	case nil:
		add(key, "")
		return nil
	case []any:
		for i, item := range x {
			err := tokenize(key+"["+strconv.Itoa(i)+"]", item, add)
			if err != nil {
				return err
			}
		}
		return nil
	case string, bool, int64, float64:
		add(key, route.Stringify(x))
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range rv.Len() {
			items[i] = rv.Index(i).Interface()
		}
		return tokenize(key, items, add)
	case reflect.Map, reflect.Struct:
		m, err := schema.AsMap(v)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			err := tokenize(key+"["+encodeURIComponent(k)+"]", m[k], add)
			if err != nil {
				return err
			}
		}
		return nil
	}

	add(key, route.Stringify(v))
	return nil
}

var (
	decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	prefixLiteral  = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)
)

// ambiguous reports whether s would be read back as something other
// than a string: a boolean, null or anything that parses as a number,
// including the empty string.
func ambiguous(s string) bool {
	switch s {
	case "true", "false", "null":
		return true
	}

	t := strings.TrimSpace(s)
	switch t {
	case "", "Infinity", "+Infinity", "-Infinity":
		return true
	}
	return decimalLiteral.MatchString(t) || prefixLiteral.MatchString(t)
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(v)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// encodeURIComponent escapes every byte except the unreserved
// characters A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
