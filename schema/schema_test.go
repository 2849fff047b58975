// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package schema

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Age   int     `json:"age"`
}

func TestString_Parse(t *testing.T) {
	t.Run("will return the string if it is valid", func(t *testing.T) {
		v, err := String().Parse("hello")
		require.NoError(t, err)
		require.Equal(t, "hello", v)
	})

	t.Run("will return an error if the value is not a string", func(t *testing.T) {
		_, err := String().Parse(42)

		var se *Error
		require.ErrorAs(t, err, &se)
		require.Equal(t, "expected string, received int", se.Message)
	})

	t.Run("will enforce length bounds", func(t *testing.T) {
		s := String(MinLength(2), MaxLength(3))

		_, err := s.Parse("a")
		require.Error(t, err)

		_, err = s.Parse("abcd")
		require.Error(t, err)

		_, err = s.Parse("abc")
		require.NoError(t, err)
	})

	t.Run("will enforce a pattern", func(t *testing.T) {
		s := String(Pattern(regexp.MustCompile(`^[a-z]+$`)))

		_, err := s.Parse("ABC")
		require.Error(t, err)

		_, err = s.Parse("abc")
		require.NoError(t, err)
	})

	t.Run("will validate a format tag", func(t *testing.T) {
		s := String(Format("email"))

		_, err := s.Parse("not-an-email")
		require.Error(t, err)

		_, err = s.Parse("dev@example.com")
		require.NoError(t, err)
	})

	t.Run("will validate a uuid", func(t *testing.T) {
		s := String(UUID())

		_, err := s.Parse("1234")
		require.Error(t, err)

		_, err = s.Parse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
		require.NoError(t, err)
	})

	t.Run("will dereference a string pointer", func(t *testing.T) {
		s := "ptr"
		v, err := String().Serialize(&s)
		require.NoError(t, err)
		require.Equal(t, "ptr", v)
	})
}

func TestInt_Parse(t *testing.T) {
	testCases := []struct {
		Name  string
		Value any
		Want  int64
	}{
		{Name: "int", Value: 5, Want: 5},
		{Name: "integral float", Value: float64(7), Want: 7},
		{Name: "uint8", Value: uint8(3), Want: 3},
		{Name: "json number", Value: json.Number("12"), Want: 12},
	}

	for _, testCase := range testCases {
		t.Run("will accept "+testCase.Name, func(t *testing.T) {
			v, err := Int().Parse(testCase.Value)
			require.NoError(t, err)
			require.Equal(t, testCase.Want, v)
		})
	}

	t.Run("will reject a fractional float", func(t *testing.T) {
		_, err := Int().Parse(1.5)
		require.Error(t, err)
	})

	t.Run("will reject a numeric string", func(t *testing.T) {
		_, err := Int().Parse("42")
		require.Error(t, err)
	})

	t.Run("will enforce bounds", func(t *testing.T) {
		_, err := Int(Min(1), Max(10)).Parse(11)
		require.Error(t, err)
	})
}

func TestFloat_Parse(t *testing.T) {
	t.Run("will widen integers", func(t *testing.T) {
		v, err := Float().Parse(3)
		require.NoError(t, err)
		require.Equal(t, float64(3), v)
	})

	t.Run("will reject a bool", func(t *testing.T) {
		_, err := Float().Parse(true)
		require.Error(t, err)
	})
}

func TestLiteral_Parse(t *testing.T) {
	t.Run("will compare numbers by value", func(t *testing.T) {
		v, err := Literal(1).Parse(float64(1))
		require.NoError(t, err)
		require.Equal(t, 1, v)
	})

	t.Run("will reject a different string", func(t *testing.T) {
		_, err := Literal("a").Parse("b")
		require.Error(t, err)
	})

	t.Run("will not panic on incomparable values", func(t *testing.T) {
		_, err := Literal("a").Parse([]any{"a"})
		require.Error(t, err)
	})
}

func TestArray_Parse(t *testing.T) {
	t.Run("will prefix the element index on failure", func(t *testing.T) {
		_, err := Array(Int()).Parse([]any{1, "two"})

		var se *Error
		require.ErrorAs(t, err, &se)
		require.Equal(t, []string{"1"}, se.Path)
	})

	t.Run("will accept typed slices", func(t *testing.T) {
		v, err := Array(String()).Serialize([]string{"a", "b"})
		require.NoError(t, err)
		require.Equal(t, []any{"a", "b"}, v)
	})
}

func TestObject_Serialize(t *testing.T) {
	s := Object(
		Prop("name", String()),
		Prop("email", Optional(String(Format("email")))),
		Prop("age", Int()),
	)

	t.Run("will flatten a struct through its json tags", func(t *testing.T) {
		v, err := s.Serialize(user{Name: "Dmitry", Age: 30})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"name": "Dmitry", "age": int64(30)}, v)
	})

	t.Run("will strip unknown keys", func(t *testing.T) {
		v, err := s.Parse(map[string]any{"name": "a", "age": 1, "extra": true})
		require.NoError(t, err)
		require.NotContains(t, v, "extra")
	})

	t.Run("will report the nested path of a failure", func(t *testing.T) {
		nested := Object(Prop("user", s))

		_, err := nested.Parse(map[string]any{"user": map[string]any{"name": "a", "age": "x"}})

		var se *Error
		require.ErrorAs(t, err, &se)
		require.Equal(t, []string{"user", "age"}, se.Path)
		require.Equal(t, "user.age: expected int, received string", se.Error())
	})

	t.Run("will reject a missing required property", func(t *testing.T) {
		_, err := s.Parse(map[string]any{"age": 1})
		require.Error(t, err)
	})
}

func TestUnion_Parse(t *testing.T) {
	s := Union(Int(), String())

	t.Run("will use the first matching variant", func(t *testing.T) {
		v, err := s.Parse("x")
		require.NoError(t, err)
		require.Equal(t, "x", v)
	})

	t.Run("will fail when no variant matches", func(t *testing.T) {
		_, err := s.Parse(true)
		require.Error(t, err)
	})
}

func TestOptional(t *testing.T) {
	t.Run("will accept nil", func(t *testing.T) {
		v, err := Optional(Int()).Parse(nil)
		require.NoError(t, err)
		require.Nil(t, v)
	})

	t.Run("will accept a nil pointer", func(t *testing.T) {
		var p *int
		v, err := Optional(Int()).Serialize(p)
		require.NoError(t, err)
		require.Nil(t, v)
	})

	t.Run("will not double wrap", func(t *testing.T) {
		o := Optional(Int())
		require.Same(t, o, Optional(o))
	})
}

func TestCoerce(t *testing.T) {
	t.Run("will parse a numeric string into a number", func(t *testing.T) {
		v, err := Coerce(Int()).Parse("42")
		require.NoError(t, err)
		require.Equal(t, int64(42), v)
	})

	t.Run("will parse boolean text", func(t *testing.T) {
		v, err := Coerce(Bool()).Parse("false")
		require.NoError(t, err)
		require.Equal(t, false, v)
	})

	t.Run("will leave a non numeric string for the inner schema to reject", func(t *testing.T) {
		_, err := Coerce(Int()).Parse("abc")

		var se *Error
		require.ErrorAs(t, err, &se)
		require.Equal(t, "expected int, received string", se.Message)
	})

	t.Run("will not affect string schemas", func(t *testing.T) {
		s := String()
		require.Same(t, s, Coerce(s))
	})

	t.Run("will see through optional", func(t *testing.T) {
		s := Coerce(Optional(Float()))
		require.True(t, IsOptional(s))

		v, err := s.Parse("1.5")
		require.NoError(t, err)
		require.Equal(t, 1.5, v)
	})

	t.Run("will not coerce whitespace", func(t *testing.T) {
		_, err := Coerce(Int()).Parse("  ")
		require.Error(t, err)
	})
}

func TestAuth(t *testing.T) {
	t.Run("will prepend the scheme on serialize", func(t *testing.T) {
		s, err := Auth(Bearer)
		require.NoError(t, err)

		v, err := s.Serialize("abc")
		require.NoError(t, err)
		require.Equal(t, "Bearer abc", v)
	})

	t.Run("will strip the scheme on parse", func(t *testing.T) {
		s, err := Auth(Basic)
		require.NoError(t, err)

		v, err := s.Parse("Basic dXNlcjpwYXNz")
		require.NoError(t, err)
		require.Equal(t, "dXNlcjpwYXNz", v)
	})

	t.Run("will return an AuthFormatError for a malformed value", func(t *testing.T) {
		s, err := Auth(Bearer)
		require.NoError(t, err)

		for _, value := range []string{"abc", "Basic abc", "Bearer a b"} {
			_, err := s.Parse(value)

			var afe AuthFormatError
			require.ErrorAs(t, err, &afe, value)
			require.Equal(t, Bearer, afe.Scheme)
		}
	})

	t.Run("will reject an unsupported scheme", func(t *testing.T) {
		_, err := Auth("Digest")

		var afe AuthFormatError
		require.True(t, errors.As(err, &afe))
	})
}

func TestSchema_JSONSchema(t *testing.T) {
	t.Run("will mark non optional object properties as required", func(t *testing.T) {
		js := Object(
			Prop("a", String()),
			Prop("b", Optional(Int())),
		).JSONSchema()

		b, err := json.Marshal(js)
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(b, &doc))
		assert.Equal(t, "object", doc["type"])
		assert.Equal(t, []any{"a"}, doc["required"])
		assert.Contains(t, doc["properties"], "b")
	})

	t.Run("will nest item property and variant schemas", func(t *testing.T) {
		js := Object(
			Prop("tags", Array(String())),
			Prop("id", Union(String(), Int())),
		).JSONSchema()

		b, err := json.Marshal(js)
		require.NoError(t, err)

		var doc struct {
			Properties map[string]struct {
				Type  string `json:"type"`
				Items struct {
					Type string `json:"type"`
				} `json:"items"`
				AnyOf []map[string]any `json:"anyOf"`
			} `json:"properties"`
		}
		require.NoError(t, json.Unmarshal(b, &doc))
		assert.Equal(t, "array", doc.Properties["tags"].Type)
		assert.Equal(t, "string", doc.Properties["tags"].Items.Type)
		assert.Len(t, doc.Properties["id"].AnyOf, 2)
	})

	t.Run("will emit the auth pattern", func(t *testing.T) {
		s, err := Auth(Bearer)
		require.NoError(t, err)

		js := s.JSONSchema()
		require.NotNil(t, js.Pattern)
		require.Equal(t, "^Bearer [^ ]*$", *js.Pattern)
	})

	t.Run("will map known formats", func(t *testing.T) {
		js := String(Format("email")).JSONSchema()
		require.NotNil(t, js.Format)
		require.Equal(t, "email", *js.Format)
	})
}
