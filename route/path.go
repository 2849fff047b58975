// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"fmt"
	"net/url"
	"strings"
)

// PathItem is a component of a path template.
// It is either a [Literal] or a [Param].
type PathItem interface {
	pathItem() string
}

// Literal is static text within a path template.
type Literal string

func (l Literal) pathItem() string {
	return string(l)
}

// Param is a named placeholder within a path template, written as {name}.
type Param string

func (p Param) pathItem() string {
	return "{" + string(p) + "}"
}

// PathItems is a parsed path template.
type PathItems []PathItem

// ParsePath scans template left to right, splitting it into literal
// text and {name} placeholders.
//
// A [MalformedPathError] is returned if a '{' is never closed, a '}'
// appears without an opening '{', a placeholder name is empty or
// contains '{', or the same name is used twice.
func ParsePath(template string) (PathItems, error) {
	malformed := func(format string, args ...any) error {
		return MalformedPathError{
			Path:   template,
			Reason: fmt.Sprintf(format, args...),
		}
	}

	var items PathItems
	seen := make(map[string]bool)
	rest := template
	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		closing := strings.IndexByte(rest, '}')
		if open < 0 {
			if closing >= 0 {
				return nil, malformed("unexpected '}'")
			}
			items = append(items, Literal(rest))
			break
		}
		if closing >= 0 && closing < open {
			return nil, malformed("unexpected '}'")
		}
		if open > 0 {
			items = append(items, Literal(rest[:open]))
		}

		rest = rest[open+1:]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return nil, malformed("unclosed '{'")
		}

		name := rest[:end]
		switch {
		case name == "":
			return nil, malformed("empty parameter name")
		case strings.ContainsRune(name, '{'):
			return nil, malformed("nested '{' in parameter %q", name)
		case seen[name]:
			return nil, malformed("duplicate parameter %q", name)
		}
		seen[name] = true
		items = append(items, Param(name))
		rest = rest[end+1:]
	}
	return items, nil
}

// Params returns the placeholder names in order of appearance.
func (items PathItems) Params() []string {
	var names []string
	for _, item := range items {
		if p, ok := item.(Param); ok {
			names = append(names, string(p))
		}
	}
	return names
}

// HasParam reports whether name is a placeholder of the path.
func (items PathItems) HasParam(name string) bool {
	for _, item := range items {
		if p, ok := item.(Param); ok && string(p) == name {
			return true
		}
	}
	return false
}

// Build renders a concrete path prefixed by baseURL. Placeholder values
// are path escaped. A [MissingPathParamError] is returned for any
// placeholder without a value.
func (items PathItems) Build(params map[string]string, baseURL string) (string, error) {
	var sb strings.Builder
	sb.WriteString(baseURL)
	for _, item := range items {
		switch item := item.(type) {
		case Literal:
			sb.WriteString(string(item))
		case Param:
			v, ok := params[string(item)]
			if !ok {
				return "", MissingPathParamError{Param: string(item)}
			}
			sb.WriteString(url.PathEscape(v))
		}
	}
	return sb.String(), nil
}

// Pattern renders the path with :name placeholders.
func (items PathItems) Pattern() string {
	return items.render(func(p Param) string { return ":" + string(p) })
}

// Template renders the path with {name} placeholders, as accepted
// by chi and OpenAPI. It reconstructs the parsed template.
func (items PathItems) Template() string {
	return items.render(func(p Param) string { return p.pathItem() })
}

// String implements the [fmt.Stringer] interface.
func (items PathItems) String() string {
	return items.Template()
}

func (items PathItems) render(param func(Param) string) string {
	var sb strings.Builder
	for _, item := range items {
		switch item := item.(type) {
		case Literal:
			sb.WriteString(string(item))
		case Param:
			sb.WriteString(param(item))
		}
	}
	return sb.String()
}
