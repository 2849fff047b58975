// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package route declares REST routes as contracts.
//
// A [Route] is declared once with a [Definition]: its method, its path
// template, where each input lives ([Variables]) and the shape of each
// response ([Response]). Resolving the route produces a [Contract] which
// is shared by the client, the server adapter and the documentation.
//
// Example:
//
//	var CreateGame = route.New(func() route.Definition {
//		return route.Definition{
//			Method: http.MethodPost,
//			Path:   "/game",
//			Variables: func(v *route.Variables) {
//				v.Field("userName", "user_name", schema.String())
//			},
//			Responses: []func(*route.Response){
//				func(r *route.Response) {
//					r.Status(http.StatusOK)
//					r.Data("", schema.Bool())
//				},
//			},
//		}
//	})
package route

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/z5labs/contract/internal/concurrent"
	"github.com/z5labs/contract/internal/mapping"
)

// ExternalDocs links to documentation hosted outside of the API description.
type ExternalDocs struct {
	URL         string
	Description string
}

// Definition describes a single route.
//
// Summary, Description, OperationID, Tags, Deprecated and ExternalDocs
// only affect generated documentation.
type Definition struct {
	Method    string
	Path      string
	Variables func(*Variables)
	Responses []func(*Response)

	Summary      string
	Description  string
	OperationID  string
	Tags         []string
	Deprecated   bool
	ExternalDocs *ExternalDocs
}

// Route is the identity handle of a route declaration.
type Route struct {
	define func() Definition
}

// New returns a [Route] whose definition is produced by define.
// define is called each time the route is resolved without a cache.
func New(define func() Definition) *Route {
	return &Route{define: define}
}

// Contract is a fully resolved route.
type Contract struct {
	Definition Definition
	Method     string
	Path       PathItems
	Variables  *VariablesSchema
	Responses  *Table
}

// RawBody reports whether the request body is sent as text.
func (c *Contract) RawBody() bool {
	return c.Variables.RawBody()
}

func build(r *Route) (*Contract, error) {
	def := r.define()

	method := strings.ToUpper(def.Method)
	if method == "" {
		return nil, ErrMissingMethod
	}

	path, err := ParsePath(def.Path)
	if err != nil {
		return nil, err
	}

	vars := &Variables{path: path}
	if def.Variables != nil {
		def.Variables(vars)
	}
	vs, err := vars.build()
	if err != nil {
		return nil, err
	}

	if len(def.Responses) == 0 {
		return nil, ErrNoResponsesDeclared
	}
	table := NewTable()
	for _, declare := range def.Responses {
		res := &Response{}
		declare(res)

		entry, err := res.build()
		if err != nil {
			return nil, err
		}
		for _, sel := range entry.Selectors {
			err := table.Register(sel, entry)
			if err != nil {
				return nil, err
			}
		}
	}

	return &Contract{
		Definition: def,
		Method:     method,
		Path:       path,
		Variables:  vs,
		Responses:  table,
	}, nil
}

// Cache memoizes contracts by route identity. Entries are dropped
// once their route is no longer reachable.
type Cache struct {
	contracts *concurrent.WeakCache[Route, *Contract]
}

// NewCache initializes an empty [Cache].
func NewCache() *Cache {
	return &Cache{
		contracts: concurrent.NewWeakCache[Route, *Contract](),
	}
}

// Resolve returns the contract of r, building it on first use.
// Authoring errors are returned on every call and never cached.
func (c *Cache) Resolve(r *Route) (*Contract, error) {
	return c.contracts.GetOr(r, func() (*Contract, error) {
		return build(r)
	})
}

// Len reports the number of cached contracts.
func (c *Cache) Len() int {
	return c.contracts.Len()
}

var defaultCache = NewCache()

// Resolve returns the contract of r from the process wide cache.
func Resolve(r *Route) (*Contract, error) {
	return defaultCache.Resolve(r)
}

// MustResolve is like [Resolve] but panics on authoring errors.
func MustResolve(r *Route) *Contract {
	c, err := Resolve(r)
	if err != nil {
		panic(err)
	}
	return c
}

// Decode converts a parsed value into a T using json struct tags.
func Decode[T any](v any) (T, error) {
	return mapping.Decode[T](v)
}

// Stringify renders a transport value as header or path text.
func Stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e21 {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}
