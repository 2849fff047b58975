// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"

	"github.com/z5labs/contract/route"
)

// Output is the reply of a [Handler]. A zero Status means 200 OK.
// Value is serialized by the response entry resolved for Status.
type Output struct {
	Status int
	Value  any
}

// Handler implements the business logic behind a route. Input is the
// value parsed by the route's variables schema.
type Handler interface {
	Handle(ctx context.Context, input any) (*Output, error)
}

// HandlerFunc is a function adapter that implements [Handler].
type HandlerFunc func(context.Context, any) (*Output, error)

func (f HandlerFunc) Handle(ctx context.Context, input any) (*Output, error) {
	return f(ctx, input)
}

// Typed adapts f into a [Handler] by decoding the parsed input into I.
//
// Example:
//
//	type createGameInput struct {
//	    UserName string `json:"userName"`
//	}
//
//	h := server.Typed(func(ctx context.Context, in createGameInput) (*server.Output, error) {
//	    return &server.Output{Value: true}, nil
//	})
func Typed[I any](f func(context.Context, I) (*Output, error)) Handler {
	return HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
		in, err := route.Decode[I](input)
		if err != nil {
			return nil, err
		}
		return f(ctx, in)
	})
}

// Reply is shorthand for an [Output] with the given status and value.
func Reply(status int, v any) *Output {
	return &Output{Status: status, Value: v}
}
