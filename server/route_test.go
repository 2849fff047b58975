// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/z5labs/contract/client"
	"github.com/z5labs/contract/route"
	"github.com/z5labs/contract/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createGame = route.New(func() route.Definition {
	return route.Definition{
		Method:      http.MethodPost,
		Path:        "/game",
		Summary:     "Create a game",
		OperationID: "createGame",
		Tags:        []string{"games"},
		Variables: func(v *route.Variables) {
			v.Field("userName", "user_name", schema.String())
		},
		Responses: []func(*route.Response){
			func(r *route.Response) {
				r.Status(http.StatusOK)
				r.Data("", schema.Bool())
			},
		},
	}
})

var getUser = route.New(func() route.Definition {
	return route.Definition{
		Method:     http.MethodGet,
		Path:       "/users/{id}",
		Deprecated: true,
		ExternalDocs: &route.ExternalDocs{
			URL: "https://example.com/docs/users",
		},
		Variables: func(v *route.Variables) {
			v.Param("id", "id", schema.Int())
			v.Auth("token", schema.Bearer)
			v.Query("verbose", "verbose", schema.Optional(schema.Bool()))
		},
		Responses: []func(*route.Response){
			func(r *route.Response) {
				r.Status(http.StatusOK)
				r.Field("name", "name", schema.String())
				r.Header("requestId", "X-Request-Id", schema.String())
			},
			func(r *route.Response) {
				r.StatusClass(4)
				r.Description("Client error")
				r.Data("", schema.Object(schema.Prop("message", schema.String())))
			},
			func(r *route.Response) {
				r.Data("", schema.Any())
			},
		},
	}
})

var postNote = route.New(func() route.Definition {
	return route.Definition{
		Method: http.MethodPost,
		Path:   "/notes",
		Variables: func(v *route.Variables) {
			v.RawBody("", schema.String())
		},
		Responses: []func(*route.Response){
			func(r *route.Response) {
				r.Status(http.StatusCreated)
				r.Data("", schema.String())
			},
		},
	}
})

type createGameInput struct {
	UserName string `json:"userName"`
}

func TestRoute(t *testing.T) {
	t.Run("will parse the body and write the response", func(t *testing.T) {
		var got createGameInput
		h := Typed(func(ctx context.Context, in createGameInput) (*Output, error) {
			got = in
			return &Output{Value: true}, nil
		})

		srv := httptest.NewServer(NewApi("Games", "v1", Route(createGame, h)))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/game", "application/json", strings.NewReader(`{"user_name":"Dmitry"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
		assert.Equal(t, "true", string(b))
		assert.Equal(t, "Dmitry", got.UserName)
	})

	t.Run("will reply 400 when the body is rejected", func(t *testing.T) {
		called := false
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			called = true
			return nil, nil
		})

		srv := httptest.NewServer(NewApi("Games", "v1", Route(createGame, h)))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/game", "application/json", strings.NewReader(`{"user_name":1}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		var body map[string]any
		err = json.NewDecoder(resp.Body).Decode(&body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, float64(400), body["statusCode"])
		assert.Equal(t, "Bad Request", body["error"])
		assert.Contains(t, body["message"], "body.user_name")
		assert.False(t, called)
	})

	t.Run("will reply 400 when the body is not JSON", func(t *testing.T) {
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			return nil, nil
		})

		srv := httptest.NewServer(NewApi("Games", "v1", Route(createGame, h)))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/game", "application/json", strings.NewReader(`{`))
		require.NoError(t, err)
		defer resp.Body.Close()

		var body map[string]any
		err = json.NewDecoder(resp.Body).Decode(&body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body["message"], "not valid JSON")
	})

	t.Run("will parse path, query and auth variables", func(t *testing.T) {
		var got any
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			got = input
			return &Output{Value: map[string]any{"name": "Ada", "requestId": "r-1"}}, nil
		})

		srv := httptest.NewServer(NewApi("Users", "v1", Route(getUser, h)))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/users/42?verbose=true", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer abc")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `{"name":"Ada"}`, string(b))
		assert.Equal(t, "r-1", resp.Header.Get("X-Request-Id"))
		assert.Equal(t, map[string]any{
			"id":      int64(42),
			"token":   "abc",
			"verbose": true,
		}, got)
	})

	t.Run("will reply 400 when the authorization header is missing", func(t *testing.T) {
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			return nil, nil
		})

		srv := httptest.NewServer(NewApi("Users", "v1", Route(getUser, h)))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/users/42")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body map[string]any
		err = json.NewDecoder(resp.Body).Decode(&body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body["message"], "headers.authorization")
	})

	t.Run("will resolve the response by status class", func(t *testing.T) {
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			return Reply(http.StatusNotFound, map[string]any{"message": "no such user"}), nil
		})

		srv := httptest.NewServer(NewApi("Users", "v1", Route(getUser, h)))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/users/7", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer abc")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, `{"message":"no such user"}`, string(b))
	})

	t.Run("will read raw bodies as text", func(t *testing.T) {
		var got any
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			got = input
			return Reply(http.StatusCreated, "saved"), nil
		})

		srv := httptest.NewServer(NewApi("Notes", "v1", Route(postNote, h)))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/notes", "text/plain", strings.NewReader("<b>hello</b>"))
		require.NoError(t, err)
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, `"saved"`, string(b))
		assert.Equal(t, "<b>hello</b>", got)
	})

	t.Run("will reply 500 for an undeclared status", func(t *testing.T) {
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			return Reply(http.StatusCreated, true), nil
		})

		srv := httptest.NewServer(NewApi("Games", "v1", Route(createGame, h)))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/game", "application/json", strings.NewReader(`{"user_name":"a"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("will reply 500 when the handler output is rejected", func(t *testing.T) {
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			return &Output{Value: "yes"}, nil
		})

		srv := httptest.NewServer(NewApi("Games", "v1", Route(createGame, h)))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/game", "application/json", strings.NewReader(`{"user_name":"a"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("will recover from a panicking handler", func(t *testing.T) {
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			panic("boom")
		})

		srv := httptest.NewServer(NewApi("Games", "v1", Route(createGame, h)))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/game", "application/json", strings.NewReader(`{"user_name":"a"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("will hand a panic with a non error value to error handlers which unwrap", func(t *testing.T) {
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			panic("boom")
		})

		var got error
		eh := ErrorHandlerFunc(func(ctx context.Context, w http.ResponseWriter, err error) {
			got = err
			var bre BadRequestError
			if errors.As(err, &bre) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		})

		srv := httptest.NewServer(NewApi("Games", "v1",
			Route(createGame, h, OnError(eh)),
			Route(postNote, h, OnError(NewProblemDetailsErrorHandler())),
		))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/game", "application/json", strings.NewReader(`{"user_name":"a"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		require.Error(t, got)
		assert.Contains(t, got.Error(), "boom")

		resp, err = http.Post(srv.URL+"/notes", "text/plain", strings.NewReader("hello"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	})

	t.Run("will call the configured error handler", func(t *testing.T) {
		handlerErr := errors.New("failed")
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			return nil, handlerErr
		})

		var got error
		eh := ErrorHandlerFunc(func(ctx context.Context, w http.ResponseWriter, err error) {
			got = err
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		srv := httptest.NewServer(NewApi("Games", "v1", Route(createGame, h, OnError(eh))))
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/game", "application/json", strings.NewReader(`{"user_name":"a"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.ErrorIs(t, got, handlerErr)
	})

	t.Run("will panic if the route is invalid", func(t *testing.T) {
		invalid := route.New(func() route.Definition {
			return route.Definition{
				Method: http.MethodGet,
				Path:   "/broken",
			}
		})

		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			return nil, nil
		})

		require.Panics(t, func() {
			NewApi("Broken", "v1", Route(invalid, h))
		})
	})
}

func TestRoute_Client(t *testing.T) {
	t.Run("will round trip through the client", func(t *testing.T) {
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			m := input.(map[string]any)
			return &Output{Value: map[string]any{
				"name":      "user-" + route.Stringify(m["id"]),
				"requestId": "r-9",
			}}, nil
		})

		srv := httptest.NewServer(NewApi("Users", "v1", Route(getUser, h)))
		defer srv.Close()

		c := client.New(srv.URL, client.WithFetcher(client.NewHTTPFetcher(srv.Client())))

		v, err := c.Call(context.Background(), getUser, map[string]any{
			"id":    12,
			"token": "abc",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"name":      "user-12",
			"requestId": "r-9",
		}, v)
	})

	t.Run("will deliver path params exactly as the client sent them", func(t *testing.T) {
		getFile := route.New(func() route.Definition {
			return route.Definition{
				Method: http.MethodGet,
				Path:   "/files/{name}",
				Variables: func(v *route.Variables) {
					v.Param("name", "name", schema.String())
				},
				Responses: []func(*route.Response){
					func(r *route.Response) {
						r.Status(http.StatusOK)
						r.Data("", schema.String())
					},
				},
			}
		})

		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			m := input.(map[string]any)
			return &Output{Value: m["name"]}, nil
		})

		srv := httptest.NewServer(NewApi("Files", "v1", Route(getFile, h)))
		defer srv.Close()

		c := client.New(srv.URL, client.WithFetcher(client.NewHTTPFetcher(srv.Client())))

		for _, name := range []string{"50%41", "100%", "a b", "a/b"} {
			v, err := c.Call(context.Background(), getFile, map[string]any{"name": name})
			require.NoError(t, err, name)
			assert.Equal(t, name, v)
		}
	})

	t.Run("will surface rejected variables as an unhandled status", func(t *testing.T) {
		h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
			return &Output{Value: true}, nil
		})

		srv := httptest.NewServer(NewApi("Games", "v1", Route(createGame, h)))
		defer srv.Close()

		c := client.New(srv.URL, client.WithFetcher(client.NewHTTPFetcher(srv.Client())))

		_, err := c.Call(context.Background(), route.New(func() route.Definition {
			return route.Definition{
				Method: http.MethodPost,
				Path:   "/game",
				Variables: func(v *route.Variables) {
					v.Field("userName", "user_name", schema.Int())
				},
				Responses: []func(*route.Response){
					func(r *route.Response) {
						r.Status(http.StatusOK)
						r.Data("", schema.Bool())
					},
				},
			}
		}), map[string]any{"userName": 1})

		var ure route.UnhandledResponseStatusError
		require.ErrorAs(t, err, &ure)
		assert.Equal(t, http.StatusBadRequest, ure.Status)
		assert.Contains(t, ure.Message, "body.user_name")
	})
}

func TestRoute_OpenAPI(t *testing.T) {
	h := HandlerFunc(func(ctx context.Context, input any) (*Output, error) {
		return nil, nil
	})

	api := NewApi("Games", "v1", Route(createGame, h), Route(getUser, h), Route(postNote, h))

	w := httptest.NewRecorder()
	api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var spec map[string]any
	err := json.Unmarshal(w.Body.Bytes(), &spec)
	require.NoError(t, err)

	paths := spec["paths"].(map[string]any)

	t.Run("will document operation metadata", func(t *testing.T) {
		op := paths["/game"].(map[string]any)["post"].(map[string]any)

		assert.Equal(t, "Create a game", op["summary"])
		assert.Equal(t, "createGame", op["operationId"])
		assert.Equal(t, []any{"games"}, op["tags"])
	})

	t.Run("will document the JSON request body", func(t *testing.T) {
		op := paths["/game"].(map[string]any)["post"].(map[string]any)
		content := op["requestBody"].(map[string]any)["content"].(map[string]any)
		body := content["application/json"].(map[string]any)["schema"].(map[string]any)

		assert.Equal(t, "object", body["type"])
		assert.Equal(t, []any{"user_name"}, body["required"])
	})

	t.Run("will document raw request bodies as text", func(t *testing.T) {
		op := paths["/notes"].(map[string]any)["post"].(map[string]any)
		content := op["requestBody"].(map[string]any)["content"].(map[string]any)

		assert.Contains(t, content, "text/plain")
	})

	t.Run("will document parameters and security", func(t *testing.T) {
		op := paths["/users/{id}"].(map[string]any)["get"].(map[string]any)

		assert.Equal(t, true, op["deprecated"])
		assert.Equal(t, "https://example.com/docs/users", op["externalDocs"].(map[string]any)["url"])

		params := op["parameters"].([]any)
		require.Len(t, params, 2)

		id := params[0].(map[string]any)
		assert.Equal(t, "id", id["name"])
		assert.Equal(t, "path", id["in"])
		assert.Equal(t, true, id["required"])

		verbose := params[1].(map[string]any)
		assert.Equal(t, "verbose", verbose["name"])
		assert.Equal(t, "query", verbose["in"])
		assert.Equal(t, false, verbose["required"])

		assert.Equal(t, []any{map[string]any{"bearerAuth": []any{}}}, op["security"])

		schemes := spec["components"].(map[string]any)["securitySchemes"].(map[string]any)
		bearer := schemes["bearerAuth"].(map[string]any)
		assert.Equal(t, "bearer", bearer["scheme"])
	})

	t.Run("will document responses by selector", func(t *testing.T) {
		op := paths["/users/{id}"].(map[string]any)["get"].(map[string]any)
		responses := op["responses"].(map[string]any)

		require.Contains(t, responses, "200")
		require.Contains(t, responses, "4XX")
		require.Contains(t, responses, "default")

		ok := responses["200"].(map[string]any)
		assert.Equal(t, "OK", ok["description"])
		assert.Contains(t, ok["headers"], "x-request-id")

		clientErr := responses["4XX"].(map[string]any)
		assert.Equal(t, "Client error", clientErr["description"])
	})
}
