package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned by an Authorizer that rejects a request.
var ErrUnauthorized = errors.New("unauthorized")

// Authorizer decides whether a request may use the admin endpoints.
type Authorizer interface {
	Authorize(r *http.Request) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(r *http.Request) error

// Authorize calls f(r).
func (f AuthorizerFunc) Authorize(r *http.Request) error { return f(r) }

// StaticToken accepts "Authorization: Bearer <token>" for a fixed token.
// An empty token rejects every request.
type StaticToken string

// Authorize implements Authorizer.
func (t StaticToken) Authorize(r *http.Request) error {
	if t == "" {
		return ErrUnauthorized
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(t)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// denyAll is used when no Authorizer is configured.
var denyAll = AuthorizerFunc(func(*http.Request) error { return ErrUnauthorized })
