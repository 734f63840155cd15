package handlers

import (
	"context"
	"net/http"

	"taskr/models"
)

// ContextKey is a custom type to avoid context key collisions.
type ContextKey string

const requestContextKey ContextKey = "request"

// RequestContext is the per-request state threaded through the handlers:
// the request ID and, behind the login guard, the current session.
type RequestContext struct {
	ID      string
	Session *models.Session
}

func (rc *RequestContext) LoggedIn() bool {
	return rc.Session != nil
}

func withRequestContext(r *http.Request, rc *RequestContext) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), requestContextKey, rc))
}

// RequestContextFrom returns the request's context object. Requests that did
// not pass through the logging middleware get an empty one.
func RequestContextFrom(r *http.Request) *RequestContext {
	if rc, ok := r.Context().Value(requestContextKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{}
}
