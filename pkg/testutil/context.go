package testutil

import (
	"net/http"
	"time"

	id "assetgate/pkg/domain"
	"assetgate/pkg/requestcontext"
)

// WithActor stamps an actor onto the request context, simulating what the
// auth middleware does for authenticated admin requests. Invalid IDs are
// silently ignored so tests can exercise the unauthenticated path.
func WithActor(req *http.Request, actor string) *http.Request {
	parsed, err := id.ParseActorID(actor)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithActor(req.Context(), parsed))
}

// WithTime pins the request clock, simulating the request-time middleware.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequestID stamps a request ID for audit-trail assertions.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
