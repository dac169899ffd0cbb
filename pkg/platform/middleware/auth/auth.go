// Package auth authenticates administrative callers at the HTTP edge.
//
// Admin routes require a bearer JWT signed with the shared HMAC key. The
// token subject is the caller identity; it is injected into the request
// context as the actor so services can run their own authority check. The
// middleware authenticates, it does not authorize - whether the actor is
// the controlling authority is decided by the services.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "assetgate/pkg/domain"
	"assetgate/pkg/requestcontext"
)

// RequireActor validates the bearer token and injects the actor subject
// into the request context. Requests without a valid token are rejected
// with 401 before reaching any handler.
func RequireActor(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "bearer token required")
				return
			}

			actor, err := actorFromToken(raw, signingKey)
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "admin token rejected",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
				}
				writeUnauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

func actorFromToken(raw string, signingKey []byte) (id.ActorID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return id.ActorID{}, fmt.Errorf("parse token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return id.ActorID{}, fmt.Errorf("token subject: %w", err)
	}
	actor, err := id.ParseActorID(subject)
	if err != nil {
		return id.ActorID{}, fmt.Errorf("token subject: %w", err)
	}
	return actor, nil
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(w, `{"error":"unauthorized","error_description":%q}`, description)
}
