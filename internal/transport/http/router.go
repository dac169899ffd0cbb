// Package httptransport assembles the HTTP surface: public decision and
// query routes, an authenticated admin surface, and operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	compliancehandler "assetgate/internal/compliance/handler"
	ledgerhandler "assetgate/internal/ledger/handler"
	registryhandler "assetgate/internal/registry/handler"
	"assetgate/pkg/platform/httputil"
	"assetgate/pkg/platform/middleware/auth"
	"assetgate/pkg/platform/middleware/requesttime"
	"assetgate/pkg/requestcontext"
)

type Deps struct {
	Registry   *registryhandler.Handler
	Compliance *compliancehandler.Handler
	Ledger     *ledgerhandler.Handler

	JWTSigningKey []byte
	Logger        *slog.Logger
}

// NewRouter wires all endpoints. Query routes are public; every mutating
// route sits under /v1/admin behind bearer-token authentication, and the
// services re-check authority on top of that.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestID)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/registry", deps.Registry.Routes)
		r.Route("/compliance", deps.Compliance.Routes)
		r.Route("/ledger", deps.Ledger.Routes)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireActor(deps.JWTSigningKey, deps.Logger))
			r.Route("/registry", deps.Registry.AdminRoutes)
			r.Route("/compliance", deps.Compliance.AdminRoutes)
			r.Route("/ledger", deps.Ledger.AdminRoutes)
		})
	})

	return r
}

// requestID stamps a fresh request ID into the context for audit trails.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithRequestID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
