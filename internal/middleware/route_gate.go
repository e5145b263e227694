package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/2beens/realestate/internal/auth"
	"github.com/2beens/realestate/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

type identityResolver interface {
	CurrentUser(ctx context.Context, token string) *auth.Identity
}

// RouteGate resolves the session identity once per request, stores it in
// the request context and keeps anonymous visitors out of the back office.
type RouteGate struct {
	resolver identityResolver
}

func NewRouteGate(resolver identityResolver) *RouteGate {
	return &RouteGate{
		resolver: resolver,
	}
}

// IsPublicPath reports whether path can be visited without a session.
func IsPublicPath(path string) bool {
	switch {
	case path == "/", path == LoginPath:
		return true
	case strings.HasPrefix(path, "/blog/"),
		strings.HasPrefix(path, "/gallery"),
		strings.HasPrefix(path, "/testimonials"),
		strings.HasPrefix(path, "/api/"):
		return true
	}
	return !strings.Contains(path, DashboardPath)
}

func (g *RouteGate) Check() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.routeGate")
			defer span.End()

			var identity *auth.Identity
			if token := auth.TokenFromRequest(r); token != "" {
				identity = g.resolver.CurrentUser(ctx, token)
			}
			span.SetAttributes(attribute.Bool("user.authenticated", identity != nil))

			path := r.URL.Path
			if path == LoginPath && identity != nil {
				span.SetStatus(codes.Ok, "logged-in-to-dashboard")
				http.Redirect(w, r, DashboardPath, http.StatusFound)
				return
			}

			if identity == nil && !IsPublicPath(path) {
				log.Tracef("[route gate] no session => %s", path)
				span.SetStatus(codes.Error, "no-session")
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(ctx, identity)))
		})
	}
}
