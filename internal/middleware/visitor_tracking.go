package middleware

import (
	"net/http"
	"path"
	"strings"

	"github.com/2beens/realestate/internal/visitor"
	"github.com/2beens/realestate/pkg"
)

type pageViewEnqueuer interface {
	Enqueue(in visitor.PageViewInput) bool
}

var staticAssetExtensions = map[string]bool{
	".js": true, ".css": true, ".map": true, ".png": true, ".jpg": true,
	".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".txt": true, ".xml": true,
}

// ShouldTrack reports whether a request to p counts as a page view.
func ShouldTrack(p string) bool {
	switch {
	case strings.HasPrefix(p, "/api/"),
		strings.HasPrefix(p, "/_next/"),
		strings.HasPrefix(p, "/favicon"),
		p == "/metrics":
		return false
	}
	return !staticAssetExtensions[strings.ToLower(path.Ext(p))]
}

// VisitorTracking makes sure every visitor has a session cookie, puts the
// session id in the request context and queues a page view for page loads.
// It never blocks or fails the request.
func VisitorTracking(dispatcher pageViewEnqueuer, secureCookies bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := visitor.EnsureVisitorSession(w, r, secureCookies)
			ctx := visitor.WithSessionID(r.Context(), sessionID)

			if r.Method == http.MethodGet && ShouldTrack(r.URL.Path) {
				dispatcher.Enqueue(visitor.PageViewInput{
					Path:      r.URL.Path,
					UserAgent: r.Header.Get("User-Agent"),
					IP:        pkg.ReadUserIP(r),
					Referer:   r.Referer(),
					SessionID: sessionID,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
