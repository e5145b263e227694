package visitor

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	SessionCookieName = "session_id"
	SessionTTL        = 24 * time.Hour
)

// EnsureVisitorSession returns the anonymous visitor id from the request
// cookie, issuing a new one when absent. Calling it again with the issued
// cookie yields the same id.
func EnsureVisitorSession(w http.ResponseWriter, r *http.Request, secure bool) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	// later readers of this request see the id too
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionID})

	return sessionID
}

type sessionCtxKey struct{}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sessionID)
}

func SessionIDFromContext(ctx context.Context) string {
	sessionID, _ := ctx.Value(sessionCtxKey{}).(string)
	return sessionID
}
