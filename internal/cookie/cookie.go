package cookie

import (
	"net/http"
	"time"

	"github.com/pickframe/photos-front/internal/envutil"
	"github.com/pickframe/photos-front/internal/log"
)

// SessionCookie is the signed OAuth session cookie name.
const SessionCookie = "pm_oauth_session"

// PendingMaxAge bounds the window between auth-start and auth-callback.
const PendingMaxAge = 10 * time.Minute

// AuthenticatedMaxAge is how long a signed-in browser session lasts.
const AuthenticatedMaxAge = 30 * 24 * time.Hour

// SetSession sets the session cookie. SameSite=None is required because
// Google redirects back to us from its own origin, and None requires Secure.
// Secure is relaxed in dev mode only.
func SetSession(w http.ResponseWriter, value string, maxAge time.Duration) {
	secure := !envutil.IsDev()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogDebugWithFields("cookie", "Session cookie set", map[string]any{
		"maxAge": maxAge.String(),
		"secure": secure,
	})
}

// ClearSession removes the session cookie by setting MaxAge to -1
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// GetSession retrieves the session cookie value
func GetSession(r *http.Request) (string, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
