package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/threesixtyfive/server/internal/models"
	"github.com/threesixtyfive/server/internal/observability"
)

type contextKey string

const SessionContextKey contextKey = "session"

// SessionCookieName is the cookie carrying the web session id
const SessionCookieName = "session_token"

// SessionValidator resolves a cookie value to a live session
type SessionValidator interface {
	Validate(ctx context.Context, sessionID string) (*models.WebSession, error)
}

// GetSessionFromContext retrieves the web session from request context
func GetSessionFromContext(ctx context.Context) *models.WebSession {
	if session, ok := ctx.Value(SessionContextKey).(*models.WebSession); ok {
		return session
	}
	return nil
}

// WithSession returns a copy of ctx carrying the session
func WithSession(ctx context.Context, session *models.WebSession) context.Context {
	return context.WithValue(ctx, SessionContextKey, session)
}

// LoadSession attaches the session named by the cookie, if it is still valid.
// Requests without a usable session pass through untouched.
func LoadSession(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := sessions.Validate(r.Context(), cookie.Value)
			if err != nil {
				var sessionErr models.SessionError
				if !errors.As(err, &sessionErr) {
					observability.WithContext(r.Context()).WithError(err).Warn("Session lookup failed")
				}
				ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireSession sends visitors without a session to the work page, where
// they can connect their account.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSessionFromContext(r.Context()) == nil {
			http.Redirect(w, r, "/work", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie writes the session cookie
func SetSessionCookie(w http.ResponseWriter, session *models.WebSession, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
