package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/threesixtyfive/server/internal/middleware"
	"github.com/threesixtyfive/server/internal/models"
	"github.com/threesixtyfive/server/internal/observability"
	"github.com/threesixtyfive/server/internal/services"
)

const (
	oauthStateCookie = "oauth_state"
	callbackPath     = "/work/callback"
)

// Authorizer runs the OAuth code flow
type Authorizer interface {
	AuthorizeURL(state, callbackURL string) string
	Exchange(ctx context.Context, code, callbackURL string) (string, error)
}

// SessionStore creates and revokes browser sessions
type SessionStore interface {
	Create(ctx context.Context, accessToken, ipAddress, userAgent string) (*models.WebSession, error)
	Revoke(ctx context.Context, sessionID string) error
}

// OAuthHandler connects the browser to the photo service account
type OAuthHandler struct {
	oauth         Authorizer
	sessions      SessionStore
	secureCookies bool
}

// NewOAuthHandler creates a new OAuthHandler
func NewOAuthHandler(oauth Authorizer, sessions SessionStore, secureCookies bool) *OAuthHandler {
	return &OAuthHandler{
		oauth:         oauth,
		sessions:      sessions,
		secureCookies: secureCookies,
	}
}

// Connect sends the browser to the consent page
func (h *OAuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     callbackPath,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.AuthorizeURL(state, externalBaseURL(r)+callbackPath), http.StatusFound)
}

// Callback finishes the code flow and starts a session
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		observability.Warnf("Authorization denied: %s (%s)", reason, q.Get("error_description"))
		respondText(w, http.StatusBadRequest, "Authorization was denied: "+reason)
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" ||
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		respondText(w, http.StatusBadRequest, "Invalid or expired authorization state.")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: callbackPath, MaxAge: -1})

	token, err := h.oauth.Exchange(r.Context(), q.Get("code"), externalBaseURL(r)+callbackPath)
	if err != nil {
		if errors.Is(err, services.ErrMissingAuthCode) {
			respondText(w, http.StatusBadRequest, "Authorization code is missing.")
			return
		}
		observability.WithContext(r.Context()).WithError(err).Warn("Token exchange failed")
		respondText(w, http.StatusBadGateway, "The photo service did not issue a token.")
		return
	}

	session, err := h.sessions.Create(r.Context(), token, getClientIP(r), r.UserAgent())
	if err != nil {
		observability.WithContext(r.Context()).WithError(err).Error("Failed to create session")
		respondText(w, http.StatusInternalServerError, "Internal error.")
		return
	}

	middleware.SetSessionCookie(w, session, h.secureCookies)
	observability.WithField("ip", getClientIP(r)).Info("Account connected")
	http.Redirect(w, r, "/work", http.StatusFound)
}

// Disconnect forgets the stored access token
func (h *OAuthHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if session := middleware.GetSessionFromContext(r.Context()); session != nil {
		if err := h.sessions.Revoke(r.Context(), session.ID); err != nil {
			observability.WithContext(r.Context()).WithError(err).Error("Failed to revoke session")
			respondText(w, http.StatusInternalServerError, "Internal error.")
			return
		}
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/work", http.StatusSeeOther)
}
