package models

import (
	"time"

	"github.com/google/uuid"
)

// WebSession ties a browser cookie to the OAuth access token of the photo stream.
// The token is stored encrypted; the plaintext only exists in request scope.
type WebSession struct {
	ID                   string    `json:"id"` // This is the session token
	AccessTokenEncrypted string    `json:"-"`
	CreatedAt            time.Time `json:"createdAt"`
	ExpiresAt            time.Time `json:"expiresAt"`
	LastActivityAt       time.Time `json:"lastActivityAt"`
	IPAddress            string    `json:"ipAddress,omitempty"`
	UserAgent            string    `json:"userAgent,omitempty"`
}

// NewWebSession creates a new web session
func NewWebSession(encryptedToken, ipAddress, userAgent string, durationHours int) *WebSession {
	now := time.Now().UTC()
	return &WebSession{
		ID:                   uuid.New().String(),
		AccessTokenEncrypted: encryptedToken,
		CreatedAt:            now,
		ExpiresAt:            now.Add(time.Duration(durationHours) * time.Hour),
		LastActivityAt:       now,
		IPAddress:            ipAddress,
		UserAgent:            userAgent,
	}
}

// IsExpired checks if the session has expired
func (s *WebSession) IsExpired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}

// Touch updates the last activity timestamp
func (s *WebSession) Touch() {
	s.LastActivityAt = time.Now().UTC()
}

// WebSession errors
var (
	ErrSessionNotFound = SessionError{"session not found"}
	ErrSessionExpired  = SessionError{"session has expired"}
	ErrNoAccessToken   = SessionError{"not connected to the photo service"}
)

type SessionError struct {
	Message string
}

func (e SessionError) Error() string {
	return e.Message
}
