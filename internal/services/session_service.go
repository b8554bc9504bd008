package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/threesixtyfive/server/internal/models"
	"github.com/threesixtyfive/server/internal/repository"
)

// SessionService keeps the OAuth access token of a browser session
type SessionService struct {
	sessionRepo   repository.WebSessionRepo
	cipher        *TokenCipher
	durationHours int
}

// NewSessionService creates a new SessionService
func NewSessionService(sessionRepo repository.WebSessionRepo, cipher *TokenCipher, durationHours int) *SessionService {
	if durationHours <= 0 {
		durationHours = 24
	}
	return &SessionService{
		sessionRepo:   sessionRepo,
		cipher:        cipher,
		durationHours: durationHours,
	}
}

// DurationHours returns how long new sessions stay valid
func (s *SessionService) DurationHours() int {
	return s.durationHours
}

// Create stores a new session for the access token
func (s *SessionService) Create(ctx context.Context, accessToken, ipAddress, userAgent string) (*models.WebSession, error) {
	encrypted, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	session := models.NewWebSession(encrypted, ipAddress, userAgent, s.durationHours)
	if err := s.sessionRepo.Add(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// Validate loads a live session by its cookie value
func (s *SessionService) Validate(ctx context.Context, sessionID string) (*models.WebSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, models.ErrSessionExpired
	}

	if err := s.sessionRepo.Touch(ctx, session.ID); err != nil {
		return nil, err
	}
	session.Touch()
	return session, nil
}

// AccessToken decrypts the token held by the session
func (s *SessionService) AccessToken(session *models.WebSession) (string, error) {
	if session == nil || session.AccessTokenEncrypted == "" {
		return "", models.ErrNoAccessToken
	}
	token, err := s.cipher.Decrypt(session.AccessTokenEncrypted)
	if err != nil {
		if errors.Is(err, ErrTokenCiphertext) {
			// the session secret changed, the user has to connect again
			return "", models.ErrNoAccessToken
		}
		return "", err
	}
	return token, nil
}

// Revoke deletes a session
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Delete(ctx, sessionID)
}

// CleanupExpired removes expired sessions and returns how many were removed
func (s *SessionService) CleanupExpired(ctx context.Context) (int, error) {
	return s.sessionRepo.CleanupExpired(ctx)
}
