package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

var ErrMissingAuthCode = errors.New("authorization code is missing")

// OAuthSettings describes the OAuth client registered with the photo service
type OAuthSettings struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
}

// OAuthService runs the authorization code flow against the photo service
type OAuthService struct {
	settings OAuthSettings
}

// NewOAuthService creates a new OAuthService
func NewOAuthService(settings OAuthSettings) *OAuthService {
	return &OAuthService{settings: settings}
}

// config returns the oauth2 config for one request. When no redirect URL is
// configured the caller's callback URL is used.
func (s *OAuthService) config(callbackURL string) *oauth2.Config {
	redirect := s.settings.RedirectURL
	if redirect == "" {
		redirect = callbackURL
	}
	return &oauth2.Config{
		ClientID:     s.settings.ClientID,
		ClientSecret: s.settings.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.settings.AuthURL,
			TokenURL:  s.settings.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirect,
		Scopes:      s.settings.Scopes,
	}
}

// AuthorizeURL returns the page the browser is sent to for consent
func (s *OAuthService) AuthorizeURL(state, callbackURL string) string {
	return s.config(callbackURL).AuthCodeURL(state)
}

// Exchange trades the authorization code for an access token
func (s *OAuthService) Exchange(ctx context.Context, code, callbackURL string) (string, error) {
	if code == "" {
		return "", ErrMissingAuthCode
	}

	token, err := s.config(callbackURL).Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("token response carried no access token")
	}
	return token.AccessToken, nil
}
