package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/shared"
	"golang.org/x/oauth2"
)

// UserService wraps the /users endpoints.
type UserService struct {
	client *Client
}

// Login exchanges credentials for an access token using the OAuth2 password form. The refresh cookie is captured
// as a side effect.
func (s *UserService) Login(ctx context.Context, creds models.Credentials) (*oauth2.Token, error) {
	r := formRequest(http.MethodPost, "/users/login", creds.Values())
	r.anonymous = true

	var resp tokenResponse
	if err := s.client.do(ctx, r, &resp); err != nil {
		return nil, err
	}
	return resp.token()
}

// Refresh requests a new access token with the captured refresh cookie.
func (s *UserService) Refresh(ctx context.Context) (*oauth2.Token, error) {
	if s.client.RefreshToken() == "" {
		return nil, shared.ErrNoRefreshToken
	}

	r := request{method: http.MethodPost, path: "/users/refresh", anonymous: true, refresh: true}

	var resp tokenResponse
	if err := s.client.do(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return resp.token()
}

// Register creates an account. It does not authenticate.
func (s *UserService) Register(ctx context.Context, reg models.Registration) (*models.UserProfile, error) {
	r := formRequest(http.MethodPost, "/users/register", reg.Values())
	r.anonymous = true

	var user models.UserProfile
	if err := s.client.do(ctx, r, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the server-side session for bearer, which need not be the installed credential. The local refresh
// credential is forgotten even when the call fails.
func (s *UserService) Logout(ctx context.Context, bearer string) error {
	defer s.client.SetRefreshToken("")
	return s.client.do(ctx, request{method: http.MethodDelete, path: "/users/logout", refresh: true, bearer: bearer}, nil)
}

// Me fetches the authenticated user's profile.
func (s *UserService) Me(ctx context.Context) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := s.client.do(ctx, request{method: http.MethodGet, path: "/users/info"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update changes profile fields and returns the updated profile.
func (s *UserService) Update(ctx context.Context, upd models.ProfileUpdate) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := s.client.do(ctx, formRequest(http.MethodPatch, "/users/update", upd.Values()), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SendVerificationEmail asks the backend to email a verification link.
func (s *UserService) SendVerificationEmail(ctx context.Context) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := s.client.do(ctx, request{method: http.MethodPost, path: "/users/verify-email"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ConfirmEmail redeems the token from a verification link.
func (s *UserService) ConfirmEmail(ctx context.Context, token string) (*models.UserProfile, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token", shared.ErrMissingArgument)
	}

	r := request{
		method:    http.MethodGet,
		path:      "/users/verify-email",
		query:     url.Values{"token": {token}},
		anonymous: true,
	}

	var user models.UserProfile
	if err := s.client.do(ctx, r, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SendResetPasswordEmail asks the backend to email a reset link. It returns the backend's notice.
func (s *UserService) SendResetPasswordEmail(ctx context.Context, email string) (string, error) {
	r, err := jsonRequest(http.MethodPost, "/users/reset-password", map[string]string{"email": email})
	if err != nil {
		return "", err
	}
	r.anonymous = true

	var resp struct {
		Detail string `json:"detail"`
	}
	if err := s.client.do(ctx, r, &resp); err != nil {
		return "", err
	}
	return resp.Detail, nil
}

// ResetPassword sets a new password using the token from a reset link.
func (s *UserService) ResetPassword(ctx context.Context, token string, reset models.PasswordReset) (*models.UserProfile, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token", shared.ErrMissingArgument)
	}

	r := formRequest(http.MethodPatch, "/users/reset-password", reset.Values())
	r.query = url.Values{"token": {token}}
	r.anonymous = true

	var user models.UserProfile
	if err := s.client.do(ctx, r, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
