package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/mediax/internal/shared"
)

// Field length bounds enforced by the backend for usernames and passwords.
const (
	MinCredentialLength = 6
	MaxCredentialLength = 50
)

// EmailVerificationStatus is the tri-state verification state of a user's email.
type EmailVerificationStatus string

const (
	VerificationNone      EmailVerificationStatus = "none"
	VerificationVerifying EmailVerificationStatus = "verifying"
	VerificationVerified  EmailVerificationStatus = "verified"
)

// UserProfile is the authenticated user as returned by the backend.
type UserProfile struct {
	Username                string                  `json:"username"`
	FullName                string                  `json:"full_name,omitempty"`
	Email                   string                  `json:"email,omitempty"`
	EmailVerificationStatus EmailVerificationStatus `json:"email_verification_status"`
}

// DisplayName returns the full name when set, otherwise the username.
func (u UserProfile) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Credentials are submitted on login.
type Credentials struct {
	Username string
	Password string
}

// Validate requires both fields to be non-empty.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("%w: username is required", shared.ErrInvalidInput)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is required", shared.ErrInvalidInput)
	}
	return nil
}

// Values encodes the credentials as an OAuth2 password grant form.
func (c Credentials) Values() url.Values {
	return url.Values{
		"grant_type": {"password"},
		"username":   {c.Username},
		"password":   {c.Password},
	}
}

// Registration is the signup form.
type Registration struct {
	Username       string
	Password       string
	PasswordRepeat string
	Email          string
	FullName       string
}

// Validate checks required fields, length bounds and the password confirmation.
func (r Registration) Validate() error {
	if err := checkLength("username", r.Username); err != nil {
		return err
	}
	if err := checkLength("password", r.Password); err != nil {
		return err
	}
	if r.Password != r.PasswordRepeat {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, shared.ErrPasswordMismatch)
	}
	return nil
}

// Values encodes the registration as a form body. Empty optional fields are omitted.
func (r Registration) Values() url.Values {
	v := url.Values{
		"username":        {r.Username},
		"password":        {r.Password},
		"password_repeat": {r.PasswordRepeat},
	}
	setIf(v, "email", r.Email)
	setIf(v, "full_name", r.FullName)
	return v
}

// ProfileUpdate is a partial profile change. Empty fields are left unchanged.
type ProfileUpdate struct {
	FullName       string
	Email          string
	Password       string
	PasswordRepeat string
}

// Validate checks the password pair when a new password is given.
func (p ProfileUpdate) Validate() error {
	if p.Password == "" && p.PasswordRepeat == "" {
		if p.FullName == "" && p.Email == "" {
			return fmt.Errorf("%w: nothing to update", shared.ErrInvalidInput)
		}
		return nil
	}
	if err := checkLength("password", p.Password); err != nil {
		return err
	}
	if p.Password != p.PasswordRepeat {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, shared.ErrPasswordMismatch)
	}
	return nil
}

// Values encodes the update as a form body.
func (p ProfileUpdate) Values() url.Values {
	v := url.Values{}
	setIf(v, "full_name", p.FullName)
	setIf(v, "email", p.Email)
	setIf(v, "password", p.Password)
	setIf(v, "password_repeat", p.PasswordRepeat)
	return v
}

// PasswordReset is the new password submitted with a reset token.
type PasswordReset struct {
	Password       string
	PasswordRepeat string
}

func (p PasswordReset) Validate() error {
	if err := checkLength("password", p.Password); err != nil {
		return err
	}
	if p.Password != p.PasswordRepeat {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, shared.ErrPasswordMismatch)
	}
	return nil
}

func (p PasswordReset) Values() url.Values {
	return url.Values{
		"password":        {p.Password},
		"password_repeat": {p.PasswordRepeat},
	}
}

// StoredSession is a session as persisted between runs.
type StoredSession struct {
	AccessToken  string
	TokenType    string
	Expiry       time.Time
	RefreshToken string
	UpdatedAt    time.Time
}

// Usable reports whether the stored access token can still be presented at now.
func (s StoredSession) Usable(now time.Time) bool {
	return s.AccessToken != "" && (s.Expiry.IsZero() || now.Before(s.Expiry))
}

func checkLength(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", shared.ErrInvalidInput, field)
	}
	n := utf8.RuneCountInString(value)
	if n < MinCredentialLength || n > MaxCredentialLength {
		return fmt.Errorf("%w: %s must be between %d and %d characters", shared.ErrInvalidInput, field, MinCredentialLength, MaxCredentialLength)
	}
	return nil
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
