package stores

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/services"
	"github.com/desertthunder/mediax/internal/shared"
	"golang.org/x/oauth2"
)

// Session refresh timing.
const (
	DefaultRefreshInterval = 25 * time.Minute
	DefaultRefreshLead     = time.Minute
	minRefreshDelay        = time.Second
)

// SessionRepository persists the session between runs.
type SessionRepository interface {
	Load() (*models.StoredSession, error)
	Save(models.StoredSession) error
	Clear() error
}

// SessionOpts configures a [Session].
type SessionOpts struct {
	Client    *services.Client
	Navigator *Navigator
	Notifier  Notifier
	Repo      SessionRepository // nil disables persistence
	Logger    *log.Logger
	Clock     shared.Clock

	RefreshInterval time.Duration
	RefreshLead     time.Duration
}

// SessionState is a snapshot of the session.
type SessionState struct {
	Authenticated bool
	Loading       bool
	User          *models.UserProfile
}

// CredentialListener is told about every credential install (token) and clear (nil).
type CredentialListener func(*oauth2.Token)

// Session owns the current credential and user profile.
//
// The credential and the client's signer change together under one lock, so no request observes a state where
// the store and the transport disagree. A 401 to a signed request reaches [Session.Expire] through the client's
// unauthorized handler.
type Session struct {
	client   *services.Client
	nav      *Navigator
	repo     SessionRepository
	logger   *log.Logger
	clock    shared.Clock
	toast    toaster
	interval time.Duration
	lead     time.Duration

	mu      sync.Mutex
	token   *oauth2.Token
	user    *models.UserProfile
	gen     uint64
	timer   *time.Timer
	loading int
	subs    []CredentialListener
	closed  bool
	expired bool
}

// NewSession creates a session store and registers it as the client's unauthorized handler.
func NewSession(opts SessionOpts) *Session {
	if opts.Navigator == nil {
		opts.Navigator = NewNavigator()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Clock == nil {
		opts.Clock = shared.RealClock{}
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.RefreshLead <= 0 {
		opts.RefreshLead = DefaultRefreshLead
	}

	s := &Session{
		client:   opts.Client,
		nav:      opts.Navigator,
		repo:     opts.Repo,
		logger:   shared.WithLogger(opts.Logger, "store", "session"),
		clock:    opts.Clock,
		toast:    newToaster(opts.Notifier, opts.Clock),
		interval: opts.RefreshInterval,
		lead:     opts.RefreshLead,
	}
	s.client.OnUnauthorized(func(bearer string) { s.Expire(bearer) })
	return s
}

// OnCredential registers fn for credential changes.
func (s *Session) OnCredential(fn CredentialListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// State returns a snapshot of the session.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := SessionState{Authenticated: s.token != nil, Loading: s.loading > 0}
	if s.user != nil {
		u := *s.user
		state.User = &u
	}
	return state
}

// Authenticated reports whether a credential is installed.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil
}

// Expired reports whether the last credential was lost to a rejection or a failed restore rather than a logout.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// Token returns the installed credential, or nil.
func (s *Session) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Login validates creds locally, exchanges them for a credential and fetches the profile with it. The credential is
// installed only once the profile fetch succeeds.
func (s *Session) Login(ctx context.Context, creds models.Credentials) error {
	if err := creds.Validate(); err != nil {
		s.toast.fail("Username and password are required")
		return err
	}

	defer s.begin()()

	refresh := s.client.RefreshToken()

	token, err := s.client.Users.Login(ctx, creds)
	if err != nil {
		s.logger.Debug("login failed", "error", err)
		s.toast.fail(services.Message(err, "Login failed"))
		return errors.Join(shared.ErrAuthFailed, err)
	}

	user, err := s.verify(ctx, token)
	if err != nil {
		s.logger.Debug("profile fetch after login failed", "error", err)
		s.client.SetRefreshToken(refresh)
		s.toast.fail(services.Message(err, "Login failed"))
		return errors.Join(shared.ErrAuthFailed, err)
	}

	s.install(token)
	s.setUser(user)
	s.persist()
	s.toast.success("Logged in as " + user.DisplayName())
	return nil
}

// Signup registers an account. It does not authenticate; the caller is sent to the login location.
func (s *Session) Signup(ctx context.Context, reg models.Registration) (*models.UserProfile, error) {
	if err := reg.Validate(); err != nil {
		s.toast.fail(validationMessage(err))
		return nil, err
	}

	defer s.begin()()

	user, err := s.client.Users.Register(ctx, reg)
	if err != nil {
		s.toast.fail(services.Message(err, "Sign up failed"))
		return nil, err
	}

	s.toast.success("Account created, please log in")
	s.nav.Push(LoginPath)
	return user, nil
}

// Logout ends the session. Local state is cleared before the backend call, so a rejected logout is not reported as
// an expiry.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == nil {
		return shared.ErrNotAuthenticated
	}

	defer s.begin()()

	s.drop(token.AccessToken)

	if err := s.client.Users.Logout(ctx, token.AccessToken); err != nil {
		s.logger.Debug("logout request failed", "error", err)
	}

	s.toast.info("Logged out")
	return nil
}

// UpdateUser changes profile fields.
func (s *Session) UpdateUser(ctx context.Context, upd models.ProfileUpdate) error {
	if err := upd.Validate(); err != nil {
		s.toast.fail(validationMessage(err))
		return err
	}

	defer s.begin()()

	user, err := s.client.Users.Update(ctx, upd)
	if err != nil {
		s.toast.fail(services.Message(err, "Failed to update profile"))
		return err
	}

	s.setUser(user)
	s.toast.success("Profile updated")
	return nil
}

// VerifyEmail asks the backend to send a verification email.
func (s *Session) VerifyEmail(ctx context.Context) error {
	defer s.begin()()

	user, err := s.client.Users.SendVerificationEmail(ctx)
	if err != nil {
		s.toast.fail(services.Message(err, "Failed to send verification email"))
		return err
	}

	s.setUser(user)
	s.toast.success("Verification email sent to " + user.Email)
	return nil
}

// ConfirmEmail redeems the token from a verification link. The profile is updated when signed in.
func (s *Session) ConfirmEmail(ctx context.Context, token string) error {
	defer s.begin()()

	user, err := s.client.Users.ConfirmEmail(ctx, token)
	if err != nil {
		s.toast.fail(services.Message(err, "Failed to verify email"))
		return err
	}

	s.mu.Lock()
	if s.user != nil && s.user.Username == user.Username {
		s.user = user
	}
	s.mu.Unlock()

	s.toast.success("Email verified")
	return nil
}

// SendResetPasswordEmail asks the backend to email a reset link to email.
func (s *Session) SendResetPasswordEmail(ctx context.Context, email string) error {
	if email == "" {
		s.toast.fail("Email is required")
		return shared.ErrMissingArgument
	}

	defer s.begin()()

	detail, err := s.client.Users.SendResetPasswordEmail(ctx, email)
	if err != nil {
		s.toast.fail(services.Message(err, "Failed to send reset password email"))
		return err
	}

	if detail == "" {
		detail = "Reset password email sent"
	}
	s.toast.success(detail)
	return nil
}

// ResetPassword sets a new password with the token from a reset link, then sends the caller to log in.
func (s *Session) ResetPassword(ctx context.Context, token string, reset models.PasswordReset) error {
	if err := reset.Validate(); err != nil {
		s.toast.fail(validationMessage(err))
		return err
	}

	defer s.begin()()

	if _, err := s.client.Users.ResetPassword(ctx, token, reset); err != nil {
		s.toast.fail(services.Message(err, "Failed to reset password"))
		return err
	}

	s.toast.success("Password reset, please log in")
	s.nav.Push(LoginPath)
	return nil
}

// Restore recovers a prior session: first with the persisted refresh cookie, then with a stored access token that
// has not expired. Failure settles into unauthenticated without a toast. It reports whether a session was restored.
func (s *Session) Restore(ctx context.Context) bool {
	defer s.begin()()

	stored := s.load()
	if stored != nil && stored.RefreshToken != "" && s.client.RefreshToken() == "" {
		s.client.SetRefreshToken(stored.RefreshToken)
	}

	if s.client.RefreshToken() != "" {
		token, err := s.client.Users.Refresh(ctx)
		if err == nil {
			if s.adopt(ctx, token) {
				return true
			}
		} else {
			s.logger.Debug("cookie refresh failed", "error", err)
		}
	}

	if stored != nil && stored.Usable(s.clock.Now()) {
		token := &oauth2.Token{AccessToken: stored.AccessToken, TokenType: stored.TokenType, Expiry: stored.Expiry}
		if s.adopt(ctx, token) {
			return true
		}
	}

	if stored != nil {
		s.mu.Lock()
		s.expired = true
		s.mu.Unlock()
	}

	s.client.SetRefreshToken("")
	s.forget()
	return false
}

// adopt validates token by fetching the profile before publishing it.
func (s *Session) adopt(ctx context.Context, token *oauth2.Token) bool {
	user, err := s.verify(ctx, token)
	if err != nil {
		s.logger.Debug("stored credential rejected", "error", err)
		return false
	}

	s.install(token)
	s.setUser(user)
	s.persist()
	return true
}

// verify fetches the profile with token signed on the client. On failure the previous signer is restored. A 401
// here does not reach Expire because the store has not installed the token yet.
func (s *Session) verify(ctx context.Context, token *oauth2.Token) (*models.UserProfile, error) {
	s.client.Sign(token)

	user, err := s.client.Users.Me(ctx)
	if err != nil {
		s.mu.Lock()
		if s.token == nil {
			s.client.Unsign()
		} else {
			s.client.Sign(s.token)
		}
		s.mu.Unlock()
		return nil, err
	}
	return user, nil
}

// Refresh requests a new credential with the refresh cookie and installs it, unless the credential changed while
// the request was in flight.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen
	active := s.token != nil
	s.mu.Unlock()

	if !active {
		return shared.ErrNotAuthenticated
	}

	token, err := s.client.Users.Refresh(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.gen != gen || s.token == nil {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded refresh")
		return nil
	}
	fns := s.installLocked(token)
	s.mu.Unlock()

	publish(fns, token)
	s.persist()
	return nil
}

// Expire is the global 401 handler. The session is cleared only if bearer is still the installed credential, so
// concurrent 401s for one credential expire it exactly once.
func (s *Session) Expire(bearer string) bool {
	if !s.drop(bearer) {
		return false
	}

	s.mu.Lock()
	s.expired = true
	s.mu.Unlock()

	s.logger.Warn("session expired")
	s.toast.fail("Session expired, please log in again")
	s.nav.Push(LoginPath)
	return true
}

// Close stops the refresh timer. The session keeps its state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// install publishes token as the current credential.
func (s *Session) install(token *oauth2.Token) {
	s.mu.Lock()
	fns := s.installLocked(token)
	s.mu.Unlock()
	publish(fns, token)
}

// installLocked swaps the credential and the signer together and restarts the refresh timer. Caller holds mu.
func (s *Session) installLocked(token *oauth2.Token) []CredentialListener {
	s.token = token
	s.expired = false
	s.client.Sign(token)
	s.gen++
	s.schedule(token)
	return append([]CredentialListener(nil), s.subs...)
}

// drop clears the session if bearer is the installed credential.
func (s *Session) drop(bearer string) bool {
	s.mu.Lock()
	if s.token == nil || s.token.AccessToken != bearer {
		s.mu.Unlock()
		return false
	}

	s.token = nil
	s.user = nil
	s.client.Unsign()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	fns := append([]CredentialListener(nil), s.subs...)
	s.mu.Unlock()

	s.forget()
	publish(fns, nil)
	return true
}

// schedule arms the refresh timer for the interval or one lead before expiry, whichever comes first. Caller holds mu.
func (s *Session) schedule(token *oauth2.Token) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.closed {
		return
	}

	delay := s.interval
	if !token.Expiry.IsZero() {
		if untilExp := token.Expiry.Sub(s.clock.Now()) - s.lead; untilExp < delay {
			delay = max(untilExp, minRefreshDelay)
		}
	}

	gen := s.gen
	s.timer = time.AfterFunc(delay, func() { s.refreshTick(gen) })
}

func (s *Session) refreshTick(gen uint64) {
	s.mu.Lock()
	current := s.gen == gen && s.token != nil
	s.mu.Unlock()

	if !current {
		return
	}

	if err := s.Refresh(context.Background()); err != nil {
		s.logger.Debug("proactive refresh failed", "error", err)
	}
}

func (s *Session) setUser(user *models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *Session) begin() func() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
	}
}

func (s *Session) load() *models.StoredSession {
	if s.repo == nil {
		return nil
	}
	stored, err := s.repo.Load()
	if err != nil {
		if !errors.Is(err, shared.ErrNoSession) {
			s.logger.Warn("failed to load stored session", "error", err)
		}
		return nil
	}
	return stored
}

func (s *Session) persist() {
	if s.repo == nil {
		return
	}

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == nil {
		return
	}

	stored := models.StoredSession{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		RefreshToken: s.client.RefreshToken(),
	}
	if err := s.repo.Save(stored); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
	}
}

func (s *Session) forget() {
	if s.repo == nil {
		return
	}
	if err := s.repo.Clear(); err != nil {
		s.logger.Warn("failed to clear stored session", "error", err)
	}
}

func publish(fns []CredentialListener, token *oauth2.Token) {
	for _, fn := range fns {
		fn(token)
	}
}

// validationMessage strips the sentinel prefix from a local validation error.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), shared.ErrInvalidInput.Error()+": ")
}
