package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/shared"
)

// SessionKey is the fixed key the current session is stored under.
const SessionKey = "current"

// SessionRepository persists at most one session.
type SessionRepository struct {
	db    *sql.DB
	clock shared.Clock
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB, clock shared.Clock) *SessionRepository {
	if clock == nil {
		clock = shared.RealClock{}
	}
	return &SessionRepository{db: db, clock: clock}
}

// Load returns the stored session, or [shared.ErrNoSession] when there is none.
func (r *SessionRepository) Load() (*models.StoredSession, error) {
	query := `
		SELECT access_token, token_type, expiry, refresh_token, updated_at
		FROM sessions
		WHERE key = ?
	`

	var (
		s      models.StoredSession
		expiry sql.NullTime
	)

	err := r.db.QueryRow(query, SessionKey).Scan(&s.AccessToken, &s.TokenType, &expiry, &s.RefreshToken, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	s.Expiry = fromNullTime(expiry)
	return &s, nil
}

// Save replaces the stored session.
func (r *SessionRepository) Save(s models.StoredSession) error {
	if s.AccessToken == "" {
		return fmt.Errorf("%w: session has no access token", shared.ErrInvalidInput)
	}
	if s.TokenType == "" {
		s.TokenType = "bearer"
	}

	query := `
		INSERT INTO sessions (key, access_token, token_type, expiry, refresh_token, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			access_token = excluded.access_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`

	now := r.clock.Now().UTC()
	if _, err := r.db.Exec(query, SessionKey, s.AccessToken, s.TokenType, nullTime(s.Expiry.UTC()), s.RefreshToken, now); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Clear removes the stored session. Clearing when nothing is stored is not an error.
func (r *SessionRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM sessions WHERE key = ?`, SessionKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
