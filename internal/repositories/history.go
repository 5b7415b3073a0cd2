package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/shared"
)

// HistoryRepository persists search keywords, one row per keyword.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new [HistoryRepository] with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record stores keyword with timestamp at, replacing the timestamp if the keyword already exists.
func (r *HistoryRepository) Record(keyword string, at time.Time) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return fmt.Errorf("%w: keyword", shared.ErrMissingArgument)
	}

	query := `
		INSERT INTO search_history (keyword, searched_at) VALUES (?, ?)
		ON CONFLICT (keyword) DO UPDATE SET searched_at = excluded.searched_at
	`

	if _, err := r.db.Exec(query, keyword, at.UTC()); err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. A limit of zero or less returns every entry.
func (r *HistoryRepository) List(limit int) ([]models.HistoryEntry, error) {
	query := `SELECT keyword, searched_at FROM search_history ORDER BY searched_at DESC, keyword ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.Keyword, &e.SearchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}

// Delete removes keyword. Deleting a missing keyword is not an error.
func (r *HistoryRepository) Delete(keyword string) error {
	if _, err := r.db.Exec(`DELETE FROM search_history WHERE keyword = ?`, keyword); err != nil {
		return fmt.Errorf("failed to delete search: %w", err)
	}
	return nil
}

// Clear removes every keyword.
func (r *HistoryRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM search_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
