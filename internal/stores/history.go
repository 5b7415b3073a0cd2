package stores

import (
	"context"
	"time"

	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/services"
)

// DefaultHistoryLimit is how many recent searches are shown.
const DefaultHistoryLimit = 5

// HistoryStore is a source of recent searches.
type HistoryStore interface {
	List(ctx context.Context) ([]models.HistoryEntry, error)
	Record(ctx context.Context, keyword string, at time.Time) error
	Delete(ctx context.Context, keyword string) error
	Clear(ctx context.Context) error
}

// HistoryRepository is the local persistence [LocalHistory] writes through.
type HistoryRepository interface {
	Record(keyword string, at time.Time) error
	List(limit int) ([]models.HistoryEntry, error)
	Delete(keyword string) error
	Clear() error
}

// LocalHistory keeps recent searches on this machine, deduplicated by keyword.
type LocalHistory struct {
	repo  HistoryRepository
	limit int
}

// NewLocalHistory creates a [LocalHistory] listing up to limit entries.
func NewLocalHistory(repo HistoryRepository, limit int) *LocalHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &LocalHistory{repo: repo, limit: limit}
}

func (h *LocalHistory) List(context.Context) ([]models.HistoryEntry, error) {
	return h.repo.List(h.limit)
}

func (h *LocalHistory) Record(_ context.Context, keyword string, at time.Time) error {
	return h.repo.Record(keyword, at)
}

func (h *LocalHistory) Delete(_ context.Context, keyword string) error {
	return h.repo.Delete(keyword)
}

func (h *LocalHistory) Clear(context.Context) error {
	return h.repo.Clear()
}

// RemoteHistory reads and deletes the history the backend records for every search.
type RemoteHistory struct {
	media *services.MediaService
	limit int
}

// NewRemoteHistory creates a [RemoteHistory]. A limit of zero or less shows every entry.
func NewRemoteHistory(media *services.MediaService, limit int) *RemoteHistory {
	return &RemoteHistory{media: media, limit: limit}
}

func (h *RemoteHistory) List(ctx context.Context) ([]models.HistoryEntry, error) {
	entries, err := h.media.History(ctx)
	if err != nil {
		return nil, err
	}
	if h.limit > 0 && len(entries) > h.limit {
		entries = entries[:h.limit]
	}
	return entries, nil
}

// Record is a no-op: the backend records the keyword when it serves the search.
func (h *RemoteHistory) Record(context.Context, string, time.Time) error { return nil }

func (h *RemoteHistory) Delete(ctx context.Context, keyword string) error {
	_, err := h.media.DeleteHistory(ctx, keyword)
	return err
}

func (h *RemoteHistory) Clear(ctx context.Context) error {
	return h.media.ClearHistory(ctx)
}
