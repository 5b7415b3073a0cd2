package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/shared"
)

// MediaService wraps the /media endpoints.
type MediaService struct {
	client *Client
}

// Search runs q and decodes the page as the variant matching q.Type.
func (s *MediaService) Search(ctx context.Context, q models.SearchQuery) (models.SearchResult, error) {
	if !q.Type.Valid() {
		return nil, fmt.Errorf("%w: media type %q", shared.ErrInvalidArgument, q.Type)
	}

	var body []byte
	if err := s.client.do(ctx, request{method: http.MethodGet, path: "/media/search", query: q.Values()}, &body); err != nil {
		return nil, err
	}
	return models.DecodeSearchResult(q.Type, body)
}

// Detail fetches a single item.
func (s *MediaService) Detail(ctx context.Context, kind models.MediaType, id string) (models.Media, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: media type %q", shared.ErrInvalidArgument, kind)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	query := url.Values{"type": {string(kind)}, "id": {id}}

	var body []byte
	if err := s.client.do(ctx, request{method: http.MethodGet, path: "/media/detail", query: query}, &body); err != nil {
		return nil, err
	}
	return models.DecodeMedia(kind, body)
}

// History returns the server-side search history, newest first.
func (s *MediaService) History(ctx context.Context) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	if err := s.client.do(ctx, request{method: http.MethodGet, path: "/media/history"}, &entries); err != nil {
		return nil, err
	}
	models.SortHistory(entries)
	return entries, nil
}

// DeleteHistory removes one keyword and returns the remaining history.
func (s *MediaService) DeleteHistory(ctx context.Context, keyword string) ([]models.HistoryEntry, error) {
	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword", shared.ErrMissingArgument)
	}
	return s.deleteHistory(ctx, url.Values{"keyword": {keyword}})
}

// ClearHistory removes every keyword.
func (s *MediaService) ClearHistory(ctx context.Context) error {
	_, err := s.deleteHistory(ctx, nil)
	return err
}

func (s *MediaService) deleteHistory(ctx context.Context, query url.Values) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	if err := s.client.do(ctx, request{method: http.MethodDelete, path: "/media/history", query: query}, &entries); err != nil {
		return nil, err
	}
	models.SortHistory(entries)
	return entries, nil
}
