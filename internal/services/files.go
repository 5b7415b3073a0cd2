package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/shared"
)

// MaxUploadSize is the largest file the backend accepts, in bytes.
const MaxUploadSize int64 = 5 * 1024 * 1024

// FileService wraps the /files endpoints.
type FileService struct {
	client *Client
}

// Upload is a single file to send.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Size returns the content length in bytes.
func (u Upload) Size() int64 { return int64(len(u.Content)) }

// List fetches one page of files. The nonce is not sent.
func (s *FileService) List(ctx context.Context, q models.ListFilesQuery) (*models.FileList, error) {
	var page models.FileList
	if err := s.client.do(ctx, request{method: http.MethodGet, path: "/files/", query: q.APIValues()}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Upload sends one file as multipart form data.
func (s *FileService) Upload(ctx context.Context, up Upload) (*models.FileRecord, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := up.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(up.Content)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(up.Filename)))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(up.Content)); err != nil {
		return nil, fmt.Errorf("failed to write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	r := request{method: http.MethodPost, path: "/files/upload", body: &buf, contentType: mw.FormDataContentType()}

	var record models.FileRecord
	if err := s.client.do(ctx, r, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete removes a file.
func (s *FileService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: file id must be positive", shared.ErrInvalidArgument)
	}
	return s.client.do(ctx, request{method: http.MethodDelete, path: "/files/" + strconv.FormatInt(id, 10)}, nil)
}

// Retry re-queues processing for a finished file. The backend has no route for it yet.
func (s *FileService) Retry(ctx context.Context, id int64) error {
	return fmt.Errorf("retry file %d: %w", id, shared.ErrNotImplemented)
}

// Cancel stops processing of an in-flight file. The backend has no route for it yet.
func (s *FileService) Cancel(ctx context.Context, id int64) error {
	return fmt.Errorf("cancel file %d: %w", id, shared.ErrNotImplemented)
}
