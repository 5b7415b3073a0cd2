package models

import (
	"encoding/json"
	"errors"
	"net/url"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mediax/internal/shared"
)

func TestParseSearchQuery(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		q := ParseSearchQuery(url.Values{})

		if q.Type != MediaImage {
			t.Errorf("expected image type, got %s", q.Type)
		}
		if q.Page != 1 {
			t.Errorf("expected page 1, got %d", q.Page)
		}
		if q.PageSize != DefaultSearchPageSize {
			t.Errorf("expected page size %d, got %d", DefaultSearchPageSize, q.PageSize)
		}
	})

	t.Run("Non Numeric Page Falls Back", func(t *testing.T) {
		q := ParseSearchQuery(url.Values{"page": {"abc"}, "page_size": {"-3"}})

		if q.Page != 1 {
			t.Errorf("expected page 1 for page=abc, got %d", q.Page)
		}
		if q.PageSize != DefaultSearchPageSize {
			t.Errorf("expected default page size, got %d", q.PageSize)
		}
	})

	t.Run("Recognized Values", func(t *testing.T) {
		v := url.Values{
			"type":      {"audio"},
			"q":         {"  rain  "},
			"page":      {"3"},
			"page_size": {"10"},
			"license":   {"by", "cc0", "by"},
			"license[]": {"pdm", "not-a-license"},
			"length":    {"short"},
			"size":      {"large"},
			"categories": {
				"music", "photograph",
			},
		}
		q := ParseSearchQuery(v)

		if q.Type != MediaAudio || q.Q != "rain" || q.Page != 3 || q.PageSize != 10 {
			t.Errorf("unexpected scalar fields: %+v", q)
		}
		if !slices.Equal(q.Licenses, []License{LicenseBY, LicenseCC0, LicensePDM}) {
			t.Errorf("unexpected licenses: %v", q.Licenses)
		}
		if !slices.Equal(q.Categories, []Category{"music"}) {
			t.Errorf("image category should be dropped for audio, got %v", q.Categories)
		}
		if !slices.Equal(q.Lengths, []AudioLength{"short"}) {
			t.Errorf("unexpected lengths: %v", q.Lengths)
		}
		if len(q.Sizes) != 0 {
			t.Errorf("size does not apply to audio, got %v", q.Sizes)
		}
	})

	t.Run("Image Drops Length", func(t *testing.T) {
		q := ParseSearchQuery(url.Values{"type": {"image"}, "length": {"long"}, "aspect_ratio": {"wide", "round"}})

		if len(q.Lengths) != 0 {
			t.Errorf("length does not apply to image, got %v", q.Lengths)
		}
		if !slices.Equal(q.AspectRatios, []AspectRatio{"wide"}) {
			t.Errorf("unexpected aspect ratios: %v", q.AspectRatios)
		}
	})

	t.Run("Unknown Type Falls Back", func(t *testing.T) {
		q := ParseSearchQuery(url.Values{"type": {"video"}})
		if q.Type != MediaImage {
			t.Errorf("expected image fallback, got %s", q.Type)
		}
	})

	t.Run("Long Query Truncated", func(t *testing.T) {
		q := ParseSearchQuery(url.Values{"q": {strings.Repeat("é", 250)}})
		if n := len([]rune(q.Q)); n != MaxQueryLength {
			t.Errorf("expected %d runes, got %d", MaxQueryLength, n)
		}
	})

	t.Run("Values Round Trip", func(t *testing.T) {
		q := SearchQuery{
			Type:     MediaImage,
			Q:        "cat",
			Page:     2,
			PageSize: 20,
			Licenses: []License{LicenseBY, LicenseBYSA},
			Sizes:    []ImageSize{"small"},
		}

		v := q.Values()
		if got := v["license"]; !slices.Equal(got, []string{"by", "by-sa"}) {
			t.Errorf("expected repeated license keys, got %v", got)
		}

		back := ParseSearchQuery(v)
		if back.Q != "cat" || back.Page != 2 || !slices.Equal(back.Licenses, q.Licenses) || !slices.Equal(back.Sizes, q.Sizes) {
			t.Errorf("round trip mismatch: %+v", back)
		}
	})
}

func TestParseListFilesQuery(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		q := ParseListFilesQuery(url.Values{})
		if q != DefaultListFilesQuery() {
			t.Errorf("expected defaults, got %+v", q)
		}
	})

	t.Run("Invalid Values Fall Back", func(t *testing.T) {
		q := ParseListFilesQuery(url.Values{
			"page":      {"abc"},
			"page_size": {"51"},
			"sort_by":   {"size"},
			"order":     {"sideways"},
		})
		if q.Page != 1 || q.PageSize != DefaultFilesPageSize || q.SortBy != SortCreatedAt || q.Order != OrderAsc {
			t.Errorf("expected defaults, got %+v", q)
		}
	})

	t.Run("Recognized Values", func(t *testing.T) {
		q := ParseListFilesQuery(url.Values{
			"page":      {"4"},
			"page_size": {"50"},
			"sort_by":   {"status"},
			"order":     {"desc"},
			"nonce":     {"n-1"},
		})
		want := ListFilesQuery{Page: 4, PageSize: 50, SortBy: SortStatus, Order: OrderDesc, Nonce: "n-1"}
		if q != want {
			t.Errorf("expected %+v, got %+v", want, q)
		}
	})

	t.Run("APIValues Omit Nonce", func(t *testing.T) {
		q := DefaultListFilesQuery()
		q.Nonce = "abc"

		if q.Values().Get("nonce") != "abc" {
			t.Error("expected nonce in location values")
		}
		if q.APIValues().Has("nonce") {
			t.Error("nonce should not be sent to the backend")
		}
	})
}

func TestFileRecord(t *testing.T) {
	t.Run("Actions", func(t *testing.T) {
		cases := map[FileStatus][]FileAction{
			StatusSuccess:    {ActionRetry, ActionDownload, ActionDelete},
			StatusFailed:     {ActionRetry, ActionDownload, ActionDelete},
			StatusCancelled:  {ActionRetry, ActionDownload, ActionDelete},
			StatusPending:    {ActionCancel, ActionDownload},
			StatusQueuing:    {ActionCancel, ActionDownload},
			StatusProcessing: {ActionCancel, ActionDownload},
			StatusUnknown:    {ActionDownload, ActionDelete},
		}

		for status, want := range cases {
			f := FileRecord{Status: status}
			got := f.Actions()
			if !slices.Equal(got, want) {
				t.Errorf("%s: expected %v, got %v", status, want, got)
			}
			if f.Can(ActionRetry) && f.Can(ActionCancel) {
				t.Errorf("%s: retry and cancel must not both be offered", status)
			}
			if f.Can(ActionCancel) && f.Can(ActionDelete) {
				t.Errorf("%s: delete must not be offered alongside cancel", status)
			}
		}
	})

	t.Run("Unknown Status Decodes", func(t *testing.T) {
		body := `{"id": 7, "filename": "a.png", "status": "exploded", "size": 10, "type": "image/png",
			"url": "http://x/a.png", "created_at": "2026-01-02T03:04:05Z",
			"active_file_description_id": null, "file_descriptions": []}`

		var f FileRecord
		if err := json.Unmarshal([]byte(body), &f); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Status != StatusUnknown {
			t.Errorf("expected unknown status, got %s", f.Status)
		}
		if f.ID != 7 || f.Filename != "a.png" {
			t.Errorf("unexpected record: %+v", f)
		}
	})

	t.Run("ActiveDescription", func(t *testing.T) {
		t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		f := FileRecord{Descriptions: []FileDescription{
			{ID: 1, Description: "first", CreatedAt: t0},
			{ID: 2, Description: "second", CreatedAt: t0.Add(time.Hour)},
		}}

		d, ok := f.ActiveDescription()
		if !ok || d.ID != 2 {
			t.Errorf("expected newest description without pointer, got %+v", d)
		}

		active := int64(1)
		f.ActiveDescriptionID = &active
		d, ok = f.ActiveDescription()
		if !ok || d.ID != 1 {
			t.Errorf("expected pointed description, got %+v", d)
		}

		if _, ok := (FileRecord{}).ActiveDescription(); ok {
			t.Error("expected no description for empty record")
		}
	})
}

func TestDecodeSearchResult(t *testing.T) {
	t.Run("Image", func(t *testing.T) {
		body := `{"result_count": 1, "page_count": 1, "page_size": 20, "page": 1,
			"results": [{"id": "i1", "title": "Cat", "indexed_on": "2026-01-01T00:00:00Z", "license": "by",
			"mature": false, "thumbnail": "t", "detail_url": "d", "related_url": "r", "width": 640, "height": 480}]}`

		res, err := DecodeSearchResult(MediaImage, []byte(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		images, ok := res.(ImageResults)
		if !ok {
			t.Fatalf("expected ImageResults, got %T", res)
		}
		if images.Len() != 1 || images.Results[0].Width != 640 || images.Results[0].Title != "Cat" {
			t.Errorf("unexpected results: %+v", images.Results)
		}
		if images.Info().Page != 1 {
			t.Errorf("expected page 1, got %d", images.Info().Page)
		}
	})

	t.Run("Audio", func(t *testing.T) {
		body := `{"result_count": 0, "page_count": 0, "page_size": 20, "page": 1, "results": []}`

		res, err := DecodeSearchResult(MediaAudio, []byte(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Kind() != MediaAudio || res.Len() != 0 {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("Unknown Type", func(t *testing.T) {
		if _, err := DecodeSearchResult("video", []byte(`{}`)); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Media Detail", func(t *testing.T) {
		body := `{"id": "a1", "indexed_on": "2026-01-01T00:00:00Z", "license": "cc0", "mature": false,
			"detail_url": "d", "related_url": "r", "waveform": "w", "duration": 1500}`

		m, err := DecodeMedia(MediaAudio, []byte(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		audio, ok := m.(AudioItem)
		if !ok {
			t.Fatalf("expected AudioItem, got %T", m)
		}
		if audio.Length() != 1500*time.Millisecond {
			t.Errorf("unexpected length: %v", audio.Length())
		}
		if audio.Item().LicenseLabel() != "CC0" {
			t.Errorf("unexpected license label: %s", audio.Item().LicenseLabel())
		}
	})
}

func TestHistoryEntry(t *testing.T) {
	var entries []HistoryEntry
	body := `[{"keyword": "cat", "updated_at": "2026-01-01T00:00:00Z"},
		{"keyword": "dog", "created_at": "2026-01-02T00:00:00Z"}]`
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	SortHistory(entries)
	if entries[0].Keyword != "dog" || entries[1].Keyword != "cat" {
		t.Errorf("expected newest first, got %+v", entries)
	}
	if entries[1].SearchedAt.IsZero() {
		t.Error("expected updated_at to populate SearchedAt")
	}
}

func TestForms(t *testing.T) {
	t.Run("Credentials", func(t *testing.T) {
		if err := (Credentials{Username: "", Password: "x"}).Validate(); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for empty username, got %v", err)
		}
		if err := (Credentials{Username: "johndoe", Password: ""}).Validate(); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for empty password, got %v", err)
		}
		if err := (Credentials{Username: "johndoe", Password: "secret1"}).Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Registration", func(t *testing.T) {
		r := Registration{Username: "johndoe", Password: "secret1", PasswordRepeat: "secret2"}
		if err := r.Validate(); !errors.Is(err, shared.ErrPasswordMismatch) {
			t.Errorf("expected ErrPasswordMismatch, got %v", err)
		}

		r = Registration{Username: "jo", Password: "secret1", PasswordRepeat: "secret1"}
		if err := r.Validate(); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for short username, got %v", err)
		}

		r = Registration{Username: "johndoe", Password: "secret1", PasswordRepeat: "secret1"}
		if err := r.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if r.Values().Has("email") {
			t.Error("empty email should be omitted")
		}
	})

	t.Run("ProfileUpdate", func(t *testing.T) {
		if err := (ProfileUpdate{}).Validate(); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected error for empty update, got %v", err)
		}
		if err := (ProfileUpdate{FullName: "John"}).Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := (ProfileUpdate{Password: "secret1"}).Validate(); !errors.Is(err, shared.ErrPasswordMismatch) {
			t.Errorf("expected mismatch, got %v", err)
		}
	})

	t.Run("StoredSession Usable", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		if (StoredSession{}).Usable(now) {
			t.Error("empty session should not be usable")
		}
		if !(StoredSession{AccessToken: "abc"}).Usable(now) {
			t.Error("session without expiry should be usable")
		}
		if (StoredSession{AccessToken: "abc", Expiry: now.Add(-time.Minute)}).Usable(now) {
			t.Error("expired session should not be usable")
		}
	})
}

func TestParseNotification(t *testing.T) {
	n, err := ParseNotification([]byte(`{"type": "error", "category": "file", "message": "boom"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.IsError() || !n.AffectsFiles() || n.Message != "boom" {
		t.Errorf("unexpected notification: %+v", n)
	}

	if _, err := ParseNotification([]byte("not json")); err == nil {
		t.Error("expected error for malformed message")
	}
}
