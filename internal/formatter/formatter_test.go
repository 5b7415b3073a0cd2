package formatter

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/shared"
)

func testImages() models.ImageResults {
	return models.ImageResults{Page: models.Page[models.ImageItem]{
		PageInfo: models.PageInfo{ResultCount: 2, PageCount: 1, PageSize: 20, Page: 1},
		Results: []models.ImageItem{
			{
				MediaItem: models.MediaItem{
					ID:                "img-1",
					Title:             "Cat, on a mat",
					Creator:           "Jane",
					License:           "by-sa",
					LicenseVersion:    "4.0",
					Provider:          "flickr",
					URL:               "https://example.com/cat.jpg",
					ForeignLandingURL: "https://example.com/cat",
					Thumbnail:         "https://example.com/cat-thumb.jpg",
				},
				Width:  640,
				Height: 480,
			},
			{MediaItem: models.MediaItem{ID: "img-2", License: "cc0"}},
		},
	}}
}

func testAudio() models.AudioResults {
	return models.AudioResults{Page: models.Page[models.AudioItem]{
		PageInfo: models.PageInfo{ResultCount: 1, PageCount: 1, PageSize: 20, Page: 1},
		Results: []models.AudioItem{
			{
				MediaItem: models.MediaItem{ID: "snd-1", Title: "Rain", Creator: "Sam", License: "by", LicenseVersion: "3.0"},
				Duration:  95_000,
				Genres:    []string{"ambient", "nature"},
			},
		},
	}}
}

func testFiles() *models.FileList {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	active := int64(2)
	return &models.FileList{
		PageInfo: models.PageInfo{ResultCount: 2, PageCount: 1, PageSize: 20, Page: 1},
		Results: []models.FileRecord{
			{
				ID: 1, Filename: "file.png", Status: models.StatusPending, Size: 2 * 1024 * 1024, Type: "image/png",
				CreatedAt: created,
			},
			{
				ID: 2, Filename: "notes.txt", Status: models.StatusSuccess, Size: 512, Type: "text/plain",
				CreatedAt:           created.Add(time.Hour),
				ActiveDescriptionID: &active,
				Descriptions: []models.FileDescription{
					{ID: 1, Description: "first draft", CreatedAt: created},
					{ID: 2, Description: "meeting notes", CreatedAt: created.Add(-time.Hour)},
				},
			},
		},
	}
}

func TestHelpers(t *testing.T) {
	t.Run("HumanSize", func(t *testing.T) {
		tests := []struct {
			in   int64
			want string
		}{
			{0, "0 B"},
			{1023, "1023 B"},
			{1024, "1.0 KB"},
			{1536, "1.5 KB"},
			{2 * 1024 * 1024, "2.0 MB"},
			{5 * 1024 * 1024, "5.0 MB"},
			{3 * 1024 * 1024 * 1024, "3.0 GB"},
		}
		for _, tt := range tests {
			if got := HumanSize(tt.in); got != tt.want {
				t.Errorf("HumanSize(%d) = %q, want %q", tt.in, got, tt.want)
			}
		}
	})

	t.Run("FormatDuration", func(t *testing.T) {
		tests := []struct {
			in   time.Duration
			want string
		}{
			{0, "0:00"},
			{95 * time.Second, "1:35"},
			{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
			{1499 * time.Millisecond, "0:01"},
		}
		for _, tt := range tests {
			if got := FormatDuration(tt.in); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
			}
		}
	})

	t.Run("ParseFormat", func(t *testing.T) {
		for in, want := range map[string]Format{"": FormatText, "md": FormatMarkdown, "CSV": FormatCSV, "json": FormatJSON} {
			got, err := ParseFormat(in)
			if err != nil || got != want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
			}
		}

		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestExporters(t *testing.T) {
	t.Run("ImagesToCSV", func(t *testing.T) {
		data, err := ImagesToCSV(testImages())
		if err != nil {
			t.Fatalf("ImagesToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "ID,Title,Creator,License,Provider,Width,Height,URL" {
			t.Errorf("unexpected headers: %v", records[0])
		}
		if records[1][1] != "Cat, on a mat" {
			t.Errorf("expected quoted title to round trip, got %q", records[1][1])
		}
		if records[1][3] != "CC BY-SA 4.0" {
			t.Errorf("expected license label, got %q", records[1][3])
		}
		if records[2][3] != "CC0" {
			t.Errorf("expected CC0, got %q", records[2][3])
		}
	})

	t.Run("AudioToCSV", func(t *testing.T) {
		data, err := AudioToCSV(testAudio())
		if err != nil {
			t.Fatalf("AudioToCSV failed: %v", err)
		}
		if !strings.Contains(string(data), "snd-1,Rain,Sam,CC BY 3.0,,1:35,") {
			t.Errorf("unexpected row: %s", data)
		}
	})

	t.Run("FilesToCSV", func(t *testing.T) {
		data, err := FilesToCSV(testFiles())
		if err != nil {
			t.Fatalf("FilesToCSV failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "1,file.png,pending,2097152,image/png,2026-03-01T12:00:00Z,") {
			t.Errorf("missing pending row: %s", output)
		}
		if !strings.Contains(output, "meeting notes") {
			t.Errorf("expected the active description, got %s", output)
		}
		if strings.Contains(output, "first draft") {
			t.Errorf("inactive description should not be exported")
		}
	})

	t.Run("ImagesToMarkdown", func(t *testing.T) {
		output := string(ImagesToMarkdown(testImages()))

		for _, want := range []string{
			"# Images",
			"**Results**: 2",
			"1. [Cat, on a mat](https://example.com/cat) by Jane (CC BY-SA 4.0)",
			"![Cat, on a mat](https://example.com/cat-thumb.jpg)",
			"2. [Untitled]() by Unknown creator (CC0)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("FilesToMarkdown", func(t *testing.T) {
		output := string(FilesToMarkdown(testFiles()))
		if !strings.Contains(output, "| 1 | file.png | pending | 2.0 MB | 2026-03-01 12:00 |") {
			t.Errorf("unexpected table:\n%s", output)
		}
	})

	t.Run("Text", func(t *testing.T) {
		images := string(ImagesToText(testImages()))
		if !strings.Contains(images, "1. Cat, on a mat - Jane [CC BY-SA 4.0] 640x480") {
			t.Errorf("unexpected images text:\n%s", images)
		}
		if !strings.Contains(images, "Page 1 of 1 (2 results)") {
			t.Errorf("missing footer:\n%s", images)
		}

		audio := string(AudioToText(testAudio()))
		if !strings.Contains(audio, "Rain - Sam [CC BY 3.0] 1:35") {
			t.Errorf("unexpected audio text:\n%s", audio)
		}

		files := string(FilesToText(testFiles()))
		if !strings.Contains(files, "Actions: cancel, download") {
			t.Errorf("pending file should offer cancel:\n%s", files)
		}
		if !strings.Contains(files, "Actions: retry, download, delete") {
			t.Errorf("finished file should offer retry:\n%s", files)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if got := string(ImagesToText(models.ImageResults{})); got != "No images found.\n" {
			t.Errorf("unexpected empty output %q", got)
		}
		if got := string(FilesToText(nil)); got != "No files uploaded.\n" {
			t.Errorf("unexpected empty output %q", got)
		}
		if got := string(HistoryToText(nil)); got != "No recent searches.\n" {
			t.Errorf("unexpected empty output %q", got)
		}
	})

	t.Run("MediaToText", func(t *testing.T) {
		output := string(MediaToText(testAudio().Results[0]))
		for _, want := range []string{"Title: Rain", "License: CC BY 3.0", "Duration: 1:35", "Genres: ambient, nature"} {
			if !strings.Contains(output, want) {
				t.Errorf("missing %q in:\n%s", want, output)
			}
		}
	})

	t.Run("Results Dispatches On Kind", func(t *testing.T) {
		data, err := Results(FormatJSON, testAudio())
		if err != nil {
			t.Fatalf("Results failed: %v", err)
		}
		if !strings.Contains(string(data), `"id": "snd-1"`) {
			t.Errorf("unexpected JSON: %s", data)
		}

		if _, err := Results(FormatText, nil); err == nil {
			t.Error("expected error for nil result")
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("Default Name", func(t *testing.T) {
		dir := t.TempDir()
		wd, _ := os.Getwd()
		if err := os.Chdir(dir); err != nil {
			t.Fatal(err)
		}
		defer os.Chdir(wd)

		path, err := WriteExport("", "files", FormatCSV, []byte("a,b\n"))
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != "files.csv" {
			t.Errorf("expected files.csv, got %s", path)
		}
	})

	t.Run("Explicit Path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.md")
		if _, err := WriteExport(path, "ignored", FormatMarkdown, []byte("# x\n")); err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil || string(data) != "# x\n" {
			t.Errorf("unexpected file content %q, %v", data, err)
		}
	})

	t.Run("Unwritable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.txt")
		if _, err := WriteExport(path, "", FormatText, nil); err == nil {
			t.Error("expected error")
		}
	})
}
