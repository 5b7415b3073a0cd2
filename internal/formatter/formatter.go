// package formatter renders search results, media details and file lists as CSV, Markdown, JSON or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/shared"
)

// Format is an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or its common short form.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (use text, csv, markdown or json)", shared.ErrInvalidArgument, s)
}

// HumanSize renders a byte count with binary units, e.g. "2.0 MB".
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatDuration renders d as m:ss, or h:mm:ss past an hour.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Results renders one page of search results.
func Results(format Format, result models.SearchResult) ([]byte, error) {
	switch r := result.(type) {
	case models.ImageResults:
		switch format {
		case FormatCSV:
			return ImagesToCSV(r)
		case FormatMarkdown:
			return ImagesToMarkdown(r), nil
		case FormatJSON:
			return toJSON(r)
		}
		return ImagesToText(r), nil
	case models.AudioResults:
		switch format {
		case FormatCSV:
			return AudioToCSV(r)
		case FormatMarkdown:
			return AudioToMarkdown(r), nil
		case FormatJSON:
			return toJSON(r)
		}
		return AudioToText(r), nil
	}
	return nil, fmt.Errorf("%w: no results to render", shared.ErrInvalidArgument)
}

// Files renders one page of the file list.
func Files(format Format, list *models.FileList) ([]byte, error) {
	switch format {
	case FormatCSV:
		return FilesToCSV(list)
	case FormatMarkdown:
		return FilesToMarkdown(list), nil
	case FormatJSON:
		return toJSON(list)
	}
	return FilesToText(list), nil
}

// ImagesToCSV converts image results to CSV with columns: ID, Title, Creator, License, Provider, Width, Height, URL
func ImagesToCSV(r models.ImageResults) ([]byte, error) {
	rows := make([][]string, 0, len(r.Results))
	for _, img := range r.Results {
		rows = append(rows, []string{
			img.ID,
			img.Title,
			img.Creator,
			img.LicenseLabel(),
			img.Provider,
			strconv.Itoa(img.Width),
			strconv.Itoa(img.Height),
			img.URL,
		})
	}
	return writeCSV([]string{"ID", "Title", "Creator", "License", "Provider", "Width", "Height", "URL"}, rows)
}

// AudioToCSV converts audio results to CSV with columns: ID, Title, Creator, License, Provider, Duration, URL
func AudioToCSV(r models.AudioResults) ([]byte, error) {
	rows := make([][]string, 0, len(r.Results))
	for _, a := range r.Results {
		rows = append(rows, []string{
			a.ID,
			a.Title,
			a.Creator,
			a.LicenseLabel(),
			a.Provider,
			FormatDuration(a.Length()),
			a.URL,
		})
	}
	return writeCSV([]string{"ID", "Title", "Creator", "License", "Provider", "Duration", "URL"}, rows)
}

// FilesToCSV converts a file page to CSV with columns: ID, Filename, Status, Size, Type, Created, Description
func FilesToCSV(list *models.FileList) ([]byte, error) {
	rows := make([][]string, 0, list.Len())
	for _, f := range list.Results {
		desc, _ := f.ActiveDescription()
		rows = append(rows, []string{
			strconv.FormatInt(f.ID, 10),
			f.Filename,
			string(f.Status),
			strconv.FormatInt(f.Size, 10),
			f.Type,
			f.CreatedAt.UTC().Format(time.RFC3339),
			desc.Description,
		})
	}
	return writeCSV([]string{"ID", "Filename", "Status", "Size", "Type", "Created", "Description"}, rows)
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ImagesToMarkdown renders image results as a numbered list with thumbnails.
func ImagesToMarkdown(r models.ImageResults) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Images\n\n")
	writePageSummary(&buf, r.Info())

	for i, img := range r.Results {
		fmt.Fprintf(&buf, "%d. [%s](%s) by %s (%s)\n", i+1, title(img.MediaItem), img.ForeignLandingURL, creator(img.MediaItem), img.LicenseLabel())
		if img.Thumbnail != "" {
			fmt.Fprintf(&buf, "   ![%s](%s)\n", title(img.MediaItem), img.Thumbnail)
		}
	}
	return buf.Bytes()
}

// AudioToMarkdown renders audio results as a numbered list.
func AudioToMarkdown(r models.AudioResults) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Audio\n\n")
	writePageSummary(&buf, r.Info())

	for i, a := range r.Results {
		fmt.Fprintf(&buf, "%d. [%s](%s) by %s (%s) [%s]\n", i+1, title(a.MediaItem), a.ForeignLandingURL, creator(a.MediaItem), a.LicenseLabel(), FormatDuration(a.Length()))
	}
	return buf.Bytes()
}

// FilesToMarkdown renders a file page as a table.
func FilesToMarkdown(list *models.FileList) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Files\n\n")
	writePageSummary(&buf, list.Info())

	buf.WriteString("| ID | Filename | Status | Size | Created |\n")
	buf.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, f := range list.Results {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s |\n",
			f.ID, strings.ReplaceAll(f.Filename, "|", `\|`), f.Status, HumanSize(f.Size), f.CreatedAt.Format("2006-01-02 15:04"))
	}
	return buf.Bytes()
}

func writePageSummary(buf *bytes.Buffer, p models.PageInfo) {
	fmt.Fprintf(buf, "**Results**: %d\n", p.ResultCount)
	fmt.Fprintf(buf, "**Page**: %d of %d\n\n", p.Page, p.PageCount)
}

// ImagesToText renders image results one per line.
func ImagesToText(r models.ImageResults) []byte {
	var buf bytes.Buffer
	if r.Empty() {
		buf.WriteString("No images found.\n")
		return buf.Bytes()
	}
	for i, img := range r.Results {
		fmt.Fprintf(&buf, "%d. %s - %s [%s] %dx%d\n", i+1, title(img.MediaItem), creator(img.MediaItem), img.LicenseLabel(), img.Width, img.Height)
		fmt.Fprintf(&buf, "   ID: %s\n", img.ID)
	}
	writeTextFooter(&buf, r.Info())
	return buf.Bytes()
}

// AudioToText renders audio results one per line.
func AudioToText(r models.AudioResults) []byte {
	var buf bytes.Buffer
	if r.Empty() {
		buf.WriteString("No audio found.\n")
		return buf.Bytes()
	}
	for i, a := range r.Results {
		fmt.Fprintf(&buf, "%d. %s - %s [%s] %s\n", i+1, title(a.MediaItem), creator(a.MediaItem), a.LicenseLabel(), FormatDuration(a.Length()))
		fmt.Fprintf(&buf, "   ID: %s\n", a.ID)
	}
	writeTextFooter(&buf, r.Info())
	return buf.Bytes()
}

// FilesToText renders a file page one per line with its available actions.
func FilesToText(list *models.FileList) []byte {
	var buf bytes.Buffer
	if list == nil || list.Empty() {
		buf.WriteString("No files uploaded.\n")
		return buf.Bytes()
	}
	for _, f := range list.Results {
		fmt.Fprintf(&buf, "%d. %s (%s, %s) %s\n", f.ID, f.Filename, HumanSize(f.Size), f.Status, f.CreatedAt.Format("2006-01-02 15:04"))
		if desc, ok := f.ActiveDescription(); ok {
			fmt.Fprintf(&buf, "   %s\n", desc.Description)
		}
		actions := make([]string, len(f.Actions()))
		for i, a := range f.Actions() {
			actions[i] = string(a)
		}
		fmt.Fprintf(&buf, "   Actions: %s\n", strings.Join(actions, ", "))
	}
	writeTextFooter(&buf, list.Info())
	return buf.Bytes()
}

func writeTextFooter(buf *bytes.Buffer, p models.PageInfo) {
	fmt.Fprintf(buf, "\nPage %d of %d (%d results)\n", p.Page, p.PageCount, p.ResultCount)
}

// MediaToText renders a single item with its attribution.
func MediaToText(m models.Media) []byte {
	item := m.Item()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Title: %s\n", title(item))
	fmt.Fprintf(&buf, "Creator: %s\n", creator(item))
	fmt.Fprintf(&buf, "License: %s\n", item.LicenseLabel())
	if item.Provider != "" {
		fmt.Fprintf(&buf, "Provider: %s\n", item.Provider)
	}

	switch v := m.(type) {
	case models.ImageItem:
		if v.Width > 0 && v.Height > 0 {
			fmt.Fprintf(&buf, "Dimensions: %dx%d\n", v.Width, v.Height)
		}
	case models.AudioItem:
		fmt.Fprintf(&buf, "Duration: %s\n", FormatDuration(v.Length()))
		if len(v.Genres) > 0 {
			fmt.Fprintf(&buf, "Genres: %s\n", strings.Join(v.Genres, ", "))
		}
	}

	if item.Filesize > 0 {
		fmt.Fprintf(&buf, "Size: %s\n", HumanSize(item.Filesize))
	}
	if len(item.Tags) > 0 {
		tags := make([]string, len(item.Tags))
		for i, t := range item.Tags {
			tags[i] = t.Name
		}
		fmt.Fprintf(&buf, "Tags: %s\n", strings.Join(tags, ", "))
	}
	if item.URL != "" {
		fmt.Fprintf(&buf, "URL: %s\n", item.URL)
	}
	if item.Attribution != "" {
		fmt.Fprintf(&buf, "\n%s\n", item.Attribution)
	}
	return buf.Bytes()
}

// HistoryToText renders recent searches newest first.
func HistoryToText(entries []models.HistoryEntry) []byte {
	var buf bytes.Buffer
	if len(entries) == 0 {
		buf.WriteString("No recent searches.\n")
		return buf.Bytes()
	}
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s  %s\n", e.SearchedAt.Local().Format("2006-01-02 15:04"), e.Keyword)
	}
	return buf.Bytes()
}

func toJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteExport writes data to path. An empty path defaults to name with the format's extension.
func WriteExport(path, name string, format Format, data []byte) (string, error) {
	if path == "" {
		path = name + extension(format)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func extension(format Format) string {
	switch format {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	}
	return ".txt"
}

func title(m models.MediaItem) string {
	if m.Title == "" {
		return "Untitled"
	}
	return m.Title
}

func creator(m models.MediaItem) string {
	if m.Creator == "" {
		return "Unknown creator"
	}
	return m.Creator
}
