package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/mediax/internal/formatter"
	"github.com/desertthunder/mediax/internal/models"
)

var (
	_ list.Item = imageItem{}
	_ list.Item = audioItem{}
	_ list.Item = fileItem{}
)

// imageItem wraps [models.ImageItem] to implement [list.Item].
type imageItem struct {
	image models.ImageItem
}

func (i imageItem) FilterValue() string { return i.image.Title }
func (i imageItem) Title() string       { return orUntitled(i.image.Title) }
func (i imageItem) Description() string {
	desc := i.image.LicenseLabel()
	if i.image.Creator != "" {
		desc = fmt.Sprintf("%s • %s", i.image.Creator, desc)
	}
	if i.image.Width > 0 && i.image.Height > 0 {
		desc = fmt.Sprintf("%s • %dx%d", desc, i.image.Width, i.image.Height)
	}
	return desc
}

// audioItem wraps [models.AudioItem] to implement [list.Item].
type audioItem struct {
	audio models.AudioItem
}

func (i audioItem) FilterValue() string { return i.audio.Title }
func (i audioItem) Title() string       { return orUntitled(i.audio.Title) }
func (i audioItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.audio.LicenseLabel(), formatter.FormatDuration(i.audio.Length()))
	if i.audio.Creator != "" {
		desc = fmt.Sprintf("%s • %s", i.audio.Creator, desc)
	}
	return desc
}

// fileItem wraps [models.FileRecord] to implement [list.Item].
type fileItem struct {
	file models.FileRecord
}

func (i fileItem) FilterValue() string { return i.file.Filename }
func (i fileItem) Title() string       { return i.file.Filename }
func (i fileItem) Description() string {
	desc := fmt.Sprintf("%s • %s • %s", i.file.Status, formatter.HumanSize(i.file.Size), i.file.CreatedAt.Local().Format("2006-01-02 15:04"))
	if d, ok := i.file.ActiveDescription(); ok {
		desc = fmt.Sprintf("%s • %s", desc, firstLine(d.Description))
	}
	return desc
}

func resultItems(r models.SearchResult) []list.Item {
	switch r := r.(type) {
	case models.ImageResults:
		items := make([]list.Item, len(r.Results))
		for i, img := range r.Results {
			items[i] = imageItem{image: img}
		}
		return items
	case models.AudioResults:
		items := make([]list.Item, len(r.Results))
		for i, a := range r.Results {
			items[i] = audioItem{audio: a}
		}
		return items
	}
	return nil
}

func fileItems(page *models.FileList) []list.Item {
	if page == nil {
		return nil
	}
	items := make([]list.Item, len(page.Results))
	for i, f := range page.Results {
		items[i] = fileItem{file: f}
	}
	return items
}

func orUntitled(s string) string {
	if s == "" {
		return "Untitled"
	}
	return s
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
