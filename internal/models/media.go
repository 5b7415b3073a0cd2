package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/mediax/internal/shared"
)

// MediaType selects between the image and audio catalogues.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
)

func (t MediaType) Valid() bool { return t == MediaImage || t == MediaAudio }

// License is a Creative Commons style reuse identifier.
type License string

const (
	LicenseBY             License = "by"
	LicenseBYNC           License = "by-nc"
	LicenseBYNCND         License = "by-nc-nd"
	LicenseBYNCSA         License = "by-nc-sa"
	LicenseBYND           License = "by-nd"
	LicenseBYSA           License = "by-sa"
	LicenseCC0            License = "cc0"
	LicenseNCSamplingPlus License = "nc-sampling+"
	LicensePDM            License = "pdm"
	LicenseSamplingPlus   License = "sampling+"
)

// Licenses lists every license in display order.
var Licenses = []License{
	LicenseBY, LicenseBYNC, LicenseBYNCND, LicenseBYNCSA, LicenseBYND,
	LicenseBYSA, LicenseCC0, LicenseNCSamplingPlus, LicensePDM, LicenseSamplingPlus,
}

func (l License) Valid() bool { return slices.Contains(Licenses, l) }

// LicenseType groups licenses by permitted use.
type LicenseType string

const (
	LicenseTypeAll          LicenseType = "all"
	LicenseTypeAllCC        LicenseType = "all-cc"
	LicenseTypeCommercial   LicenseType = "commercial"
	LicenseTypeModification LicenseType = "modification"
)

var LicenseTypes = []LicenseType{LicenseTypeAll, LicenseTypeAllCC, LicenseTypeCommercial, LicenseTypeModification}

func (l LicenseType) Valid() bool { return slices.Contains(LicenseTypes, l) }

// Category is an image or audio category. Which values apply depends on the [MediaType].
type Category string

var (
	ImageCategories = []Category{"digitized_artwork", "illustration", "photograph"}
	AudioCategories = []Category{"audiobook", "music", "news", "podcast", "pronunciation", "sound_effect"}
)

// ValidFor reports whether the category belongs to the catalogue of t.
func (c Category) ValidFor(t MediaType) bool {
	switch t {
	case MediaImage:
		return slices.Contains(ImageCategories, c)
	case MediaAudio:
		return slices.Contains(AudioCategories, c)
	}
	return false
}

// AspectRatio filters images by shape.
type AspectRatio string

var AspectRatios = []AspectRatio{"square", "tall", "wide"}

func (a AspectRatio) Valid() bool { return slices.Contains(AspectRatios, a) }

// ImageSize filters images by resolution.
type ImageSize string

var ImageSizes = []ImageSize{"large", "medium", "small"}

func (s ImageSize) Valid() bool { return slices.Contains(ImageSizes, s) }

// AudioLength filters audio by duration.
type AudioLength string

var AudioLengths = []AudioLength{"long", "medium", "short", "shortest"}

func (l AudioLength) Valid() bool { return slices.Contains(AudioLengths, l) }

// MediaTag is a keyword attached to a media item.
type MediaTag struct {
	Accuracy *float64 `json:"accuracy"`
	Name     string   `json:"name"`
	Provider string   `json:"unstable__provider,omitempty"`
}

// MediaItem holds the fields shared by images and audio.
type MediaItem struct {
	ID                string     `json:"id"`
	Title             string     `json:"title,omitempty"`
	IndexedOn         time.Time  `json:"indexed_on"`
	ForeignLandingURL string     `json:"foreign_landing_url,omitempty"`
	URL               string     `json:"url,omitempty"`
	Creator           string     `json:"creator,omitempty"`
	CreatorURL        string     `json:"creator_url,omitempty"`
	License           string     `json:"license"`
	LicenseVersion    string     `json:"license_version,omitempty"`
	LicenseURL        string     `json:"license_url,omitempty"`
	Provider          string     `json:"provider,omitempty"`
	Source            string     `json:"source,omitempty"`
	Category          string     `json:"category,omitempty"`
	Filesize          int64      `json:"filesize,omitempty"`
	Filetype          string     `json:"filetype,omitempty"`
	Tags              []MediaTag `json:"tags,omitempty"`
	Attribution       string     `json:"attribution,omitempty"`
	FieldsMatched     []string   `json:"fields_matched,omitempty"`
	Mature            bool       `json:"mature"`
	Thumbnail         string     `json:"thumbnail,omitempty"`
	DetailURL         string     `json:"detail_url"`
	RelatedURL        string     `json:"related_url"`
}

// LicenseLabel renders the license with its version, e.g. "CC BY-SA 4.0".
func (m MediaItem) LicenseLabel() string {
	label := strings.ToUpper(m.License)
	if m.License != "cc0" && m.License != "pdm" {
		label = "CC " + label
	}
	if m.LicenseVersion != "" {
		label += " " + m.LicenseVersion
	}
	return label
}

// ImageItem is an image search result.
type ImageItem struct {
	MediaItem
	Height int `json:"height,omitempty"`
	Width  int `json:"width,omitempty"`
}

// AudioAltFile is an alternative encoding of an audio item.
type AudioAltFile struct {
	URL        string `json:"url"`
	BitRate    int    `json:"bit_rate"`
	Filesize   int64  `json:"filesize"`
	Filetype   string `json:"filetype"`
	SampleRate int    `json:"sample_rate"`
}

// AudioSet is the album or collection an audio item belongs to.
type AudioSet struct {
	Title             string `json:"title,omitempty"`
	ForeignLandingURL string `json:"foreign_landing_url,omitempty"`
	Creator           string `json:"creator,omitempty"`
	CreatorURL        string `json:"creator_url,omitempty"`
	URL               string `json:"url,omitempty"`
	Filesize          int64  `json:"filesize,omitempty"`
	Filetype          string `json:"filetype,omitempty"`
}

// AudioItem is an audio search result. Duration is in milliseconds.
type AudioItem struct {
	MediaItem
	Genres     []string       `json:"genres,omitempty"`
	AltFiles   []AudioAltFile `json:"alt_files,omitempty"`
	AudioSet   *AudioSet      `json:"audio_set,omitempty"`
	Duration   int            `json:"duration,omitempty"`
	BitRate    int            `json:"bit_rate,omitempty"`
	SampleRate int            `json:"sample_rate,omitempty"`
	Waveform   string         `json:"waveform"`
}

// Length returns the duration as a [time.Duration].
func (a AudioItem) Length() time.Duration {
	return time.Duration(a.Duration) * time.Millisecond
}

// Media is a single image or audio item. The set of implementations is closed.
type Media interface {
	Kind() MediaType
	Item() MediaItem
	isMedia()
}

func (ImageItem) Kind() MediaType   { return MediaImage }
func (i ImageItem) Item() MediaItem { return i.MediaItem }
func (ImageItem) isMedia()          {}

func (AudioItem) Kind() MediaType   { return MediaAudio }
func (a AudioItem) Item() MediaItem { return a.MediaItem }
func (AudioItem) isMedia()          {}

// SearchResult is one page of image or audio results. The set of implementations is closed:
// callers switch on the concrete type.
type SearchResult interface {
	Kind() MediaType
	Info() PageInfo
	Len() int
	isSearchResult()
}

// ImageResults is a page of image results.
type ImageResults struct {
	Page[ImageItem]
}

// AudioResults is a page of audio results.
type AudioResults struct {
	Page[AudioItem]
}

func (ImageResults) Kind() MediaType { return MediaImage }
func (ImageResults) isSearchResult() {}

func (AudioResults) Kind() MediaType { return MediaAudio }
func (AudioResults) isSearchResult() {}

// DecodeSearchResult decodes a search response body as the variant selected by kind.
func DecodeSearchResult(kind MediaType, data []byte) (SearchResult, error) {
	switch kind {
	case MediaImage:
		var r ImageResults
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode image results: %w", err)
		}
		return r, nil
	case MediaAudio:
		var r AudioResults
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode audio results: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: unknown media type %q", shared.ErrInvalidArgument, kind)
	}
}

// DecodeMedia decodes a detail response body as the variant selected by kind.
func DecodeMedia(kind MediaType, data []byte) (Media, error) {
	switch kind {
	case MediaImage:
		var m ImageItem
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		return m, nil
	case MediaAudio:
		var m AudioItem
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode audio: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown media type %q", shared.ErrInvalidArgument, kind)
	}
}

// HistoryEntry is a past search keyword.
type HistoryEntry struct {
	Keyword    string    `json:"keyword"`
	SearchedAt time.Time `json:"searched_at"`
}

// UnmarshalJSON accepts the searched_at, updated_at or created_at timestamp, in that order of preference.
func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Keyword    string     `json:"keyword"`
		SearchedAt *time.Time `json:"searched_at"`
		UpdatedAt  *time.Time `json:"updated_at"`
		CreatedAt  *time.Time `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	h.Keyword = raw.Keyword
	for _, ts := range []*time.Time{raw.SearchedAt, raw.UpdatedAt, raw.CreatedAt} {
		if ts != nil {
			h.SearchedAt = *ts
			break
		}
	}
	return nil
}

// SortHistory orders entries newest first, breaking ties by keyword.
func SortHistory(entries []HistoryEntry) {
	slices.SortStableFunc(entries, func(a, b HistoryEntry) int {
		if c := b.SearchedAt.Compare(a.SearchedAt); c != 0 {
			return c
		}
		if a.Keyword < b.Keyword {
			return -1
		}
		if a.Keyword > b.Keyword {
			return 1
		}
		return 0
	})
}
