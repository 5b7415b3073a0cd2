package models

import (
	"net/url"
	"strconv"
	"strings"
)

// Search query defaults.
const (
	DefaultSearchPageSize = 20
	MaxQueryLength        = 200
)

// File list query defaults and bounds.
const (
	DefaultFilesPageSize = 20
	MaxFilesPageSize     = 50
)

// SearchQuery is the search form, mirrored to and from a location's query string.
type SearchQuery struct {
	Type         MediaType
	Q            string
	Page         int
	PageSize     int
	Licenses     []License
	LicenseTypes []LicenseType
	Categories   []Category
	AspectRatios []AspectRatio
	Sizes        []ImageSize
	Lengths      []AudioLength
}

// DefaultSearchQuery returns an empty image search on the first page.
func DefaultSearchQuery() SearchQuery {
	return SearchQuery{Type: MediaImage, Page: 1, PageSize: DefaultSearchPageSize}
}

// ParseSearchQuery reads recognized parameters from v. It never fails: missing, invalid or
// inapplicable values are dropped in favor of defaults.
func ParseSearchQuery(v url.Values) SearchQuery {
	q := DefaultSearchQuery()

	if t := MediaType(v.Get("type")); t.Valid() {
		q.Type = t
	}
	q.Q = truncate(strings.TrimSpace(v.Get("q")), MaxQueryLength)
	q.Page = positiveInt(v.Get("page"), 1, 0)
	q.PageSize = positiveInt(v.Get("page_size"), DefaultSearchPageSize, 0)

	q.Licenses = enumSet(multi(v, "license"), License.Valid)
	q.LicenseTypes = enumSet(multi(v, "license_type"), LicenseType.Valid)
	q.Categories = enumSet(multi(v, "categories"), func(c Category) bool { return c.ValidFor(q.Type) })

	switch q.Type {
	case MediaImage:
		q.AspectRatios = enumSet(multi(v, "aspect_ratio"), AspectRatio.Valid)
		q.Sizes = enumSet(multi(v, "size"), ImageSize.Valid)
	case MediaAudio:
		q.Lengths = enumSet(multi(v, "length"), AudioLength.Valid)
	}

	return q
}

// Normalize re-applies parsing rules so a query built in code obeys the same defaults.
func (q SearchQuery) Normalize() SearchQuery {
	return ParseSearchQuery(q.Values())
}

// Values serializes the query. Multi-valued filters use repeated keys.
func (q SearchQuery) Values() url.Values {
	v := url.Values{}
	v.Set("type", string(q.Type))
	v.Set("q", q.Q)
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	addAll(v, "license", stringsOf(q.Licenses))
	addAll(v, "license_type", stringsOf(q.LicenseTypes))
	addAll(v, "categories", stringsOf(q.Categories))
	addAll(v, "aspect_ratio", stringsOf(q.AspectRatios))
	addAll(v, "size", stringsOf(q.Sizes))
	addAll(v, "length", stringsOf(q.Lengths))
	return v
}

// Encode returns the serialized query string.
func (q SearchQuery) Encode() string { return q.Values().Encode() }

// SortField is a file list sort key.
type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortName      SortField = "name"
	SortStatus    SortField = "status"
)

func (s SortField) Valid() bool { return s == SortCreatedAt || s == SortName || s == SortStatus }

// SortOrder is a file list sort direction.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

func (o SortOrder) Valid() bool { return o == OrderAsc || o == OrderDesc }

// ListFilesQuery is the file list form, mirrored to and from a location's query string.
//
// Nonce only makes an otherwise identical location distinct so navigating to it re-fetches.
type ListFilesQuery struct {
	Page     int
	PageSize int
	SortBy   SortField
	Order    SortOrder
	Nonce    string
}

// DefaultListFilesQuery returns the first page sorted by creation time, oldest first.
func DefaultListFilesQuery() ListFilesQuery {
	return ListFilesQuery{Page: 1, PageSize: DefaultFilesPageSize, SortBy: SortCreatedAt, Order: OrderAsc}
}

// ParseListFilesQuery reads recognized parameters from v, falling back to defaults for anything invalid.
func ParseListFilesQuery(v url.Values) ListFilesQuery {
	q := DefaultListFilesQuery()
	q.Page = positiveInt(v.Get("page"), 1, 0)
	q.PageSize = positiveInt(v.Get("page_size"), DefaultFilesPageSize, MaxFilesPageSize)
	if s := SortField(v.Get("sort_by")); s.Valid() {
		q.SortBy = s
	}
	if o := SortOrder(v.Get("order")); o.Valid() {
		q.Order = o
	}
	q.Nonce = v.Get("nonce")
	return q
}

// Values serializes the query, including the nonce when set.
func (q ListFilesQuery) Values() url.Values {
	v := q.APIValues()
	if q.Nonce != "" {
		v.Set("nonce", q.Nonce)
	}
	return v
}

// APIValues serializes only the parameters the backend understands.
func (q ListFilesQuery) APIValues() url.Values {
	return url.Values{
		"page":      {strconv.Itoa(q.Page)},
		"page_size": {strconv.Itoa(q.PageSize)},
		"sort_by":   {string(q.SortBy)},
		"order":     {string(q.Order)},
	}
}

func (q ListFilesQuery) Encode() string { return q.Values().Encode() }

// positiveInt parses s as an integer of at least 1 and at most max (when max > 0), returning def otherwise.
func positiveInt(s string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || (max > 0 && n > max) {
		return def
	}
	return n
}

// multi collects values for key, also accepting the bracketed "key[]" form.
func multi(v url.Values, key string) []string {
	out := append([]string{}, v[key]...)
	return append(out, v[key+"[]"]...)
}

func addAll(v url.Values, key string, vs []string) {
	for _, s := range vs {
		v.Add(key, s)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
