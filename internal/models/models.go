package models

import "slices"

// Validator is implemented by forms that are checked locally before any request is sent.
type Validator interface {
	Validate() error // Validate returns an error wrapping shared.ErrInvalidInput when the form cannot be submitted
}

// PageInfo describes the position of a page within a paginated result set.
type PageInfo struct {
	ResultCount int `json:"result_count"`
	PageCount   int `json:"page_count"`
	PageSize    int `json:"page_size"`
	Page        int `json:"page"`
}

// HasNext reports whether a page follows this one.
func (p PageInfo) HasNext() bool { return p.Page < p.PageCount }

// HasPrev reports whether a page precedes this one.
func (p PageInfo) HasPrev() bool { return p.Page > 1 }

// Page is one page of results from a paginated endpoint.
type Page[T any] struct {
	PageInfo
	Results  []T              `json:"results"`
	Warnings []map[string]any `json:"warnings,omitempty"`
}

// Info returns the pagination metadata.
func (p Page[T]) Info() PageInfo { return p.PageInfo }

// Len returns the number of results on this page.
func (p Page[T]) Len() int { return len(p.Results) }

// Empty reports whether the page has no results.
func (p Page[T]) Empty() bool { return len(p.Results) == 0 }

// enumSet keeps the valid values of vs in first-seen order, dropping duplicates.
func enumSet[T ~string](vs []string, valid func(T) bool) []T {
	var out []T
	for _, v := range vs {
		t := T(v)
		if valid(t) && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func stringsOf[T ~string](vs []T) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}
