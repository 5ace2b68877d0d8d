package models

import (
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// DateRange bounds createdAt filters. Zero ends are open; To covers its whole day.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange reads YYYY-MM-DD bounds in UTC. Empty strings leave that end open.
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	if s := strings.TrimSpace(from); s != "" {
		t, err := time.Parse(dayLayout, s)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid from date %q", s)
		}
		r.From = t
	}
	if s := strings.TrimSpace(to); s != "" {
		t, err := time.Parse(dayLayout, s)
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid to date %q", s)
		}
		r.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return DateRange{}, fmt.Errorf("to date is before from date")
	}
	return r, nil
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Page is one slice of a longer list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

const DefaultPageSize = 10

// Paginate cuts items into pages of size; page is 1-based and clamped.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return Page[T]{
		Items:      append([]T{}, items[start:end]...),
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
	}
}

// ContainsFold is a case-insensitive substring test; an empty needle matches.
func ContainsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
