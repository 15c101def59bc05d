package domain

import (
	"time"

	"github.com/google/uuid"
)

type ViewRange string

const (
	ViewRange24h ViewRange = "24h"
	ViewRange7d  ViewRange = "7d"
	ViewRange30d ViewRange = "30d"
	ViewRangeAll ViewRange = "all"
)

var ViewRangesOrdered = []ViewRange{
	ViewRange24h,
	ViewRange7d,
	ViewRange30d,
	ViewRangeAll,
}

func (r ViewRange) Duration() (time.Duration, bool) {
	switch r {
	case ViewRange24h:
		return 24 * time.Hour, true
	case ViewRange7d:
		return 7 * 24 * time.Hour, true
	case ViewRange30d:
		return 30 * 24 * time.Hour, true
	case ViewRangeAll:
		return 0, true
	default:
		return 0, false
	}
}

// ViewEvent is one raw guest page view, recorded per request.
type ViewEvent struct {
	GuidebookID uuid.UUID `db:"guidebook_id"`
	VisitorHash string    `db:"visitor_hash"`
	Referrer    *string   `db:"referrer"`
	OccurredAt  time.Time `db:"occurred_at"`
}

type ViewStatBucket struct {
	GuidebookID    uuid.UUID `db:"guidebook_id"`
	RangeKey       ViewRange `db:"range_key"`
	BucketEnd      time.Time `db:"bucket_end"`
	TotalViews     int64     `db:"total_views"`
	UniqueVisitors int       `db:"unique_visitors"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type ViewStatValue struct {
	TotalViews     int64     `json:"total_views"`
	UniqueVisitors int       `json:"unique_visitors"`
	BucketEnd      time.Time `json:"bucket_end"`
}

type GuidebookViewStats struct {
	GuidebookID uuid.UUID                   `json:"guidebook_id"`
	Title       string                      `json:"title"`
	Ranges      map[ViewRange]ViewStatValue `json:"ranges"`
}

type GuidebookPopularity struct {
	GuidebookID uuid.UUID `json:"guidebook_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	TotalViews  int64     `json:"total_views"`
}
