package domain

import (
	"time"

	"github.com/google/uuid"
)

type ShortLink struct {
	Code        string    `db:"code" json:"code"`
	GuidebookID uuid.UUID `db:"guidebook_id" json:"guidebook_id"`
	ClickCount  int64     `db:"click_count" json:"click_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ShortLinkClickBucket is one day's worth of clicks for a code.
type ShortLinkClickBucket struct {
	Code   string    `db:"code" json:"code"`
	Day    time.Time `db:"day" json:"day"`
	Clicks int64     `db:"clicks" json:"clicks"`
}
