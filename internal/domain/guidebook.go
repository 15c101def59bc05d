package domain

import (
	"time"

	"github.com/google/uuid"
)

type GuidebookStatus string

const (
	GuidebookStatusDraft     GuidebookStatus = "draft"
	GuidebookStatusPublished GuidebookStatus = "published"
	GuidebookStatusArchived  GuidebookStatus = "archived"
)

type Guidebook struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	OwnerID     uuid.UUID       `db:"owner_id" json:"owner_id"`
	Title       string          `db:"title" json:"title"`
	Slug        string          `db:"slug" json:"slug"`
	Description *string         `db:"description" json:"description,omitempty"`
	Theme       string          `db:"theme" json:"theme"`
	Status      GuidebookStatus `db:"status" json:"status"`
	ViewCount   int64           `db:"view_count" json:"view_count"`
	SourceURL   *string         `db:"source_url" json:"source_url,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time      `db:"deleted_at" json:"-"`
}

func (g *Guidebook) IsPublished() bool {
	return g.Status == GuidebookStatusPublished && g.DeletedAt == nil
}

type GuidebookSettings struct {
	Title       *string          `json:"title,omitempty"`
	Slug        *string          `json:"slug,omitempty"`
	Description *string          `json:"description,omitempty"`
	Theme       *string          `json:"theme,omitempty"`
	Status      *GuidebookStatus `json:"status,omitempty"`
}
