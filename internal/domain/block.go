package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type BlockType string

const (
	BlockTypeHero      BlockType = "hero"
	BlockTypeQuickInfo BlockType = "quickInfo"
	BlockTypeAmenities BlockType = "amenities"
	BlockTypeRules     BlockType = "rules"
	BlockTypeMap       BlockType = "map"
	BlockTypeGallery   BlockType = "gallery"
	BlockTypeNotice    BlockType = "notice"
	BlockTypeCustom    BlockType = "custom"
)

var BlockTypesOrdered = []BlockType{
	BlockTypeHero,
	BlockTypeQuickInfo,
	BlockTypeAmenities,
	BlockTypeRules,
	BlockTypeMap,
	BlockTypeGallery,
	BlockTypeNotice,
	BlockTypeCustom,
}

func (t BlockType) Valid() bool {
	for _, known := range BlockTypesOrdered {
		if t == known {
			return true
		}
	}
	return false
}

// legacyBlockTypes maps the historical upper-snake-case enum still present in
// older rows to the current camelCase values.
var legacyBlockTypes = map[string]BlockType{
	"HERO":       BlockTypeHero,
	"QUICK_INFO": BlockTypeQuickInfo,
	"AMENITIES":  BlockTypeAmenities,
	"RULES":      BlockTypeRules,
	"MAP":        BlockTypeMap,
	"GALLERY":    BlockTypeGallery,
	"NOTICE":     BlockTypeNotice,
	"CUSTOM":     BlockTypeCustom,
}

// BlockTypeFromStorage normalizes a stored type value. Unknown legacy values
// pass through lowercased as a best-effort fallback.
func BlockTypeFromStorage(raw string) BlockType {
	trimmed := strings.TrimSpace(raw)
	if t := BlockType(trimmed); t.Valid() {
		return t
	}
	if mapped, ok := legacyBlockTypes[strings.ToUpper(trimmed)]; ok {
		return mapped
	}
	return BlockType(strings.ToLower(trimmed))
}

type Block struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	GuidebookID uuid.UUID       `db:"guidebook_id" json:"guidebook_id"`
	Type        BlockType       `db:"type" json:"type"`
	OrderIndex  int             `db:"order_index" json:"order_index"`
	Content     json.RawMessage `db:"content" json:"content"`
	IsVisible   bool            `db:"is_visible" json:"is_visible"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

type BlockOrder struct {
	ID         uuid.UUID `json:"id"`
	OrderIndex int       `json:"order_index"`
}
