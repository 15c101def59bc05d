package render

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/roomyhq/roomy-server/internal/domain"
)

// Node is one element of the renderable view tree consumed by the editor
// preview and the guest page.
type Node struct {
	ID    string         `json:"id,omitempty"`
	Type  string         `json:"type"`
	Props map[string]any `json:"props"`
}

type renderFunc func(content domain.BlockContent) (Node, error)

var renderers = map[domain.BlockType]renderFunc{
	domain.BlockTypeHero:      renderHero,
	domain.BlockTypeQuickInfo: renderQuickInfo,
	domain.BlockTypeAmenities: renderAmenities,
	domain.BlockTypeRules:     renderRules,
	domain.BlockTypeMap:       renderMap,
	domain.BlockTypeGallery:   renderGallery,
	domain.BlockTypeNotice:    renderNotice,
	domain.BlockTypeCustom:    renderCustom,
}

// CheckRegistry verifies that every enumerated block type has both a schema
// and a renderer registered. Run at startup so a gap fails loudly instead of
// silently dropping guest content.
func CheckRegistry() error {
	for _, blockType := range domain.BlockTypesOrdered {
		if _, ok := renderers[blockType]; !ok {
			return fmt.Errorf("block type %q has no renderer", blockType)
		}
		if _, err := domain.ParseBlockContent(blockType, json.RawMessage(`{}`)); err != nil {
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				return fmt.Errorf("block type %q has no schema: %w", blockType, err)
			}
		}
	}
	return nil
}

type Renderer struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{log: log}
}

// RenderBlock parses and renders one block. A block whose content no longer
// matches its schema, or whose type is unknown, yields an error; callers
// decide whether that is fatal (editor) or skippable (guest page).
func (r *Renderer) RenderBlock(block domain.Block) (Node, error) {
	renderer, ok := renderers[block.Type]
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", domain.ErrUnknownBlockType, block.Type)
	}
	content, err := domain.ParseBlockContent(block.Type, block.Content)
	if err != nil {
		return Node{}, err
	}
	node, err := renderer(content)
	if err != nil {
		return Node{}, err
	}
	node.ID = block.ID.String()
	return node, nil
}

// RenderBlocks renders blocks in the order given, skipping any block that
// cannot be rendered. Used for the editor live preview, which shows hidden
// blocks too.
func (r *Renderer) RenderBlocks(blocks []domain.Block) []Node {
	nodes := make([]Node, 0, len(blocks))
	for _, block := range blocks {
		node, err := r.RenderBlock(block)
		if err != nil {
			r.log.Warn("skipping unrenderable block",
				zap.String("block_id", block.ID.String()),
				zap.String("type", string(block.Type)),
				zap.Error(err))
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func renderHero(content domain.BlockContent) (Node, error) {
	hero, ok := content.(domain.HeroContent)
	if !ok {
		return Node{}, fmt.Errorf("expected hero content, got %T", content)
	}
	props := map[string]any{
		"title": hero.Title,
	}
	if hero.Subtitle != nil {
		props["subtitle"] = *hero.Subtitle
	}
	if hero.BackgroundImage != nil {
		props["backgroundImage"] = *hero.BackgroundImage
	}
	if hero.OverlayColor != nil {
		opacity := 0.35
		if hero.OverlayOpacity != nil {
			opacity = *hero.OverlayOpacity
		}
		props["overlay"] = map[string]any{"color": *hero.OverlayColor, "opacity": opacity}
	}
	return Node{Type: string(domain.BlockTypeHero), Props: props}, nil
}

func renderQuickInfo(content domain.BlockContent) (Node, error) {
	info, ok := content.(domain.QuickInfoContent)
	if !ok {
		return Node{}, fmt.Errorf("expected quickInfo content, got %T", content)
	}
	props := map[string]any{
		"checkIn":  info.CheckIn,
		"checkOut": info.CheckOut,
		"address":  info.Address,
	}
	if info.WiFi != nil {
		props["wifi"] = map[string]any{"ssid": info.WiFi.SSID, "password": info.WiFi.Password}
	}
	if info.DoorLock != nil {
		props["doorLock"] = map[string]any{
			"password":     info.DoorLock.Password,
			"instructions": info.DoorLock.Instructions,
		}
	}
	if info.Coordinates != nil {
		props["coordinates"] = map[string]any{"lat": info.Coordinates.Lat, "lng": info.Coordinates.Lng}
	}
	return Node{Type: string(domain.BlockTypeQuickInfo), Props: props}, nil
}

func renderAmenities(content domain.BlockContent) (Node, error) {
	amenities, ok := content.(domain.AmenitiesContent)
	if !ok {
		return Node{}, fmt.Errorf("expected amenities content, got %T", content)
	}
	items := make([]map[string]any, 0, len(amenities.Items))
	for _, item := range amenities.Items {
		items = append(items, map[string]any{
			"id":        item.ID,
			"name":      item.Name,
			"icon":      item.Icon,
			"available": item.Available,
		})
	}
	return Node{Type: string(domain.BlockTypeAmenities), Props: map[string]any{"items": items}}, nil
}

func renderRules(content domain.BlockContent) (Node, error) {
	rules, ok := content.(domain.RulesContent)
	if !ok {
		return Node{}, fmt.Errorf("expected rules content, got %T", content)
	}
	sections := make([]map[string]any, 0, len(rules.Sections))
	for _, section := range rules.Sections {
		sections = append(sections, map[string]any{
			"id":    section.ID,
			"title": section.Title,
			"icon":  section.Icon,
			"items": section.Items,
		})
	}
	props := map[string]any{"sections": sections}
	if len(rules.CheckoutChecklist) > 0 {
		props["checkoutChecklist"] = rules.CheckoutChecklist
	}
	return Node{Type: string(domain.BlockTypeRules), Props: props}, nil
}

func renderMap(content domain.BlockContent) (Node, error) {
	mapContent, ok := content.(domain.MapContent)
	if !ok {
		return Node{}, fmt.Errorf("expected map content, got %T", content)
	}
	markers := make([]map[string]any, 0, len(mapContent.Markers))
	for _, marker := range mapContent.Markers {
		markers = append(markers, map[string]any{
			"id":    marker.ID,
			"label": marker.Label,
			"position": map[string]any{
				"lat": marker.Position.Lat,
				"lng": marker.Position.Lng,
			},
		})
	}
	return Node{Type: string(domain.BlockTypeMap), Props: map[string]any{
		"center":   map[string]any{"lat": mapContent.Center.Lat, "lng": mapContent.Center.Lng},
		"zoom":     mapContent.Zoom,
		"markers":  markers,
		"provider": mapContent.Provider,
	}}, nil
}

func renderGallery(content domain.BlockContent) (Node, error) {
	gallery, ok := content.(domain.GalleryContent)
	if !ok {
		return Node{}, fmt.Errorf("expected gallery content, got %T", content)
	}
	layout := gallery.Layout
	if layout == "" {
		layout = "grid"
	}
	images := make([]map[string]any, 0, len(gallery.Images))
	for _, image := range gallery.Images {
		entry := map[string]any{"id": image.ID, "url": image.URL}
		if image.Alt != nil {
			entry["alt"] = *image.Alt
		}
		if image.Caption != nil {
			entry["caption"] = *image.Caption
		}
		images = append(images, entry)
	}
	return Node{Type: string(domain.BlockTypeGallery), Props: map[string]any{
		"images": images,
		"layout": layout,
	}}, nil
}

func renderNotice(content domain.BlockContent) (Node, error) {
	notice, ok := content.(domain.NoticeContent)
	if !ok {
		return Node{}, fmt.Errorf("expected notice content, got %T", content)
	}
	dismissible := false
	if notice.Dismissible != nil {
		dismissible = *notice.Dismissible
	}
	return Node{Type: string(domain.BlockTypeNotice), Props: map[string]any{
		"title":       notice.Title,
		"content":     notice.Content,
		"level":       notice.Type,
		"dismissible": dismissible,
	}}, nil
}

func renderCustom(content domain.BlockContent) (Node, error) {
	custom, ok := content.(domain.CustomContent)
	if !ok {
		return Node{}, fmt.Errorf("expected custom content, got %T", content)
	}
	props := map[string]any{"body": custom.Body}
	if custom.Title != nil {
		props["title"] = *custom.Title
	}
	return Node{Type: string(domain.BlockTypeCustom), Props: props}, nil
}
