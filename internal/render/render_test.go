package render

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
)

func testBlock(t *testing.T, blockType domain.BlockType, order int, visible bool, content string) domain.Block {
	t.Helper()
	return domain.Block{
		ID:          uuid.New(),
		GuidebookID: uuid.New(),
		Type:        blockType,
		OrderIndex:  order,
		Content:     json.RawMessage(content),
		IsVisible:   visible,
	}
}

func TestCheckRegistry(t *testing.T) {
	if err := CheckRegistry(); err != nil {
		t.Fatalf("expected complete registry, got %v", err)
	}
}

func TestRenderBlockHero(t *testing.T) {
	r := New(nil)
	block := testBlock(t, domain.BlockTypeHero, 0, true,
		`{"title":"Welcome","overlayColor":"#000000","overlayOpacity":0.5}`)

	node, err := r.RenderBlock(block)
	if err != nil {
		t.Fatalf("render hero: %v", err)
	}
	if node.Type != "hero" {
		t.Fatalf("expected type hero, got %q", node.Type)
	}
	if node.Props["title"] != "Welcome" {
		t.Fatalf("expected title prop, got %v", node.Props["title"])
	}
	overlay, ok := node.Props["overlay"].(map[string]any)
	if !ok {
		t.Fatalf("expected overlay prop, got %v", node.Props["overlay"])
	}
	if overlay["opacity"] != 0.5 {
		t.Fatalf("expected overlay opacity 0.5, got %v", overlay["opacity"])
	}
}

func TestRenderBlockUnknownType(t *testing.T) {
	r := New(nil)
	block := testBlock(t, domain.BlockType("timeline"), 0, true, `{}`)

	if _, err := r.RenderBlock(block); err == nil {
		t.Fatal("expected error for unknown block type")
	}
}

func TestRenderBlockLegacyTypeMatchesCurrent(t *testing.T) {
	r := New(nil)
	content := `{"checkIn":"15:00","checkOut":"11:00","address":"123 Beach Rd"}`

	current := testBlock(t, domain.BlockTypeQuickInfo, 0, true, content)
	legacy := current
	legacy.Type = domain.BlockTypeFromStorage("QUICK_INFO")

	currentNode, err := r.RenderBlock(current)
	if err != nil {
		t.Fatalf("render current: %v", err)
	}
	legacyNode, err := r.RenderBlock(legacy)
	if err != nil {
		t.Fatalf("render legacy: %v", err)
	}
	if currentNode.Type != legacyNode.Type {
		t.Fatalf("expected identical node types, got %q and %q", currentNode.Type, legacyNode.Type)
	}
	if currentNode.Props["checkIn"] != legacyNode.Props["checkIn"] {
		t.Fatal("expected legacy row to render identically to current row")
	}
}

func TestRenderGalleryLayoutDefault(t *testing.T) {
	r := New(nil)
	block := testBlock(t, domain.BlockTypeGallery, 0, true,
		`{"images":[{"id":"a","url":"https://img.test/1.jpg"}]}`)

	node, err := r.RenderBlock(block)
	if err != nil {
		t.Fatalf("render gallery: %v", err)
	}
	if node.Props["layout"] != "grid" {
		t.Fatalf("expected layout to default to grid, got %v", node.Props["layout"])
	}
}

func TestAssembleGuestViewOrderAndVisibility(t *testing.T) {
	r := New(nil)
	gb := &domain.Guidebook{ID: uuid.New(), Title: "Seaside Loft", Status: domain.GuidebookStatusPublished}

	hero := testBlock(t, domain.BlockTypeHero, 1, true, `{"title":"Welcome"}`)
	quickInfo := testBlock(t, domain.BlockTypeQuickInfo, 0, true,
		`{"checkIn":"15:00","checkOut":"11:00","address":"123 Beach Rd"}`)
	hidden := testBlock(t, domain.BlockTypeNotice, 2, false,
		`{"title":"Construction","content":"Noise 9-5","type":"warning"}`)

	view := r.AssembleGuestView(gb, []domain.Block{hero, quickInfo, hidden})

	if view.Header != nil {
		t.Fatalf("expected no synthesized header when a hero exists in the list, got %q", view.Header.Type)
	}
	if len(view.Blocks) != 2 {
		t.Fatalf("expected 2 visible blocks, got %d", len(view.Blocks))
	}
	if view.Blocks[0].Type != "quickInfo" || view.Blocks[1].Type != "hero" {
		t.Fatalf("expected order_index ordering [quickInfo hero], got [%s %s]",
			view.Blocks[0].Type, view.Blocks[1].Type)
	}
}

func TestAssembleGuestViewFallbackHeader(t *testing.T) {
	r := New(nil)
	desc := "Two minutes from the beach."
	gb := &domain.Guidebook{
		ID:          uuid.New(),
		Title:       "Seaside Loft",
		Description: &desc,
		Status:      domain.GuidebookStatusPublished,
	}

	view := r.AssembleGuestView(gb, nil)

	if view.Header == nil || view.Header.Type != "plainHeader" {
		t.Fatalf("expected plain fallback header, got %+v", view.Header)
	}
	if view.Header.Props["title"] != "Seaside Loft" {
		t.Fatalf("expected fallback header to carry guidebook title, got %v", view.Header.Props["title"])
	}
	if view.Header.Props["description"] != desc {
		t.Fatalf("expected fallback header to carry guidebook description, got %v", view.Header.Props["description"])
	}
	if len(view.Blocks) != 0 {
		t.Fatalf("expected no blocks, got %d", len(view.Blocks))
	}

	gb.Description = nil
	view = r.AssembleGuestView(gb, nil)
	if _, ok := view.Header.Props["description"]; ok {
		t.Fatal("expected no description prop when the guidebook has none")
	}
}

func TestAssembleGuestViewHeroHeader(t *testing.T) {
	r := New(nil)
	gb := &domain.Guidebook{ID: uuid.New(), Title: "Seaside Loft"}

	hero := testBlock(t, domain.BlockTypeHero, 0, true, `{"title":"Welcome"}`)
	rules := testBlock(t, domain.BlockTypeRules, 1, true, `{"sections":[{"id":"s1","title":"House rules","items":["No smoking"]}]}`)

	view := r.AssembleGuestView(gb, []domain.Block{hero, rules})

	if view.Header == nil || view.Header.Type != "hero" {
		t.Fatalf("expected hero header, got %+v", view.Header)
	}
	if len(view.Blocks) != 1 || view.Blocks[0].Type != "rules" {
		t.Fatalf("expected hero to be lifted out of the block list, got %+v", view.Blocks)
	}
}

func TestAssembleGuestViewSkipsUnrenderable(t *testing.T) {
	r := New(nil)
	gb := &domain.Guidebook{ID: uuid.New(), Title: "Seaside Loft"}

	good := testBlock(t, domain.BlockTypeNotice, 0, true,
		`{"title":"Heads up","content":"Pool closed","type":"info"}`)
	broken := testBlock(t, domain.BlockType("timeline"), 1, true, `{}`)
	invalid := testBlock(t, domain.BlockTypeMap, 2, true, `{"center":{"lat":200,"lng":0},"zoom":12,"provider":"naver"}`)

	view := r.AssembleGuestView(gb, []domain.Block{good, broken, invalid})

	if len(view.Blocks) != 1 {
		t.Fatalf("expected only the valid block to survive, got %d", len(view.Blocks))
	}
	if view.Blocks[0].Type != "notice" {
		t.Fatalf("expected notice block, got %q", view.Blocks[0].Type)
	}
}
