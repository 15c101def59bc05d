package render

import (
	"sort"

	"go.uber.org/zap"

	"github.com/roomyhq/roomy-server/internal/domain"
)

// GuestView is the fully assembled guest page payload. Blocks appear in
// order_index order with hidden blocks removed.
type GuestView struct {
	GuidebookID string `json:"guidebookId"`
	Title       string `json:"title"`
	Header      *Node  `json:"header,omitempty"`
	Blocks      []Node `json:"blocks"`
}

// AssembleGuestView builds the guest page for a guidebook. A leading hero
// block is lifted into the header. When the guidebook has no hero at all, a
// plain header with the title and description is synthesized; a hero that
// sits later in the ordering stays in place and no header is added.
func (r *Renderer) AssembleGuestView(guidebook *domain.Guidebook, blocks []domain.Block) GuestView {
	visible := make([]domain.Block, 0, len(blocks))
	for _, block := range blocks {
		if block.IsVisible {
			visible = append(visible, block)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].OrderIndex < visible[j].OrderIndex
	})

	nodes := make([]Node, 0, len(visible))
	for _, block := range visible {
		node, err := r.RenderBlock(block)
		if err != nil {
			r.log.Warn("skipping unrenderable block on guest page",
				zap.String("guidebook_id", guidebook.ID.String()),
				zap.String("block_id", block.ID.String()),
				zap.String("type", string(block.Type)),
				zap.Error(err))
			continue
		}
		nodes = append(nodes, node)
	}

	view := GuestView{
		GuidebookID: guidebook.ID.String(),
		Title:       guidebook.Title,
		Blocks:      nodes,
	}
	switch {
	case len(nodes) > 0 && nodes[0].Type == string(domain.BlockTypeHero):
		view.Header = &nodes[0]
		view.Blocks = nodes[1:]
	case !containsHero(nodes):
		view.Header = fallbackHeader(guidebook)
	}
	return view
}

func containsHero(nodes []Node) bool {
	for _, node := range nodes {
		if node.Type == string(domain.BlockTypeHero) {
			return true
		}
	}
	return false
}

func fallbackHeader(guidebook *domain.Guidebook) *Node {
	props := map[string]any{"title": guidebook.Title}
	if guidebook.Description != nil && *guidebook.Description != "" {
		props["description"] = *guidebook.Description
	}
	return &Node{Type: "plainHeader", Props: props}
}
