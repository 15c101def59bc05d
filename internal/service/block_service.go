package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

var (
	ErrGuidebookNotFound = errors.New("guidebook not found")
	ErrBlockNotFound     = errors.New("block not found")
	ErrReorderMismatch   = errors.New("reorder set does not match the guidebook's blocks")
)

type BlockCreateInput struct {
	Type       domain.BlockType
	Content    json.RawMessage
	OrderIndex *int
}

type BlockUpdateInput struct {
	Content   json.RawMessage
	IsVisible *bool
}

type BlockService struct {
	blocks     ports.BlockRepository
	guidebooks ports.GuidebookRepository
	now        func() time.Time
}

func NewBlockService(blocks ports.BlockRepository, guidebooks ports.GuidebookRepository) *BlockService {
	return &BlockService{blocks: blocks, guidebooks: guidebooks, now: time.Now}
}

func (s *BlockService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *BlockService) List(ctx context.Context, ownerID, guidebookID uuid.UUID) ([]domain.Block, error) {
	if _, err := s.ownedGuidebook(ctx, ownerID, guidebookID); err != nil {
		return nil, err
	}
	return s.blocks.ListByGuidebook(ctx, guidebookID)
}

// Create appends a block to the guidebook. With no explicit position the
// block lands after the current maximum order_index; an explicit negative
// position is rejected.
func (s *BlockService) Create(ctx context.Context, ownerID, guidebookID uuid.UUID, input BlockCreateInput) (*domain.Block, error) {
	if _, err := s.ownedGuidebook(ctx, ownerID, guidebookID); err != nil {
		return nil, err
	}

	content, err := domain.ParseBlockContent(input.Type, input.Content)
	if err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}

	orderIndex := 0
	if input.OrderIndex != nil {
		if *input.OrderIndex < 0 {
			verr := &domain.ValidationError{}
			verr.Add("order_index", "must be non-negative")
			return nil, verr
		}
		orderIndex = *input.OrderIndex
	} else {
		max, exists, err := s.blocks.MaxOrderIndex(ctx, guidebookID)
		if err != nil {
			return nil, err
		}
		if exists {
			orderIndex = max + 1
		}
	}

	block, err := s.blocks.Insert(ctx, guidebookID, input.Type, normalized, orderIndex)
	if err != nil {
		return nil, err
	}
	if err := s.guidebooks.Touch(ctx, guidebookID); err != nil {
		return nil, err
	}
	return block, nil
}

// Update merges the patch into the existing content and revalidates the
// result against the block's type. The type itself never changes.
func (s *BlockService) Update(ctx context.Context, ownerID, guidebookID, blockID uuid.UUID, input BlockUpdateInput) (*domain.Block, error) {
	if _, err := s.ownedGuidebook(ctx, ownerID, guidebookID); err != nil {
		return nil, err
	}
	block, err := s.guidebookBlock(ctx, guidebookID, blockID)
	if err != nil {
		return nil, err
	}

	content := block.Content
	if len(input.Content) > 0 {
		merged, err := domain.MergeContent(block.Content, input.Content)
		if err != nil {
			verr := &domain.ValidationError{}
			verr.Add("content", "must be a JSON object")
			return nil, verr
		}
		parsed, err := domain.ParseBlockContent(block.Type, merged)
		if err != nil {
			return nil, err
		}
		if content, err = json.Marshal(parsed); err != nil {
			return nil, err
		}
	}

	updated, err := s.blocks.UpdateContent(ctx, blockID, content, input.IsVisible)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	if err := s.guidebooks.Touch(ctx, guidebookID); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the block and leaves the remaining order_index values as
// they are. Gaps are fine; ordering is relative.
func (s *BlockService) Delete(ctx context.Context, ownerID, guidebookID, blockID uuid.UUID) error {
	if _, err := s.ownedGuidebook(ctx, ownerID, guidebookID); err != nil {
		return err
	}
	if _, err := s.guidebookBlock(ctx, guidebookID, blockID); err != nil {
		return err
	}
	if err := s.blocks.Delete(ctx, blockID); err != nil {
		if isNotFound(err) {
			return ErrBlockNotFound
		}
		return err
	}
	return s.guidebooks.Touch(ctx, guidebookID)
}

// Reorder rewrites order_index for every block of the guidebook. The id set
// must match the stored set exactly; concurrent reorders are last-write-wins.
func (s *BlockService) Reorder(ctx context.Context, ownerID, guidebookID uuid.UUID, orders []domain.BlockOrder) ([]domain.Block, error) {
	if _, err := s.ownedGuidebook(ctx, ownerID, guidebookID); err != nil {
		return nil, err
	}

	existing, err := s.blocks.ListByGuidebook(ctx, guidebookID)
	if err != nil {
		return nil, err
	}
	if len(orders) != len(existing) {
		return nil, ErrReorderMismatch
	}
	known := make(map[uuid.UUID]struct{}, len(existing))
	for _, block := range existing {
		known[block.ID] = struct{}{}
	}
	seen := make(map[uuid.UUID]struct{}, len(orders))
	for _, order := range orders {
		if _, ok := known[order.ID]; !ok {
			return nil, ErrReorderMismatch
		}
		if _, dup := seen[order.ID]; dup {
			return nil, ErrReorderMismatch
		}
		seen[order.ID] = struct{}{}
	}

	if err := s.blocks.BulkSetOrder(ctx, orders); err != nil {
		return nil, err
	}
	if err := s.guidebooks.Touch(ctx, guidebookID); err != nil {
		return nil, err
	}
	return s.blocks.ListByGuidebook(ctx, guidebookID)
}

// ReorderByIDs accepts the full ordered id list form and rewrites a dense
// 0-based ordering.
func (s *BlockService) ReorderByIDs(ctx context.Context, ownerID, guidebookID uuid.UUID, blockIDs []uuid.UUID) ([]domain.Block, error) {
	orders := make([]domain.BlockOrder, 0, len(blockIDs))
	for idx, id := range blockIDs {
		orders = append(orders, domain.BlockOrder{ID: id, OrderIndex: idx})
	}
	return s.Reorder(ctx, ownerID, guidebookID, orders)
}

func (s *BlockService) ownedGuidebook(ctx context.Context, ownerID, guidebookID uuid.UUID) (*domain.Guidebook, error) {
	guidebook, err := s.guidebooks.FindByID(ctx, guidebookID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrGuidebookNotFound
		}
		return nil, err
	}
	if guidebook.DeletedAt != nil {
		return nil, ErrGuidebookNotFound
	}
	if guidebook.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return guidebook, nil
}

func (s *BlockService) guidebookBlock(ctx context.Context, guidebookID, blockID uuid.UUID) (*domain.Block, error) {
	block, err := s.blocks.FindByID(ctx, blockID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	if block.GuidebookID != guidebookID {
		return nil, ErrBlockNotFound
	}
	return block, nil
}
