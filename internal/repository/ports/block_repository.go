package ports

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
)

type BlockRepository interface {
	ListByGuidebook(ctx context.Context, guidebookID uuid.UUID) ([]domain.Block, error)
	Insert(ctx context.Context, guidebookID uuid.UUID, blockType domain.BlockType, content json.RawMessage, orderIndex int) (*domain.Block, error)
	FindByID(ctx context.Context, blockID uuid.UUID) (*domain.Block, error)
	UpdateContent(ctx context.Context, blockID uuid.UUID, content json.RawMessage, isVisible *bool) (*domain.Block, error)
	Delete(ctx context.Context, blockID uuid.UUID) error
	BulkSetOrder(ctx context.Context, orders []domain.BlockOrder) error
	MaxOrderIndex(ctx context.Context, guidebookID uuid.UUID) (int, bool, error)
}
