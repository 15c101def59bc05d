package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
)

type GuidebookRepository interface {
	Create(ctx context.Context, guidebook *domain.Guidebook) (*domain.Guidebook, error)
	Update(ctx context.Context, id uuid.UUID, settings domain.GuidebookSettings) (*domain.Guidebook, error)
	Touch(ctx context.Context, id uuid.UUID) error
	SetSourceURL(ctx context.Context, id uuid.UUID, sourceURL string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Guidebook, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Guidebook, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Guidebook, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
}
