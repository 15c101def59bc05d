package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/roomyhq/roomy-server/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpsertByEmail(ctx context.Context, email, displayName string) (*domain.User, error)
	SetPlan(ctx context.Context, id uuid.UUID, plan domain.PlanTier, aiCredits int) error
	SpendAICredits(ctx context.Context, id uuid.UUID, amount int) (int, error)
}
