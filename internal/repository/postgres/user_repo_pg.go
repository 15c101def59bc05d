package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

const userColumns = `id, email, display_name, avatar_url, password_hash, plan, ai_credits, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `
		INSERT INTO users (email, display_name, avatar_url, password_hash, plan, ai_credits)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	var created domain.User
	err := r.db.GetContext(ctx, &created, query,
		strings.ToLower(strings.TrimSpace(user.Email)),
		nullString(user.DisplayName),
		nullString(user.AvatarURL),
		user.PasswordHash,
		user.Plan,
		user.AICredits,
	)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpsertByEmail(ctx context.Context, email, displayName string) (*domain.User, error) {
	const query = `
		INSERT INTO users (email, display_name, plan, ai_credits)
		VALUES ($1, $2, 'free', 10)
		ON CONFLICT (email) DO UPDATE
		SET display_name = COALESCE(users.display_name, EXCLUDED.display_name),
		    updated_at = NOW()
		RETURNING ` + userColumns

	var user domain.User
	name := sql.NullString{String: strings.TrimSpace(displayName), Valid: strings.TrimSpace(displayName) != ""}
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email)), name); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) SetPlan(ctx context.Context, id uuid.UUID, plan domain.PlanTier, aiCredits int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET plan = $2, ai_credits = $3, updated_at = NOW() WHERE id = $1`,
		id, plan, aiCredits)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SpendAICredits atomically debits credits and returns the remaining balance.
// sql.ErrNoRows signals an insufficient balance.
func (r *UserRepository) SpendAICredits(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	const query = `
		UPDATE users
		SET ai_credits = ai_credits - $2, updated_at = NOW()
		WHERE id = $1 AND ai_credits >= $2
		RETURNING ai_credits
	`
	var remaining int
	if err := r.db.GetContext(ctx, &remaining, query, id, amount); err != nil {
		return 0, err
	}
	return remaining, nil
}

var _ ports.UserRepository = (*UserRepository)(nil)
