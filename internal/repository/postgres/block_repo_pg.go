package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roomyhq/roomy-server/internal/domain"
	"github.com/roomyhq/roomy-server/internal/repository/ports"
)

const blockColumns = `id, guidebook_id, type, order_index, content, is_visible, created_at, updated_at`

type BlockRepository struct {
	db *sqlx.DB
}

func NewBlockRepo(db *sqlx.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// blockRow keeps the raw stored type string so legacy enum values can be
// normalized in one place before the domain sees them.
type blockRow struct {
	ID          uuid.UUID       `db:"id"`
	GuidebookID uuid.UUID       `db:"guidebook_id"`
	Type        string          `db:"type"`
	OrderIndex  int             `db:"order_index"`
	Content     json.RawMessage `db:"content"`
	IsVisible   bool            `db:"is_visible"`
	CreatedAt   sql.NullTime    `db:"created_at"`
	UpdatedAt   sql.NullTime    `db:"updated_at"`
}

func (row blockRow) toDomain() domain.Block {
	block := domain.Block{
		ID:          row.ID,
		GuidebookID: row.GuidebookID,
		Type:        domain.BlockTypeFromStorage(row.Type),
		OrderIndex:  row.OrderIndex,
		Content:     row.Content,
		IsVisible:   row.IsVisible,
	}
	if row.CreatedAt.Valid {
		block.CreatedAt = row.CreatedAt.Time
	}
	if row.UpdatedAt.Valid {
		block.UpdatedAt = row.UpdatedAt.Time
	}
	return block
}

func (r *BlockRepository) ListByGuidebook(ctx context.Context, guidebookID uuid.UUID) ([]domain.Block, error) {
	const query = `
		SELECT ` + blockColumns + `
		FROM blocks
		WHERE guidebook_id = $1
		ORDER BY order_index ASC, created_at ASC
	`
	rows := make([]blockRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, guidebookID); err != nil {
		return nil, err
	}
	blocks := make([]domain.Block, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, row.toDomain())
	}
	return blocks, nil
}

func (r *BlockRepository) Insert(ctx context.Context, guidebookID uuid.UUID, blockType domain.BlockType, content json.RawMessage, orderIndex int) (*domain.Block, error) {
	const query = `
		INSERT INTO blocks (guidebook_id, type, order_index, content, is_visible)
		VALUES ($1, $2, $3, $4, true)
		RETURNING ` + blockColumns

	var row blockRow
	if err := r.db.GetContext(ctx, &row, query, guidebookID, blockType, orderIndex, content); err != nil {
		return nil, err
	}
	block := row.toDomain()
	return &block, nil
}

func (r *BlockRepository) FindByID(ctx context.Context, blockID uuid.UUID) (*domain.Block, error) {
	const query = `
		SELECT ` + blockColumns + `
		FROM blocks
		WHERE id = $1
	`
	var row blockRow
	if err := r.db.GetContext(ctx, &row, query, blockID); err != nil {
		return nil, err
	}
	block := row.toDomain()
	return &block, nil
}

func (r *BlockRepository) UpdateContent(ctx context.Context, blockID uuid.UUID, content json.RawMessage, isVisible *bool) (*domain.Block, error) {
	const query = `
		UPDATE blocks
		SET content = $2,
		    is_visible = COALESCE($3, is_visible),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + blockColumns

	var visible sql.NullBool
	if isVisible != nil {
		visible = sql.NullBool{Bool: *isVisible, Valid: true}
	}

	var row blockRow
	if err := r.db.GetContext(ctx, &row, query, blockID, content, visible); err != nil {
		return nil, err
	}
	block := row.toDomain()
	return &block, nil
}

func (r *BlockRepository) Delete(ctx context.Context, blockID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM blocks WHERE id = $1`, blockID)
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

func (r *BlockRepository) BulkSetOrder(ctx context.Context, orders []domain.BlockOrder) error {
	if len(orders) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `UPDATE blocks SET order_index = $2, updated_at = NOW() WHERE id = $1`
	for _, order := range orders {
		if _, err := tx.ExecContext(ctx, query, order.ID, order.OrderIndex); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *BlockRepository) MaxOrderIndex(ctx context.Context, guidebookID uuid.UUID) (int, bool, error) {
	var max sql.NullInt64
	err := r.db.GetContext(ctx, &max,
		`SELECT MAX(order_index) FROM blocks WHERE guidebook_id = $1`, guidebookID)
	if err != nil {
		return 0, false, err
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}

var _ ports.BlockRepository = (*BlockRepository)(nil)
