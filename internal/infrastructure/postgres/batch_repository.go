package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo lotes de compra y sus asignaciones sobre PostgreSQL. El CHECK
// 0 <= remaining <= inbound_quantity de la tabla respalda la lógica FIFO.
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `id, ingredient_id, movement_id, seq, inbound_quantity, purchase_quantity,
	purchase_unit_id, purchase_price, unit_cost, remaining, created_at`

func scanBatch(row pgx.Row) (*entity.Batch, error) {
	var (
		b                      entity.Batch
		movementID, purchaseUn *string
	)
	err := row.Scan(&b.ID, &b.IngredientID, &movementID, &b.Sequence, &b.InboundQuantity, &b.PurchaseQuantity,
		&purchaseUn, &b.PurchasePrice, &b.UnitCost, &b.Remaining, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.MovementID = deref(movementID)
	b.PurchaseUnitID = deref(purchaseUn)
	return &b, nil
}

func (r *BatchRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()
	list := make([]*entity.Batch, 0)
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return list, nil
}

// Create inserta el lote y le asigna Sequence.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `
		INSERT INTO batches (id, ingredient_id, movement_id, inbound_quantity, purchase_quantity,
			purchase_unit_id, purchase_price, unit_cost, remaining, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		b.ID, b.IngredientID, nullIfEmpty(b.MovementID), b.InboundQuantity, b.PurchaseQuantity,
		nullIfEmpty(b.PurchaseUnitID), b.PurchasePrice, b.UnitCost, b.Remaining, b.CreatedAt,
	).Scan(&b.Sequence)
	return wrapErr("create batch", err)
}

// Exists indica si el ingrediente tiene algún lote.
func (r *BatchRepo) Exists(ctx context.Context, ingredientID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM batches WHERE ingredient_id = $1)`, ingredientID).Scan(&exists)
	if err != nil {
		return false, wrapErr("batch exists", err)
	}
	return exists, nil
}

// ListOpen lotes con remanente, del más antiguo al más nuevo.
func (r *BatchRepo) ListOpen(ctx context.Context, ingredientID string) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE ingredient_id = $1 AND remaining > 0 ORDER BY seq`
	return r.list(ctx, "list open batches", query, ingredientID)
}

// ListByIngredient todos los lotes del ingrediente en orden de creación.
func (r *BatchRepo) ListByIngredient(ctx context.Context, ingredientID string) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE ingredient_id = $1 ORDER BY seq`
	return r.list(ctx, "list batches", query, ingredientID)
}

// GetByIDs devuelve los lotes pedidos en orden de creación.
func (r *BatchRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.Batch, error) {
	if len(ids) == 0 {
		return []*entity.Batch{}, nil
	}
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = ANY($1) ORDER BY seq`
	return r.list(ctx, "get batches", query, ids)
}

// UpdateRemaining fija el remanente del lote.
func (r *BatchRepo) UpdateRemaining(ctx context.Context, id string, remaining decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE batches SET remaining = $2 WHERE id = $1`, id, remaining)
	if err != nil {
		return wrapErr("update batch remaining", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateAllocations inserta las asignaciones de una deducción en un solo batch de pgx.
func (r *BatchRepo) CreateAllocations(ctx context.Context, allocations []entity.BatchAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(allocations))
	for _, a := range allocations {
		rows = append(rows, []any{a.MovementID, a.BatchID, a.Quantity, a.Position})
	}
	var err error
	if tx, ok := r.q.(pgx.Tx); ok {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"batch_allocations"},
			[]string{"movement_id", "batch_id", "quantity", "position"}, pgx.CopyFromRows(rows))
	} else {
		for _, row := range rows {
			if _, err = r.q.Exec(ctx,
				`INSERT INTO batch_allocations (movement_id, batch_id, quantity, position) VALUES ($1, $2, $3, $4)`,
				row...); err != nil {
				break
			}
		}
	}
	return wrapErr("create batch allocations", err)
}

// ListAllocations asignaciones de un movimiento en el orden en que se tomaron.
func (r *BatchRepo) ListAllocations(ctx context.Context, movementID string) ([]entity.BatchAllocation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT movement_id, batch_id, quantity, position
		FROM batch_allocations WHERE movement_id = $1 ORDER BY position`, movementID)
	if err != nil {
		return nil, wrapErr("list batch allocations", err)
	}
	defer rows.Close()
	var list []entity.BatchAllocation
	for rows.Next() {
		var a entity.BatchAllocation
		if err := rows.Scan(&a.MovementID, &a.BatchID, &a.Quantity, &a.Position); err != nil {
			return nil, fmt.Errorf("scan batch allocation: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
