package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.IngredientRepository = (*IngredientRepo)(nil)

// IngredientRepo implementación de IngredientRepository sobre PostgreSQL (usable con pool o tx).
type IngredientRepo struct {
	q Querier
}

// NewIngredientRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIngredientRepository(q Querier) *IngredientRepo {
	return &IngredientRepo{q: q}
}

const ingredientColumns = `id, name, storage_unit_id, purchase_unit_id, available_stock, reference_price, active, created_at, updated_at`

func scanIngredient(row pgx.Row) (*entity.Ingredient, error) {
	var (
		ing          entity.Ingredient
		purchaseUnit *string
	)
	err := row.Scan(&ing.ID, &ing.Name, &ing.StorageUnitID, &purchaseUnit, &ing.AvailableStock,
		&ing.ReferencePrice, &ing.Active, &ing.CreatedAt, &ing.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ing.PurchaseUnitID = deref(purchaseUnit)
	return &ing, nil
}

func (r *IngredientRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Ingredient, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()
	var list []*entity.Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		list = append(list, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return list, nil
}

// GetByID obtiene un ingrediente por ID; nil, nil si no existe.
func (r *IngredientRepo) GetByID(ctx context.Context, id string) (*entity.Ingredient, error) {
	ing, err := scanIngredient(r.q.QueryRow(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get ingredient", err)
	}
	return ing, nil
}

// ListByIDs devuelve los ingredientes existentes entre ids, ordenados por id.
func (r *IngredientRepo) ListByIDs(ctx context.Context, ids []string) ([]*entity.Ingredient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, "list ingredients", `SELECT `+ingredientColumns+` FROM ingredients WHERE id = ANY($1) ORDER BY id`, ids)
}

// LockForUpdate bloquea las filas (SELECT FOR UPDATE) en orden ascendente de id.
// La espera la acota lock_timeout de la transacción.
func (r *IngredientRepo) LockForUpdate(ctx context.Context, ids []string) ([]*entity.Ingredient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	return r.list(ctx, "lock ingredients", query, ids)
}

// UpdateStock actualiza el stock disponible. El CHECK available_stock >= 0 es la última barrera.
func (r *IngredientRepo) UpdateStock(ctx context.Context, id string, stock decimal.Decimal, updatedAt time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE ingredients SET available_stock = $2, updated_at = $3 WHERE id = $1`, id, stock, updatedAt)
	if err != nil {
		return wrapErr("update ingredient stock", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
