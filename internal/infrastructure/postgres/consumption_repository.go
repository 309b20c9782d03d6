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
)

var _ repository.ConsumptionRepository = (*ConsumptionRepo)(nil)

// ConsumptionRepo consumos de venta y sus líneas sobre PostgreSQL.
type ConsumptionRepo struct {
	q Querier
}

// NewConsumptionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewConsumptionRepository(q Querier) *ConsumptionRepo {
	return &ConsumptionRepo{q: q}
}

const consumptionColumns = `id, reference, menu_id, portions, actor, created_at, reversed_at, reversed_by`

// Create inserta cabecera y líneas. Una referencia ya aplicada por otra transacción
// se informa como contención para que el caso de uso reintente y devuelva el consumo existente.
func (r *ConsumptionRepo) Create(ctx context.Context, c *entity.Consumption) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO consumptions (`+consumptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, nullIfEmpty(c.Reference), c.MenuID, c.Portions, c.Actor, c.CreatedAt, c.ReversedAt, nullIfEmpty(c.ReversedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create consumption: %w: referencia %s: %w", domain.ErrConcurrentModification, c.Reference, err)
		}
		return wrapErr("create consumption", err)
	}
	for _, l := range c.Lines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO consumption_lines (consumption_id, position, ingredient_id, menu_id, quantity, movement_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, l.Position, nullIfEmpty(l.IngredientID), nullIfEmpty(l.MenuID), l.Quantity, l.MovementID,
		)
		if err != nil {
			return wrapErr("create consumption line", err)
		}
	}
	return nil
}

func (r *ConsumptionRepo) get(ctx context.Context, op, query string, arg string) (*entity.Consumption, error) {
	var (
		c                     entity.Consumption
		reference, reversedBy *string
	)
	err := r.q.QueryRow(ctx, query, arg).Scan(&c.ID, &reference, &c.MenuID, &c.Portions, &c.Actor,
		&c.CreatedAt, &c.ReversedAt, &reversedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	c.Reference = deref(reference)
	c.ReversedBy = deref(reversedBy)

	rows, err := r.q.Query(ctx, `
		SELECT position, ingredient_id, menu_id, quantity, movement_id
		FROM consumption_lines WHERE consumption_id = $1 ORDER BY position`, c.ID)
	if err != nil {
		return nil, wrapErr(op+" lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l                    entity.ConsumptionLine
			ingredientID, menuID *string
		)
		if err := rows.Scan(&l.Position, &ingredientID, &menuID, &l.Quantity, &l.MovementID); err != nil {
			return nil, fmt.Errorf("scan consumption line: %w", err)
		}
		l.IngredientID = deref(ingredientID)
		l.MenuID = deref(menuID)
		c.Lines = append(c.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op+" lines", err)
	}
	return &c, nil
}

// GetByID obtiene un consumo con sus líneas; nil, nil si no existe.
func (r *ConsumptionRepo) GetByID(ctx context.Context, id string) (*entity.Consumption, error) {
	return r.get(ctx, "get consumption", `SELECT `+consumptionColumns+` FROM consumptions WHERE id = $1`, id)
}

// GetByReference busca el consumo aplicado para una venta externa.
func (r *ConsumptionRepo) GetByReference(ctx context.Context, reference string) (*entity.Consumption, error) {
	return r.get(ctx, "get consumption by reference", `SELECT `+consumptionColumns+` FROM consumptions WHERE reference = $1`, reference)
}

// LockForUpdate bloquea la cabecera del consumo; nil, nil si no existe.
func (r *ConsumptionRepo) LockForUpdate(ctx context.Context, id string) (*entity.Consumption, error) {
	return r.get(ctx, "lock consumption", `SELECT `+consumptionColumns+` FROM consumptions WHERE id = $1 FOR UPDATE`, id)
}

// MarkReversed marca el consumo como revertido una sola vez.
func (r *ConsumptionRepo) MarkReversed(ctx context.Context, id string, at time.Time, by string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE consumptions SET reversed_at = $2, reversed_by = $3
		WHERE id = $1 AND reversed_at IS NULL`, id, at, nullIfEmpty(by))
	if err != nil {
		return wrapErr("mark consumption reversed", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM consumptions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return wrapErr("mark consumption reversed", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyReversed
}
