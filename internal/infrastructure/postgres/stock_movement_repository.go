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

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de movimientos sobre PostgreSQL. La tabla es de solo inserción
// (un trigger rechaza UPDATE y DELETE); seq da el orden de inserción.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, ingredient_id, menu_id, type, source, quantity,
	purchase_quantity, purchase_unit_id, purchase_price, batch_id, consumption_id, reversal_of,
	note, actor, created_at`

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var (
		m                                  entity.StockMovement
		ingredientID, menuID, purchaseUnit *string
		batchID, consumptionID, reversalOf *string
		purchaseQuantity, purchasePrice    *decimal.Decimal
	)
	err := row.Scan(&m.ID, &ingredientID, &menuID, &m.Type, &m.Source, &m.Quantity,
		&purchaseQuantity, &purchaseUnit, &purchasePrice, &batchID, &consumptionID, &reversalOf,
		&m.Note, &m.Actor, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.IngredientID = deref(ingredientID)
	m.MenuID = deref(menuID)
	m.BatchID = deref(batchID)
	m.ConsumptionID = deref(consumptionID)
	m.ReversalOf = deref(reversalOf)
	if purchaseQuantity != nil || purchaseUnit != nil || purchasePrice != nil {
		m.Purchase = &entity.PurchaseInfo{Quantity: purchaseQuantity, UnitID: deref(purchaseUnit), Price: purchasePrice}
	}
	return &m, nil
}

// Create inserta un movimiento.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if (m.IngredientID == "") == (m.MenuID == "") {
		return fmt.Errorf("%w: movimiento sin sujeto único", domain.ErrInvalidInput)
	}
	var (
		purchaseQuantity, purchasePrice *decimal.Decimal
		purchaseUnit                    *string
	)
	if p := m.Purchase; p != nil {
		purchaseQuantity, purchasePrice, purchaseUnit = p.Quantity, p.Price, nullIfEmpty(p.UnitID)
	}
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		m.ID, nullIfEmpty(m.IngredientID), nullIfEmpty(m.MenuID), m.Type, m.Source, m.Quantity,
		purchaseQuantity, purchaseUnit, purchasePrice,
		nullIfEmpty(m.BatchID), nullIfEmpty(m.ConsumptionID), nullIfEmpty(m.ReversalOf),
		m.Note, m.Actor, m.CreatedAt,
	)
	return wrapErr("create stock movement", err)
}

// GetByID obtiene un movimiento por ID; nil, nil si no existe.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get stock movement", err)
	}
	return m, nil
}

// List lista movimientos según el filtro, del más reciente al más antiguo.
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE TRUE`
	args := []any{}
	pos := 1
	if f.IngredientID != "" {
		query += fmt.Sprintf(" AND ingredient_id = $%d", pos)
		args = append(args, f.IngredientID)
		pos++
	}
	if f.MenuID != "" {
		query += fmt.Sprintf(" AND menu_id = $%d", pos)
		args = append(args, f.MenuID)
		pos++
	}
	if f.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *f.From)
		pos++
	}
	if f.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *f.To)
		pos++
	}
	query += " ORDER BY seq DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, f.Limit)
		pos++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, f.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list stock movements", err)
	}
	defer rows.Close()
	list := make([]*entity.StockMovement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// TotalsByIngredient agrega entradas, salidas y ajustes por ingrediente en [from, to].
func (r *StockMovementRepo) TotalsByIngredient(ctx context.Context, from, to *time.Time) ([]entity.MovementTotals, error) {
	query := `
		SELECT ingredient_id,
			COALESCE(SUM(quantity) FILTER (WHERE type = 'in'), 0),
			COALESCE(-SUM(quantity) FILTER (WHERE type = 'out'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE type = 'adjustment'), 0),
			COALESCE(SUM(quantity), 0),
			COUNT(*)
		FROM stock_movements
		WHERE ingredient_id IS NOT NULL
			AND ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at <= $2)
		GROUP BY ingredient_id
		ORDER BY ingredient_id`
	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return nil, wrapErr("movement totals", err)
	}
	defer rows.Close()
	var out []entity.MovementTotals
	for rows.Next() {
		var t entity.MovementTotals
		if err := rows.Scan(&t.IngredientID, &t.In, &t.Out, &t.Adjustment, &t.Net, &t.Count); err != nil {
			return nil, fmt.Errorf("scan movement totals: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
