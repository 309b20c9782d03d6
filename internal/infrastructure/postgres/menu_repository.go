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

var (
	_ repository.MenuRepository        = (*MenuRepo)(nil)
	_ repository.CompositionRepository = (*CompositionRepo)(nil)
)

// MenuRepo implementación de MenuRepository sobre PostgreSQL (usable con pool o tx).
type MenuRepo struct {
	q Querier
}

// NewMenuRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMenuRepository(q Querier) *MenuRepo {
	return &MenuRepo{q: q}
}

const menuColumns = `id, name, category, price, stock_mode, stock, active, created_at, updated_at`

func scanMenu(row pgx.Row) (*entity.Menu, error) {
	var m entity.Menu
	err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Price, &m.StockMode, &m.Stock, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MenuRepo) getOne(ctx context.Context, op, query, id string) (*entity.Menu, error) {
	m, err := scanMenu(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return m, nil
}

// GetByID obtiene un menú por ID; nil, nil si no existe.
func (r *MenuRepo) GetByID(ctx context.Context, id string) (*entity.Menu, error) {
	return r.getOne(ctx, "get menu", `SELECT `+menuColumns+` FROM menus WHERE id = $1`, id)
}

// List lista los menús por nombre (sin distinguir mayúsculas) y luego por id.
func (r *MenuRepo) List(ctx context.Context) ([]*entity.Menu, error) {
	rows, err := r.q.Query(ctx, `SELECT `+menuColumns+` FROM menus ORDER BY lower(name), id`)
	if err != nil {
		return nil, wrapErr("list menus", err)
	}
	defer rows.Close()
	list := make([]*entity.Menu, 0)
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// LockForUpdate bloquea la fila del menú; nil, nil si no existe.
func (r *MenuRepo) LockForUpdate(ctx context.Context, id string) (*entity.Menu, error) {
	return r.getOne(ctx, "lock menu", `SELECT `+menuColumns+` FROM menus WHERE id = $1 FOR UPDATE`, id)
}

// UpdateStock actualiza el contador de un menú autogestionado.
func (r *MenuRepo) UpdateStock(ctx context.Context, id string, stock decimal.Decimal, updatedAt time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE menus SET stock = $2, updated_at = $3 WHERE id = $1`, id, stock, updatedAt)
	if err != nil {
		return wrapErr("update menu stock", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Upsert crea o reemplaza el menú. created_at se conserva en la actualización.
func (r *MenuRepo) Upsert(ctx context.Context, m *entity.Menu) error {
	if m.Stock.IsNegative() || !entity.ValidStockMode(m.StockMode) {
		return domain.ErrInvalidInput
	}
	query := `
		INSERT INTO menus (` + menuColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			stock_mode = EXCLUDED.stock_mode,
			stock = EXCLUDED.stock,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.Name, m.Category, m.Price, m.StockMode, m.Stock, m.Active, m.CreatedAt, m.UpdatedAt,
	)
	return wrapErr("upsert menu", err)
}

// CompositionRepo lectura de recetas sobre PostgreSQL.
type CompositionRepo struct {
	q Querier
}

// NewCompositionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCompositionRepository(q Querier) *CompositionRepo {
	return &CompositionRepo{q: q}
}

// ListByMenu devuelve las líneas de la receta ordenadas por posición.
func (r *CompositionRepo) ListByMenu(ctx context.Context, menuID string) ([]*entity.CompositionLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, menu_id, ingredient_id, quantity, unit_id, position
		FROM composition_lines WHERE menu_id = $1 ORDER BY position, id`, menuID)
	if err != nil {
		return nil, wrapErr("list composition", err)
	}
	defer rows.Close()
	var list []*entity.CompositionLine
	for rows.Next() {
		var (
			l      entity.CompositionLine
			unitID *string
		)
		if err := rows.Scan(&l.ID, &l.MenuID, &l.IngredientID, &l.Quantity, &unitID, &l.Position); err != nil {
			return nil, fmt.Errorf("scan composition line: %w", err)
		}
		l.UnitID = deref(unitID)
		list = append(list, &l)
	}
	return list, rows.Err()
}
