package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/repository"
)

var (
	_ repository.UnitRepository               = (*UnitRepo)(nil)
	_ repository.ConversionTemplateRepository = (*ConversionTemplateRepo)(nil)
)

// UnitRepo implementación de UnitRepository sobre PostgreSQL (usable con pool o tx).
type UnitRepo struct {
	q Querier
}

// NewUnitRepository construye el adaptador. Pasar pool o tx (Querier).
func NewUnitRepository(q Querier) *UnitRepo {
	return &UnitRepo{q: q}
}

// GetByID obtiene una unidad por ID; nil, nil si no existe.
func (r *UnitRepo) GetByID(ctx context.Context, id string) (*entity.Unit, error) {
	var u entity.Unit
	err := r.q.QueryRow(ctx, `SELECT id, name, abbreviation FROM units WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Abbreviation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get unit", err)
	}
	return &u, nil
}

// List lista las unidades ordenadas por id.
func (r *UnitRepo) List(ctx context.Context) ([]*entity.Unit, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, abbreviation FROM units ORDER BY id`)
	if err != nil {
		return nil, wrapErr("list units", err)
	}
	defer rows.Close()
	var list []*entity.Unit
	for rows.Next() {
		var u entity.Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Abbreviation); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		list = append(list, &u)
	}
	return list, rows.Err()
}

// ConversionTemplateRepo implementación de ConversionTemplateRepository sobre PostgreSQL.
type ConversionTemplateRepo struct {
	q Querier
}

// NewConversionTemplateRepository construye el adaptador. Pasar pool o tx (Querier).
func NewConversionTemplateRepository(q Querier) *ConversionTemplateRepo {
	return &ConversionTemplateRepo{q: q}
}

const templateColumns = `ingredient_id, target_unit_id, factor, note, updated_at`

func scanTemplate(row pgx.Row) (*entity.ConversionTemplate, error) {
	var t entity.ConversionTemplate
	if err := row.Scan(&t.IngredientID, &t.TargetUnitID, &t.Factor, &t.Note, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Get devuelve la plantilla de (ingrediente, unidad); nil, nil si no existe.
func (r *ConversionTemplateRepo) Get(ctx context.Context, ingredientID, unitID string) (*entity.ConversionTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM conversion_templates WHERE ingredient_id = $1 AND target_unit_id = $2`
	t, err := scanTemplate(r.q.QueryRow(ctx, query, ingredientID, unitID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get conversion template", err)
	}
	return t, nil
}

// ListByIngredient lista las plantillas de un ingrediente ordenadas por unidad.
func (r *ConversionTemplateRepo) ListByIngredient(ctx context.Context, ingredientID string) ([]*entity.ConversionTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM conversion_templates WHERE ingredient_id = $1 ORDER BY target_unit_id`
	rows, err := r.q.Query(ctx, query, ingredientID)
	if err != nil {
		return nil, wrapErr("list conversion templates", err)
	}
	defer rows.Close()
	var list []*entity.ConversionTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion template: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
