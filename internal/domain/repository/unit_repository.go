package repository

import (
	"context"

	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
)

// UnitRepository define el puerto de lectura de unidades de medida.
type UnitRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Unit, error)
	List(ctx context.Context) ([]*entity.Unit, error)
}

// ConversionTemplateRepository define el puerto de lectura de plantillas de conversión.
type ConversionTemplateRepository interface {
	// Get devuelve nil, nil si no existe plantilla para (ingrediente, unidad).
	Get(ctx context.Context, ingredientID, unitID string) (*entity.ConversionTemplate, error)
	ListByIngredient(ctx context.Context, ingredientID string) ([]*entity.ConversionTemplate, error)
}
