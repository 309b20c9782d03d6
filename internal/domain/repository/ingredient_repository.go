package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// IngredientRepository define el puerto de persistencia para Ingredient.
type IngredientRepository interface {
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Ingredient, error)
	ListByIDs(ctx context.Context, ids []string) ([]*entity.Ingredient, error)
	// LockForUpdate bloquea las filas en orden ascendente de id (SELECT ... FOR UPDATE).
	// Ids inexistentes simplemente no aparecen en el resultado.
	LockForUpdate(ctx context.Context, ids []string) ([]*entity.Ingredient, error)
	UpdateStock(ctx context.Context, id string, stock decimal.Decimal, updatedAt time.Time) error
}
