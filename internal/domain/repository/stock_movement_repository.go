package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
)

// MovementFilter acota listados del libro.
type MovementFilter struct {
	IngredientID string
	MenuID       string
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// StockMovementRepository define el puerto del libro de movimientos (solo inserción).
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)
	TotalsByIngredient(ctx context.Context, from, to *time.Time) ([]entity.MovementTotals, error)
}
