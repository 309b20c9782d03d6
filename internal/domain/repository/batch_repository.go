package repository

import (
	"context"

	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// BatchRepository define el puerto de persistencia para lotes y sus asignaciones.
type BatchRepository interface {
	// Create persiste el lote y le asigna Sequence (orden de creación).
	Create(ctx context.Context, batch *entity.Batch) error
	// Exists indica si el ingrediente tiene algún lote registrado (abierto o agotado).
	Exists(ctx context.Context, ingredientID string) (bool, error)
	// ListOpen devuelve los lotes con remanente > 0, del más antiguo al más nuevo.
	ListOpen(ctx context.Context, ingredientID string) ([]*entity.Batch, error)
	// ListByIngredient devuelve todos los lotes en orden de creación.
	ListByIngredient(ctx context.Context, ingredientID string) ([]*entity.Batch, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Batch, error)
	UpdateRemaining(ctx context.Context, id string, remaining decimal.Decimal) error
	CreateAllocations(ctx context.Context, allocations []entity.BatchAllocation) error
	ListAllocations(ctx context.Context, movementID string) ([]entity.BatchAllocation, error)
}
