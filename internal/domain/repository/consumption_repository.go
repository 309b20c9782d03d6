package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
)

// ConsumptionRepository define el puerto de persistencia para consumos de venta.
type ConsumptionRepository interface {
	// Create persiste el consumo con sus líneas (sin asignaciones, que viven en batch_allocations).
	Create(ctx context.Context, consumption *entity.Consumption) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Consumption, error)
	GetByReference(ctx context.Context, reference string) (*entity.Consumption, error)
	// LockForUpdate bloquea el consumo (para revertirlo una sola vez); nil, nil si no existe.
	LockForUpdate(ctx context.Context, id string) (*entity.Consumption, error)
	MarkReversed(ctx context.Context, id string, at time.Time, by string) error
}
