package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MenuRepository define el puerto de persistencia para Menu.
type MenuRepository interface {
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Menu, error)
	List(ctx context.Context) ([]*entity.Menu, error)
	// LockForUpdate bloquea la fila del menú; nil, nil si no existe.
	LockForUpdate(ctx context.Context, id string) (*entity.Menu, error)
	UpdateStock(ctx context.Context, id string, stock decimal.Decimal, updatedAt time.Time) error
	Upsert(ctx context.Context, menu *entity.Menu) error
}

// CompositionRepository define el puerto de lectura de recetas.
type CompositionRepository interface {
	// ListByMenu devuelve las líneas ordenadas por Position.
	ListByMenu(ctx context.Context, menuID string) ([]*entity.CompositionLine, error)
}
