package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// TxRepos agrupa los repositorios atados a una misma transacción.
type TxRepos struct {
	Units        repository.UnitRepository
	Templates    repository.ConversionTemplateRepository
	Ingredients  repository.IngredientRepository
	Movements    repository.StockMovementRepository
	Batches      repository.BatchRepository
	Menus        repository.MenuRepository
	Compositions repository.CompositionRepository
	Consumptions repository.ConsumptionRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Run: Commit si fn devuelve nil, Rollback en cualquier otro caso. Los bloqueos de fila
// tienen espera acotada y fallan con domain.ErrConcurrentModification.
// RunSnapshot: lectura consistente sin bloqueos; cualquier escritura falla.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
	RunSnapshot(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}

// Tipos de evento del libro publicados tras el commit.
const (
	EventMovementRecorded    = "stock.movement.recorded"
	EventConsumptionApplied  = "consumption.applied"
	EventConsumptionReversed = "consumption.reversed"
	EventMenuSynced          = "menu.synced"
)

// LedgerEvent notificación de un cambio ya confirmado.
type LedgerEvent struct {
	Type          string          `json:"type"`
	IngredientID  string          `json:"ingredient_id,omitempty"`
	MenuID        string          `json:"menu_id,omitempty"`
	MovementID    string          `json:"movement_id,omitempty"`
	ConsumptionID string          `json:"consumption_id,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	Actor         string          `json:"actor,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Key clave de partición: ingrediente o menú afectado.
func (e LedgerEvent) Key() string {
	if e.IngredientID != "" {
		return e.IngredientID
	}
	if e.MenuID != "" {
		return e.MenuID
	}
	return e.ConsumptionID
}

// EventPublisher publica eventos del libro (best-effort, nunca dentro de la transacción).
type EventPublisher interface {
	Publish(ctx context.Context, events ...LedgerEvent) error
}

// MenuAvailability disponibilidad y costo calculados para un menú.
type MenuAvailability struct {
	MenuID         string          `json:"menu_id"`
	StockMode      string          `json:"stock_mode"`
	EffectiveStock decimal.Decimal `json:"effective_stock"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	CostEstimated  bool            `json:"cost_estimated"`
	ComputedAt     time.Time       `json:"computed_at"`
}

// AvailabilityCache cachea MenuAvailability. Invalidate descarta todo lo calculado
// antes de la llamada; se invoca tras cada mutación confirmada.
type AvailabilityCache interface {
	Get(ctx context.Context, menuID string) (*MenuAvailability, bool, error)
	Set(ctx context.Context, availability *MenuAvailability) error
	Invalidate(ctx context.Context) error
}
