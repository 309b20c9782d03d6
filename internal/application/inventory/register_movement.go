package inventory

import (
	"context"
	"strings"

	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/inventory"
	"github.com/jhoicas/inventario-cocina/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// StockLedgerUseCase registra movimientos de stock de ingredientes de forma transaccional
// (in, out, ajuste) con bloqueo de fila (SELECT FOR UPDATE) y Commit/Rollback.
type StockLedgerUseCase struct {
	txRunner TxRunner
	opts     Options
	ledger   ledger
}

// NewStockLedgerUseCase construye el caso de uso.
func NewStockLedgerUseCase(txRunner TxRunner, opts Options) *StockLedgerUseCase {
	opts = opts.withDefaults()
	return &StockLedgerUseCase{txRunner: txRunner, opts: opts, ledger: newLedger(opts)}
}

// AddStockInput entrada para registrar una entrada de stock.
// Quantity va en unidades de almacenamiento y es la que ingresó el operador; la plantilla
// de conversión solo sugiere un valor y nunca lo reemplaza.
type AddStockInput struct {
	IngredientID string
	Quantity     decimal.Decimal
	Purchase     *entity.PurchaseInfo
	Note         string
	Actor        string
}

// StockEntryResult movimiento registrado y lote abierto (si aplica).
type StockEntryResult struct {
	Movement *entity.StockMovement
	Batch    *entity.Batch
}

// ReduceStockInput entrada para una salida manual de stock.
type ReduceStockInput struct {
	IngredientID string
	Quantity     decimal.Decimal
	Note         string
	Actor        string
}

// StockDeductionResult movimiento registrado y lotes de los que se tomó.
type StockDeductionResult struct {
	Movement    *entity.StockMovement
	Allocations []entity.BatchAllocation
}

// AdjustStockInput corrección libre; Delta firmado, nunca cero.
type AdjustStockInput struct {
	IngredientID string
	Delta        decimal.Decimal
	Note         string
	Actor        string
}

// MovementDetail movimiento con sus asignaciones a lotes.
type MovementDetail struct {
	Movement    *entity.StockMovement
	Allocations []entity.BatchAllocation
}

func validateActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return domain.ErrInvalidInput
	}
	return nil
}

// validQuantity exige q > 0 y representable sin redondeo en el libro.
func validQuantity(q decimal.Decimal) error {
	if !q.IsPositive() || !inventory.WithinScale(q) {
		return domain.ErrInvalidQuantity
	}
	return nil
}

// AddStock registra una entrada (record_in). Con metadatos de compra abre un lote.
func (uc *StockLedgerUseCase) AddStock(ctx context.Context, in AddStockInput) (*StockEntryResult, error) {
	if in.IngredientID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := validateActor(in.Actor); err != nil {
		return nil, err
	}
	if err := validQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if p := in.Purchase; p != nil {
		if p.Quantity != nil {
			if err := validQuantity(*p.Quantity); err != nil {
				return nil, err
			}
		}
		if p.Price != nil && (p.Price.IsNegative() || !inventory.WithinScale(*p.Price)) {
			return nil, domain.ErrInvalidInput
		}
	}

	var result *StockEntryResult
	err := uc.opts.withRetry(ctx, "add_stock", func() error {
		return uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			if p := in.Purchase; p != nil && p.UnitID != "" {
				unit, err := repos.Units.GetByID(ctx, p.UnitID)
				if err != nil {
					return err
				}
				if unit == nil {
					return domain.ErrNotFound
				}
			}
			ing, err := lockIngredient(ctx, repos, in.IngredientID)
			if err != nil {
				return err
			}
			meta := movementMeta{Source: entity.MovementSourceManual, Note: in.Note, Actor: in.Actor}
			mov, batch, err := uc.ledger.credit(ctx, repos, ing, in.Quantity, entity.MovementTypeIn, in.Purchase, meta)
			if err != nil {
				return err
			}
			result = &StockEntryResult{Movement: mov, Batch: batch}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	uc.opts.afterCommit(ctx, []LedgerEvent{movementEvent(result.Movement)})
	return result, nil
}

// ReduceStock registra una salida manual (record_out). Falla con stock insuficiente sin
// tocar libro ni lotes.
func (uc *StockLedgerUseCase) ReduceStock(ctx context.Context, in ReduceStockInput) (*StockDeductionResult, error) {
	if in.IngredientID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := validateActor(in.Actor); err != nil {
		return nil, err
	}
	if err := validQuantity(in.Quantity); err != nil {
		return nil, err
	}

	var result *StockDeductionResult
	err := uc.opts.withRetry(ctx, "reduce_stock", func() error {
		return uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			ing, err := lockIngredient(ctx, repos, in.IngredientID)
			if err != nil {
				return err
			}
			meta := movementMeta{Source: entity.MovementSourceManual, Note: in.Note, Actor: in.Actor}
			mov, allocations, err := uc.ledger.debit(ctx, repos, ing, in.Quantity, entity.MovementTypeOut, meta)
			if err != nil {
				return err
			}
			result = &StockDeductionResult{Movement: mov, Allocations: allocations}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	uc.opts.afterCommit(ctx, []LedgerEvent{movementEvent(result.Movement)})
	return result, nil
}

// AdjustStock registra una corrección (record_adjustment): positiva como entrada sin compra,
// negativa como salida asignada FIFO cuando el ingrediente lleva lotes.
func (uc *StockLedgerUseCase) AdjustStock(ctx context.Context, in AdjustStockInput) (*StockDeductionResult, error) {
	if in.IngredientID == "" || strings.TrimSpace(in.Note) == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := validateActor(in.Actor); err != nil {
		return nil, err
	}
	if err := validQuantity(in.Delta.Abs()); err != nil {
		return nil, err
	}

	var result *StockDeductionResult
	err := uc.opts.withRetry(ctx, "adjust_stock", func() error {
		return uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			ing, err := lockIngredient(ctx, repos, in.IngredientID)
			if err != nil {
				return err
			}
			meta := movementMeta{Source: entity.MovementSourceManual, Note: in.Note, Actor: in.Actor}
			if in.Delta.IsPositive() {
				mov, _, err := uc.ledger.credit(ctx, repos, ing, in.Delta, entity.MovementTypeAdjustment, nil, meta)
				if err != nil {
					return err
				}
				result = &StockDeductionResult{Movement: mov}
				return nil
			}
			mov, allocations, err := uc.ledger.debit(ctx, repos, ing, in.Delta.Neg(), entity.MovementTypeAdjustment, meta)
			if err != nil {
				return err
			}
			result = &StockDeductionResult{Movement: mov, Allocations: allocations}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	uc.opts.afterCommit(ctx, []LedgerEvent{movementEvent(result.Movement)})
	return result, nil
}

// ListMovements devuelve el libro de un ingrediente (o filtrado), más reciente primero.
func (uc *StockLedgerUseCase) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		if filter.IngredientID != "" {
			ing, err := repos.Ingredients.GetByID(ctx, filter.IngredientID)
			if err != nil {
				return err
			}
			if ing == nil {
				return domain.ErrNotFound
			}
		}
		var err error
		out, err = repos.Movements.List(ctx, filter)
		return err
	})
	return out, err
}

// ListBatches devuelve los lotes del ingrediente en orden FIFO. La estimación de unidades de
// compra restantes sale de entity.Batch.EstimateRemainingPurchaseUnits.
func (uc *StockLedgerUseCase) ListBatches(ctx context.Context, ingredientID string) ([]*entity.Batch, error) {
	var out []*entity.Batch
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		ing, err := repos.Ingredients.GetByID(ctx, ingredientID)
		if err != nil {
			return err
		}
		if ing == nil {
			return domain.ErrNotFound
		}
		out, err = repos.Batches.ListByIngredient(ctx, ingredientID)
		return err
	})
	return out, err
}

// GetMovement devuelve un movimiento con sus asignaciones a lotes.
func (uc *StockLedgerUseCase) GetMovement(ctx context.Context, id string) (*MovementDetail, error) {
	var out *MovementDetail
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		mov, err := repos.Movements.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if mov == nil {
			return domain.ErrNotFound
		}
		allocations, err := repos.Batches.ListAllocations(ctx, id)
		if err != nil {
			return err
		}
		out = &MovementDetail{Movement: mov, Allocations: allocations}
		return nil
	})
	return out, err
}

func movementEvent(m *entity.StockMovement) LedgerEvent {
	return LedgerEvent{
		Type:          EventMovementRecorded,
		IngredientID:  m.IngredientID,
		MenuID:        m.MenuID,
		MovementID:    m.ID,
		ConsumptionID: m.ConsumptionID,
		Quantity:      m.Quantity,
		Actor:         m.Actor,
		OccurredAt:    m.CreatedAt,
	}
}
