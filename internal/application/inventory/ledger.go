package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/inventory"
	"github.com/jhoicas/inventario-cocina/pkg/logger"
	"github.com/shopspring/decimal"
)

// movementMeta datos de auditoría comunes a un movimiento.
type movementMeta struct {
	Source        string
	Note          string
	Actor         string
	ConsumptionID string
	ReversalOf    string
}

// ledger agrupa las operaciones de escritura sobre el libro y los lotes. Todas asumen que la
// fila del ingrediente (o del menú) ya fue bloqueada en la transacción de repos.
type ledger struct {
	log *logger.Logger
	now func() time.Time
}

func newLedger(opts Options) ledger {
	return ledger{log: opts.Logger, now: opts.Now}
}

func newMovement(ingredientID, menuID, movType string, qty decimal.Decimal, meta movementMeta, now time.Time) *entity.StockMovement {
	return &entity.StockMovement{
		ID:            uuid.New().String(),
		IngredientID:  ingredientID,
		MenuID:        menuID,
		Type:          movType,
		Source:        meta.Source,
		Quantity:      qty,
		ConsumptionID: meta.ConsumptionID,
		ReversalOf:    meta.ReversalOf,
		Note:          meta.Note,
		Actor:         meta.Actor,
		CreatedAt:     now,
	}
}

// trackedBatches indica si el ingrediente lleva lotes y devuelve los abiertos, tras verificar
// que su remanente total coincide con el stock del libro.
func (l ledger) trackedBatches(ctx context.Context, repos TxRepos, ing *entity.Ingredient) (bool, []*entity.Batch, error) {
	tracked, err := repos.Batches.Exists(ctx, ing.ID)
	if err != nil || !tracked {
		return false, nil, err
	}
	open, err := repos.Batches.ListOpen(ctx, ing.ID)
	if err != nil {
		return false, nil, err
	}
	if err := inventory.CheckBatchConsistency(ing.ID, ing.AvailableStock, open); err != nil {
		l.log.Error().Err(err).
			Str("ingredient_id", ing.ID).
			Str("ledger_stock", ing.AvailableStock.String()).
			Str("batch_total", inventory.OpenTotal(open).String()).
			Msg("lotes y libro no coinciden, operación detenida para auditoría")
		return false, nil, err
	}
	return true, open, nil
}

// credit registra una entrada (in o ajuste positivo). Abre un lote si trae metadatos de compra
// o si el ingrediente ya lleva lotes; al abrir el primer lote, el stock previo sin lote se
// convierte en un lote de apertura más antiguo para mantener lotes == stock.
func (l ledger) credit(ctx context.Context, repos TxRepos, ing *entity.Ingredient, qty decimal.Decimal, movType string, purchase *entity.PurchaseInfo, meta movementMeta) (*entity.StockMovement, *entity.Batch, error) {
	if !qty.IsPositive() {
		return nil, nil, domain.ErrInvalidQuantity
	}
	tracked, _, err := l.trackedBatches(ctx, repos, ing)
	if err != nil {
		return nil, nil, err
	}
	now := l.now()
	mov := newMovement(ing.ID, "", movType, qty, meta, now)
	mov.Purchase = purchase

	var opened *entity.Batch
	if purchase != nil || tracked {
		if !tracked && ing.AvailableStock.IsPositive() {
			opening, err := inventory.NewBatch(ing.ID, "", ing.AvailableStock, nil, now)
			if err != nil {
				return nil, nil, err
			}
			if err := repos.Batches.Create(ctx, opening); err != nil {
				return nil, nil, err
			}
		}
		opened, err = inventory.NewBatch(ing.ID, mov.ID, qty, purchase, now)
		if err != nil {
			return nil, nil, err
		}
		mov.BatchID = opened.ID
	}

	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, nil, err
	}
	if opened != nil {
		if err := repos.Batches.Create(ctx, opened); err != nil {
			return nil, nil, err
		}
	}
	ing.AvailableStock = ing.AvailableStock.Add(qty)
	ing.UpdatedAt = now
	if err := repos.Ingredients.UpdateStock(ctx, ing.ID, ing.AvailableStock, now); err != nil {
		return nil, nil, err
	}
	return mov, opened, nil
}

// debit registra una salida (out o ajuste negativo). Nunca deja el stock negativo; si el
// ingrediente lleva lotes, asigna la deducción FIFO y guarda las asignaciones.
func (l ledger) debit(ctx context.Context, repos TxRepos, ing *entity.Ingredient, qty decimal.Decimal, movType string, meta movementMeta) (*entity.StockMovement, []entity.BatchAllocation, error) {
	if !qty.IsPositive() {
		return nil, nil, domain.ErrInvalidQuantity
	}
	if qty.GreaterThan(ing.AvailableStock) {
		return nil, nil, domain.NewInsufficientStock(ing.ID, qty, ing.AvailableStock)
	}
	tracked, open, err := l.trackedBatches(ctx, repos, ing)
	if err != nil {
		return nil, nil, err
	}
	now := l.now()
	mov := newMovement(ing.ID, "", movType, qty.Neg(), meta, now)
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, nil, err
	}

	var allocations []entity.BatchAllocation
	if tracked {
		allocations, err = inventory.AllocateFIFO(open, qty)
		if err != nil {
			l.log.Error().Err(err).Str("ingredient_id", ing.ID).Str("requested", qty.String()).
				Msg("los lotes no cubren la deducción")
			return nil, nil, err
		}
		byID := make(map[string]*entity.Batch, len(open))
		for _, b := range open {
			byID[b.ID] = b
		}
		for i := range allocations {
			allocations[i].MovementID = mov.ID
			b := byID[allocations[i].BatchID]
			if err := repos.Batches.UpdateRemaining(ctx, b.ID, b.Remaining); err != nil {
				return nil, nil, err
			}
		}
		if err := repos.Batches.CreateAllocations(ctx, allocations); err != nil {
			return nil, nil, err
		}
	}

	ing.AvailableStock = ing.AvailableStock.Sub(qty)
	ing.UpdatedAt = now
	if err := repos.Ingredients.UpdateStock(ctx, ing.ID, ing.AvailableStock, now); err != nil {
		return nil, nil, err
	}
	return mov, allocations, nil
}

// restore revierte una deducción previa con un ajuste positivo. Con asignaciones, devuelve
// el remanente exactamente a los lotes de origen; sin ellas se comporta como un ajuste positivo.
func (l ledger) restore(ctx context.Context, repos TxRepos, ing *entity.Ingredient, qty decimal.Decimal, allocations []entity.BatchAllocation, meta movementMeta) (*entity.StockMovement, error) {
	if len(allocations) == 0 {
		mov, _, err := l.credit(ctx, repos, ing, qty, entity.MovementTypeAdjustment, nil, meta)
		return mov, err
	}
	if !qty.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	if _, _, err := l.trackedBatches(ctx, repos, ing); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(allocations))
	allocated := decimal.Zero
	for _, a := range allocations {
		ids = append(ids, a.BatchID)
		allocated = allocated.Add(a.Quantity)
	}
	if !allocated.Equal(qty) {
		return nil, domain.ErrInternalInconsistency
	}
	batches, err := repos.Batches.GetByIDs(ctx, inventory.SortIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entity.Batch, len(batches))
	for _, b := range batches {
		if b.IngredientID != ing.ID {
			return nil, domain.ErrInternalInconsistency
		}
		byID[b.ID] = b
	}
	if err := inventory.Deallocate(byID, allocations); err != nil {
		l.log.Error().Err(err).Str("ingredient_id", ing.ID).Msg("no se pudo restaurar la asignación original")
		return nil, err
	}
	for _, b := range batches {
		if err := repos.Batches.UpdateRemaining(ctx, b.ID, b.Remaining); err != nil {
			return nil, err
		}
	}

	now := l.now()
	mov := newMovement(ing.ID, "", entity.MovementTypeAdjustment, qty, meta, now)
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	ing.AvailableStock = ing.AvailableStock.Add(qty)
	ing.UpdatedAt = now
	if err := repos.Ingredients.UpdateStock(ctx, ing.ID, ing.AvailableStock, now); err != nil {
		return nil, err
	}
	return mov, nil
}

// debitMenu descuenta el contador propio de un menú autogestionado.
func (l ledger) debitMenu(ctx context.Context, repos TxRepos, menu *entity.Menu, qty decimal.Decimal, meta movementMeta) (*entity.StockMovement, error) {
	if !qty.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	if qty.GreaterThan(menu.Stock) {
		return nil, domain.NewInsufficientStock(menu.ID, qty, menu.Stock)
	}
	return l.applyMenu(ctx, repos, menu, qty.Neg(), entity.MovementTypeOut, meta)
}

// creditMenu repone el contador propio de un menú autogestionado.
func (l ledger) creditMenu(ctx context.Context, repos TxRepos, menu *entity.Menu, qty decimal.Decimal, movType string, meta movementMeta) (*entity.StockMovement, error) {
	if !qty.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	return l.applyMenu(ctx, repos, menu, qty, movType, meta)
}

func (l ledger) applyMenu(ctx context.Context, repos TxRepos, menu *entity.Menu, signed decimal.Decimal, movType string, meta movementMeta) (*entity.StockMovement, error) {
	now := l.now()
	mov := newMovement("", menu.ID, movType, signed, meta, now)
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	menu.Stock = menu.Stock.Add(signed)
	menu.UpdatedAt = now
	if err := repos.Menus.UpdateStock(ctx, menu.ID, menu.Stock, now); err != nil {
		return nil, err
	}
	return mov, nil
}

// lockIngredient bloquea un ingrediente y falla con ErrNotFound si no existe.
func lockIngredient(ctx context.Context, repos TxRepos, id string) (*entity.Ingredient, error) {
	locked, err := repos.Ingredients.LockForUpdate(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return nil, domain.ErrNotFound
	}
	return locked[0], nil
}

// lockIngredients bloquea en orden ascendente de id y exige que existan todos.
func lockIngredients(ctx context.Context, repos TxRepos, ids []string) (map[string]*entity.Ingredient, error) {
	ids = inventory.SortIDs(ids)
	locked, err := repos.Ingredients.LockForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entity.Ingredient, len(locked))
	for _, ing := range locked {
		byID[ing.ID] = ing
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, domain.ErrNotFound
		}
	}
	return byID, nil
}
