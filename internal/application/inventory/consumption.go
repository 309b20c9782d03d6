package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ConsumptionUseCase aplica y revierte ventas sobre el stock, de forma atómica sobre
// todos los ingredientes de la receta. Lo invoca el flujo de ventas.
type ConsumptionUseCase struct {
	txRunner TxRunner
	opts     Options
	ledger   ledger
}

// NewConsumptionUseCase construye el caso de uso.
func NewConsumptionUseCase(txRunner TxRunner, opts Options) *ConsumptionUseCase {
	opts = opts.withDefaults()
	return &ConsumptionUseCase{txRunner: txRunner, opts: opts, ledger: newLedger(opts)}
}

// ConsumeInput venta de Portions porciones enteras de un menú. Reference es el id de la
// venta en el flujo externo: si ya se aplicó con el mismo menú y porciones, se devuelve el
// consumo existente sin tocar stock; con otros datos falla con ErrReferenceConflict.
type ConsumeInput struct {
	MenuID    string
	Portions  decimal.Decimal
	Actor     string
	Reference string
}

// Consume descuenta el stock de una venta. En modo derivado bloquea los ingredientes en
// orden ascendente de id, verifica todos antes de escribir y, si alguno no alcanza, falla
// con ErrInsufficientStock sin deducción parcial. En modo autogestionado descuenta el
// contador del menú.
func (uc *ConsumptionUseCase) Consume(ctx context.Context, in ConsumeInput) (*entity.Consumption, error) {
	if in.MenuID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := validateActor(in.Actor); err != nil {
		return nil, err
	}
	// El stock efectivo se cuenta en porciones enteras.
	if !in.Portions.IsPositive() || !in.Portions.IsInteger() {
		return nil, domain.ErrInvalidQuantity
	}

	var (
		result   *entity.Consumption
		existing bool
	)
	err := uc.opts.withRetry(ctx, "consume", func() error {
		return uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			var err error
			result, existing, err = uc.consumeInTx(ctx, repos, in)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			uc.opts.Logger.Info().Err(err).Str("menu_id", in.MenuID).Str("portions", in.Portions.String()).
				Msg("consumo rechazado por stock insuficiente")
		}
		return nil, err
	}
	if existing {
		uc.opts.Logger.Info().Str("consumption_id", result.ID).Str("reference", in.Reference).
			Msg("venta ya aplicada, se devuelve el consumo existente")
		return result, nil
	}

	uc.opts.Logger.Info().
		Str("consumption_id", result.ID).
		Str("menu_id", result.MenuID).
		Str("portions", result.Portions.String()).
		Int("lines", len(result.Lines)).
		Str("actor", result.Actor).
		Msg("consumo aplicado")
	uc.opts.afterCommit(ctx, consumptionEvents(EventConsumptionApplied, result, result.Actor))
	return result, nil
}

func (uc *ConsumptionUseCase) consumeInTx(ctx context.Context, repos TxRepos, in ConsumeInput) (*entity.Consumption, bool, error) {
	if in.Reference != "" {
		prev, err := repos.Consumptions.GetByReference(ctx, in.Reference)
		if err != nil {
			return nil, false, err
		}
		if prev != nil {
			if prev.MenuID != in.MenuID || !prev.Portions.Equal(in.Portions) {
				return nil, false, fmt.Errorf("referencia %s: %w", in.Reference, domain.ErrReferenceConflict)
			}
			if err := loadAllocations(ctx, repos, prev); err != nil {
				return nil, false, err
			}
			return prev, true, nil
		}
	}

	menu, err := getMenu(ctx, repos, in.MenuID)
	if err != nil {
		return nil, false, err
	}
	now := uc.opts.Now()
	c := &entity.Consumption{
		ID:        uuid.New().String(),
		Reference: in.Reference,
		MenuID:    menu.ID,
		Portions:  in.Portions,
		Actor:     in.Actor,
		CreatedAt: now,
	}
	meta := movementMeta{Source: entity.MovementSourceSale, Actor: in.Actor, ConsumptionID: c.ID}

	if !menu.IsDerived() {
		locked, err := repos.Menus.LockForUpdate(ctx, menu.ID)
		if err != nil {
			return nil, false, err
		}
		if locked == nil {
			return nil, false, domain.ErrNotFound
		}
		mov, err := uc.ledger.debitMenu(ctx, repos, locked, in.Portions, meta)
		if err != nil {
			return nil, false, err
		}
		c.Lines = []entity.ConsumptionLine{{MenuID: menu.ID, Quantity: in.Portions, MovementID: mov.ID}}
	} else {
		lines, err := repos.Compositions.ListByMenu(ctx, menu.ID)
		if err != nil {
			return nil, false, err
		}
		if len(lines) == 0 {
			return nil, false, domain.NewInsufficientStock(menu.ID, in.Portions, decimal.Zero)
		}
		reqs, _, err := requirements(ctx, repos, lines)
		if err != nil {
			return nil, false, err
		}

		ids := make([]string, 0, len(reqs))
		for _, r := range reqs {
			ids = append(ids, r.IngredientID)
		}
		locked, err := lockIngredients(ctx, repos, ids)
		if err != nil {
			return nil, false, err
		}

		// Todo se verifica antes de la primera escritura.
		for _, r := range reqs {
			ing := locked[r.IngredientID]
			need := r.PerPortion.Mul(in.Portions)
			if !ing.Active {
				return nil, false, domain.NewInsufficientStock(ing.ID, need, decimal.Zero)
			}
			if need.GreaterThan(ing.AvailableStock) {
				return nil, false, domain.NewInsufficientStock(ing.ID, need, ing.AvailableStock)
			}
		}

		for i, r := range reqs {
			ing := locked[r.IngredientID]
			need := r.PerPortion.Mul(in.Portions)
			mov, allocations, err := uc.ledger.debit(ctx, repos, ing, need, entity.MovementTypeOut, meta)
			if err != nil {
				return nil, false, err
			}
			c.Lines = append(c.Lines, entity.ConsumptionLine{
				Position:     i,
				IngredientID: ing.ID,
				Quantity:     need,
				MovementID:   mov.ID,
				Allocations:  allocations,
			})
		}
	}

	if err := repos.Consumptions.Create(ctx, c); err != nil {
		return nil, false, err
	}
	return c, false, nil
}

// Reverse revierte un consumo: repone cada ingrediente en los mismos lotes de los que se
// tomó, en orden inverso a la asignación original. Un consumo ya revertido falla con
// ErrAlreadyReversed y no cambia nada.
func (uc *ConsumptionUseCase) Reverse(ctx context.Context, consumptionID, actor string) (*entity.Consumption, error) {
	if consumptionID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	var result *entity.Consumption
	err := uc.opts.withRetry(ctx, "reverse", func() error {
		return uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			var err error
			result, err = uc.reverseInTx(ctx, repos, consumptionID, actor)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	uc.opts.Logger.Info().
		Str("consumption_id", result.ID).
		Str("menu_id", result.MenuID).
		Str("actor", actor).
		Msg("consumo revertido")
	uc.opts.afterCommit(ctx, consumptionEvents(EventConsumptionReversed, result, actor))
	return result, nil
}

func (uc *ConsumptionUseCase) reverseInTx(ctx context.Context, repos TxRepos, consumptionID, actor string) (*entity.Consumption, error) {
	c, err := repos.Consumptions.LockForUpdate(ctx, consumptionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	if c.IsReversed() {
		return nil, domain.ErrAlreadyReversed
	}
	if err := loadAllocations(ctx, repos, c); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.IngredientID != "" {
			ids = append(ids, l.IngredientID)
		}
	}
	var locked map[string]*entity.Ingredient
	if len(ids) > 0 {
		if locked, err = lockIngredients(ctx, repos, ids); err != nil {
			return nil, err
		}
	}

	for _, l := range c.Lines {
		meta := movementMeta{
			Source:        entity.MovementSourceReversal,
			Actor:         actor,
			ConsumptionID: c.ID,
			ReversalOf:    l.MovementID,
		}
		if l.MenuID != "" {
			menu, err := repos.Menus.LockForUpdate(ctx, l.MenuID)
			if err != nil {
				return nil, err
			}
			if menu == nil {
				return nil, domain.ErrNotFound
			}
			if _, err := uc.ledger.creditMenu(ctx, repos, menu, l.Quantity, entity.MovementTypeAdjustment, meta); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := uc.ledger.restore(ctx, repos, locked[l.IngredientID], l.Quantity, l.Allocations, meta); err != nil {
			return nil, err
		}
	}

	now := uc.opts.Now()
	if err := repos.Consumptions.MarkReversed(ctx, c.ID, now, actor); err != nil {
		return nil, err
	}
	c.ReversedAt = &now
	c.ReversedBy = actor
	return c, nil
}

// GetConsumption devuelve el consumo con las asignaciones a lotes de cada línea.
func (uc *ConsumptionUseCase) GetConsumption(ctx context.Context, id string) (*entity.Consumption, error) {
	var out *entity.Consumption
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		c, err := repos.Consumptions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		if err := loadAllocations(ctx, repos, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func loadAllocations(ctx context.Context, repos TxRepos, c *entity.Consumption) error {
	for i := range c.Lines {
		if c.Lines[i].IngredientID == "" {
			continue
		}
		allocations, err := repos.Batches.ListAllocations(ctx, c.Lines[i].MovementID)
		if err != nil {
			return err
		}
		c.Lines[i].Allocations = allocations
	}
	return nil
}

func consumptionEvents(eventType string, c *entity.Consumption, actor string) []LedgerEvent {
	occurred := c.CreatedAt
	if c.ReversedAt != nil {
		occurred = *c.ReversedAt
	}
	events := make([]LedgerEvent, 0, len(c.Lines))
	for _, l := range c.Lines {
		events = append(events, LedgerEvent{
			Type:          eventType,
			IngredientID:  l.IngredientID,
			MenuID:        l.MenuID,
			MovementID:    l.MovementID,
			ConsumptionID: c.ID,
			Quantity:      l.Quantity,
			Actor:         actor,
			OccurredAt:    occurred,
		})
	}
	return events
}
