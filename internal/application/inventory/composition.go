package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// CompositionUseCase deriva disponibilidad y costo de un menú desde su receta.
// Solo lee, sobre un snapshot consistente.
type CompositionUseCase struct {
	txRunner TxRunner
	opts     Options
}

// NewCompositionUseCase construye el caso de uso.
func NewCompositionUseCase(txRunner TxRunner, opts Options) *CompositionUseCase {
	return &CompositionUseCase{txRunner: txRunner, opts: opts.withDefaults()}
}

// LineCost costo FIFO de una línea de receta por porción.
type LineCost struct {
	IngredientID string
	PerPortion   decimal.Decimal // unidades de almacenamiento
	Cost         decimal.Decimal
	Estimated    bool
}

// UnitCostResult costo por porción (HPP) con el detalle por ingrediente.
type UnitCostResult struct {
	MenuID    string
	Total     decimal.Decimal
	Estimated bool // algún tramo se valoró con el precio de referencia
	Lines     []LineCost
}

// CompositionOf devuelve las líneas de receta en orden. Una receta vacía es válida.
func (uc *CompositionUseCase) CompositionOf(ctx context.Context, menuID string) ([]*entity.CompositionLine, error) {
	var out []*entity.CompositionLine
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		if _, err := getMenu(ctx, repos, menuID); err != nil {
			return err
		}
		var err error
		out, err = repos.Compositions.ListByMenu(ctx, menuID)
		return err
	})
	return out, err
}

// EffectiveStock porciones vendibles: el contador propio en modo autogestionado; en modo
// derivado floor(min(stock / porPorción)), 0 si falta un ingrediente o está inactivo.
func (uc *CompositionUseCase) EffectiveStock(ctx context.Context, menuID string) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		menu, err := getMenu(ctx, repos, menuID)
		if err != nil {
			return err
		}
		out, err = effectiveStock(ctx, repos, menu)
		return err
	})
	return out, err
}

// UnitCost costo por porción según los lotes que se consumirían primero (FIFO).
func (uc *CompositionUseCase) UnitCost(ctx context.Context, menuID string) (*UnitCostResult, error) {
	var out *UnitCostResult
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		if _, err := getMenu(ctx, repos, menuID); err != nil {
			return err
		}
		var err error
		out, err = unitCost(ctx, repos, menuID)
		return err
	})
	return out, err
}

// Availability disponibilidad y costo del menú, servidos desde caché cuando es posible.
func (uc *CompositionUseCase) Availability(ctx context.Context, menuID string) (*MenuAvailability, error) {
	if cached, ok, err := uc.opts.Cache.Get(ctx, menuID); err != nil {
		uc.opts.Logger.Warn().Err(err).Str("menu_id", menuID).Msg("caché de disponibilidad no disponible")
	} else if ok {
		return cached, nil
	}

	var out *MenuAvailability
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		menu, err := getMenu(ctx, repos, menuID)
		if err != nil {
			return err
		}
		out, err = availability(ctx, repos, menu, uc.opts.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := uc.opts.Cache.Set(ctx, out); err != nil {
		uc.opts.Logger.Warn().Err(err).Str("menu_id", menuID).Msg("no se pudo cachear la disponibilidad")
	}
	return out, nil
}

func getMenu(ctx context.Context, repos TxRepos, menuID string) (*entity.Menu, error) {
	if menuID == "" {
		return nil, domain.ErrInvalidInput
	}
	menu, err := repos.Menus.GetByID(ctx, menuID)
	if err != nil {
		return nil, err
	}
	if menu == nil {
		return nil, domain.ErrNotFound
	}
	return menu, nil
}

// requirements convierte la receta a unidades de almacenamiento por porción, agregada y
// ordenada por ingrediente. Los ingredientes que no existen se devuelven tal cual (sin
// conversión) para que el llamador decida; ingredients trae los que sí existen.
func requirements(ctx context.Context, repos TxRepos, lines []*entity.CompositionLine) ([]inventory.Requirement, map[string]*entity.Ingredient, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.IngredientID)
	}
	found, err := repos.Ingredients.ListByIDs(ctx, inventory.SortIDs(ids))
	if err != nil {
		return nil, nil, err
	}
	ingredients := make(map[string]*entity.Ingredient, len(found))
	for _, ing := range found {
		ingredients[ing.ID] = ing
	}

	reqs := make([]inventory.Requirement, 0, len(lines))
	for _, l := range lines {
		perPortion := l.Quantity
		ing, ok := ingredients[l.IngredientID]
		if ok && l.UnitID != "" && l.UnitID != ing.StorageUnitID {
			tpl, err := repos.Templates.Get(ctx, l.IngredientID, l.UnitID)
			if err != nil {
				return nil, nil, err
			}
			if tpl == nil {
				return nil, nil, fmt.Errorf("%w: ingrediente %s unidad %s", domain.ErrNotConfigured, l.IngredientID, l.UnitID)
			}
			perPortion = tpl.SuggestStorageQuantity(l.Quantity)
		}
		reqs = append(reqs, inventory.Requirement{IngredientID: l.IngredientID, PerPortion: perPortion})
	}
	reqs = inventory.Aggregate(reqs)
	// La conversión puede dejar más decimales de los que guarda el libro; se descuenta lo
	// mismo que se persiste.
	for i := range reqs {
		reqs[i].PerPortion = inventory.RoundQuantity(reqs[i].PerPortion)
		if !reqs[i].PerPortion.IsPositive() {
			return nil, nil, fmt.Errorf("%w: ingrediente %s: cantidad por porción menor que la precisión del libro",
				domain.ErrNotConfigured, reqs[i].IngredientID)
		}
	}
	return reqs, ingredients, nil
}

func effectiveStock(ctx context.Context, repos TxRepos, menu *entity.Menu) (decimal.Decimal, error) {
	if !menu.IsDerived() {
		return menu.Stock, nil
	}
	lines, err := repos.Compositions.ListByMenu(ctx, menu.ID)
	if err != nil || len(lines) == 0 {
		return decimal.Zero, err
	}
	reqs, ingredients, err := requirements(ctx, repos, lines)
	if err != nil {
		return decimal.Zero, err
	}
	return inventory.EffectiveStock(reqs, ingredients), nil
}

func unitCost(ctx context.Context, repos TxRepos, menuID string) (*UnitCostResult, error) {
	out := &UnitCostResult{MenuID: menuID, Total: decimal.Zero}
	lines, err := repos.Compositions.ListByMenu(ctx, menuID)
	if err != nil || len(lines) == 0 {
		return out, err
	}
	reqs, ingredients, err := requirements(ctx, repos, lines)
	if err != nil {
		return nil, err
	}
	for _, r := range reqs {
		fallback := decimal.Zero
		if ing, ok := ingredients[r.IngredientID]; ok {
			fallback = ing.ReferencePrice
		}
		open, err := repos.Batches.ListOpen(ctx, r.IngredientID)
		if err != nil {
			return nil, err
		}
		cost, estimated := inventory.FIFOCost(open, r.PerPortion, fallback)
		out.Lines = append(out.Lines, LineCost{
			IngredientID: r.IngredientID,
			PerPortion:   r.PerPortion,
			Cost:         cost,
			Estimated:    estimated,
		})
		out.Total = out.Total.Add(cost)
		out.Estimated = out.Estimated || estimated
	}
	return out, nil
}

func availability(ctx context.Context, repos TxRepos, menu *entity.Menu, now time.Time) (*MenuAvailability, error) {
	stock, err := effectiveStock(ctx, repos, menu)
	if err != nil {
		return nil, err
	}
	cost, err := unitCost(ctx, repos, menu.ID)
	if err != nil {
		return nil, err
	}
	return &MenuAvailability{
		MenuID:         menu.ID,
		StockMode:      menu.StockMode,
		EffectiveStock: stock,
		UnitCost:       cost.Total,
		CostEstimated:  cost.Estimated,
		ComputedAt:     now,
	}, nil
}
