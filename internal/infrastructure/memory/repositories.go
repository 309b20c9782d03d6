package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.UnitRepository               = unitRepo{}
	_ repository.ConversionTemplateRepository = templateRepo{}
	_ repository.IngredientRepository         = ingredientRepo{}
	_ repository.StockMovementRepository      = movementRepo{}
	_ repository.BatchRepository              = batchRepo{}
	_ repository.MenuRepository               = menuRepo{}
	_ repository.CompositionRepository        = compositionRepo{}
	_ repository.ConsumptionRepository        = consumptionRepo{}
)

// --- unidades y plantillas ---

type unitRepo struct{ t *tx }

func (r unitRepo) GetByID(_ context.Context, id string) (*entity.Unit, error) {
	var out *entity.Unit
	r.t.view(func(s *state) {
		if u, ok := s.units[id]; ok {
			out = &u
		}
	})
	return out, nil
}

func (r unitRepo) List(_ context.Context) ([]*entity.Unit, error) {
	var out []*entity.Unit
	r.t.view(func(s *state) {
		for _, u := range s.units {
			u := u
			out = append(out, &u)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type templateRepo struct{ t *tx }

func (r templateRepo) Get(_ context.Context, ingredientID, unitID string) (*entity.ConversionTemplate, error) {
	var out *entity.ConversionTemplate
	r.t.view(func(s *state) {
		if tpl, ok := s.templates[templateKey{ingredientID, unitID}]; ok {
			out = &tpl
		}
	})
	return out, nil
}

func (r templateRepo) ListByIngredient(_ context.Context, ingredientID string) ([]*entity.ConversionTemplate, error) {
	var out []*entity.ConversionTemplate
	r.t.view(func(s *state) {
		for k, tpl := range s.templates {
			if k.ingredientID == ingredientID {
				tpl := tpl
				out = append(out, &tpl)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].TargetUnitID < out[j].TargetUnitID })
	return out, nil
}

// --- ingredientes ---

type ingredientRepo struct{ t *tx }

func (r ingredientRepo) get(id string) (*entity.Ingredient, bool) {
	if r.t.staged != nil {
		if ing, ok := r.t.staged.ingredients[id]; ok {
			return &ing, true
		}
	}
	var out *entity.Ingredient
	r.t.view(func(s *state) {
		if ing, ok := s.ingredients[id]; ok {
			out = &ing
		}
	})
	return out, out != nil
}

func (r ingredientRepo) GetByID(_ context.Context, id string) (*entity.Ingredient, error) {
	ing, _ := r.get(id)
	return ing, nil
}

func (r ingredientRepo) ListByIDs(_ context.Context, ids []string) ([]*entity.Ingredient, error) {
	out := make([]*entity.Ingredient, 0, len(ids))
	for _, id := range ids {
		if ing, ok := r.get(id); ok {
			out = append(out, ing)
		}
	}
	return out, nil
}

func (r ingredientRepo) LockForUpdate(ctx context.Context, ids []string) ([]*entity.Ingredient, error) {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)
	out := make([]*entity.Ingredient, 0, len(ordered))
	for _, id := range ordered {
		if err := r.t.lock(ctx, ingredientKey(id)); err != nil {
			return nil, err
		}
		if ing, ok := r.get(id); ok {
			out = append(out, ing)
		}
	}
	return out, nil
}

func (r ingredientRepo) UpdateStock(_ context.Context, id string, stock decimal.Decimal, updatedAt time.Time) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if err := r.t.requireLock(ingredientKey(id)); err != nil {
		return err
	}
	if stock.IsNegative() {
		return fmt.Errorf("%w: stock negativo para %s", domain.ErrInternalInconsistency, id)
	}
	ing, ok := r.get(id)
	if !ok {
		return domain.ErrNotFound
	}
	ing.AvailableStock = stock
	ing.UpdatedAt = updatedAt
	r.t.staged.ingredients[id] = *ing
	return nil
}

// --- libro de movimientos ---

type movementRepo struct{ t *tx }

func (r movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if (m.IngredientID == "") == (m.MenuID == "") {
		return fmt.Errorf("%w: movimiento sin sujeto único", domain.ErrInvalidInput)
	}
	if _, ok := r.lookup(m.ID); ok {
		return fmt.Errorf("%w: movimiento %s duplicado", domain.ErrInternalInconsistency, m.ID)
	}
	r.t.staged.movements[m.ID] = *m
	r.t.staged.order = append(r.t.staged.order, m.ID)
	return nil
}

func (r movementRepo) lookup(id string) (entity.StockMovement, bool) {
	if r.t.staged != nil {
		if m, ok := r.t.staged.movements[id]; ok {
			return m, true
		}
	}
	var (
		out   entity.StockMovement
		found bool
	)
	r.t.view(func(s *state) { out, found = s.movements[id] })
	return out, found
}

func (r movementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	m, ok := r.lookup(id)
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// all devuelve todos los movimientos visibles en orden de inserción.
func (r movementRepo) all() []entity.StockMovement {
	var out []entity.StockMovement
	r.t.view(func(s *state) {
		out = make([]entity.StockMovement, 0, len(s.order))
		for _, id := range s.order {
			out = append(out, s.movements[id])
		}
	})
	if r.t.staged != nil {
		for _, id := range r.t.staged.order {
			out = append(out, r.t.staged.movements[id])
		}
	}
	return out
}

func inRange(at time.Time, from, to *time.Time) bool {
	if from != nil && at.Before(*from) {
		return false
	}
	if to != nil && at.After(*to) {
		return false
	}
	return true
}

func (r movementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	all := r.all()
	out := make([]*entity.StockMovement, 0)
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if f.IngredientID != "" && m.IngredientID != f.IngredientID {
			continue
		}
		if f.MenuID != "" && m.MenuID != f.MenuID {
			continue
		}
		if !inRange(m.CreatedAt, f.From, f.To) {
			continue
		}
		out = append(out, &m)
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*entity.StockMovement{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r movementRepo) TotalsByIngredient(_ context.Context, from, to *time.Time) ([]entity.MovementTotals, error) {
	byID := map[string]*entity.MovementTotals{}
	for _, m := range r.all() {
		if m.IngredientID == "" || !inRange(m.CreatedAt, from, to) {
			continue
		}
		tot, ok := byID[m.IngredientID]
		if !ok {
			tot = &entity.MovementTotals{IngredientID: m.IngredientID}
			byID[m.IngredientID] = tot
		}
		switch m.Type {
		case entity.MovementTypeIn:
			tot.In = tot.In.Add(m.Quantity)
		case entity.MovementTypeOut:
			tot.Out = tot.Out.Sub(m.Quantity)
		case entity.MovementTypeAdjustment:
			tot.Adjustment = tot.Adjustment.Add(m.Quantity)
		}
		tot.Net = tot.Net.Add(m.Quantity)
		tot.Count++
	}
	out := make([]entity.MovementTotals, 0, len(byID))
	for _, tot := range byID {
		out = append(out, *tot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngredientID < out[j].IngredientID })
	return out, nil
}

// --- lotes ---

type batchRepo struct{ t *tx }

func (r batchRepo) Create(_ context.Context, b *entity.Batch) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if err := r.t.requireLock(ingredientKey(b.IngredientID)); err != nil {
		return err
	}
	if b.Remaining.IsNegative() || b.Remaining.GreaterThan(b.InboundQuantity) {
		return fmt.Errorf("%w: remanente fuera de rango en lote %s", domain.ErrInternalInconsistency, b.ID)
	}
	b.Sequence = r.t.store.batchSeq.Add(1)
	r.t.staged.batches[b.ID] = *b
	return nil
}

// visible devuelve los lotes que cumplen keep, con lo escrito en la tx encima del estado base.
func (r batchRepo) visible(keep func(b entity.Batch) bool) []*entity.Batch {
	merged := map[string]entity.Batch{}
	r.t.view(func(s *state) {
		for id, b := range s.batches {
			if keep(b) {
				merged[id] = b
			}
		}
	})
	if r.t.staged != nil {
		for id, b := range r.t.staged.batches {
			if keep(b) {
				merged[id] = b
			} else {
				delete(merged, id)
			}
		}
	}
	out := make([]*entity.Batch, 0, len(merged))
	for _, b := range merged {
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (r batchRepo) Exists(_ context.Context, ingredientID string) (bool, error) {
	return len(r.visible(func(b entity.Batch) bool { return b.IngredientID == ingredientID })) > 0, nil
}

func (r batchRepo) ListOpen(_ context.Context, ingredientID string) ([]*entity.Batch, error) {
	return r.visible(func(b entity.Batch) bool {
		return b.IngredientID == ingredientID && b.Remaining.IsPositive()
	}), nil
}

func (r batchRepo) ListByIngredient(_ context.Context, ingredientID string) ([]*entity.Batch, error) {
	return r.visible(func(b entity.Batch) bool { return b.IngredientID == ingredientID }), nil
}

func (r batchRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Batch, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return r.visible(func(b entity.Batch) bool {
		_, ok := want[b.ID]
		return ok
	}), nil
}

func (r batchRepo) UpdateRemaining(_ context.Context, id string, remaining decimal.Decimal) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	found := r.visible(func(b entity.Batch) bool { return b.ID == id })
	if len(found) == 0 {
		return domain.ErrNotFound
	}
	b := found[0]
	if err := r.t.requireLock(ingredientKey(b.IngredientID)); err != nil {
		return err
	}
	if remaining.IsNegative() || remaining.GreaterThan(b.InboundQuantity) {
		return fmt.Errorf("%w: remanente fuera de rango en lote %s", domain.ErrInternalInconsistency, id)
	}
	b.Remaining = remaining
	r.t.staged.batches[id] = *b
	return nil
}

func (r batchRepo) CreateAllocations(_ context.Context, allocations []entity.BatchAllocation) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	for _, a := range allocations {
		if a.MovementID == "" || a.BatchID == "" || !a.Quantity.IsPositive() {
			return fmt.Errorf("%w: asignación inválida", domain.ErrInternalInconsistency)
		}
		r.t.staged.allocations[a.MovementID] = append(r.t.staged.allocations[a.MovementID], a)
	}
	return nil
}

func (r batchRepo) ListAllocations(_ context.Context, movementID string) ([]entity.BatchAllocation, error) {
	var out []entity.BatchAllocation
	r.t.view(func(s *state) {
		out = append(out, s.allocations[movementID]...)
	})
	if r.t.staged != nil {
		out = append(out, r.t.staged.allocations[movementID]...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// --- menús y recetas ---

type menuRepo struct{ t *tx }

func (r menuRepo) get(id string) (*entity.Menu, bool) {
	if r.t.staged != nil {
		if m, ok := r.t.staged.menus[id]; ok {
			return &m, true
		}
	}
	var out *entity.Menu
	r.t.view(func(s *state) {
		if m, ok := s.menus[id]; ok {
			out = &m
		}
	})
	return out, out != nil
}

func (r menuRepo) GetByID(_ context.Context, id string) (*entity.Menu, error) {
	m, _ := r.get(id)
	return m, nil
}

func (r menuRepo) List(_ context.Context) ([]*entity.Menu, error) {
	merged := map[string]entity.Menu{}
	r.t.view(func(s *state) {
		for id, m := range s.menus {
			merged[id] = m
		}
	})
	if r.t.staged != nil {
		for id, m := range r.t.staged.menus {
			merged[id] = m
		}
	}
	out := make([]*entity.Menu, 0, len(merged))
	for _, m := range merged {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !strings.EqualFold(out[i].Name, out[j].Name) {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r menuRepo) LockForUpdate(ctx context.Context, id string) (*entity.Menu, error) {
	if err := r.t.lock(ctx, menuKey(id)); err != nil {
		return nil, err
	}
	m, _ := r.get(id)
	return m, nil
}

func (r menuRepo) UpdateStock(_ context.Context, id string, stock decimal.Decimal, updatedAt time.Time) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if err := r.t.requireLock(menuKey(id)); err != nil {
		return err
	}
	if stock.IsNegative() {
		return fmt.Errorf("%w: contador negativo para menú %s", domain.ErrInternalInconsistency, id)
	}
	m, ok := r.get(id)
	if !ok {
		return domain.ErrNotFound
	}
	m.Stock = stock
	m.UpdatedAt = updatedAt
	r.t.staged.menus[id] = *m
	return nil
}

func (r menuRepo) Upsert(_ context.Context, m *entity.Menu) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if err := r.t.requireLock(menuKey(m.ID)); err != nil {
		return err
	}
	if m.Stock.IsNegative() || !entity.ValidStockMode(m.StockMode) {
		return domain.ErrInvalidInput
	}
	r.t.staged.menus[m.ID] = *m
	return nil
}

type compositionRepo struct{ t *tx }

func (r compositionRepo) ListByMenu(_ context.Context, menuID string) ([]*entity.CompositionLine, error) {
	var out []*entity.CompositionLine
	r.t.view(func(s *state) {
		for _, l := range s.lines[menuID] {
			l := l
			out = append(out, &l)
		}
	})
	return out, nil
}

// --- consumos ---

type consumptionRepo struct{ t *tx }

func (r consumptionRepo) get(id string) (*entity.Consumption, bool) {
	if r.t.staged != nil {
		if c, ok := r.t.staged.consumptions[id]; ok {
			c = cloneConsumption(c)
			return &c, true
		}
	}
	var out *entity.Consumption
	r.t.view(func(s *state) {
		if c, ok := s.consumptions[id]; ok {
			c = cloneConsumption(c)
			out = &c
		}
	})
	return out, out != nil
}

func (r consumptionRepo) Create(_ context.Context, c *entity.Consumption) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if _, ok := r.get(c.ID); ok {
		return fmt.Errorf("%w: consumo %s duplicado", domain.ErrInternalInconsistency, c.ID)
	}
	if c.Reference != "" {
		if prev, _ := r.GetByReference(context.Background(), c.Reference); prev != nil {
			return fmt.Errorf("%w: referencia de venta %s ya aplicada", domain.ErrConcurrentModification, c.Reference)
		}
		r.t.staged.references[c.Reference] = c.ID
	}
	r.t.staged.consumptions[c.ID] = cloneConsumption(*c)
	return nil
}

func (r consumptionRepo) GetByID(_ context.Context, id string) (*entity.Consumption, error) {
	c, _ := r.get(id)
	return c, nil
}

func (r consumptionRepo) GetByReference(_ context.Context, reference string) (*entity.Consumption, error) {
	var id string
	if r.t.staged != nil {
		id = r.t.staged.references[reference]
	}
	if id == "" {
		r.t.view(func(s *state) { id = s.references[reference] })
	}
	if id == "" {
		return nil, nil
	}
	c, _ := r.get(id)
	return c, nil
}

func (r consumptionRepo) LockForUpdate(ctx context.Context, id string) (*entity.Consumption, error) {
	if err := r.t.lock(ctx, consumptionKey(id)); err != nil {
		return nil, err
	}
	c, _ := r.get(id)
	return c, nil
}

func (r consumptionRepo) MarkReversed(_ context.Context, id string, at time.Time, by string) error {
	if err := r.t.writable(); err != nil {
		return err
	}
	if err := r.t.requireLock(consumptionKey(id)); err != nil {
		return err
	}
	c, ok := r.get(id)
	if !ok {
		return domain.ErrNotFound
	}
	if c.IsReversed() {
		return domain.ErrAlreadyReversed
	}
	c.ReversedAt = &at
	c.ReversedBy = by
	r.t.staged.consumptions[id] = *c
	return nil
}
