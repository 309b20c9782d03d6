// Package memory implementa los puertos de persistencia en memoria, con las mismas garantías
// transaccionales que PostgreSQL: bloqueo por fila con espera acotada, escrituras aplicadas
// en bloque al confirmar y lecturas de snapshot sin bloqueos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var _ inventory.TxRunner = (*Store)(nil)

// DefaultLockTimeout espera máxima por un bloqueo de fila.
const DefaultLockTimeout = 3 * time.Second

type templateKey struct {
	ingredientID string
	unitID       string
}

type state struct {
	units        map[string]entity.Unit
	templates    map[templateKey]entity.ConversionTemplate
	ingredients  map[string]entity.Ingredient
	menus        map[string]entity.Menu
	lines        map[string][]entity.CompositionLine
	movements    map[string]entity.StockMovement
	order        []string // ids de movimientos en orden de inserción
	batches      map[string]entity.Batch
	allocations  map[string][]entity.BatchAllocation // por movimiento
	consumptions map[string]entity.Consumption
	references   map[string]string // referencia de venta -> consumo
}

func newState() *state {
	return &state{
		units:        map[string]entity.Unit{},
		templates:    map[templateKey]entity.ConversionTemplate{},
		ingredients:  map[string]entity.Ingredient{},
		menus:        map[string]entity.Menu{},
		lines:        map[string][]entity.CompositionLine{},
		movements:    map[string]entity.StockMovement{},
		batches:      map[string]entity.Batch{},
		allocations:  map[string][]entity.BatchAllocation{},
		consumptions: map[string]entity.Consumption{},
		references:   map[string]string{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.units {
		c.units[k] = v
	}
	for k, v := range s.templates {
		c.templates[k] = v
	}
	for k, v := range s.ingredients {
		c.ingredients[k] = v
	}
	for k, v := range s.menus {
		c.menus[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = append([]entity.CompositionLine(nil), v...)
	}
	for k, v := range s.movements {
		c.movements[k] = v
	}
	c.order = append([]string(nil), s.order...)
	for k, v := range s.batches {
		c.batches[k] = v
	}
	for k, v := range s.allocations {
		c.allocations[k] = append([]entity.BatchAllocation(nil), v...)
	}
	for k, v := range s.consumptions {
		c.consumptions[k] = cloneConsumption(v)
	}
	for k, v := range s.references {
		c.references[k] = v
	}
	return c
}

func cloneConsumption(c entity.Consumption) entity.Consumption {
	c.Lines = append([]entity.ConsumptionLine(nil), c.Lines...)
	for i := range c.Lines {
		c.Lines[i].Allocations = nil
	}
	if c.ReversedAt != nil {
		at := *c.ReversedAt
		c.ReversedAt = &at
	}
	return c
}

// Store almacenamiento en memoria. Implementa inventory.TxRunner.
type Store struct {
	mu          sync.RWMutex
	state       *state
	locks       *lockTable
	lockTimeout time.Duration
	batchSeq    atomic.Int64
}

// NewStore crea un store vacío. lockTimeout <= 0 usa DefaultLockTimeout.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{state: newState(), locks: newLockTable(), lockTimeout: lockTimeout}
}

// Run ejecuta fn en una transacción: las escrituras quedan en el tx y se aplican juntas solo
// si fn devuelve nil. Los bloqueos se liberan al terminar, confirme o no.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.TxRepos) error) error {
	t := &tx{store: s, staged: newState(), held: map[string]struct{}{}}
	defer t.releaseAll()
	if err := fn(ctx, t.repos()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(t)
}

// RunSnapshot ejecuta fn sobre una copia consistente del estado; no toma bloqueos de fila y
// cualquier escritura falla con domain.ErrReadOnly.
func (s *Store) RunSnapshot(ctx context.Context, fn func(ctx context.Context, repos inventory.TxRepos) error) error {
	s.mu.RLock()
	snap := s.state.clone()
	s.mu.RUnlock()
	t := &tx{store: s, snapshot: snap, readOnly: true}
	return fn(ctx, t.repos())
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ref, id := range t.staged.references {
		if other, ok := s.state.references[ref]; ok && other != id {
			return fmt.Errorf("%w: referencia de venta %s ya aplicada", domain.ErrConcurrentModification, ref)
		}
	}

	st := s.state
	for k, v := range t.staged.ingredients {
		st.ingredients[k] = v
	}
	for k, v := range t.staged.menus {
		st.menus[k] = v
	}
	for _, id := range t.staged.order {
		st.movements[id] = t.staged.movements[id]
		st.order = append(st.order, id)
	}
	for k, v := range t.staged.batches {
		st.batches[k] = v
	}
	for k, v := range t.staged.allocations {
		st.allocations[k] = append(st.allocations[k], v...)
	}
	for k, v := range t.staged.consumptions {
		st.consumptions[k] = v
	}
	for k, v := range t.staged.references {
		st.references[k] = v
	}
	return nil
}

// PutUnit registra una unidad (dato de configuración).
func (s *Store) PutUnit(u entity.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.units[u.ID] = u
}

// PutTemplate registra una plantilla de conversión.
func (s *Store) PutTemplate(t entity.ConversionTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.templates[templateKey{t.IngredientID, t.TargetUnitID}] = t
}

// PutIngredient registra un ingrediente. El stock inicial debe cargarse con movimientos;
// AvailableStock se ignora y queda en cero.
func (s *Store) PutIngredient(ing entity.Ingredient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.state.ingredients[ing.ID]; ok {
		ing.AvailableStock = cur.AvailableStock
	} else {
		ing.AvailableStock = decimal.Zero
	}
	s.state.ingredients[ing.ID] = ing
}

// PutMenu registra un menú. Igual que con los ingredientes, el contador solo cambia por el
// libro: un menú nuevo arranca en cero y uno existente conserva el suyo.
func (s *Store) PutMenu(m entity.Menu) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.state.menus[m.ID]; ok {
		m.Stock = cur.Stock
	} else {
		m.Stock = decimal.Zero
	}
	s.state.menus[m.ID] = m
}

// SetComposition reemplaza la receta de un menú.
func (s *Store) SetComposition(menuID string, lines []entity.CompositionLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]entity.CompositionLine(nil), lines...)
	for i := range cp {
		cp[i].MenuID = menuID
	}
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Position < cp[j].Position })
	s.state.lines[menuID] = cp
}
