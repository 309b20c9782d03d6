package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/internal/domain"
)

// tx transacción en memoria. Las lecturas ven primero lo escrito en la propia tx (staged) y
// luego el estado confirmado (o la copia del snapshot).
type tx struct {
	store    *Store
	snapshot *state
	staged   *state
	readOnly bool
	held     map[string]struct{}
}

func (t *tx) repos() inventory.TxRepos {
	return inventory.TxRepos{
		Units:        unitRepo{t},
		Templates:    templateRepo{t},
		Ingredients:  ingredientRepo{t},
		Movements:    movementRepo{t},
		Batches:      batchRepo{t},
		Menus:        menuRepo{t},
		Compositions: compositionRepo{t},
		Consumptions: consumptionRepo{t},
	}
}

// view ejecuta fn sobre el estado base con el lock de lectura tomado.
func (t *tx) view(fn func(s *state)) {
	if t.snapshot != nil {
		fn(t.snapshot)
		return
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	fn(t.store.state)
}

func (t *tx) writable() error {
	if t.readOnly {
		return domain.ErrReadOnly
	}
	return nil
}

// lock toma el bloqueo exclusivo de key hasta el fin de la tx.
func (t *tx) lock(ctx context.Context, key string) error {
	if t.readOnly {
		return domain.ErrReadOnly
	}
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.store.locks.acquire(ctx, key, t.store.lockTimeout); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	return nil
}

// requireLock verifica que la fila se bloqueó antes de escribirla.
func (t *tx) requireLock(key string) error {
	if _, ok := t.held[key]; !ok {
		return fmt.Errorf("%w: escritura sin bloqueo de %s", domain.ErrInternalInconsistency, key)
	}
	return nil
}

func (t *tx) releaseAll() {
	keys := make([]string, 0, len(t.held))
	for k := range t.held {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		t.store.locks.release(k)
	}
	t.held = nil
}

func ingredientKey(id string) string  { return "ingredient:" + id }
func menuKey(id string) string        { return "menu:" + id }
func consumptionKey(id string) string { return "consumption:" + id }
