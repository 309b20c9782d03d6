package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/domain"
)

// lockTable bloqueos exclusivos por clave ("ingredient:<id>", "menu:<id>"...), con espera
// acotada. Equivale al SELECT ... FOR UPDATE con lock_timeout de PostgreSQL.
type lockTable struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{held: make(map[string]chan struct{})}
}

// acquire espera hasta timeout por la clave. Vencido el plazo devuelve
// domain.ErrConcurrentModification; si ctx se cancela, el error de ctx.
func (t *lockTable) acquire(ctx context.Context, key string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		t.mu.Lock()
		ch, busy := t.held[key]
		if !busy {
			t.held[key] = make(chan struct{})
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		select {
		case <-ch:
		case <-timer.C:
			return fmt.Errorf("%w: %s", domain.ErrConcurrentModification, key)
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s", domain.ErrConcurrentModification, key)
			}
			return ctx.Err()
		}
	}
}

func (t *lockTable) release(key string) {
	t.mu.Lock()
	ch, ok := t.held[key]
	delete(t.held, key)
	t.mu.Unlock()
	if ok {
		close(ch)
	}
}
