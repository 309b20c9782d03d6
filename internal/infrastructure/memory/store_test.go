package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, timeout time.Duration) *memory.Store {
	t.Helper()
	s := memory.NewStore(timeout)
	s.PutUnit(entity.Unit{ID: "g", Name: "gramo", Abbreviation: "g"})
	s.PutIngredient(entity.Ingredient{ID: "harina", Name: "Harina", StorageUnitID: "g", Active: true})
	return s
}

func setStock(ctx context.Context, repos inventory.TxRepos, id string, qty int64) error {
	if _, err := repos.Ingredients.LockForUpdate(ctx, []string{id}); err != nil {
		return err
	}
	return repos.Ingredients.UpdateStock(ctx, id, decimal.NewFromInt(qty), time.Now())
}

func stockOf(t *testing.T, s *memory.Store, id string) decimal.Decimal {
	t.Helper()
	var out decimal.Decimal
	require.NoError(t, s.RunSnapshot(context.Background(), func(ctx context.Context, repos inventory.TxRepos) error {
		ing, err := repos.Ingredients.GetByID(ctx, id)
		if err != nil {
			return err
		}
		out = ing.AvailableStock
		return nil
	}))
	return out
}

func TestStore_RunConfirmaSoloSiNoHayError(t *testing.T) {
	s := newStore(t, 0)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Run(ctx, func(ctx context.Context, repos inventory.TxRepos) error {
		if err := setStock(ctx, repos, "harina", 50); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, stockOf(t, s, "harina").IsZero(), "rollback no debe dejar rastro")

	require.NoError(t, s.Run(ctx, func(ctx context.Context, repos inventory.TxRepos) error {
		return setStock(ctx, repos, "harina", 50)
	}))
	assert.True(t, stockOf(t, s, "harina").Equal(decimal.NewFromInt(50)))
}

func TestStore_TxVeSusPropiasEscrituras(t *testing.T) {
	s := newStore(t, 0)
	require.NoError(t, s.Run(context.Background(), func(ctx context.Context, repos inventory.TxRepos) error {
		if err := setStock(ctx, repos, "harina", 7); err != nil {
			return err
		}
		ing, err := repos.Ingredients.GetByID(ctx, "harina")
		require.NoError(t, err)
		assert.True(t, ing.AvailableStock.Equal(decimal.NewFromInt(7)))
		return nil
	}))
}

func TestStore_BloqueoConEsperaAcotada(t *testing.T) {
	s := newStore(t, 50*time.Millisecond)
	ctx := context.Background()

	locked := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx, func(ctx context.Context, repos inventory.TxRepos) error {
			_, err := repos.Ingredients.LockForUpdate(ctx, []string{"harina"})
			close(locked)
			<-done
			return err
		})
	}()
	<-locked

	err := s.Run(ctx, func(ctx context.Context, repos inventory.TxRepos) error {
		_, err := repos.Ingredients.LockForUpdate(ctx, []string{"harina"})
		return err
	})
	close(done)
	require.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.True(t, domain.IsRetryable(err))
}

func TestStore_EscrituraSinBloqueoEsInconsistencia(t *testing.T) {
	s := newStore(t, 0)
	err := s.Run(context.Background(), func(ctx context.Context, repos inventory.TxRepos) error {
		return repos.Ingredients.UpdateStock(ctx, "harina", decimal.NewFromInt(1), time.Now())
	})
	assert.ErrorIs(t, err, domain.ErrInternalInconsistency)
}

func TestStore_StockNegativoRechazado(t *testing.T) {
	s := newStore(t, 0)
	err := s.Run(context.Background(), func(ctx context.Context, repos inventory.TxRepos) error {
		return setStock(ctx, repos, "harina", -1)
	})
	assert.ErrorIs(t, err, domain.ErrInternalInconsistency)
}

func TestStore_SnapshotEsDeSoloLectura(t *testing.T) {
	s := newStore(t, 0)
	err := s.RunSnapshot(context.Background(), func(ctx context.Context, repos inventory.TxRepos) error {
		_, err := repos.Ingredients.LockForUpdate(ctx, []string{"harina"})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrReadOnly)
}

func TestStore_SnapshotNoVeEscriturasPosteriores(t *testing.T) {
	s := newStore(t, 0)
	ctx := context.Background()

	inSnapshot := make(chan struct{})
	resume := make(chan struct{})
	var seen decimal.Decimal
	errc := make(chan error, 1)
	go func() {
		errc <- s.RunSnapshot(ctx, func(ctx context.Context, repos inventory.TxRepos) error {
			close(inSnapshot)
			<-resume
			ing, err := repos.Ingredients.GetByID(ctx, "harina")
			if err != nil {
				return err
			}
			seen = ing.AvailableStock
			return nil
		})
	}()
	<-inSnapshot
	require.NoError(t, s.Run(ctx, func(ctx context.Context, repos inventory.TxRepos) error {
		return setStock(ctx, repos, "harina", 99)
	}))
	close(resume)
	require.NoError(t, <-errc)
	assert.True(t, seen.IsZero())
}

func TestStore_ReferenciaDeVentaUnicaAlConfirmar(t *testing.T) {
	s := newStore(t, 0)
	ctx := context.Background()
	create := func(id string) error {
		return s.Run(ctx, func(ctx context.Context, repos inventory.TxRepos) error {
			return repos.Consumptions.Create(ctx, &entity.Consumption{
				ID: id, Reference: "venta-1", MenuID: "m", Portions: decimal.NewFromInt(1), CreatedAt: time.Now(),
			})
		})
	}
	require.NoError(t, create("c1"))
	assert.ErrorIs(t, create("c2"), domain.ErrConcurrentModification)
}

func TestStore_SecuenciaDeLotesCreciente(t *testing.T) {
	s := newStore(t, 0)
	require.NoError(t, s.Run(context.Background(), func(ctx context.Context, repos inventory.TxRepos) error {
		if _, err := repos.Ingredients.LockForUpdate(ctx, []string{"harina"}); err != nil {
			return err
		}
		for _, id := range []string{"b1", "b2"} {
			b := &entity.Batch{ID: id, IngredientID: "harina", InboundQuantity: decimal.NewFromInt(5), Remaining: decimal.NewFromInt(5)}
			if err := repos.Batches.Create(ctx, b); err != nil {
				return err
			}
		}
		return nil
	}))
	require.NoError(t, s.RunSnapshot(context.Background(), func(ctx context.Context, repos inventory.TxRepos) error {
		batches, err := repos.Batches.ListByIngredient(ctx, "harina")
		require.NoError(t, err)
		require.Len(t, batches, 2)
		assert.Equal(t, "b1", batches[0].ID)
		assert.Less(t, batches[0].Sequence, batches[1].Sequence)
		return nil
	}))
}
