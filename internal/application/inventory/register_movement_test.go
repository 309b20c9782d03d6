package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddStock_ConCompraAbreLote(t *testing.T) {
	f := newFixture(t)

	res := f.purchase(t, "arroz", 10, 20)
	require.NotNil(t, res.Batch)
	assert.Equal(t, entity.MovementTypeIn, res.Movement.Type)
	assert.Equal(t, res.Batch.ID, res.Movement.BatchID)
	assert.Equal(t, res.Movement.ID, res.Batch.MovementID)
	require.NotNil(t, res.Batch.UnitCost)
	assert.True(t, res.Batch.UnitCost.Equal(dec(2)))
	assert.Equal(t, fixedNow, res.Movement.CreatedAt)

	assert.True(t, f.stock(t, "arroz").Equal(dec(10)))
	f.requireLedgerConsistent(t, "arroz")
	assert.Len(t, f.events.ofType(inventory.EventMovementRecorded), 1)
	assert.Equal(t, 1, f.cache.invalidations())
}

func TestAddStock_SinCompraNoAbreLote(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "leche", 500)

	assert.Empty(t, f.remaining(t, "leche"))
	assert.True(t, f.stock(t, "leche").Equal(dec(500)))
	f.requireLedgerConsistent(t, "leche")
}

func TestAddStock_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   inventory.AddStockInput
		want error
	}{
		{"cantidad cero", inventory.AddStockInput{IngredientID: "arroz", Quantity: dec(0), Actor: actor}, domain.ErrInvalidQuantity},
		{"cantidad negativa", inventory.AddStockInput{IngredientID: "arroz", Quantity: dec(-3), Actor: actor}, domain.ErrInvalidQuantity},
		{"sin actor", inventory.AddStockInput{IngredientID: "arroz", Quantity: dec(1)}, domain.ErrInvalidInput},
		{"ingrediente inexistente", inventory.AddStockInput{IngredientID: "sal", Quantity: dec(1), Actor: actor}, domain.ErrNotFound},
		{"unidad de compra inexistente", inventory.AddStockInput{
			IngredientID: "huevo", Quantity: dec(8), Actor: actor,
			Purchase: &entity.PurchaseInfo{UnitID: "bulto", Quantity: decPtr(1)},
		}, domain.ErrNotFound},
		{"cantidad de compra no positiva", inventory.AddStockInput{
			IngredientID: "huevo", Quantity: dec(8), Actor: actor,
			Purchase: &entity.PurchaseInfo{UnitID: "paquete", Quantity: decPtr(0)},
		}, domain.ErrInvalidQuantity},
		{"precio negativo", inventory.AddStockInput{
			IngredientID: "huevo", Quantity: dec(8), Actor: actor,
			Purchase: &entity.PurchaseInfo{Price: decPtr(-1)},
		}, domain.ErrInvalidInput},
		{"cantidad con más de seis decimales", inventory.AddStockInput{IngredientID: "arroz", Quantity: decStr("1.0000001"), Actor: actor}, domain.ErrInvalidQuantity},
		{"cantidad de compra con más de seis decimales", inventory.AddStockInput{
			IngredientID: "huevo", Quantity: dec(8), Actor: actor,
			Purchase: &entity.PurchaseInfo{UnitID: "paquete", Quantity: decStrPtr("0.0000001")},
		}, domain.ErrInvalidQuantity},
		{"precio con más de seis decimales", inventory.AddStockInput{
			IngredientID: "huevo", Quantity: dec(8), Actor: actor,
			Purchase: &entity.PurchaseInfo{Price: decStrPtr("3.1234567")},
		}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.AddStock(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.events.ofType(inventory.EventMovementRecorded))
}

// TestAddStock_PlantillaSoloSugiere: factor 8, compra de 2 paquetes sugiere 16, pero se
// registra lo que ingresó el operador (15).
func TestAddStock_PlantillaSoloSugiere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	suggested, err := f.registry.SuggestStorageQuantity(ctx, "huevo", "paquete", dec(2))
	require.NoError(t, err)
	assert.True(t, suggested.Equal(dec(16)))

	res, err := f.ledger.AddStock(ctx, inventory.AddStockInput{
		IngredientID: "huevo",
		Quantity:     dec(15),
		Purchase:     &entity.PurchaseInfo{Quantity: decPtr(2), UnitID: "paquete", Price: decPtr(30)},
		Actor:        actor,
	})
	require.NoError(t, err)
	assert.True(t, res.Movement.Quantity.Equal(dec(15)))
	assert.True(t, res.Batch.InboundQuantity.Equal(dec(15)))
	assert.True(t, f.stock(t, "huevo").Equal(dec(15)))

	batches, err := f.ledger.ListBatches(ctx, "huevo")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	cost, ok := batches[0].PurchaseUnitCost()
	require.True(t, ok)
	assert.True(t, cost.Equal(dec(15)), "precio por paquete")
	units, ok := batches[0].EstimateRemainingPurchaseUnits()
	require.True(t, ok)
	assert.True(t, units.Equal(dec(2)))
}

// TestAddStock_LoteDeApertura: el stock sin lote se convierte en un lote más antiguo al
// abrir el primer lote de compra, para que lotes y libro coincidan.
func TestAddStock_LoteDeApertura(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "arroz", 5)
	f.purchase(t, "arroz", 3, 9)

	batches, err := f.ledger.ListBatches(context.Background(), "arroz")
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Empty(t, batches[0].MovementID, "lote de apertura")
	assert.Nil(t, batches[0].UnitCost)
	assert.True(t, batches[0].Remaining.Equal(dec(5)))
	assert.NotEmpty(t, batches[1].MovementID)
	f.requireLedgerConsistent(t, "arroz")

	// Desde ahora toda entrada abre lote, aunque no traiga compra.
	f.receive(t, "arroz", 2)
	requireDecimals(t, []int64{5, 3, 2}, f.remaining(t, "arroz"))
	f.requireLedgerConsistent(t, "arroz")
}

// TestReduceStock_FIFO: A=10, B=5, salida de 12 => A=0, B=3.
func TestReduceStock_FIFO(t *testing.T) {
	f := newFixture(t)
	a := f.purchase(t, "arroz", 10, 20)
	b := f.purchase(t, "arroz", 5, 15)

	res, err := f.ledger.ReduceStock(context.Background(), inventory.ReduceStockInput{
		IngredientID: "arroz", Quantity: dec(12), Note: "merma", Actor: actor,
	})
	require.NoError(t, err)
	assert.True(t, res.Movement.Quantity.Equal(dec(-12)))
	require.Len(t, res.Allocations, 2)
	assert.Equal(t, a.Batch.ID, res.Allocations[0].BatchID)
	assert.True(t, res.Allocations[0].Quantity.Equal(dec(10)))
	assert.Equal(t, b.Batch.ID, res.Allocations[1].BatchID)
	assert.True(t, res.Allocations[1].Quantity.Equal(dec(2)))

	requireDecimals(t, []int64{0, 3}, f.remaining(t, "arroz"))
	f.requireLedgerConsistent(t, "arroz")

	detail, err := f.ledger.GetMovement(context.Background(), res.Movement.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Allocations, 2)
}

func TestReduceStock_NoDejaStockNegativo(t *testing.T) {
	f := newFixture(t)
	f.purchase(t, "huevo", 5, 10)
	ctx := context.Background()

	_, err := f.ledger.ReduceStock(ctx, inventory.ReduceStockInput{IngredientID: "huevo", Quantity: dec(6), Actor: actor})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "huevo", ise.SubjectID)
	assert.True(t, ise.Requested.Equal(dec(6)))
	assert.True(t, ise.Available.Equal(dec(5)))

	_, err = f.ledger.AdjustStock(ctx, inventory.AdjustStockInput{IngredientID: "huevo", Delta: dec(-6), Note: "conteo", Actor: actor})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.True(t, f.stock(t, "huevo").Equal(dec(5)))
	requireDecimals(t, []int64{5}, f.remaining(t, "huevo"))
	f.requireLedgerConsistent(t, "huevo")
}

// TestMovimientos_MasDeSeisDecimales: el libro guarda seis decimales; una salida o ajuste
// más fino se rechaza antes de escribir, así el stock sigue siendo la suma del libro.
func TestMovimientos_MasDeSeisDecimales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "arroz", 10, 20)

	_, err := f.ledger.ReduceStock(ctx, inventory.ReduceStockInput{IngredientID: "arroz", Quantity: decStr("0.0000005"), Actor: actor})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = f.ledger.AdjustStock(ctx, inventory.AdjustStockInput{IngredientID: "arroz", Delta: decStr("-2.1234567"), Note: "conteo", Actor: actor})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = f.ledger.AdjustStock(ctx, inventory.AdjustStockInput{IngredientID: "arroz", Delta: decStr("0.0000001"), Note: "hallazgo", Actor: actor})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	res, err := f.ledger.ReduceStock(ctx, inventory.ReduceStockInput{IngredientID: "arroz", Quantity: decStr("0.000001"), Actor: actor})
	require.NoError(t, err)
	assert.True(t, res.Movement.Quantity.Equal(decStr("-0.000001")))
	assert.True(t, f.stock(t, "arroz").Equal(decStr("9.999999")))
	f.requireLedgerConsistent(t, "arroz")
}

func TestAdjustStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "arroz", 10, 20)
	f.purchase(t, "arroz", 5, 15)

	t.Run("requiere nota", func(t *testing.T) {
		_, err := f.ledger.AdjustStock(ctx, inventory.AdjustStockInput{IngredientID: "arroz", Delta: dec(-1), Actor: actor})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
	t.Run("delta cero", func(t *testing.T) {
		_, err := f.ledger.AdjustStock(ctx, inventory.AdjustStockInput{IngredientID: "arroz", Delta: dec(0), Note: "x", Actor: actor})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})
	t.Run("negativo asigna FIFO", func(t *testing.T) {
		res, err := f.ledger.AdjustStock(ctx, inventory.AdjustStockInput{IngredientID: "arroz", Delta: dec(-11), Note: "conteo físico", Actor: actor})
		require.NoError(t, err)
		assert.Equal(t, entity.MovementTypeAdjustment, res.Movement.Type)
		assert.True(t, res.Movement.Quantity.Equal(dec(-11)))
		require.Len(t, res.Allocations, 2)
		requireDecimals(t, []int64{0, 4}, f.remaining(t, "arroz"))
	})
	t.Run("positivo abre lote sin costo", func(t *testing.T) {
		res, err := f.ledger.AdjustStock(ctx, inventory.AdjustStockInput{IngredientID: "arroz", Delta: dec(3), Note: "hallazgo", Actor: actor})
		require.NoError(t, err)
		assert.True(t, res.Movement.Quantity.Equal(dec(3)))
		requireDecimals(t, []int64{0, 4, 3}, f.remaining(t, "arroz"))
	})
	f.requireLedgerConsistent(t, "arroz")
}

func TestListMovements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, "leche", 100)
	f.receive(t, "leche", 50)
	f.receive(t, "arroz", 7)

	movements, err := f.ledger.ListMovements(ctx, repository.MovementFilter{IngredientID: "leche"})
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.True(t, movements[0].Quantity.Equal(dec(50)), "más reciente primero")

	_, err = f.ledger.ListMovements(ctx, repository.MovementFilter{IngredientID: "sal"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.ledger.GetMovement(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
