package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jhoicas/inventario-cocina/internal/application/dto"
	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConsume_FIFOyReversionExacta: A=10, B=5; consumir 12 => A=0, B=3; revertir => A=10, B=5.
func TestConsume_FIFOyReversionExacta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "arroz", 10, 20)
	f.purchase(t, "arroz", 5, 15)
	f.derivedMenu(t, "arroz-blanco", 40, line("arroz", 12))

	c, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "arroz-blanco", Portions: dec(1), Actor: actor})
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.True(t, c.Lines[0].Quantity.Equal(dec(12)))
	require.Len(t, c.Lines[0].Allocations, 2)
	requireDecimals(t, []int64{0, 3}, f.remaining(t, "arroz"))
	f.requireLedgerConsistent(t, "arroz")

	reversed, err := f.consumption.Reverse(ctx, c.ID, "supervisor")
	require.NoError(t, err)
	assert.True(t, reversed.IsReversed())
	assert.Equal(t, "supervisor", reversed.ReversedBy)

	requireDecimals(t, []int64{10, 5}, f.remaining(t, "arroz"))
	assert.True(t, f.stock(t, "arroz").Equal(dec(15)))
	f.requireLedgerConsistent(t, "arroz")

	movements, err := f.ledger.ListMovements(ctx, repository.MovementFilter{IngredientID: "arroz"})
	require.NoError(t, err)
	require.Len(t, movements, 4)
	rev := movements[0]
	assert.Equal(t, entity.MovementTypeAdjustment, rev.Type)
	assert.Equal(t, entity.MovementSourceReversal, rev.Source)
	assert.Equal(t, c.Lines[0].MovementID, rev.ReversalOf)
	assert.Equal(t, c.ID, rev.ConsumptionID)

	assert.Len(t, f.events.ofType(inventory.EventConsumptionApplied), 1)
	assert.Len(t, f.events.ofType(inventory.EventConsumptionReversed), 1)
}

// TestConsume_TodoONada: huevo=5, arroz=10; receta 2 huevos + 1 arroz; 3 porciones piden
// 6 huevos y la venta falla sin tocar ningún ingrediente.
func TestConsume_TodoONada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "huevo", 5, 10)
	f.purchase(t, "arroz", 10, 10)
	f.derivedMenu(t, "arroz-con-huevo", 12, line("huevo", 2), line("arroz", 1))

	before := len(f.events.ofType(inventory.EventMovementRecorded))
	_, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "arroz-con-huevo", Portions: dec(3), Actor: actor})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "huevo", ise.SubjectID)
	assert.True(t, ise.Requested.Equal(dec(6)))
	assert.True(t, ise.Available.Equal(dec(5)))

	assert.True(t, f.stock(t, "huevo").Equal(dec(5)))
	assert.True(t, f.stock(t, "arroz").Equal(dec(10)))
	requireDecimals(t, []int64{10}, f.remaining(t, "arroz"))
	for _, id := range []string{"huevo", "arroz"} {
		movements, err := f.ledger.ListMovements(ctx, repository.MovementFilter{IngredientID: id})
		require.NoError(t, err)
		assert.Len(t, movements, 1, "solo la entrada de %s", id)
	}
	assert.Len(t, f.events.ofType(inventory.EventMovementRecorded), before)
	assert.Empty(t, f.events.ofType(inventory.EventConsumptionApplied))

	stock, err := f.composition.EffectiveStock(ctx, "arroz-con-huevo")
	require.NoError(t, err)
	assert.True(t, stock.Equal(dec(2)))

	c, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "arroz-con-huevo", Portions: dec(2), Actor: actor})
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2)
	assert.True(t, f.stock(t, "huevo").Equal(dec(1)))
	assert.True(t, f.stock(t, "arroz").Equal(dec(8)))
	f.requireLedgerConsistent(t, "huevo")
	f.requireLedgerConsistent(t, "arroz")
}

func TestConsume_ReferenciaIdempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "huevo", 10, 20)
	f.derivedMenu(t, "tortilla", 8, line("huevo", 3))

	in := inventory.ConsumeInput{MenuID: "tortilla", Portions: dec(1), Actor: actor, Reference: "venta-42"}
	first, err := f.consumption.Consume(ctx, in)
	require.NoError(t, err)
	second, err := f.consumption.Consume(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, f.stock(t, "huevo").Equal(dec(7)))
	assert.Len(t, f.events.ofType(inventory.EventConsumptionApplied), 1)
	require.Len(t, second.Lines, 1)
	assert.Len(t, second.Lines[0].Allocations, 1)
}

// TestConsume_ReferenciaDeOtraVenta: reusar la referencia con otro menú u otras porciones
// falla y no devuelve el consumo anterior.
func TestConsume_ReferenciaDeOtraVenta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "huevo", 10, 20)
	f.derivedMenu(t, "tortilla", 8, line("huevo", 3))
	f.derivedMenu(t, "revuelto", 6, line("huevo", 2))

	_, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "tortilla", Portions: dec(1), Actor: actor, Reference: "venta-42"})
	require.NoError(t, err)

	_, err = f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "revuelto", Portions: dec(1), Actor: actor, Reference: "venta-42"})
	assert.ErrorIs(t, err, domain.ErrReferenceConflict)
	_, err = f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "tortilla", Portions: dec(2), Actor: actor, Reference: "venta-42"})
	assert.ErrorIs(t, err, domain.ErrReferenceConflict)

	assert.True(t, f.stock(t, "huevo").Equal(dec(7)))
	assert.Len(t, f.events.ofType(inventory.EventConsumptionApplied), 1)
	f.requireLedgerConsistent(t, "huevo")
}

// TestConsume_PorcionesFraccionarias: el stock efectivo cuenta porciones enteras, así que
// media porción se rechaza sin tocar stock.
func TestConsume_PorcionesFraccionarias(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "huevo", 1, 2)
	f.derivedMenu(t, "revuelto", 6, line("huevo", 2))

	effective, err := f.composition.EffectiveStock(ctx, "revuelto")
	require.NoError(t, err)
	assert.True(t, effective.IsZero())

	_, err = f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "revuelto", Portions: decimal.RequireFromString("0.5"), Actor: actor})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.True(t, f.stock(t, "huevo").Equal(dec(1)))
	assert.Empty(t, f.events.ofType(inventory.EventConsumptionApplied))
}

// TestConsume_IngredienteInexistente: una línea que apunta a un ingrediente que no existe
// deja el stock efectivo en 0 y el consumo falla con ErrNotFound sin escribir movimientos.
func TestConsume_IngredienteInexistente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "huevo", 10, 20)
	f.derivedMenu(t, "huevo-con-sal", 4, line("huevo", 1), line("sal", 1))

	effective, err := f.composition.EffectiveStock(ctx, "huevo-con-sal")
	require.NoError(t, err)
	assert.True(t, effective.IsZero())

	_, err = f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "huevo-con-sal", Portions: dec(1), Actor: actor})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, errors.Is(err, domain.ErrInsufficientStock))

	movements, err := f.ledger.ListMovements(ctx, repository.MovementFilter{IngredientID: "huevo"})
	require.NoError(t, err)
	assert.Len(t, movements, 1, "solo la compra")
	assert.True(t, f.stock(t, "huevo").Equal(dec(10)))
}

func TestReverse_UnaSolaVez(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "huevo", 10, 20)
	f.derivedMenu(t, "tortilla", 8, line("huevo", 3))

	c, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "tortilla", Portions: dec(2), Actor: actor})
	require.NoError(t, err)
	_, err = f.consumption.Reverse(ctx, c.ID, actor)
	require.NoError(t, err)

	_, err = f.consumption.Reverse(ctx, c.ID, actor)
	assert.ErrorIs(t, err, domain.ErrAlreadyReversed)
	assert.True(t, f.stock(t, "huevo").Equal(dec(10)))
	f.requireLedgerConsistent(t, "huevo")

	_, err = f.consumption.Reverse(ctx, "no-existe", actor)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.consumption.GetConsumption(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsReversed())
}

// TestReverse_SinLotes: un ingrediente sin lotes se repone como ajuste positivo.
func TestReverse_SinLotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, "leche", 1000)
	f.derivedMenu(t, "cafe-con-leche", 5, line("leche", 150))

	c, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "cafe-con-leche", Portions: dec(2), Actor: actor})
	require.NoError(t, err)
	assert.Empty(t, c.Lines[0].Allocations)
	assert.True(t, f.stock(t, "leche").Equal(dec(700)))

	_, err = f.consumption.Reverse(ctx, c.ID, actor)
	require.NoError(t, err)
	assert.True(t, f.stock(t, "leche").Equal(dec(1000)))
	assert.Empty(t, f.remaining(t, "leche"))
	f.requireLedgerConsistent(t, "leche")
}

func TestConsume_Errores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "huevo", 10, 20)
	f.derivedMenu(t, "vacio", 5)
	f.derivedMenu(t, "con-caja", 5, entity.CompositionLine{IngredientID: "leche", Quantity: dec(1), UnitID: "caja"})
	f.derivedMenu(t, "fantasma", 5, line("sal", 1))

	t.Run("porciones no positivas", func(t *testing.T) {
		_, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "vacio", Portions: dec(0), Actor: actor})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})
	t.Run("menú inexistente", func(t *testing.T) {
		_, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "nada", Portions: dec(1), Actor: actor})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
	t.Run("receta vacía", func(t *testing.T) {
		_, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "vacio", Portions: dec(1), Actor: actor})
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	})
	t.Run("unidad sin plantilla", func(t *testing.T) {
		_, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "con-caja", Portions: dec(1), Actor: actor})
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
	})
	t.Run("ingrediente inexistente", func(t *testing.T) {
		_, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "fantasma", Portions: dec(1), Actor: actor})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
	t.Run("ingrediente inactivo", func(t *testing.T) {
		f.store.PutIngredient(entity.Ingredient{ID: "huevo", Name: "Huevo", StorageUnitID: "u", Active: false})
		f.derivedMenu(t, "huevo-duro", 3, line("huevo", 1))
		_, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "huevo-duro", Portions: dec(1), Actor: actor})
		var ise *domain.InsufficientStockError
		require.True(t, errors.As(err, &ise))
		assert.True(t, ise.Available.IsZero())
		assert.True(t, f.stock(t, "huevo").Equal(dec(10)))
	})
}

// TestConsume_UnidadConvertida: la receta usa paquetes y se descuenta en unidades.
func TestConsume_UnidadConvertida(t *testing.T) {
	f := newFixture(t)
	f.purchase(t, "huevo", 16, 32)
	f.derivedMenu(t, "bandeja", 50, entity.CompositionLine{IngredientID: "huevo", Quantity: dec(1), UnitID: "paquete"})

	c, err := f.consumption.Consume(context.Background(), inventory.ConsumeInput{MenuID: "bandeja", Portions: dec(1), Actor: actor})
	require.NoError(t, err)
	assert.True(t, c.Lines[0].Quantity.Equal(dec(8)))
	assert.True(t, f.stock(t, "huevo").Equal(dec(8)))
}

// TestConsume_ConversionRedondeada: 0.333333 cajas de 1.5 ml dan 0.4999995 ml, que el libro
// guarda como 0.5; se descuenta lo mismo que se persiste.
func TestConsume_ConversionRedondeada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.PutTemplate(entity.ConversionTemplate{IngredientID: "leche", TargetUnitID: "caja", Factor: decStr("1.5")})
	f.receive(t, "leche", 10)
	f.derivedMenu(t, "cafe", 3, entity.CompositionLine{IngredientID: "leche", Quantity: decStr("0.333333"), UnitID: "caja"})

	effective, err := f.composition.EffectiveStock(ctx, "cafe")
	require.NoError(t, err)
	assert.True(t, effective.Equal(dec(20)))

	c, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "cafe", Portions: dec(3), Actor: actor})
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "1.5", c.Lines[0].Quantity.String())
	assert.True(t, f.stock(t, "leche").Equal(decStr("8.5")))
	f.requireLedgerConsistent(t, "leche")

	f.store.PutTemplate(entity.ConversionTemplate{IngredientID: "leche", TargetUnitID: "paquete", Factor: decStr("0.000001")})
	f.derivedMenu(t, "gota", 1, entity.CompositionLine{IngredientID: "leche", Quantity: decStr("0.4"), UnitID: "paquete"})
	_, err = f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "gota", Portions: dec(1), Actor: actor})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.True(t, f.stock(t, "leche").Equal(decStr("8.5")))
}

func TestConsume_MenuAutogestionado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	menu, err := f.catalog.SyncMenu(ctx, actor, dto.MenuSyncRequest{
		ID: "postre", Name: "Postre del día", Price: decPtr(9),
		StockMode: entity.StockModeSelfManaged, Stock: decPtr(3),
	})
	require.NoError(t, err)
	assert.True(t, menu.Stock.Equal(dec(3)))

	c, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "postre", Portions: dec(2), Actor: actor})
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, "postre", c.Lines[0].MenuID)

	stock, err := f.composition.EffectiveStock(ctx, "postre")
	require.NoError(t, err)
	assert.True(t, stock.Equal(dec(1)))

	_, err = f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "postre", Portions: dec(2), Actor: actor})
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "postre", ise.SubjectID)

	_, err = f.consumption.Reverse(ctx, c.ID, actor)
	require.NoError(t, err)
	stock, err = f.composition.EffectiveStock(ctx, "postre")
	require.NoError(t, err)
	assert.True(t, stock.Equal(dec(3)))

	movements, err := f.ledger.ListMovements(ctx, repository.MovementFilter{MenuID: "postre"})
	require.NoError(t, err)
	sum := dec(0)
	for _, m := range movements {
		sum = sum.Add(m.Quantity)
	}
	assert.True(t, sum.Equal(dec(3)))
}

// TestConsume_Concurrente: 12 ventas simultáneas de 1 huevo con 5 en stock; exactamente 5
// se aplican y el resto falla por stock, nunca por contención.
func TestConsume_Concurrente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "huevo", 3, 6)
	f.purchase(t, "huevo", 2, 4)
	f.purchase(t, "arroz", 100, 100)
	f.derivedMenu(t, "huevo-frito", 4, line("huevo", 1), line("arroz", 10))
	f.derivedMenu(t, "arroz-con-huevo", 6, line("arroz", 5), line("huevo", 1))

	const sales = 12
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		applied      int
		insufficient int
		others       []error
	)
	for i := 0; i < sales; i++ {
		menuID := "huevo-frito"
		if i%2 == 1 {
			menuID = "arroz-con-huevo"
		}
		wg.Add(1)
		go func(menuID string) {
			defer wg.Done()
			_, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: menuID, Portions: dec(1), Actor: actor})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				applied++
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficient++
			default:
				others = append(others, err)
			}
		}(menuID)
	}
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 5, applied)
	assert.Equal(t, sales-5, insufficient)
	assert.True(t, f.stock(t, "huevo").IsZero())
	f.requireLedgerConsistent(t, "huevo")
	f.requireLedgerConsistent(t, "arroz")
}

func TestConsume_CancelacionNoDejaRastro(t *testing.T) {
	f := newFixture(t)
	f.purchase(t, "huevo", 5, 10)
	f.derivedMenu(t, "tortilla", 8, line("huevo", 3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "tortilla", Portions: dec(1), Actor: actor})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, f.stock(t, "huevo").Equal(dec(5)))
	f.requireLedgerConsistent(t, "huevo")
}
