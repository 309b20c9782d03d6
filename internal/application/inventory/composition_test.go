package inventory_test

import (
	"context"
	"testing"

	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "huevo", 5, 10)
	f.purchase(t, "arroz", 10, 10)
	f.derivedMenu(t, "arroz-con-huevo", 12, line("huevo", 2), line("arroz", 1))
	f.derivedMenu(t, "doble-huevo", 12, line("huevo", 1), line("huevo", 1))
	f.derivedMenu(t, "vacio", 12)
	f.derivedMenu(t, "sin-leche", 12, line("leche", 200), line("arroz", 1))

	tests := []struct {
		menuID string
		want   int64
	}{
		{"arroz-con-huevo", 2}, // floor(5/2)
		{"doble-huevo", 2},     // líneas repetidas se suman
		{"vacio", 0},
		{"sin-leche", 0},
	}
	for _, tt := range tests {
		t.Run(tt.menuID, func(t *testing.T) {
			got, err := f.composition.EffectiveStock(ctx, tt.menuID)
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "obtenido %s", got)
		})
	}

	_, err := f.composition.EffectiveStock(ctx, "nada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEffectiveStock_IngredienteInactivo(t *testing.T) {
	f := newFixture(t)
	f.purchase(t, "arroz", 10, 10)
	f.derivedMenu(t, "arroz-blanco", 5, line("arroz", 1))
	f.store.PutIngredient(entity.Ingredient{ID: "arroz", Name: "Arroz", StorageUnitID: "g", Active: false})

	got, err := f.composition.EffectiveStock(context.Background(), "arroz-blanco")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestCompositionOf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.derivedMenu(t, "arroz-con-huevo", 12, line("huevo", 2), line("arroz", 1))

	lines, err := f.composition.CompositionOf(ctx, "arroz-con-huevo")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "huevo", lines[0].IngredientID)
	assert.Equal(t, "arroz", lines[1].IngredientID)

	_, err = f.composition.CompositionOf(ctx, "nada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestUnitCost_FIFO: 12 g tomados de A (10 a 2) y B (2 a 3) cuestan 26.
func TestUnitCost_FIFO(t *testing.T) {
	f := newFixture(t)
	f.purchase(t, "arroz", 10, 20)
	f.purchase(t, "arroz", 5, 15)
	f.derivedMenu(t, "arroz-blanco", 40, line("arroz", 12))

	cost, err := f.composition.UnitCost(context.Background(), "arroz-blanco")
	require.NoError(t, err)
	assert.True(t, cost.Total.Equal(dec(26)), "obtenido %s", cost.Total)
	assert.False(t, cost.Estimated)
	require.Len(t, cost.Lines, 1)
	assert.True(t, cost.Lines[0].PerPortion.Equal(dec(12)))
}

// TestUnitCost_Estimado: lo que no cubren lotes con costo se valora con el precio de referencia.
func TestUnitCost_Estimado(t *testing.T) {
	f := newFixture(t)
	f.receive(t, "arroz", 4)      // lote de apertura sin costo al abrir el siguiente
	f.purchase(t, "arroz", 4, 12) // 3 por gramo
	f.derivedMenu(t, "arroz-blanco", 40, line("arroz", 10))

	cost, err := f.composition.UnitCost(context.Background(), "arroz-blanco")
	require.NoError(t, err)
	// 4 a precio de referencia (1) + 4 a 3 + 2 faltantes a referencia.
	assert.True(t, cost.Total.Equal(dec(18)), "obtenido %s", cost.Total)
	assert.True(t, cost.Estimated)
}

func TestAvailability_CacheSeInvalidaTrasMutacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, "huevo", 6, 12)
	f.derivedMenu(t, "tortilla", 8, line("huevo", 3))

	a, err := f.composition.Availability(ctx, "tortilla")
	require.NoError(t, err)
	assert.True(t, a.EffectiveStock.Equal(dec(2)))
	assert.True(t, a.UnitCost.Equal(dec(6)))
	assert.Equal(t, fixedNow, a.ComputedAt)

	cached, ok, err := f.cache.Get(ctx, "tortilla")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cached.EffectiveStock.Equal(dec(2)))

	_, err = f.consumption.Consume(ctx, inventory.ConsumeInput{MenuID: "tortilla", Portions: dec(1), Actor: actor})
	require.NoError(t, err)
	_, ok, _ = f.cache.Get(ctx, "tortilla")
	assert.False(t, ok)

	a, err = f.composition.Availability(ctx, "tortilla")
	require.NoError(t, err)
	assert.True(t, a.EffectiveStock.Equal(dec(1)))
}
