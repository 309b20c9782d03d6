package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/repository"
	"github.com/jhoicas/inventario-cocina/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const actor = "cocina-test"

var fixedNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decStr(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decStrPtr(s string) *decimal.Decimal {
	d := decStr(s)
	return &d
}

func decPtr(v int64) *decimal.Decimal {
	d := dec(v)
	return &d
}

// recordingPublisher guarda los eventos publicados.
type recordingPublisher struct {
	mu     sync.Mutex
	events []inventory.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...inventory.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []inventory.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []inventory.LedgerEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// mapCache caché en memoria que cuenta invalidaciones.
type mapCache struct {
	mu           sync.Mutex
	items        map[string]inventory.MenuAvailability
	invalidation int
}

func (c *mapCache) Get(_ context.Context, menuID string) (*inventory.MenuAvailability, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.items[menuID]
	if !ok {
		return nil, false, nil
	}
	return &a, true, nil
}

func (c *mapCache) Set(_ context.Context, a *inventory.MenuAvailability) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = map[string]inventory.MenuAvailability{}
	}
	c.items[a.MenuID] = *a
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.invalidation++
	return nil
}

func (c *mapCache) invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidation
}

type fixture struct {
	store       *memory.Store
	ledger      *inventory.StockLedgerUseCase
	consumption *inventory.ConsumptionUseCase
	composition *inventory.CompositionUseCase
	registry    *inventory.RegistryUseCase
	catalog     *inventory.CatalogUseCase
	reports     *inventory.ReportUseCase
	events      *recordingPublisher
	cache       *mapCache
}

// newFixture arma los casos de uso sobre el store en memoria con un catálogo base:
// arroz (g), huevo (u, se compra por paquete de 8) y leche (ml, sin plantillas).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(2 * time.Second)
	store.PutUnit(entity.Unit{ID: "g", Name: "gramo", Abbreviation: "g"})
	store.PutUnit(entity.Unit{ID: "u", Name: "unidad", Abbreviation: "u"})
	store.PutUnit(entity.Unit{ID: "ml", Name: "mililitro", Abbreviation: "ml"})
	store.PutUnit(entity.Unit{ID: "paquete", Name: "paquete", Abbreviation: "paq"})
	store.PutUnit(entity.Unit{ID: "caja", Name: "caja", Abbreviation: "cj"})

	store.PutIngredient(entity.Ingredient{ID: "arroz", Name: "Arroz", StorageUnitID: "g", ReferencePrice: dec(1), Active: true})
	store.PutIngredient(entity.Ingredient{ID: "huevo", Name: "Huevo", StorageUnitID: "u", PurchaseUnitID: "paquete", ReferencePrice: dec(2), Active: true})
	store.PutIngredient(entity.Ingredient{ID: "leche", Name: "Leche", StorageUnitID: "ml", Active: true})
	store.PutTemplate(entity.ConversionTemplate{IngredientID: "huevo", TargetUnitID: "paquete", Factor: dec(8), Note: "paquete de 8"})

	events := &recordingPublisher{}
	cache := &mapCache{}
	opts := inventory.Options{
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
		Publisher:    events,
		Cache:        cache,
		Now:          func() time.Time { return fixedNow },
	}
	return &fixture{
		store:       store,
		ledger:      inventory.NewStockLedgerUseCase(store, opts),
		consumption: inventory.NewConsumptionUseCase(store, opts),
		composition: inventory.NewCompositionUseCase(store, opts),
		registry:    inventory.NewRegistryUseCase(store),
		catalog:     inventory.NewCatalogUseCase(store, opts),
		reports:     inventory.NewReportUseCase(store, opts),
		events:      events,
		cache:       cache,
	}
}

// purchase registra una entrada con precio total, abriendo un lote.
func (f *fixture) purchase(t *testing.T, ingredientID string, qty, price int64) *inventory.StockEntryResult {
	t.Helper()
	res, err := f.ledger.AddStock(context.Background(), inventory.AddStockInput{
		IngredientID: ingredientID,
		Quantity:     dec(qty),
		Purchase:     &entity.PurchaseInfo{Price: decPtr(price)},
		Actor:        actor,
	})
	require.NoError(t, err)
	return res
}

// receive registra una entrada sin metadatos de compra.
func (f *fixture) receive(t *testing.T, ingredientID string, qty int64) {
	t.Helper()
	_, err := f.ledger.AddStock(context.Background(), inventory.AddStockInput{
		IngredientID: ingredientID,
		Quantity:     dec(qty),
		Actor:        actor,
	})
	require.NoError(t, err)
}

func (f *fixture) derivedMenu(t *testing.T, id string, price int64, lines ...entity.CompositionLine) {
	t.Helper()
	f.store.PutMenu(entity.Menu{ID: id, Name: id, Price: dec(price), StockMode: entity.StockModeDerived, Active: true})
	for i := range lines {
		lines[i].Position = i
		lines[i].ID = id + "-" + lines[i].IngredientID
	}
	f.store.SetComposition(id, lines)
}

func line(ingredientID string, qty int64) entity.CompositionLine {
	return entity.CompositionLine{IngredientID: ingredientID, Quantity: dec(qty)}
}

func (f *fixture) stock(t *testing.T, ingredientID string) decimal.Decimal {
	t.Helper()
	var out decimal.Decimal
	require.NoError(t, f.store.RunSnapshot(context.Background(), func(ctx context.Context, repos inventory.TxRepos) error {
		ing, err := repos.Ingredients.GetByID(ctx, ingredientID)
		require.NoError(t, err)
		require.NotNil(t, ing)
		out = ing.AvailableStock
		return nil
	}))
	return out
}

func (f *fixture) remaining(t *testing.T, ingredientID string) []decimal.Decimal {
	t.Helper()
	batches, err := f.ledger.ListBatches(context.Background(), ingredientID)
	require.NoError(t, err)
	out := make([]decimal.Decimal, 0, len(batches))
	for _, b := range batches {
		out = append(out, b.Remaining)
	}
	return out
}

// requireLedgerConsistent verifica que el stock sea la suma del libro y, si el ingrediente
// lleva lotes, también la suma de sus remanentes.
func (f *fixture) requireLedgerConsistent(t *testing.T, ingredientID string) {
	t.Helper()
	movements, err := f.ledger.ListMovements(context.Background(), repository.MovementFilter{IngredientID: ingredientID})
	require.NoError(t, err)
	sum := decimal.Zero
	for _, m := range movements {
		sum = sum.Add(m.Quantity)
	}
	stock := f.stock(t, ingredientID)
	require.True(t, sum.Equal(stock), "libro=%s stock=%s", sum, stock)
	require.False(t, stock.IsNegative())

	remaining := f.remaining(t, ingredientID)
	if len(remaining) == 0 {
		return
	}
	total := decimal.Zero
	for _, r := range remaining {
		total = total.Add(r)
	}
	require.True(t, total.Equal(stock), "lotes=%s stock=%s", total, stock)
}

func requireDecimals(t *testing.T, want []int64, got []decimal.Decimal) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, got[i].Equal(dec(want[i])), "posición %d: esperado %d, obtenido %s", i, want[i], got[i])
	}
}
