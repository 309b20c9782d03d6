package inventory

import (
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Requirement es la cantidad de un ingrediente, en unidades de almacenamiento, por porción.
type Requirement struct {
	IngredientID string
	PerPortion   decimal.Decimal
}

// EffectiveStock = floor(min(stock / porPorción)) sobre la receta.
// Receta vacía, ingrediente faltante o inactivo: 0.
func EffectiveStock(reqs []Requirement, ingredients map[string]*entity.Ingredient) decimal.Decimal {
	if len(reqs) == 0 {
		return decimal.Zero
	}
	var portions decimal.Decimal
	for i, r := range reqs {
		ing, ok := ingredients[r.IngredientID]
		if !ok || ing == nil || !ing.Active || !r.PerPortion.IsPositive() {
			return decimal.Zero
		}
		p := ing.AvailableStock.Div(r.PerPortion).Floor()
		if i == 0 || p.LessThan(portions) {
			portions = p
		}
	}
	if portions.IsNegative() {
		return decimal.Zero
	}
	return portions
}

// Aggregate suma requerimientos repetidos del mismo ingrediente y los devuelve
// ordenados por id de ingrediente (orden global de bloqueo).
func Aggregate(reqs []Requirement) []Requirement {
	byID := make(map[string]decimal.Decimal, len(reqs))
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if _, ok := byID[r.IngredientID]; !ok {
			ids = append(ids, r.IngredientID)
		}
		byID[r.IngredientID] = byID[r.IngredientID].Add(r.PerPortion)
	}
	ids = SortIDs(ids)
	out := make([]Requirement, 0, len(ids))
	for _, id := range ids {
		out = append(out, Requirement{IngredientID: id, PerPortion: byID[id]})
	}
	return out
}
