package inventory

import (
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// FIFOCost calcula el costo de tomar qty de los lotes en orden FIFO sin modificarlos.
// La porción cubierta por lotes sin costo conocido, o que excede el remanente, se valora
// con fallbackUnitCost (precio de referencia del ingrediente); en ese caso estimated=true.
func FIFOCost(batches []*entity.Batch, qty, fallbackUnitCost decimal.Decimal) (total decimal.Decimal, estimated bool) {
	ordered := make([]*entity.Batch, len(batches))
	copy(ordered, batches)
	SortBatches(ordered)

	pending := qty
	total = decimal.Zero
	for _, b := range ordered {
		if !pending.IsPositive() {
			break
		}
		if !b.IsOpen() {
			continue
		}
		take := decimal.Min(b.Remaining, pending)
		unitCost := fallbackUnitCost
		if b.UnitCost != nil {
			unitCost = *b.UnitCost
		} else {
			estimated = true
		}
		total = total.Add(take.Mul(unitCost))
		pending = pending.Sub(take)
	}
	if pending.IsPositive() {
		total = total.Add(pending.Mul(fallbackUnitCost))
		estimated = true
	}
	return total, estimated
}
