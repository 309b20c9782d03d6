package inventory

import (
	"fmt"
	"sort"

	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SortBatches ordena los lotes por orden de creación (más antiguo primero).
func SortBatches(batches []*entity.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].Sequence < batches[j].Sequence
	})
}

// OpenTotal suma el remanente de los lotes.
func OpenTotal(batches []*entity.Batch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.Remaining)
	}
	return total
}

// CheckBatchConsistency verifica que la suma de remanentes coincida con el stock del libro.
func CheckBatchConsistency(ingredientID string, stock decimal.Decimal, batches []*entity.Batch) error {
	total := OpenTotal(batches)
	if !total.Equal(stock) {
		return fmt.Errorf("%w: ingrediente %s stock=%s lotes=%s",
			domain.ErrInternalInconsistency, ingredientID, stock.String(), total.String())
	}
	return nil
}

// AllocateFIFO descuenta qty de los lotes, del más antiguo al más nuevo, y devuelve
// las asignaciones en el orden en que se tomaron. Si los lotes no alcanzan no modifica nada
// y devuelve ErrInternalInconsistency: el libro ya validó el stock, así que los lotes
// deberían cubrirlo siempre.
func AllocateFIFO(batches []*entity.Batch, qty decimal.Decimal) ([]entity.BatchAllocation, error) {
	if !qty.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}
	ordered := make([]*entity.Batch, len(batches))
	copy(ordered, batches)
	SortBatches(ordered)

	if available := OpenTotal(ordered); available.LessThan(qty) {
		return nil, fmt.Errorf("%w: lotes=%s solicitado=%s",
			domain.ErrInternalInconsistency, available.String(), qty.String())
	}

	pending := qty
	allocations := make([]entity.BatchAllocation, 0, 2)
	for _, b := range ordered {
		if pending.IsZero() {
			break
		}
		if !b.IsOpen() {
			continue
		}
		take := decimal.Min(b.Remaining, pending)
		b.Remaining = b.Remaining.Sub(take)
		pending = pending.Sub(take)
		allocations = append(allocations, entity.BatchAllocation{
			BatchID:  b.ID,
			Quantity: take,
			Position: len(allocations),
		})
	}
	return allocations, nil
}

// Deallocate restaura en los mismos lotes lo que se tomó en allocations, recorriendo
// las asignaciones en orden inverso. Valida todo antes de modificar: un lote faltante o un
// remanente que superaría la entrada es una inconsistencia interna.
func Deallocate(batches map[string]*entity.Batch, allocations []entity.BatchAllocation) error {
	ordered := make([]entity.BatchAllocation, len(allocations))
	copy(ordered, allocations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position > ordered[j].Position
	})

	restored := make(map[string]decimal.Decimal, len(ordered))
	for _, a := range ordered {
		if !a.Quantity.IsPositive() {
			return fmt.Errorf("%w: asignación no positiva en lote %s", domain.ErrInternalInconsistency, a.BatchID)
		}
		b, ok := batches[a.BatchID]
		if !ok {
			return fmt.Errorf("%w: lote %s no encontrado", domain.ErrInternalInconsistency, a.BatchID)
		}
		next := restored[a.BatchID].Add(a.Quantity)
		if b.Remaining.Add(next).GreaterThan(b.InboundQuantity) {
			return fmt.Errorf("%w: lote %s excedería su entrada", domain.ErrInternalInconsistency, a.BatchID)
		}
		restored[a.BatchID] = next
	}

	for _, a := range ordered {
		b := batches[a.BatchID]
		b.Remaining = b.Remaining.Add(a.Quantity)
	}
	return nil
}
