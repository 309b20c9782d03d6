package dto

import (
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/shopspring/decimal"
)

// MenuSyncRequest payload del colaborador de menús/ventas. El precio puede venir como
// "price" o con el nombre heredado "selling_price"; CanonicalPrice lo resuelve a un solo valor.
type MenuSyncRequest struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty"`
	StockMode    string           `json:"stock_mode"`
	Stock        *decimal.Decimal `json:"stock,omitempty"`
	Active       *bool            `json:"active,omitempty"`
}

// CanonicalPrice devuelve el precio único del menú. Si vienen ambos campos deben coincidir;
// si no viene ninguno o es negativo, ErrInvalidInput.
func (r MenuSyncRequest) CanonicalPrice() (decimal.Decimal, error) {
	switch {
	case r.Price != nil && r.SellingPrice != nil:
		if !r.Price.Equal(*r.SellingPrice) {
			return decimal.Zero, domain.ErrInvalidInput
		}
		return checkPrice(*r.Price)
	case r.Price != nil:
		return checkPrice(*r.Price)
	case r.SellingPrice != nil:
		return checkPrice(*r.SellingPrice)
	}
	return decimal.Zero, domain.ErrInvalidInput
}

func checkPrice(p decimal.Decimal) (decimal.Decimal, error) {
	if p.IsNegative() {
		return decimal.Zero, domain.ErrInvalidInput
	}
	return p, nil
}

// MenuResponse menú normalizado.
type MenuResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	StockMode string          `json:"stock_mode"`
	Stock     decimal.Decimal `json:"stock"`
	Active    bool            `json:"active"`
}
