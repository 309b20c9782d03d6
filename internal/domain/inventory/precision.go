package inventory

import "github.com/shopspring/decimal"

// QuantityScale decimales que persiste el libro: cantidades, stock, precios y porciones
// se guardan como NUMERIC(18, 6).
const QuantityScale = 6

// WithinScale indica si d se guarda sin redondeo con QuantityScale decimales.
func WithinScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(QuantityScale))
}

// RoundQuantity lleva d a QuantityScale redondeando la mitad lejos de cero, igual que NUMERIC.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityScale)
}
