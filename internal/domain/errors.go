package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas salvo decimal).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrInvalidQuantity        = errors.New("la cantidad debe ser mayor que cero")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrNotConfigured          = errors.New("no existe plantilla de conversión para la unidad solicitada")
	ErrConcurrentModification = errors.New("modificación concurrente, reintente la operación")
	ErrInternalInconsistency  = errors.New("inconsistencia interna entre lotes y libro de movimientos")
	ErrAlreadyReversed        = errors.New("el consumo ya fue revertido")
	ErrReferenceConflict      = errors.New("la referencia ya se aplicó a otra venta")
	ErrInvalidStockMode       = errors.New("modo de stock del menú inválido para la operación")
	ErrReadOnly               = errors.New("transacción de solo lectura")
	ErrUnauthorized           = errors.New("no autorizado")
)

// InsufficientStockError detalla qué ingrediente (o menú) no alcanza.
// errors.Is(err, ErrInsufficientStock) es verdadero.
type InsufficientStockError struct {
	SubjectID string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: solicitado %s, disponible %s",
		e.SubjectID, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// NewInsufficientStock construye el error detallado.
func NewInsufficientStock(subjectID string, requested, available decimal.Decimal) error {
	return &InsufficientStockError{SubjectID: subjectID, Requested: requested, Available: available}
}

// IsRetryable indica si el llamador puede reintentar la operación tal cual.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
