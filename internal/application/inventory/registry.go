package inventory

import (
	"context"

	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// RegistryUseCase consulta unidades y plantillas de conversión. No toca el stock.
type RegistryUseCase struct {
	txRunner TxRunner
}

// NewRegistryUseCase construye el caso de uso.
func NewRegistryUseCase(txRunner TxRunner) *RegistryUseCase {
	return &RegistryUseCase{txRunner: txRunner}
}

// ResolveFactor devuelve cuántas unidades de almacenamiento equivalen a 1 unitID para el
// ingrediente. Sin plantilla: ErrNotConfigured (el llamador debe aceptar el valor del operador).
func (uc *RegistryUseCase) ResolveFactor(ctx context.Context, ingredientID, unitID string) (decimal.Decimal, error) {
	var factor decimal.Decimal
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		factor, err = resolveFactor(ctx, repos, ingredientID, unitID)
		return err
	})
	return factor, err
}

// SuggestStorageQuantity = purchaseQty * factor. Es solo una sugerencia previa al registro.
func (uc *RegistryUseCase) SuggestStorageQuantity(ctx context.Context, ingredientID, unitID string, purchaseQty decimal.Decimal) (decimal.Decimal, error) {
	if !purchaseQty.IsPositive() {
		return decimal.Zero, domain.ErrInvalidQuantity
	}
	factor, err := uc.ResolveFactor(ctx, ingredientID, unitID)
	if err != nil {
		return decimal.Zero, err
	}
	return purchaseQty.Mul(factor), nil
}

// ListUnits lista las unidades de medida.
func (uc *RegistryUseCase) ListUnits(ctx context.Context) ([]*entity.Unit, error) {
	var out []*entity.Unit
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		out, err = repos.Units.List(ctx)
		return err
	})
	return out, err
}

// ListTemplates lista las plantillas de conversión de un ingrediente.
func (uc *RegistryUseCase) ListTemplates(ctx context.Context, ingredientID string) ([]*entity.ConversionTemplate, error) {
	var out []*entity.ConversionTemplate
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		ing, err := repos.Ingredients.GetByID(ctx, ingredientID)
		if err != nil {
			return err
		}
		if ing == nil {
			return domain.ErrNotFound
		}
		out, err = repos.Templates.ListByIngredient(ctx, ingredientID)
		return err
	})
	return out, err
}

func resolveFactor(ctx context.Context, repos TxRepos, ingredientID, unitID string) (decimal.Decimal, error) {
	if ingredientID == "" || unitID == "" {
		return decimal.Zero, domain.ErrInvalidInput
	}
	ing, err := repos.Ingredients.GetByID(ctx, ingredientID)
	if err != nil {
		return decimal.Zero, err
	}
	if ing == nil {
		return decimal.Zero, domain.ErrNotFound
	}
	if unitID == ing.StorageUnitID {
		return decimal.NewFromInt(1), nil
	}
	unit, err := repos.Units.GetByID(ctx, unitID)
	if err != nil {
		return decimal.Zero, err
	}
	if unit == nil {
		return decimal.Zero, domain.ErrNotFound
	}
	tpl, err := repos.Templates.Get(ctx, ingredientID, unitID)
	if err != nil {
		return decimal.Zero, err
	}
	if tpl == nil {
		return decimal.Zero, domain.ErrNotConfigured
	}
	return tpl.Factor, nil
}
