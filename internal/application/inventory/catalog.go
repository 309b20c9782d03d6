package inventory

import (
	"context"
	"strings"

	"github.com/jhoicas/inventario-cocina/internal/application/dto"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// CatalogUseCase recibe menús del colaborador de ventas y los normaliza antes de guardarlos.
type CatalogUseCase struct {
	txRunner TxRunner
	opts     Options
	ledger   ledger
}

// NewCatalogUseCase construye el caso de uso.
func NewCatalogUseCase(txRunner TxRunner, opts Options) *CatalogUseCase {
	opts = opts.withDefaults()
	return &CatalogUseCase{txRunner: txRunner, opts: opts, ledger: newLedger(opts)}
}

// SyncMenu crea o actualiza un menú con un único precio canónico. El contador inicial de un
// menú autogestionado solo se toma al crearlo y entra como movimiento "in"; después el
// contador solo cambia por el libro y Stock se ignora.
func (uc *CatalogUseCase) SyncMenu(ctx context.Context, actor string, in dto.MenuSyncRequest) (*dto.MenuResponse, error) {
	if strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.Name) == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if !entity.ValidStockMode(in.StockMode) {
		return nil, domain.ErrInvalidStockMode
	}
	price, err := in.CanonicalPrice()
	if err != nil {
		return nil, err
	}
	if !inventory.WithinScale(price) {
		return nil, domain.ErrInvalidInput
	}
	if in.Stock != nil {
		if in.Stock.IsNegative() || in.StockMode == entity.StockModeDerived {
			return nil, domain.ErrInvalidInput
		}
		if !inventory.WithinScale(*in.Stock) {
			return nil, domain.ErrInvalidQuantity
		}
	}

	var menu *entity.Menu
	err = uc.opts.withRetry(ctx, "sync_menu", func() error {
		return uc.txRunner.Run(ctx, func(ctx context.Context, repos TxRepos) error {
			current, err := repos.Menus.LockForUpdate(ctx, in.ID)
			if err != nil {
				return err
			}
			now := uc.opts.Now()
			initial := decimal.Zero
			if current == nil {
				current = &entity.Menu{ID: in.ID, Stock: decimal.Zero, Active: true, CreatedAt: now}
				if in.Stock != nil {
					initial = *in.Stock
				}
			} else if current.StockMode != in.StockMode && !current.Stock.IsZero() {
				// No se descarta un contador con existencias al cambiar de modo.
				return domain.ErrInvalidStockMode
			}
			current.Name = in.Name
			current.Category = in.Category
			current.Price = price
			current.StockMode = in.StockMode
			if in.Active != nil {
				current.Active = *in.Active
			}
			current.UpdatedAt = now
			if err := repos.Menus.Upsert(ctx, current); err != nil {
				return err
			}
			if initial.IsPositive() {
				meta := movementMeta{Source: entity.MovementSourceManual, Note: "contador inicial", Actor: actor}
				if _, err := uc.ledger.creditMenu(ctx, repos, current, initial, entity.MovementTypeIn, meta); err != nil {
					return err
				}
			}
			menu = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.opts.afterCommit(ctx, []LedgerEvent{{Type: EventMenuSynced, MenuID: menu.ID, OccurredAt: menu.UpdatedAt}})
	return &dto.MenuResponse{
		ID:        menu.ID,
		Name:      menu.Name,
		Category:  menu.Category,
		Price:     menu.Price,
		StockMode: menu.StockMode,
		Stock:     menu.Stock,
		Active:    menu.Active,
	}, nil
}
