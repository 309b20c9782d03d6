package inventory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/application/dto"
	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
	"github.com/jhoicas/inventario-cocina/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ReportUseCase consultas de solo lectura para el colaborador de reportes.
// Corre sobre un snapshot y no bloquea a los escritores.
type ReportUseCase struct {
	txRunner TxRunner
	opts     Options
}

// NewReportUseCase construye el caso de uso de reportes.
func NewReportUseCase(txRunner TxRunner, opts Options) *ReportUseCase {
	return &ReportUseCase{txRunner: txRunner, opts: opts.withDefaults()}
}

// LedgerHistory movimientos en el rango [from, to], más reciente primero.
func (uc *ReportUseCase) LedgerHistory(ctx context.Context, from, to *time.Time, page dto.PageRequest) ([]*entity.StockMovement, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.ErrInvalidInput
	}
	page.Normalize()
	var out []*entity.StockMovement
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		out, err = repos.Movements.List(ctx, repository.MovementFilter{
			From:   from,
			To:     to,
			Limit:  page.Limit,
			Offset: page.Offset,
		})
		return err
	})
	return out, err
}

// MovementTotals entradas, salidas y ajustes por ingrediente en el rango.
func (uc *ReportUseCase) MovementTotals(ctx context.Context, from, to *time.Time) ([]entity.MovementTotals, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.ErrInvalidInput
	}
	var out []entity.MovementTotals
	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		var err error
		out, err = repos.Movements.TotalsByIngredient(ctx, from, to)
		return err
	})
	return out, err
}

// MenuMargins devuelve precio, costo FIFO por porción, margen y stock efectivo de cada menú
// activo, ordenados por mayor margen y luego por nombre.
func (uc *ReportUseCase) MenuMargins(ctx context.Context) ([]dto.MenuMarginDTO, error) {
	hundred := decimal.NewFromInt(100)
	var out []dto.MenuMarginDTO

	err := uc.txRunner.RunSnapshot(ctx, func(ctx context.Context, repos TxRepos) error {
		menus, err := repos.Menus.List(ctx)
		if err != nil {
			return err
		}
		out = make([]dto.MenuMarginDTO, 0, len(menus))
		for _, m := range menus {
			if !m.Active {
				continue
			}
			row := dto.MenuMarginDTO{
				MenuID:    m.ID,
				Name:      m.Name,
				Category:  m.Category,
				StockMode: m.StockMode,
				Price:     m.Price,
			}
			a, err := availability(ctx, repos, m, uc.opts.Now())
			switch {
			case errors.Is(err, domain.ErrNotConfigured):
				// La receta usa una unidad sin plantilla: se informa sin costo.
				row.NotConfigured = true
			case err != nil:
				return err
			default:
				row.UnitCost = a.UnitCost
				row.CostEstimated = a.CostEstimated
				row.EffectiveStock = a.EffectiveStock
			}
			row.Margin = m.Price.Sub(row.UnitCost)
			if m.Price.IsPositive() {
				row.MarginPct = row.Margin.Div(m.Price).Mul(hundred).Round(2)
			}
			out = append(out, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Margin.Equal(b.Margin) {
			return a.Margin.GreaterThan(b.Margin)
		}
		return a.Name < b.Name
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}
