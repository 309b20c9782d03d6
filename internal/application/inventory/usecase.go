package inventory

import (
	"context"

	"github.com/jhoicas/inventario-cocina/internal/application/dto"
	"github.com/jhoicas/inventario-cocina/internal/domain/entity"
)

// AddStockFromRequest adapta el body HTTP a AddStock. actor viene del contexto de la petición.
func (uc *StockLedgerUseCase) AddStockFromRequest(ctx context.Context, actor string, req dto.AddStockRequest) (*dto.StockEntryResponse, error) {
	in := AddStockInput{
		IngredientID: req.IngredientID,
		Quantity:     req.Quantity,
		Note:         req.Note,
		Actor:        actor,
	}
	if req.HasPurchase() {
		in.Purchase = &entity.PurchaseInfo{
			Quantity: req.PurchaseQuantity,
			UnitID:   req.PurchaseUnitID,
			Price:    req.PurchasePrice,
		}
	}
	res, err := uc.AddStock(ctx, in)
	if err != nil {
		return nil, err
	}
	out := &dto.StockEntryResponse{Movement: dto.NewMovementResponse(res.Movement)}
	if res.Batch != nil {
		b := dto.NewBatchResponse(res.Batch)
		out.Batch = &b
	}
	return out, nil
}

// ReduceStockFromRequest adapta el body HTTP a ReduceStock.
func (uc *StockLedgerUseCase) ReduceStockFromRequest(ctx context.Context, actor string, req dto.ReduceStockRequest) (*dto.StockDeductionResponse, error) {
	res, err := uc.ReduceStock(ctx, ReduceStockInput{
		IngredientID: req.IngredientID,
		Quantity:     req.Quantity,
		Note:         req.Note,
		Actor:        actor,
	})
	if err != nil {
		return nil, err
	}
	return toDeductionResponse(res), nil
}

// AdjustStockFromRequest adapta el body HTTP a AdjustStock.
func (uc *StockLedgerUseCase) AdjustStockFromRequest(ctx context.Context, actor string, req dto.AdjustStockRequest) (*dto.StockDeductionResponse, error) {
	res, err := uc.AdjustStock(ctx, AdjustStockInput{
		IngredientID: req.IngredientID,
		Delta:        req.Delta,
		Note:         req.Note,
		Actor:        actor,
	})
	if err != nil {
		return nil, err
	}
	return toDeductionResponse(res), nil
}

// ConsumeFromRequest adapta el body HTTP a Consume.
func (uc *ConsumptionUseCase) ConsumeFromRequest(ctx context.Context, actor string, req dto.ConsumeRequest) (*dto.ConsumptionResponse, error) {
	c, err := uc.Consume(ctx, ConsumeInput{
		MenuID:    req.MenuID,
		Portions:  req.Portions,
		Actor:     actor,
		Reference: req.Reference,
	})
	if err != nil {
		return nil, err
	}
	out := dto.NewConsumptionResponse(c)
	return &out, nil
}

func toDeductionResponse(res *StockDeductionResult) *dto.StockDeductionResponse {
	return &dto.StockDeductionResponse{
		Movement:    dto.NewMovementResponse(res.Movement),
		Allocations: dto.NewAllocationResponses(res.Allocations),
	}
}
