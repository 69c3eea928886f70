package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/events"
	"barakapos/backend/internal/snapshot"
	"barakapos/backend/internal/store"
)

type soldLine struct {
	name  string
	price decimal.Decimal
	qty   int
}

func soldLines(sale domain.Sale) map[string]soldLine {
	sold := make(map[string]soldLine, len(sale.Items))
	for _, item := range sale.Items {
		line, ok := sold[item.Product.ID]
		if !ok {
			line = soldLine{name: item.Product.Name, price: item.Product.Price}
		}
		line.qty += item.Quantity
		sold[item.Product.ID] = line
	}
	return sold
}

// ProcessReturn records a return against a sale. The checks against prior
// returns and the stock restore run inside the store's critical section.
func (s *Service) ProcessReturn(ctx context.Context, req domain.ReturnRequest) (domain.ReturnResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.ReturnResponse{}, err
	}
	saleID := strings.TrimSpace(req.SaleID)
	reason := strings.TrimSpace(req.Reason)

	// positive lines only, duplicates summed, first-seen order kept
	order := make([]string, 0, len(req.Items))
	requested := make(map[string]int, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			continue
		}
		id := strings.TrimSpace(line.ProductID)
		if _, seen := requested[id]; !seen {
			order = append(order, id)
		}
		requested[id] += line.Quantity
	}

	now := s.now().UTC()
	planner := func(sale domain.Sale, alreadyReturned map[string]int) (store.ReturnPlan, error) {
		sold := soldLines(sale)
		for _, id := range order {
			if _, ok := sold[id]; !ok {
				return store.ReturnPlan{}, fmt.Errorf("%w: product %s is not part of sale %s", store.ErrNotFound, id, sale.ID)
			}
		}
		if reason == "" {
			return store.ReturnPlan{}, fmt.Errorf("%w: return reason is required", store.ErrValidation)
		}
		if len(order) == 0 {
			return store.ReturnPlan{}, fmt.Errorf("%w: at least one line with a positive quantity is required", store.ErrValidation)
		}

		items := make([]domain.ReturnInvoiceItem, 0, len(order))
		total := decimal.Zero
		for _, id := range order {
			line := sold[id]
			qty := requested[id]
			remaining := line.qty - alreadyReturned[id]
			if qty > remaining {
				return store.ReturnPlan{}, fmt.Errorf("%w: %s has %d returnable, requested %d", store.ErrOverReturn, line.name, remaining, qty)
			}
			amount := line.price.Mul(decimal.NewFromInt(int64(qty)))
			total = total.Add(amount)
			items = append(items, domain.ReturnInvoiceItem{
				ProductID:        id,
				ProductName:      line.name,
				OriginalQuantity: line.qty,
				ReturnedQuantity: qty,
				UnitPrice:        line.price,
				TotalAmount:      amount,
			})
		}

		sale.ReturnedAmount = sale.ReturnedAmount.Add(total)
		if sale.ReturnedAmount.GreaterThanOrEqual(sale.Total) {
			sale.Status = domain.SaleStatusReturned
		} else {
			sale.Status = domain.SaleStatusPartiallyReturned
		}

		return store.ReturnPlan{
			Invoice: domain.ReturnInvoice{
				OriginalSaleID: sale.ID,
				Items:          items,
				TotalAmount:    total,
				Reason:         reason,
				Timestamp:      now,
				CashierID:      actor.Username,
				CashierName:    actor.Name,
			},
			Sale: sale,
		}, nil
	}

	applied, err := s.repo.CommitReturn(ctx, saleID, planner)
	if err != nil {
		return domain.ReturnResponse{}, err
	}
	s.persist(ctx, snapshot.KeyProducts, snapshot.KeySales, snapshot.KeyReturns)

	s.metrics.ReturnProcessed(applied.Invoice.TotalAmount)
	s.publish(ctx, events.Event{
		EventType:   events.TypeReturnProcessed,
		EntityID:    applied.Invoice.ID,
		CashierID:   applied.Invoice.CashierID,
		TotalAmount: applied.Invoice.TotalAmount.String(),
		Timestamp:   applied.Invoice.Timestamp,
		Data:        applied.Invoice,
	})
	s.logger.Info("return processed",
		zap.String("return_id", applied.Invoice.ID),
		zap.String("sale_id", saleID),
		zap.String("amount", applied.Invoice.TotalAmount.String()),
		zap.String("sale_status", applied.Sale.Status),
	)

	alerts := s.alertsAfterCommit(ctx)
	return domain.ReturnResponse{Return: applied.Invoice, Sale: applied.Sale, NewAlerts: alerts}, nil
}

// ReturnableQuantities lists, per sold product, how much can still be
// returned.
func (s *Service) ReturnableQuantities(ctx context.Context, saleID string) ([]domain.ReturnableLine, error) {
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(saleID))
	if err != nil {
		return nil, err
	}
	returned, err := s.repo.GetReturnedQtyBySale(ctx, sale.ID)
	if err != nil {
		return nil, err
	}

	sold := soldLines(*sale)
	lines := make([]domain.ReturnableLine, 0, len(sold))
	for _, item := range sale.Items {
		line, ok := sold[item.Product.ID]
		if !ok {
			continue
		}
		delete(sold, item.Product.ID)
		lines = append(lines, domain.ReturnableLine{
			ProductID:        item.Product.ID,
			ProductName:      line.name,
			SoldQuantity:     line.qty,
			ReturnedQuantity: returned[item.Product.ID],
			Returnable:       max(line.qty-returned[item.Product.ID], 0),
			UnitPrice:        line.price,
		})
	}
	return lines, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.repo.GetSale(ctx, strings.TrimSpace(id))
}

// ListSales returns sales newest first, optionally filtered by a term that
// matches the sale id or cashier name.
func (s *Service) ListSales(ctx context.Context, term string) ([]domain.Sale, error) {
	return s.filterSales(ctx, term, false)
}

// SearchReturnableSales is ListSales restricted to sales that still allow
// a return.
func (s *Service) SearchReturnableSales(ctx context.Context, term string) ([]domain.Sale, error) {
	return s.filterSales(ctx, term, true)
}

func (s *Service) filterSales(ctx context.Context, term string, returnableOnly bool) ([]domain.Sale, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	matched := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		if returnableOnly && sale.Status == domain.SaleStatusReturned {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(sale.ID), needle) &&
			!strings.Contains(strings.ToLower(sale.CashierName), needle) {
			continue
		}
		matched = append(matched, sale)
	}
	slices.SortStableFunc(matched, func(a, b domain.Sale) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return matched, nil
}

// ListReturns returns invoices newest first, optionally for one sale.
func (s *Service) ListReturns(ctx context.Context, saleID string) ([]domain.ReturnInvoice, error) {
	returns, err := s.repo.ListReturns(ctx)
	if err != nil {
		return nil, err
	}
	saleID = strings.TrimSpace(saleID)
	matched := make([]domain.ReturnInvoice, 0, len(returns))
	for _, ret := range returns {
		if saleID != "" && ret.OriginalSaleID != saleID {
			continue
		}
		matched = append(matched, ret)
	}
	slices.SortStableFunc(matched, func(a, b domain.ReturnInvoice) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return matched, nil
}
