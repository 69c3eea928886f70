package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"barakapos/backend/internal/cart"
	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/events"
	"barakapos/backend/internal/snapshot"
	"barakapos/backend/internal/store"
)

type payment struct {
	method string
	paid   decimal.Decimal
	cash   decimal.Decimal
	card   decimal.Decimal
	change decimal.Decimal
}

// settle resolves the tender for total. Mixed payments take cash first and
// put the remainder on the card.
func settle(method string, paidAmount *decimal.Decimal, cashAmount *decimal.Decimal, total decimal.Decimal) (payment, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	switch method {
	case domain.PaymentCash:
		paid := decimal.Zero
		if paidAmount != nil {
			paid = *paidAmount
		}
		if paid.LessThan(total) {
			return payment{}, fmt.Errorf("%w: paid %s, total %s", store.ErrInsufficientPayment, paid, total)
		}
		return payment{method: method, paid: paid, cash: paid, card: decimal.Zero, change: paid.Sub(total)}, nil
	case domain.PaymentVisa:
		return payment{method: method, paid: total, cash: decimal.Zero, card: total, change: decimal.Zero}, nil
	case domain.PaymentMixed:
		if cashAmount == nil {
			return payment{}, fmt.Errorf("%w: cash_amount is required for mixed payment", store.ErrValidation)
		}
		cash := *cashAmount
		if cash.IsNegative() {
			return payment{}, fmt.Errorf("%w: cash_amount must not be negative", store.ErrValidation)
		}
		if cash.GreaterThan(total) {
			return payment{}, fmt.Errorf("%w: cash %s, total %s", store.ErrOverpayment, cash, total)
		}
		return payment{method: method, paid: total, cash: cash, card: total.Sub(cash), change: decimal.Zero}, nil
	default:
		return payment{}, fmt.Errorf("%w: unknown payment method %q", store.ErrValidation, method)
	}
}

// CompleteSale turns the caller's cart into a sale. Stock is re-checked and
// decremented together with the ledger append; on any error neither the
// catalog nor the cart changes.
func (s *Service) CompleteSale(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	sess := s.session(actor)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sale, err := s.buildSale(ctx, actor, sess.cart.Items(), req)
	if err != nil {
		s.metrics.CheckoutFailed(failureReason(err))
		return domain.CheckoutResponse{}, err
	}

	committed, err := s.repo.CommitSale(ctx, sale)
	if err != nil {
		s.metrics.CheckoutFailed(failureReason(err))
		return domain.CheckoutResponse{}, err
	}
	sess.cart.Clear()
	s.persist(ctx, snapshot.KeyProducts, snapshot.KeySales)

	s.metrics.SaleCompleted(committed.Total)
	s.publish(ctx, events.Event{
		EventType:   events.TypeSaleCompleted,
		EntityID:    committed.ID,
		CashierID:   committed.CashierID,
		TotalAmount: committed.Total.String(),
		Timestamp:   committed.Timestamp,
		Data:        committed,
	})
	s.logger.Info("sale completed",
		zap.String("sale_id", committed.ID),
		zap.String("cashier", committed.CashierID),
		zap.String("total", committed.Total.String()),
		zap.String("payment_method", committed.PaymentMethod),
	)

	alerts := s.alertsAfterCommit(ctx)
	return domain.CheckoutResponse{Sale: *committed, NewAlerts: alerts}, nil
}

func (s *Service) buildSale(ctx context.Context, actor domain.Actor, items []domain.CartItem, req domain.CheckoutRequest) (domain.Sale, error) {
	if len(items) == 0 {
		return domain.Sale{}, store.ErrEmptyCart
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Sale{}, err
	}
	totals, err := cart.Compute(items, settings.TaxRate, req.Discount)
	if err != nil {
		return domain.Sale{}, err
	}
	pay, err := settle(req.PaymentMethod, req.PaidAmount, req.CashAmount, totals.Total)
	if err != nil {
		return domain.Sale{}, err
	}

	return domain.Sale{
		Items:          items,
		Subtotal:       totals.Subtotal,
		Tax:            totals.Tax,
		TaxRate:        settings.TaxRate,
		Discount:       totals.Discount,
		Total:          totals.Total,
		PaymentMethod:  pay.method,
		PaidAmount:     pay.paid,
		CashAmount:     pay.cash,
		CardAmount:     pay.card,
		Change:         pay.change,
		Timestamp:      s.now().UTC(),
		CashierID:      actor.Username,
		CashierName:    actor.Name,
		Status:         domain.SaleStatusCompleted,
		ReturnedAmount: decimal.Zero,
	}, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, store.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, store.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, store.ErrOverpayment):
		return "overpayment"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
