package service

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"barakapos/backend/internal/cart"
	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/store/memory"
)

func propertyParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	return parameters
}

func TestPropertyStockNeverNegativeAndReturnsBounded(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("stock stays non-negative and returns never exceed sales", prop.ForAll(
		func(buys []int, returns []int) bool {
			repo := memory.New()
			svc := New(repo, Options{Now: func() time.Time { return testNow }})
			ctx := cashierCtx()
			const initial = 12
			if _, err := repo.CreateProduct(context.Background(), domain.Product{
				ID: "x", Name: "X", Barcode: "x", Price: decimal.NewFromInt(3), Quantity: initial, Unit: domain.UnitPiece, Category: "c",
			}); err != nil {
				return false
			}

			sold, restored := 0, 0
			for i, want := range buys {
				for j := 0; j < want; j++ {
					if _, err := svc.AddToCart(ctx, "x"); err != nil {
						return false
					}
				}
				resp, err := svc.CompleteSale(ctx, domain.CheckoutRequest{PaymentMethod: domain.PaymentVisa})
				if err != nil {
					// only an exhausted catalog leaves the cart empty
					p, _ := repo.GetProduct(context.Background(), "x")
					if p.Quantity != 0 {
						return false
					}
					continue
				}
				sold += resp.Sale.Items[0].Quantity

				back := returns[i%len(returns)]
				if _, err := svc.ProcessReturn(ctx, domain.ReturnRequest{
					SaleID: resp.Sale.ID, Reason: "r", Items: []domain.ReturnLine{{ProductID: "x", Quantity: back}},
				}); err == nil {
					restored += back
				}
				lines, err := svc.ReturnableQuantities(ctx, resp.Sale.ID)
				if err != nil || lines[0].ReturnedQuantity > lines[0].SoldQuantity {
					return false
				}
			}

			p, err := repo.GetProduct(context.Background(), "x")
			if err != nil || p.Quantity < 0 {
				return false
			}
			return p.Quantity == initial-sold+restored
		},
		gen.SliceOfN(6, gen.IntRange(1, 6)),
		gen.SliceOfN(3, gen.IntRange(1, 7)),
	))

	properties.TestingRun(t)
}

func TestPropertyTotalsReconcile(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("total = subtotal + tax - discount and subtotal = sum of lines", prop.ForAll(
		func(cents []int64, qty int, discountPercent int) bool {
			items := make([]domain.CartItem, 0, len(cents))
			expected := decimal.Zero
			for i, c := range cents {
				price := decimal.New(c, -2)
				items = append(items, domain.CartItem{Product: domain.Product{ID: string(rune('a' + i)), Price: price}, Quantity: qty})
				expected = expected.Add(price.Mul(decimal.NewFromInt(int64(qty))))
			}
			rate := decimal.NewFromInt(14)
			gross := expected.Add(expected.Mul(rate).Div(decimal.NewFromInt(100)))
			discount := gross.Mul(decimal.NewFromInt(int64(discountPercent))).Div(decimal.NewFromInt(100)).Round(2)
			if discount.GreaterThan(gross) {
				discount = gross
			}

			totals, err := cart.Compute(items, rate, discount)
			if err != nil {
				return false
			}
			return totals.Subtotal.Equal(expected) &&
				totals.Total.Equal(totals.Subtotal.Add(totals.Tax).Sub(totals.Discount))
		},
		gen.SliceOfN(4, gen.Int64Range(0, 500000)),
		gen.IntRange(1, 20),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestPropertyMixedPaymentIsExact(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("cash + card = total and paid = total", prop.ForAll(
		func(totalCents int64, cashCents int64) bool {
			total := decimal.New(totalCents, -2)
			cash := decimal.New(cashCents%(totalCents+1), -2)
			pay, err := settle(domain.PaymentMixed, nil, &cash, total)
			if err != nil {
				return false
			}
			return pay.cash.Add(pay.card).Equal(total) && pay.paid.Equal(total) && pay.change.IsZero()
		},
		gen.Int64Range(0, 10000000),
		gen.Int64Range(0, 10000000),
	))

	properties.TestingRun(t)
}
