package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"barakapos/backend/internal/domain"
)

const receiptWidth = 40

// Receipt renders a plain-text receipt from the sale snapshot and the
// current store settings.
func (s *Service) Receipt(ctx context.Context, saleID string) (domain.ReceiptResponse, error) {
	sale, err := s.repo.GetSale(ctx, strings.TrimSpace(saleID))
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	return domain.ReceiptResponse{SaleID: sale.ID, Text: renderReceipt(*sale, settings, s.loc)}, nil
}

func renderReceipt(sale domain.Sale, settings domain.Settings, loc *time.Location) string {
	var b strings.Builder
	rule := strings.Repeat("-", receiptWidth)
	money := func(d decimal.Decimal) string {
		return d.StringFixed(2) + " " + settings.Currency
	}
	row := func(label string, value string) {
		pad := receiptWidth - len(label) - len(value)
		if pad < 1 {
			pad = 1
		}
		b.WriteString(label + strings.Repeat(" ", pad) + value + "\n")
	}

	b.WriteString(center(settings.StoreName) + "\n")
	b.WriteString(rule + "\n")
	row("Sale", sale.ID)
	row("Date", sale.Timestamp.In(loc).Format("2006-01-02 15:04"))
	cashier := sale.CashierName
	if cashier == "" {
		cashier = sale.CashierID
	}
	row("Cashier", cashier)
	b.WriteString(rule + "\n")

	for _, item := range sale.Items {
		b.WriteString(item.Product.Name + "\n")
		lineTotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		row(fmt.Sprintf("  %d x %s", item.Quantity, item.Product.Price.StringFixed(2)), money(lineTotal))
	}
	b.WriteString(rule + "\n")

	row("Subtotal", money(sale.Subtotal))
	rate := sale.TaxRate
	if rate.IsZero() && !sale.Tax.IsZero() {
		// Sales recorded before the rate was kept on the sale.
		rate = settings.TaxRate
	}
	row("Tax ("+rate.String()+"%)", money(sale.Tax))
	if sale.Discount.IsPositive() {
		row("Discount", "-"+money(sale.Discount))
	}
	row("Total", money(sale.Total))
	b.WriteString(rule + "\n")

	switch sale.PaymentMethod {
	case domain.PaymentMixed:
		row("Cash", money(sale.CashAmount))
		row("Card", money(sale.CardAmount))
	case domain.PaymentVisa:
		row("Card", money(sale.CardAmount))
	default:
		row("Paid", money(sale.PaidAmount))
		row("Change", money(sale.Change))
	}
	if sale.Status != domain.SaleStatusCompleted {
		row("Returned", money(sale.ReturnedAmount))
	}

	if settings.ReceiptFooter != "" {
		b.WriteString(rule + "\n")
		b.WriteString(center(settings.ReceiptFooter) + "\n")
	}
	return b.String()
}

func center(text string) string {
	if len(text) >= receiptWidth {
		return text
	}
	return strings.Repeat(" ", (receiptWidth-len(text))/2) + text
}
