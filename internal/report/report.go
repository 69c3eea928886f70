package report

import (
	"encoding/csv"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"barakapos/backend/internal/domain"
)

// TopLimit caps the per-day product ranking.
const TopLimit = 10

// Daily summarises the calendar day containing day, in loc. Fully returned
// sales are left out of sales figures; returns are counted by their own
// timestamp.
func Daily(sales []domain.Sale, returns []domain.ReturnInvoice, day time.Time, loc *time.Location) domain.DailyReport {
	start, end := domain.DayWindow(day, loc)

	daySales := make([]domain.Sale, 0)
	for _, sale := range sales {
		if sale.Status == domain.SaleStatusReturned || !within(sale.Timestamp, start, end) {
			continue
		}
		daySales = append(daySales, sale)
	}

	totalSales := decimal.Zero
	totalProfit := decimal.Zero
	for _, sale := range daySales {
		totalSales = totalSales.Add(sale.Total)
		for _, item := range sale.Items {
			margin := item.Product.Price.Sub(item.Product.Cost)
			totalProfit = totalProfit.Add(margin.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}

	totalReturns := decimal.Zero
	for _, ret := range returns {
		if within(ret.Timestamp, start, end) {
			totalReturns = totalReturns.Add(ret.TotalAmount)
		}
	}

	top := rank(daySales)
	if len(top) > TopLimit {
		top = top[:TopLimit]
	}

	return domain.DailyReport{
		Date:             start.Format(domain.DateLayout),
		TotalSales:       totalSales,
		TotalReturns:     totalReturns,
		NetSales:         totalSales.Sub(totalReturns),
		TotalProfit:      totalProfit,
		TransactionCount: len(daySales),
		TopProducts:      top,
	}
}

// Weekly is seven consecutive daily reports starting at start.
func Weekly(sales []domain.Sale, returns []domain.ReturnInvoice, start time.Time, loc *time.Location) []domain.DailyReport {
	reports := make([]domain.DailyReport, 0, 7)
	for i := 0; i < 7; i++ {
		reports = append(reports, Daily(sales, returns, start.AddDate(0, 0, i), loc))
	}
	return reports
}

// Monthly is one daily report per calendar day of the month.
func Monthly(sales []domain.Sale, returns []domain.ReturnInvoice, year int, month time.Month, loc *time.Location) []domain.DailyReport {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 12, 0, 0, 0, loc)
	days := first.AddDate(0, 1, -1).Day()
	reports := make([]domain.DailyReport, 0, days)
	for d := 0; d < days; d++ {
		reports = append(reports, Daily(sales, returns, first.AddDate(0, 0, d), loc))
	}
	return reports
}

// TopProducts ranks every product sold in the trailing days window by
// revenue.
func TopProducts(sales []domain.Sale, now time.Time, days int) []domain.ProductSales {
	since := now.AddDate(0, 0, -days)
	recent := make([]domain.Sale, 0)
	for _, sale := range sales {
		if sale.Status == domain.SaleStatusReturned || sale.Timestamp.Before(since) || sale.Timestamp.After(now) {
			continue
		}
		recent = append(recent, sale)
	}
	return rank(recent)
}

// CSV renders a daily report as section,key,value rows.
func CSV(r domain.DailyReport) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	rows := [][]string{
		{"section", "key", "value"},
		{"summary", "date", r.Date},
		{"summary", "transactions", strconv.Itoa(r.TransactionCount)},
		{"summary", "total_sales", r.TotalSales.StringFixed(2)},
		{"summary", "total_returns", r.TotalReturns.StringFixed(2)},
		{"summary", "net_sales", r.NetSales.StringFixed(2)},
		{"summary", "total_profit", r.TotalProfit.StringFixed(2)},
	}
	for _, p := range r.TopProducts {
		rows = append(rows,
			[]string{"product", p.ProductID + "_quantity", strconv.Itoa(p.QuantitySold)},
			[]string{"product", p.ProductID + "_revenue", p.Revenue.StringFixed(2)},
		)
	}
	// Writes to a strings.Builder cannot fail.
	_ = w.WriteAll(rows)
	return b.String()
}

func rank(sales []domain.Sale) []domain.ProductSales {
	byID := make(map[string]*domain.ProductSales)
	for _, sale := range sales {
		for _, item := range sale.Items {
			entry, ok := byID[item.Product.ID]
			if !ok {
				entry = &domain.ProductSales{ProductID: item.Product.ID, ProductName: item.Product.Name, Revenue: decimal.Zero}
				byID[item.Product.ID] = entry
			}
			entry.QuantitySold += item.Quantity
			entry.Revenue = entry.Revenue.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}

	ranked := make([]domain.ProductSales, 0, len(byID))
	for _, entry := range byID {
		ranked = append(ranked, *entry)
	}
	slices.SortFunc(ranked, func(a, b domain.ProductSales) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return strings.Compare(a.ProductID, b.ProductID)
	})
	return ranked
}

func within(t time.Time, start time.Time, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
