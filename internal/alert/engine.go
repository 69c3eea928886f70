package alert

import (
	"fmt"
	"time"

	"barakapos/backend/internal/domain"
)

// ExpiringSoonDays is the window, in calendar days, for expiring_soon.
const ExpiringSoonDays = 7

type key struct {
	kind      string
	productID string
}

// Evaluate derives the alerts the catalog warrants at now. The returned
// alerts carry no id and are not deduplicated against history.
func Evaluate(products []domain.Product, now time.Time, loc *time.Location) []domain.InventoryAlert {
	today := domain.CalendarDate(now, loc)
	alerts := make([]domain.InventoryAlert, 0)
	for _, product := range products {
		if product.Quantity <= product.MinQuantity {
			alerts = append(alerts, domain.InventoryAlert{
				ProductID:   product.ID,
				ProductName: product.Name,
				Type:        domain.AlertLowStock,
				Message:     fmt.Sprintf("product %q reached its minimum level (%d remaining)", product.Name, product.Quantity),
				Timestamp:   now,
			})
		}

		if product.ExpiryDate == nil {
			continue
		}
		days := DaysUntilExpiry(*product.ExpiryDate, today)
		switch {
		case days <= 0:
			alerts = append(alerts, domain.InventoryAlert{
				ProductID:   product.ID,
				ProductName: product.Name,
				Type:        domain.AlertExpired,
				Message:     fmt.Sprintf("product %q has expired", product.Name),
				Timestamp:   now,
			})
		case days <= ExpiringSoonDays:
			alerts = append(alerts, domain.InventoryAlert{
				ProductID:   product.ID,
				ProductName: product.Name,
				Type:        domain.AlertExpiringSoon,
				Message:     fmt.Sprintf("product %q expires in %d days", product.Name, days),
				Timestamp:   now,
			})
		}
	}
	return alerts
}

// DaysUntilExpiry is the calendar-day distance from today to expiry; zero or
// less means expired.
func DaysUntilExpiry(expiry time.Time, today time.Time) int {
	return domain.DaysBetween(today, expiry)
}

// Fresh filters candidates down to the ones that have no unacknowledged
// alert with the same (type, product) in existing. Duplicates within
// candidates collapse to the first.
func Fresh(existing []domain.InventoryAlert, candidates []domain.InventoryAlert) []domain.InventoryAlert {
	open := make(map[key]bool, len(existing))
	for _, a := range existing {
		if a.Acknowledged {
			continue
		}
		open[key{a.Type, a.ProductID}] = true
	}

	fresh := make([]domain.InventoryAlert, 0, len(candidates))
	for _, c := range candidates {
		k := key{c.Type, c.ProductID}
		if open[k] {
			continue
		}
		open[k] = true
		fresh = append(fresh, c)
	}
	return fresh
}
