package alert

import (
	"strings"
	"testing"
	"time"

	"barakapos/backend/internal/domain"
)

func datePtr(t time.Time) *time.Time {
	d := domain.CalendarDate(t, time.UTC)
	return &d
}

func typesFor(alerts []domain.InventoryAlert, productID string) map[string]domain.InventoryAlert {
	out := make(map[string]domain.InventoryAlert)
	for _, a := range alerts {
		if a.ProductID == productID {
			out[a.Type] = a
		}
	}
	return out
}

func TestEvaluateLowStockMessageContainsQuantity(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	alerts := Evaluate([]domain.Product{{ID: "p1", Name: "Cooking Oil", Quantity: 5, MinQuantity: 10}}, now, time.UTC)

	if len(alerts) != 1 || alerts[0].Type != domain.AlertLowStock {
		t.Fatalf("expected single low_stock alert, got %+v", alerts)
	}
	if !strings.Contains(alerts[0].Message, "5") {
		t.Fatalf("expected message to mention quantity 5, got %q", alerts[0].Message)
	}
}

func TestEvaluateLowStockAtThreshold(t *testing.T) {
	now := time.Now().UTC()
	alerts := Evaluate([]domain.Product{
		{ID: "at", Quantity: 10, MinQuantity: 10},
		{ID: "above", Quantity: 11, MinQuantity: 10},
	}, now, time.UTC)

	if _, ok := typesFor(alerts, "at")[domain.AlertLowStock]; !ok {
		t.Fatalf("expected low_stock when quantity equals minimum")
	}
	if len(typesFor(alerts, "above")) != 0 {
		t.Fatalf("expected no alert above minimum")
	}
}

func TestEvaluateExpiryClassification(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	products := []domain.Product{
		{ID: "yesterday", Name: "Milk", Quantity: 50, ExpiryDate: datePtr(now.AddDate(0, 0, -1))},
		{ID: "today", Name: "Bread", Quantity: 50, ExpiryDate: datePtr(now)},
		{ID: "five", Name: "Yogurt", Quantity: 50, ExpiryDate: datePtr(now.AddDate(0, 0, 5))},
		{ID: "seven", Name: "Cheese", Quantity: 50, ExpiryDate: datePtr(now.AddDate(0, 0, 7))},
		{ID: "ten", Name: "Rice", Quantity: 50, ExpiryDate: datePtr(now.AddDate(0, 0, 10))},
	}

	alerts := Evaluate(products, now, time.UTC)

	if _, ok := typesFor(alerts, "yesterday")[domain.AlertExpired]; !ok {
		t.Fatalf("expected expired for yesterday")
	}
	if _, ok := typesFor(alerts, "today")[domain.AlertExpired]; !ok {
		t.Fatalf("expected expired for expiry today")
	}
	soon, ok := typesFor(alerts, "five")[domain.AlertExpiringSoon]
	if !ok {
		t.Fatalf("expected expiring_soon for +5 days")
	}
	if !strings.Contains(soon.Message, "5") {
		t.Fatalf("expected day count in message, got %q", soon.Message)
	}
	if _, ok := typesFor(alerts, "seven")[domain.AlertExpiringSoon]; !ok {
		t.Fatalf("expected expiring_soon for +7 days")
	}
	if got := typesFor(alerts, "ten"); len(got) != 0 {
		t.Fatalf("expected no alert for +10 days, got %+v", got)
	}
	if _, ok := typesFor(alerts, "yesterday")[domain.AlertExpiringSoon]; ok {
		t.Fatalf("expired product must not also be expiring_soon")
	}
}

func TestEvaluateCombinesTypesPerProduct(t *testing.T) {
	now := time.Now().UTC()
	alerts := Evaluate([]domain.Product{
		{ID: "p1", Quantity: 0, MinQuantity: 10, ExpiryDate: datePtr(now.AddDate(0, 0, 3))},
	}, now, time.UTC)

	got := typesFor(alerts, "p1")
	if len(got) != 2 {
		t.Fatalf("expected low_stock and expiring_soon, got %+v", got)
	}
}

func TestFreshSkipsOpenAlertsOnly(t *testing.T) {
	existing := []domain.InventoryAlert{
		{ID: "a1", ProductID: "p1", Type: domain.AlertLowStock},
		{ID: "a2", ProductID: "p2", Type: domain.AlertLowStock, Acknowledged: true},
	}
	candidates := []domain.InventoryAlert{
		{ProductID: "p1", Type: domain.AlertLowStock},
		{ProductID: "p1", Type: domain.AlertExpired},
		{ProductID: "p2", Type: domain.AlertLowStock},
		{ProductID: "p2", Type: domain.AlertLowStock},
	}

	fresh := Fresh(existing, candidates)
	if len(fresh) != 2 {
		t.Fatalf("expected 2 fresh alerts, got %+v", fresh)
	}
	if fresh[0].ProductID != "p1" || fresh[0].Type != domain.AlertExpired {
		t.Fatalf("unexpected first fresh alert %+v", fresh[0])
	}
	if fresh[1].ProductID != "p2" || fresh[1].Type != domain.AlertLowStock {
		t.Fatalf("expected acknowledged alert to allow a new one, got %+v", fresh[1])
	}
}
