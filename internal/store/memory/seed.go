package memory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"barakapos/backend/internal/domain"
)

// SeedUsers builds the default admin and cashier accounts with bcrypt
// hashed passwords.
func SeedUsers(adminPassword string, cashierPassword string) ([]domain.UserAccount, error) {
	now := time.Now().UTC()
	users := make([]domain.UserAccount, 0, 2)
	for _, u := range []struct {
		username string
		password string
		role     string
		name     string
	}{
		{"admin", adminPassword, domain.RoleAdmin, "General Manager"},
		{"cashier", cashierPassword, domain.RoleCashier, "Cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash seed password for %s: %w", u.username, err)
		}
		users = append(users, domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Name:      u.name,
			Active:    true,
			CreatedAt: now,
		})
	}
	return users, nil
}

// SeedProducts returns the demo catalog. Expiry dates are relative to now so
// a fresh demo shows every alert type.
func SeedProducts(now time.Time) []domain.Product {
	day := domain.CalendarDate(now, time.UTC)
	expiry := func(days int) *time.Time {
		d := day.AddDate(0, 0, days)
		return &d
	}
	ts := now.UTC()
	return []domain.Product{
		{
			ID: "prd-rice", Name: "White Rice", Barcode: "1234567890123",
			Price: decimal.RequireFromString("25.50"), Cost: decimal.RequireFromString("20.00"),
			Quantity: 50, Unit: domain.UnitKg, MinQuantity: 10, ExpiryDate: expiry(180),
			Category: "Grains", CreatedAt: ts, UpdatedAt: ts,
		},
		{
			ID: "prd-oil", Name: "Cooking Oil", Barcode: "2345678901234",
			Price: decimal.RequireFromString("45.00"), Cost: decimal.RequireFromString("35.00"),
			Quantity: 5, Unit: domain.UnitPiece, MinQuantity: 10, ExpiryDate: expiry(5),
			Category: "Oils", CreatedAt: ts.Add(time.Millisecond), UpdatedAt: ts,
		},
		{
			ID: "prd-sugar", Name: "White Sugar", Barcode: "3456789012345",
			Price: decimal.RequireFromString("18.75"), Cost: decimal.RequireFromString("15.00"),
			Quantity: 30, Unit: domain.UnitKg, MinQuantity: 15,
			Category: "Sweeteners", CreatedAt: ts.Add(2 * time.Millisecond), UpdatedAt: ts,
		},
		{
			ID: "prd-tea", Name: "Black Tea", Barcode: "4567890123456",
			Price: decimal.RequireFromString("12.00"), Cost: decimal.RequireFromString("8.50"),
			Quantity: 0, Unit: domain.UnitPiece, MinQuantity: 10, ExpiryDate: expiry(-3),
			Category: "Beverages", CreatedAt: ts.Add(3 * time.Millisecond), UpdatedAt: ts,
		},
	}
}

// NewSeeded returns a store holding the demo catalog and the given users.
func NewSeeded(now time.Time, users []domain.UserAccount) *Store {
	s := New()
	for _, p := range SeedProducts(now) {
		s.products[p.ID] = p
	}
	for _, u := range users {
		s.usersByUsername[u.Username] = u
	}
	return s
}
