package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/store"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func legacyAdminStore() *userStoreStub {
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      domain.RoleAdmin,
				Name:      "General Manager",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	users := legacyAdminStore()

	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, users)
	resp, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Name != "General Manager" {
		t.Fatalf("expected display name in login response, got %q", resp.Name)
	}

	stored, err := users.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 user, got %d", len(stored))
	}
	if stored[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(stored[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", stored[0].Password)
	}
}

func TestCreateCashierStoresPasswordHash(t *testing.T) {
	users := legacyAdminStore()

	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, users)
	cashier, err := manager.CreateCashier(context.Background(), domain.CashierCreateRequest{
		Username: "NewCashier",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("create cashier failed: %v", err)
	}
	if cashier.Username != "newcashier" || cashier.Name != "newcashier" {
		t.Fatalf("unexpected cashier %+v", cashier)
	}

	stored, err := users.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	var found *domain.UserAccount
	for i := range stored {
		if stored[i].Username == "newcashier" {
			found = &stored[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("expected cashier to be saved")
	}
	if found.Password == "pass1234" {
		t.Fatalf("expected cashier password to be hashed")
	}
	if !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", found.Password)
	}

	_, err = manager.Login(context.Background(), domain.LoginRequest{
		Username: "newcashier",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("login with hashed cashier failed: %v", err)
	}
}

func TestCreateCashierValidation(t *testing.T) {
	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, legacyAdminStore())

	for _, req := range []domain.CashierCreateRequest{
		{Username: "abc", Password: "pass1234"},
		{Username: "two words", Password: "pass1234"},
		{Username: "cashier2", Password: "123"},
		{Username: "admin", Password: "pass1234"},
	} {
		if _, err := manager.CreateCashier(context.Background(), req); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
}

func TestInactiveAccountCannotLogin(t *testing.T) {
	users := &userStoreStub{users: map[string]domain.UserAccount{
		"old": {Username: "old", Password: mustHashPassword(t, "pass1234"), Role: domain.RoleCashier, Active: false},
	}}
	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, users)

	_, err := manager.Login(context.Background(), domain.LoginRequest{Username: "old", Password: "pass1234"})
	if !errors.Is(err, errInactiveAccount) {
		t.Fatalf("expected inactive account error, got %v", err)
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager(context.Background(), "test-secret", time.Hour, legacyAdminStore())
	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor %+v", actor)
	}

	other := NewAuthManager(context.Background(), "another-secret", time.Hour, legacyAdminStore())
	if _, err := other.ParseToken(resp.AccessToken); !errors.Is(err, errInvalidToken) {
		t.Fatalf("expected token signed with another secret to fail, got %v", err)
	}
}
