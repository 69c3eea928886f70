package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/store"
)

func sampleState() store.State {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	return store.State{
		Products: []domain.Product{{ID: "p1", Name: "Rice", Barcode: "1", Price: decimal.RequireFromString("25.50"), Quantity: 3, Unit: domain.UnitKg, Category: "Grains", CreatedAt: now}},
		Sales:    []domain.Sale{{ID: "s1", Total: decimal.RequireFromString("29.07"), Status: domain.SaleStatusCompleted, Timestamp: now}},
		Returns:  []domain.ReturnInvoice{},
		Alerts:   []domain.InventoryAlert{{ID: "a1", ProductID: "p1", Type: domain.AlertLowStock}},
		Settings: &domain.Settings{StoreName: "Baraka", TaxRate: decimal.NewFromInt(14), Currency: "EGP"},
	}
}

func TestSaveWritesVersionedEnvelope(t *testing.T) {
	backend := NewMemoryBackend()
	m := NewManager(backend)

	if err := m.Save(context.Background(), sampleState(), KeyProducts); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, ok, _ := backend.Get(context.Background(), KeyProducts)
	if !ok {
		t.Fatalf("expected products to be written")
	}
	var env struct {
		Version int               `json:"version"`
		Items   []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != CurrentVersion || len(env.Items) != 1 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if _, ok, _ := backend.Get(context.Background(), KeySales); ok {
		t.Fatalf("expected only the requested key to be written")
	}
}

func TestLoadLeavesMissingCollectionsNil(t *testing.T) {
	backend := NewMemoryBackend()
	m := NewManager(backend)
	ctx := context.Background()

	if err := m.Save(ctx, sampleState(), KeySales, KeySettings); err != nil {
		t.Fatalf("save: %v", err)
	}
	state, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if state.Products != nil || state.Alerts != nil {
		t.Fatalf("expected unsaved collections to stay nil")
	}
	if len(state.Sales) != 1 || !state.Sales[0].Total.Equal(decimal.RequireFromString("29.07")) {
		t.Fatalf("unexpected sales %+v", state.Sales)
	}
	if state.Settings == nil || state.Settings.StoreName != "Baraka" {
		t.Fatalf("expected settings restored, got %+v", state.Settings)
	}
}

func TestLoadAcceptsLegacyBareArray(t *testing.T) {
	backend := NewMemoryBackend()
	legacy := `[{"id":"p9","name":"Tea","barcode":"9","price":"12","cost":"8.5","quantity":0,"unit":"piece","min_quantity":10,"category":"Beverages"}]`
	_ = backend.Put(context.Background(), KeyProducts, []byte(legacy))

	state, err := NewManager(backend).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.Products) != 1 || state.Products[0].ID != "p9" {
		t.Fatalf("expected legacy product loaded, got %+v", state.Products)
	}
}

func TestLoadRejectsFutureVersion(t *testing.T) {
	backend := NewMemoryBackend()
	_ = backend.Put(context.Background(), KeyAlerts, []byte(`{"version":99,"items":[]}`))

	_, err := NewManager(backend).Load(context.Background())
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestFileBackendPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	if err := NewManager(first).Save(ctx, sampleState()); err != nil {
		t.Fatalf("save: %v", err)
	}

	second, _ := NewFileBackend(dir)
	state, err := NewManager(second).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.Products) != 1 || len(state.Alerts) != 1 || state.Returns == nil {
		t.Fatalf("unexpected state from disk %+v", state)
	}
}

func TestRedisBackendRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	backend := NewRedisBackend(client, "test")
	ctx := context.Background()
	if err := backend.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if _, ok, err := backend.Get(ctx, KeySales); ok || err != nil {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := NewManager(backend).Save(ctx, sampleState(), KeySales); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("test:state:sales") {
		t.Fatalf("expected prefixed redis key")
	}
	state, err := NewManager(backend).Load(ctx)
	if err != nil || len(state.Sales) != 1 {
		t.Fatalf("expected sales from redis, got %+v (%v)", state.Sales, err)
	}
}
