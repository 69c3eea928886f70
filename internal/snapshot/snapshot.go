package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/store"
)

const (
	KeyProducts = "products"
	KeySales    = "sales"
	KeyReturns  = "returns"
	KeyAlerts   = "alerts"
	KeySettings = "settings"
)

// CurrentVersion tags every written collection. Version 0 is the legacy
// layout where a collection is a bare JSON array.
const CurrentVersion = 1

var AllKeys = []string{KeyProducts, KeySales, KeyReturns, KeyAlerts, KeySettings}

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Backend stores opaque payloads by collection key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, payload []byte) error
}

type envelope struct {
	Version int             `json:"version"`
	Items   json.RawMessage `json:"items"`
}

type Manager struct {
	backend Backend
}

func NewManager(backend Backend) *Manager {
	return &Manager{backend: backend}
}

// Save writes the named collections of state; no keys means all of them.
func (m *Manager) Save(ctx context.Context, state store.State, keys ...string) error {
	if len(keys) == 0 {
		keys = AllKeys
	}
	for _, key := range keys {
		var items any
		switch key {
		case KeyProducts:
			items = nonNil(state.Products)
		case KeySales:
			items = nonNil(state.Sales)
		case KeyReturns:
			items = nonNil(state.Returns)
		case KeyAlerts:
			items = nonNil(state.Alerts)
		case KeySettings:
			if state.Settings == nil {
				continue
			}
			items = state.Settings
		default:
			return fmt.Errorf("unknown snapshot key %q", key)
		}

		raw, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		payload, err := json.Marshal(envelope{Version: CurrentVersion, Items: raw})
		if err != nil {
			return fmt.Errorf("encode %s envelope: %w", key, err)
		}
		if err := m.backend.Put(ctx, key, payload); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	return nil
}

// Load reads every collection. Missing collections stay nil so Restore
// keeps whatever the store already holds for them.
func (m *Manager) Load(ctx context.Context) (store.State, error) {
	var state store.State
	for _, key := range AllKeys {
		payload, ok, err := m.backend.Get(ctx, key)
		if err != nil {
			return store.State{}, fmt.Errorf("read %s: %w", key, err)
		}
		if !ok {
			continue
		}
		items, err := unwrap(payload)
		if err != nil {
			return store.State{}, fmt.Errorf("decode %s: %w", key, err)
		}

		switch key {
		case KeyProducts:
			err = json.Unmarshal(items, &state.Products)
			if err == nil && state.Products == nil {
				state.Products = []domain.Product{}
			}
		case KeySales:
			err = json.Unmarshal(items, &state.Sales)
			if err == nil && state.Sales == nil {
				state.Sales = []domain.Sale{}
			}
		case KeyReturns:
			err = json.Unmarshal(items, &state.Returns)
			if err == nil && state.Returns == nil {
				state.Returns = []domain.ReturnInvoice{}
			}
		case KeyAlerts:
			err = json.Unmarshal(items, &state.Alerts)
			if err == nil && state.Alerts == nil {
				state.Alerts = []domain.InventoryAlert{}
			}
		case KeySettings:
			var settings domain.Settings
			if err = json.Unmarshal(items, &settings); err == nil {
				state.Settings = &settings
			}
		}
		if err != nil {
			return store.State{}, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	return state, nil
}

func unwrap(payload []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return trimmed, nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	if env.Version < 1 || env.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	return env.Items, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// MemoryBackend keeps payloads in process. Used for tests and demo runs.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	payload, ok := b.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(payload), true, nil
}

func (b *MemoryBackend) Put(_ context.Context, key string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data[key] = bytes.Clone(payload)
	return nil
}
