package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"barakapos/backend/internal/alert"
	"barakapos/backend/internal/cart"
	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/events"
	"barakapos/backend/internal/metrics"
	"barakapos/backend/internal/snapshot"
	"barakapos/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Options wires the optional collaborators. Zero values disable
// persistence, events and metrics, log nowhere and use UTC wall time.
type Options struct {
	Snapshots *snapshot.Manager
	Events    events.Publisher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Location  *time.Location
	Now       func() time.Time
}

type Service struct {
	repo      store.Repository
	snapshots *snapshot.Manager
	events    events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
	validate  *validator.Validate

	sessionsMu sync.Mutex
	sessions   map[string]*session

	// persistMu orders Export and Save pairs so a stale export is never
	// written after a newer one.
	persistMu sync.Mutex
}

// session is one signed-in user's cart. mu serializes cart edits and
// checkout for that user.
type session struct {
	mu   sync.Mutex
	cart *cart.Cart
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Events == nil {
		opts.Events = events.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:      repo,
		snapshots: opts.Snapshots,
		events:    opts.Events,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		loc:       opts.Location,
		now:       opts.Now,
		validate:  newValidator(),
		sessions:  make(map[string]*session),
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// Reevaluate runs the alert engine over the current catalog and returns the
// alerts that were newly raised.
func (s *Service) Reevaluate(ctx context.Context) ([]domain.InventoryAlert, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	fresh, err := s.repo.RaiseAlerts(ctx, alert.Evaluate(products, now, s.loc))
	if err != nil {
		return nil, err
	}
	if len(fresh) == 0 {
		return fresh, nil
	}

	s.persist(ctx, snapshot.KeyAlerts)
	for _, a := range fresh {
		s.metrics.AlertRaised(a.Type)
		s.publish(ctx, events.Event{
			EventType: events.TypeAlertRaised,
			EntityID:  a.ID,
			Timestamp: a.Timestamp,
			Data:      a,
		})
	}
	s.logger.Info("inventory alerts raised", zap.Int("count", len(fresh)))
	return fresh, nil
}

// alertsAfterCommit reevaluates alerts once a mutation is committed. The
// mutation stands even if reevaluation fails.
func (s *Service) alertsAfterCommit(ctx context.Context) []domain.InventoryAlert {
	alerts, err := s.Reevaluate(ctx)
	if err != nil {
		s.logger.Error("reevaluate alerts", zap.Error(err))
		return []domain.InventoryAlert{}
	}
	return alerts
}

func (s *Service) actor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || strings.TrimSpace(actor.Username) == "" {
		return domain.Actor{}, fmt.Errorf("%w: sign in required", store.ErrForbidden)
	}
	return actor, nil
}

func (s *Service) requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if actor.Role != domain.RoleAdmin {
		return domain.Actor{}, fmt.Errorf("%w: admin role required", store.ErrForbidden)
	}
	return actor, nil
}

// persist writes the named collections after a committed mutation. A failed
// write is logged; the in-memory state stays authoritative.
func (s *Service) persist(ctx context.Context, keys ...string) {
	if s.snapshots == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	state, err := s.repo.Export(ctx)
	if err != nil {
		s.logger.Error("export state", zap.Error(err))
		return
	}
	if err := s.snapshots.Save(ctx, state, keys...); err != nil {
		s.logger.Error("persist state", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", event.EventType), zap.Error(err))
	}
}
