package service

import (
	"context"
	"slices"
	"strings"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/snapshot"
)

// ListAlerts returns alerts newest first.
func (s *Service) ListAlerts(ctx context.Context, unacknowledgedOnly bool) ([]domain.InventoryAlert, error) {
	alerts, err := s.repo.ListAlerts(ctx)
	if err != nil {
		return nil, err
	}
	if unacknowledgedOnly {
		alerts = slices.DeleteFunc(alerts, func(a domain.InventoryAlert) bool {
			return a.Acknowledged
		})
	}
	slices.SortStableFunc(alerts, func(a, b domain.InventoryAlert) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return alerts, nil
}

// AcknowledgeAlert is idempotent; acknowledged alerts are kept.
func (s *Service) AcknowledgeAlert(ctx context.Context, id string) (*domain.InventoryAlert, error) {
	if _, err := s.actor(ctx); err != nil {
		return nil, err
	}
	acked, err := s.repo.AcknowledgeAlert(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	s.persist(ctx, snapshot.KeyAlerts)
	return acked, nil
}
