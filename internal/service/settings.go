package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/snapshot"
	"barakapos/backend/internal/store"
)

var maxTaxRate = decimal.NewFromInt(100)

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	return s.repo.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Settings{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	if req.StoreName != nil {
		settings.StoreName = strings.TrimSpace(*req.StoreName)
	}
	if req.TaxRate != nil {
		settings.TaxRate = *req.TaxRate
	}
	if req.Currency != nil {
		settings.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.ReceiptFooter != nil {
		settings.ReceiptFooter = strings.TrimSpace(*req.ReceiptFooter)
	}
	if req.LowStockDefault != nil {
		settings.LowStockDefault = *req.LowStockDefault
	}

	if err := s.validate.Struct(settings); err != nil {
		return domain.Settings{}, validationError(err)
	}
	if settings.TaxRate.IsNegative() || settings.TaxRate.GreaterThan(maxTaxRate) {
		return domain.Settings{}, fmt.Errorf("%w: tax_rate must be between 0 and 100", store.ErrValidation)
	}

	saved, err := s.repo.SaveSettings(ctx, settings)
	if err != nil {
		return domain.Settings{}, err
	}
	s.persist(ctx, snapshot.KeySettings)
	return saved, nil
}
