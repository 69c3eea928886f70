package service

import (
	"context"
	"fmt"
	"time"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/report"
	"barakapos/backend/internal/store"
)

func (s *Service) ledgers(ctx context.Context) ([]domain.Sale, []domain.ReturnInvoice, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, nil, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, nil, err
	}
	returns, err := s.repo.ListReturns(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sales, returns, nil
}

// DailyReport covers the store-local calendar day of day.
func (s *Service) DailyReport(ctx context.Context, day time.Time) (domain.DailyReport, error) {
	sales, returns, err := s.ledgers(ctx)
	if err != nil {
		return domain.DailyReport{}, err
	}
	return report.Daily(sales, returns, s.localDay(day), s.loc), nil
}

func (s *Service) DailyReportCSV(ctx context.Context, day time.Time) (string, error) {
	r, err := s.DailyReport(ctx, day)
	if err != nil {
		return "", err
	}
	return report.CSV(r), nil
}

func (s *Service) WeeklyReport(ctx context.Context, start time.Time) ([]domain.DailyReport, error) {
	sales, returns, err := s.ledgers(ctx)
	if err != nil {
		return nil, err
	}
	return report.Weekly(sales, returns, s.localDay(start), s.loc), nil
}

func (s *Service) MonthlyReport(ctx context.Context, year int, month time.Month) ([]domain.DailyReport, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month must be 1-12", store.ErrValidation)
	}
	sales, returns, err := s.ledgers(ctx)
	if err != nil {
		return nil, err
	}
	return report.Monthly(sales, returns, year, month, s.loc), nil
}

func (s *Service) TopProducts(ctx context.Context, days int) ([]domain.ProductSales, error) {
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be positive", store.ErrValidation)
	}
	sales, _, err := s.ledgers(ctx)
	if err != nil {
		return nil, err
	}
	return report.TopProducts(sales, s.now().UTC(), days), nil
}

// Today is the current date in the store timezone, as parsed dates are.
func (s *Service) Today() time.Time {
	return domain.CalendarDate(s.now(), s.loc)
}

// localDay reinterprets a parsed calendar date (UTC midnight) as noon of the
// same date in the store timezone.
func (s *Service) localDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, s.loc)
}
