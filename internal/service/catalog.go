package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/snapshot"
	"barakapos/backend/internal/store"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validationError flattens validator field errors into one ErrValidation.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", store.ErrValidation, strings.Join(parts, "; "))
}

func (s *Service) validateProduct(p domain.Product) error {
	if err := s.validate.Struct(p); err != nil {
		return validationError(err)
	}
	if p.Price.IsNegative() || p.Cost.IsNegative() {
		return fmt.Errorf("%w: price and cost must not be negative", store.ErrValidation)
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, strings.TrimSpace(id))
}

// SearchProducts matches name case-insensitively and barcode by substring.
// An empty term lists everything.
func (s *Service) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return products, nil
	}
	needle := strings.ToLower(term)
	matched := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(p.Barcode, term) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.ProductMutationResponse, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.ProductMutationResponse{}, err
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.ProductMutationResponse{}, validationError(err)
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.ProductMutationResponse{}, err
	}

	now := s.now().UTC()
	product := domain.Product{
		Name:        strings.TrimSpace(req.Name),
		Barcode:     strings.TrimSpace(req.Barcode),
		Price:       req.Price,
		Cost:        req.Cost,
		Quantity:    req.Quantity,
		Unit:        strings.ToLower(strings.TrimSpace(req.Unit)),
		MinQuantity: settings.LowStockDefault,
		Category:    strings.TrimSpace(req.Category),
		Image:       strings.TrimSpace(req.Image),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if product.Unit == "" {
		product.Unit = domain.UnitPiece
	}
	if req.MinQuantity != nil {
		product.MinQuantity = *req.MinQuantity
	}
	if expiry := strings.TrimSpace(req.ExpiryDate); expiry != "" {
		parsed, err := domain.ParseDate(expiry)
		if err != nil {
			return domain.ProductMutationResponse{}, fmt.Errorf("%w: expiry_date must be YYYY-MM-DD", store.ErrValidation)
		}
		product.ExpiryDate = &parsed
	}
	if err := s.validateProduct(product); err != nil {
		return domain.ProductMutationResponse{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.ProductMutationResponse{}, err
	}
	s.persist(ctx, snapshot.KeyProducts)

	alerts := s.alertsAfterCommit(ctx)
	return domain.ProductMutationResponse{Product: created, NewAlerts: alerts}, nil
}

// UpdateProduct merges the present fields into the live product inside the
// store's critical section. The id and creation time never change.
func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.ProductMutationResponse, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.ProductMutationResponse{}, err
	}

	var expiry *time.Time
	if req.ExpiryDate != nil {
		if raw := strings.TrimSpace(*req.ExpiryDate); raw != "" {
			parsed, err := domain.ParseDate(raw)
			if err != nil {
				return domain.ProductMutationResponse{}, fmt.Errorf("%w: expiry_date must be YYYY-MM-DD", store.ErrValidation)
			}
			expiry = &parsed
		}
	}
	now := s.now().UTC()

	saved, err := s.repo.UpdateProduct(ctx, strings.TrimSpace(id), func(p *domain.Product) error {
		previous := p.UpdatedAt
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Barcode != nil {
			p.Barcode = strings.TrimSpace(*req.Barcode)
		}
		if req.Price != nil {
			p.Price = *req.Price
		}
		if req.Cost != nil {
			p.Cost = *req.Cost
		}
		if req.Quantity != nil {
			p.Quantity = *req.Quantity
		}
		if req.Unit != nil {
			p.Unit = strings.ToLower(strings.TrimSpace(*req.Unit))
		}
		if req.MinQuantity != nil {
			p.MinQuantity = *req.MinQuantity
		}
		if req.Category != nil {
			p.Category = strings.TrimSpace(*req.Category)
		}
		if req.Image != nil {
			p.Image = strings.TrimSpace(*req.Image)
		}
		if req.ExpiryDate != nil {
			p.ExpiryDate = expiry
		}
		p.UpdatedAt = now
		if !p.UpdatedAt.After(previous) {
			p.UpdatedAt = previous.Add(time.Nanosecond)
		}
		return s.validateProduct(*p)
	})
	if err != nil {
		return domain.ProductMutationResponse{}, err
	}
	s.persist(ctx, snapshot.KeyProducts)

	alerts := s.alertsAfterCommit(ctx)
	return domain.ProductMutationResponse{Product: saved, NewAlerts: alerts}, nil
}

// DeleteProduct removes the product. Sales and returns keep their own
// snapshots so nothing cascades.
func (s *Service) DeleteProduct(ctx context.Context, id string) (domain.ProductMutationResponse, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.ProductMutationResponse{}, err
	}
	if err := s.repo.DeleteProduct(ctx, strings.TrimSpace(id)); err != nil {
		return domain.ProductMutationResponse{}, err
	}
	s.persist(ctx, snapshot.KeyProducts)

	alerts := s.alertsAfterCommit(ctx)
	return domain.ProductMutationResponse{NewAlerts: alerts}, nil
}
