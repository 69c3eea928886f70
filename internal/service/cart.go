package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"barakapos/backend/internal/cart"
	"barakapos/backend/internal/domain"
)

func (s *Service) session(actor domain.Actor) *session {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	sess, ok := s.sessions[actor.Username]
	if !ok {
		sess = &session{cart: cart.New()}
		s.sessions[actor.Username] = sess
	}
	return sess
}

func (s *Service) GetCart(ctx context.Context) (domain.CartView, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	sess := s.session(actor)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return s.cartView(ctx, sess.cart)
}

// AddToCart adds one unit of the product. Out-of-stock products and
// increments past live stock leave the cart as it was.
func (s *Service) AddToCart(ctx context.Context, productID string) (domain.CartView, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	live, err := s.repo.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.CartView{}, err
	}

	sess := s.session(actor)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.cart.Add(*live)
	return s.cartView(ctx, sess.cart)
}

func (s *Service) SetCartQuantity(ctx context.Context, productID string, qty int) (domain.CartView, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	productID = strings.TrimSpace(productID)

	sess := s.session(actor)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if qty <= 0 || !sess.cart.Has(productID) {
		sess.cart.SetQuantity(productID, qty, 0)
		return s.cartView(ctx, sess.cart)
	}
	live, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.CartView{}, err
	}
	sess.cart.SetQuantity(productID, qty, live.Quantity)
	return s.cartView(ctx, sess.cart)
}

func (s *Service) RemoveFromCart(ctx context.Context, productID string) (domain.CartView, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	sess := s.session(actor)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.cart.Remove(strings.TrimSpace(productID))
	return s.cartView(ctx, sess.cart)
}

func (s *Service) ClearCart(ctx context.Context) (domain.CartView, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	sess := s.session(actor)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.cart.Clear()
	return s.cartView(ctx, sess.cart)
}

// Logout drops the signed-in user's cart.
func (s *Service) Logout(ctx context.Context) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}
	s.sessionsMu.Lock()
	sess, ok := s.sessions[actor.Username]
	delete(s.sessions, actor.Username)
	s.sessionsMu.Unlock()

	if ok {
		sess.mu.Lock()
		sess.cart.Clear()
		sess.mu.Unlock()
	}
	return nil
}

func (s *Service) cartView(ctx context.Context, c *cart.Cart) (domain.CartView, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	totals, err := c.Totals(settings.TaxRate, decimal.Zero)
	if err != nil {
		return domain.CartView{}, err
	}
	return domain.CartView{
		Items:    c.Items(),
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Total:    totals.Total,
		TaxRate:  settings.TaxRate,
	}, nil
}
