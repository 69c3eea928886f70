package store

import (
	"context"
	"errors"

	"barakapos/backend/internal/domain"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrOverpayment         = errors.New("cash amount exceeds total")
	ErrOverReturn          = errors.New("return exceeds returnable quantity")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrForbidden           = errors.New("forbidden")
)

// State is the full persisted business state. Nil collections mean "not
// loaded" when restoring.
type State struct {
	Products []domain.Product
	Sales    []domain.Sale
	Returns  []domain.ReturnInvoice
	Alerts   []domain.InventoryAlert
	Settings *domain.Settings
}

// ReturnPlan is what a return planner decides for one sale: the invoice to
// append and the sale as it must look afterwards.
type ReturnPlan struct {
	Invoice domain.ReturnInvoice
	Sale    domain.Sale
}

// ReturnPlanner runs inside the store's critical section with the current
// sale and the quantities already returned per product.
type ReturnPlanner func(sale domain.Sale, alreadyReturned map[string]int) (ReturnPlan, error)

// ProductMutator edits a copy of the live product inside the store's
// critical section. An error discards the edit.
type ProductMutator func(product *domain.Product) error

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, mutate ProductMutator) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	CommitSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)
	GetReturnedQtyBySale(ctx context.Context, saleID string) (map[string]int, error)
	CommitReturn(ctx context.Context, saleID string, plan ReturnPlanner) (*ReturnPlan, error)
	ListReturns(ctx context.Context) ([]domain.ReturnInvoice, error)
	ListAlerts(ctx context.Context) ([]domain.InventoryAlert, error)
	RaiseAlerts(ctx context.Context, candidates []domain.InventoryAlert) ([]domain.InventoryAlert, error)
	AcknowledgeAlert(ctx context.Context, id string) (*domain.InventoryAlert, error)
	GetSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error)
	Export(ctx context.Context) (State, error)
	Restore(ctx context.Context, state State) error
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
