package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name" validate:"required"`
	Barcode     string          `json:"barcode" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Unit        string          `json:"unit" validate:"oneof=piece kg"`
	MinQuantity int             `json:"min_quantity" validate:"gte=0"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	Category    string          `json:"category" validate:"required"`
	Image       string          `json:"image,omitempty" validate:"omitempty,url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name        string          `json:"name"`
	Barcode     string          `json:"barcode"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Quantity    int             `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	MinQuantity *int            `json:"min_quantity,omitempty"`
	ExpiryDate  string          `json:"expiry_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Category    string          `json:"category"`
	Image       string          `json:"image,omitempty"`
}

// ProductUpdateRequest merges only the fields that are present. An empty
// expiry_date clears the expiry.
type ProductUpdateRequest struct {
	Name        *string          `json:"name,omitempty"`
	Barcode     *string          `json:"barcode,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Cost        *decimal.Decimal `json:"cost,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
	Unit        *string          `json:"unit,omitempty"`
	MinQuantity *int             `json:"min_quantity,omitempty"`
	ExpiryDate  *string          `json:"expiry_date,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Image       *string          `json:"image,omitempty"`
}

type ProductMutationResponse struct {
	Product   *Product         `json:"product,omitempty"`
	NewAlerts []InventoryAlert `json:"new_alerts"`
}

type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type CartAddRequest struct {
	ProductID string `json:"product_id"`
}

type CartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CartView struct {
	Items    []CartItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
}

type CheckoutRequest struct {
	PaymentMethod string           `json:"payment_method"`
	Discount      decimal.Decimal  `json:"discount"`
	PaidAmount    *decimal.Decimal `json:"paid_amount,omitempty"`
	CashAmount    *decimal.Decimal `json:"cash_amount,omitempty"`
}

type CheckoutResponse struct {
	Sale      Sale             `json:"sale"`
	NewAlerts []InventoryAlert `json:"new_alerts"`
}

type Sale struct {
	ID             string          `json:"id"`
	Items          []CartItem      `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  string          `json:"payment_method"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	CashAmount     decimal.Decimal `json:"cash_amount"`
	CardAmount     decimal.Decimal `json:"card_amount"`
	Change         decimal.Decimal `json:"change"`
	Timestamp      time.Time       `json:"timestamp"`
	CashierID      string          `json:"cashier_id"`
	CashierName    string          `json:"cashier_name"`
	Status         string          `json:"status"`
	ReturnedAmount decimal.Decimal `json:"returned_amount"`
}

type ReturnLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ReturnRequest struct {
	SaleID string       `json:"sale_id"`
	Items  []ReturnLine `json:"items"`
	Reason string       `json:"reason"`
}

type ReturnInvoiceItem struct {
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	OriginalQuantity int             `json:"original_quantity"`
	ReturnedQuantity int             `json:"returned_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

type ReturnInvoice struct {
	ID             string              `json:"id"`
	OriginalSaleID string              `json:"original_sale_id"`
	Items          []ReturnInvoiceItem `json:"items"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	Reason         string              `json:"reason"`
	Timestamp      time.Time           `json:"timestamp"`
	CashierID      string              `json:"cashier_id"`
	CashierName    string              `json:"cashier_name"`
}

type ReturnResponse struct {
	Return    ReturnInvoice    `json:"return"`
	Sale      Sale             `json:"sale"`
	NewAlerts []InventoryAlert `json:"new_alerts"`
}

type ReturnableLine struct {
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	SoldQuantity     int             `json:"sold_quantity"`
	ReturnedQuantity int             `json:"returned_quantity"`
	Returnable       int             `json:"returnable"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

type InventoryAlert struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}

type Settings struct {
	StoreName       string          `json:"store_name" validate:"required"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Currency        string          `json:"currency" validate:"required"`
	ReceiptFooter   string          `json:"receipt_footer"`
	LowStockDefault int             `json:"low_stock_default" validate:"gte=0"`
}

type SettingsUpdateRequest struct {
	StoreName       *string          `json:"store_name,omitempty"`
	TaxRate         *decimal.Decimal `json:"tax_rate,omitempty"`
	Currency        *string          `json:"currency,omitempty"`
	ReceiptFooter   *string          `json:"receipt_footer,omitempty"`
	LowStockDefault *int             `json:"low_stock_default,omitempty"`
}

type ProductSales struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type DailyReport struct {
	Date             string          `json:"date"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TotalReturns     decimal.Decimal `json:"total_returns"`
	NetSales         decimal.Decimal `json:"net_sales"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	TransactionCount int             `json:"transaction_count"`
	TopProducts      []ProductSales  `json:"top_products"`
}

type ReceiptResponse struct {
	SaleID string `json:"sale_id"`
	Text   string `json:"text"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
	Name     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Name      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

const (
	UnitPiece = "piece"
	UnitKg    = "kg"
)

const (
	PaymentCash  = "cash"
	PaymentVisa  = "visa"
	PaymentMixed = "mixed"
)

const (
	SaleStatusCompleted         = "completed"
	SaleStatusPartiallyReturned = "partially_returned"
	SaleStatusReturned          = "returned"
)

const (
	AlertLowStock     = "low_stock"
	AlertExpired      = "expired"
	AlertExpiringSoon = "expiring_soon"
)
