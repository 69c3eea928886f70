package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/store"
)

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Logout(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.DeleteProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleGetCart(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.GetCart(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.ClearCart(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req domain.CartAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.AddToCart(r.Context(), req.ProductID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleSetCartItem(w http.ResponseWriter, r *http.Request) {
	var req domain.CartQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := a.service.SetCartQuantity(r.Context(), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.RemoveFromCart(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.CompleteSale(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var (
		sales []domain.Sale
		err   error
	)
	if query.Get("returnable") == "true" {
		sales, err = a.service.SearchReturnableSales(r.Context(), query.Get("q"))
	} else {
		sales, err = a.service.ListSales(r.Context(), query.Get("q"))
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit := parsePositiveLimit(query.Get("limit"), 100, 500)
	if len(sales) > limit {
		sales = sales[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleReturnable(w http.ResponseWriter, r *http.Request) {
	saleID := chi.URLParam(r, "id")
	lines, err := a.service.ReturnableQuantities(r.Context(), saleID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale_id": saleID, "lines": lines})
}

func (a *API) handleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := a.service.Receipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("format"), "text") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(receipt.Text))
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (a *API) handleCreateReturn(w http.ResponseWriter, r *http.Request) {
	var req domain.ReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.ProcessReturn(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleListReturns(w http.ResponseWriter, r *http.Request) {
	returns, err := a.service.ListReturns(r.Context(), r.URL.Query().Get("sale_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"returns": returns})
}

func (a *API) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.service.ListAlerts(r.Context(), r.URL.Query().Get("open") == "true")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (a *API) handleAckAlert(w http.ResponseWriter, r *http.Request) {
	acked, err := a.service.AcknowledgeAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alert": acked})
}

func (a *API) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	day, err := parseDateParam(r.URL.Query().Get("date"), a.service.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		csv, err := a.service.DailyReportCSV(r.Context(), day)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"daily-report-%s.csv\"", day.Format(domain.DateLayout)))
		_, _ = w.Write([]byte(csv))
		return
	}

	report, err := a.service.DailyReport(r.Context(), day)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r.URL.Query().Get("start"), a.service.Today().AddDate(0, 0, -6))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	reports, err := a.service.WeeklyReport(r.Context(), start)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": reports})
}

func (a *API) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	today := a.service.Today()
	year, month := today.Year(), int(today.Month())
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: year must be a number", store.ErrValidation))
			return
		}
		year = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: month must be a number", store.ErrValidation))
			return
		}
		month = parsed
	}
	reports, err := a.service.MonthlyReport(r.Context(), year, time.Month(month))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": reports})
}

func (a *API) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	days := parsePositiveLimit(r.URL.Query().Get("days"), 7, 365)
	products, err := a.service.TopProducts(r.Context(), days)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "products": products})
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.service.GetSettings(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settings, err := a.service.UpdateSettings(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleListCashiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cashiers": a.auth.ListCashiers(r.Context())})
}

func (a *API) handleCreateCashier(w http.ResponseWriter, r *http.Request) {
	var req domain.CashierCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cashier, err := a.auth.CreateCashier(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"cashier": cashier})
}
