package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/metrics"
	"barakapos/backend/internal/service"
	"barakapos/backend/internal/store"
)

const defaultLoginRate = "5-M"

type Options struct {
	AllowedOrigin  string
	LoginRateLimit string
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	logger        *zap.Logger
	metrics       *metrics.Metrics
	loginLimiter  func(http.Handler) http.Handler
}

func New(svc *service.Service, auth *AuthManager, opts Options) (*API, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if strings.TrimSpace(opts.LoginRateLimit) == "" {
		opts.LoginRateLimit = defaultLoginRate
	}
	rate, err := limiter.NewRateFromFormatted(opts.LoginRateLimit)
	if err != nil {
		return nil, fmt.Errorf("parse login rate limit %q: %w", opts.LoginRateLimit, err)
	}
	instance := limiter.New(limitermemory.NewStore(), rate)
	loginLimiter := limiterstdlib.NewMiddleware(instance,
		limiterstdlib.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		}),
	)

	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: opts.AllowedOrigin,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		loginLimiter:  loginLimiter.Handler,
	}, nil
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(a.securityHeaders)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMethodNotAllowed(w)
	})

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", a.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(a.loginLimiter).Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(domain.RoleCashier, domain.RoleAdmin))

			r.Post("/auth/logout", a.handleLogout)

			r.Get("/products", a.handleListProducts)
			r.Get("/products/{id}", a.handleGetProduct)

			r.Get("/cart", a.handleGetCart)
			r.Delete("/cart", a.handleClearCart)
			r.Post("/cart/items", a.handleAddCartItem)
			r.Patch("/cart/items/{productID}", a.handleSetCartItem)
			r.Delete("/cart/items/{productID}", a.handleRemoveCartItem)
			r.Post("/checkout", a.handleCheckout)

			r.Get("/sales", a.handleListSales)
			r.Get("/sales/{id}", a.handleGetSale)
			r.Get("/sales/{id}/returnable", a.handleReturnable)
			r.Get("/sales/{id}/receipt", a.handleReceipt)

			r.Post("/returns", a.handleCreateReturn)
			r.Get("/returns", a.handleListReturns)

			r.Get("/alerts", a.handleListAlerts)
			r.Post("/alerts/{id}/ack", a.handleAckAlert)

			r.Get("/settings", a.handleGetSettings)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(domain.RoleAdmin))

			r.Post("/products", a.handleCreateProduct)
			r.Patch("/products/{id}", a.handleUpdateProduct)
			r.Delete("/products/{id}", a.handleDeleteProduct)

			r.Get("/reports/daily", a.handleDailyReport)
			r.Get("/reports/weekly", a.handleWeeklyReport)
			r.Get("/reports/monthly", a.handleMonthlyReport)
			r.Get("/reports/top-products", a.handleTopProducts)

			r.Patch("/settings", a.handleUpdateSettings)

			r.Get("/users/cashiers", a.handleListCashiers)
			r.Post("/users/cashiers", a.handleCreateCashier)
		})
	})

	return r
}

func (a *API) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}

			token := strings.TrimSpace(authorization[len("Bearer "):])
			actor, err := a.auth.ParseToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}

			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
		})
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation), errors.Is(err, store.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientStock), errors.Is(err, store.ErrOverReturn):
		return http.StatusConflict
	case errors.Is(err, store.ErrInsufficientPayment), errors.Is(err, store.ErrOverpayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errInvalidCredentials), errors.Is(err, errInactiveAccount), errors.Is(err, errInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// parseDateParam reads a YYYY-MM-DD query parameter; empty means fallback.
func parseDateParam(raw string, fallback time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}
	parsed, err := domain.ParseDate(trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
	}
	return parsed, nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides the cause of 5xx responses; 4xx messages are meant for
// the client.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
