package http

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mrpavithran/SmartCanteen/internal/auth"
	"github.com/mrpavithran/SmartCanteen/internal/config"
	"github.com/mrpavithran/SmartCanteen/internal/logger"
	"github.com/mrpavithran/SmartCanteen/internal/model"
	"github.com/mrpavithran/SmartCanteen/internal/repository"
)

type Server struct {
	cfg   config.Config
	store *repository.Store
	redis *redis.Client
	log   *zap.Logger
}

func NewServer(cfg config.Config, store *repository.Store, redisClient *redis.Client, log *zap.Logger) *Server {
	return &Server{
		cfg:   cfg,
		store: store,
		redis: redisClient,
		log:   log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/enhanced-login", s.handleEnhancedLogin)
	r.Post("/auth/reset-password-request", s.handleResetPasswordRequest)
	r.Post("/auth/reset-password", s.handleResetPassword)

	r.Get("/categories", s.handleListCategories)
	r.Get("/categories/{categoryId}", s.handleGetCategory)
	r.With(s.authMiddleware, s.requireAdmin).Post("/categories", s.handleCreateCategory)
	r.With(s.authMiddleware, s.requireAdmin).Put("/categories/{categoryId}", s.handleUpdateCategory)
	r.With(s.authMiddleware, s.requireAdmin).Delete("/categories/{categoryId}", s.handleDeleteCategory)

	r.Get("/items", s.handleListItems)
	r.Get("/items/{itemId}", s.handleGetItem)
	r.With(s.authMiddleware, s.requireAdmin).Post("/items", s.handleCreateItem)
	r.With(s.authMiddleware, s.requireAdmin).Put("/items/{itemId}", s.handleUpdateItem)
	r.With(s.authMiddleware, s.requireAdmin).Delete("/items/{itemId}", s.handleDeleteItem)
	r.With(s.authMiddleware, s.requireAdmin).Patch("/items/{itemId}/availability", s.handleItemAvailability)

	r.Route("/orders", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/", s.handlePlaceOrder)
		r.Get("/my-orders", s.handleMyOrders)
		r.With(s.requireStaff).Get("/all", s.handleAllOrders)
		r.With(s.requireStaff).Patch("/{orderId}/status", s.handleOrderStatus)
	})

	r.Route("/wallet", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/balance", s.handleWalletBalance)
		r.Get("/transactions", s.handleWalletTransactions)
		r.With(s.requireAdmin).Post("/recharge", s.handleWalletRecharge)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListNotifications)
		r.Patch("/{notificationId}/read", s.handleNotificationRead)
		r.Patch("/mark-all-read", s.handleNotificationsMarkAllRead)
		r.Delete("/{notificationId}", s.handleDeleteNotification)
		r.Get("/settings", s.handleGetNotificationSettings)
		r.Put("/settings", s.handlePutNotificationSettings)
		r.With(s.requireStaff).Post("/create", s.handleCreateNotification)
		r.With(s.requireAdmin).Post("/broadcast", s.handleBroadcastNotification)
	})

	r.With(s.authMiddleware).Get("/users/profile", s.handleGetProfile)
	r.With(s.authMiddleware, s.requireAdmin).Get("/users", s.handleListUsers)
	r.With(s.authMiddleware, s.requireAdmin).Post("/users", s.handleCreateUser)
	r.With(s.authMiddleware, s.requireAdmin).Patch("/users/{userId}", s.handleUpdateUser)
	r.With(s.authMiddleware, s.requireAdmin).Delete("/users/{userId}", s.handleDeleteUser)

	r.With(s.authMiddleware).Get("/qr/view/{userId}", s.handleQRView)

	r.With(s.authMiddleware, s.requireStaff).Get("/reports/summary", s.handleReportSummary)

	return r
}

// Auth middleware

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || (claims.Role != model.RoleStaff && claims.Role != model.RoleAdmin) {
			writeError(w, http.StatusForbidden, "staff_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func isAdmin(claims *auth.Claims) bool {
	return claims != nil && claims.Role == model.RoleAdmin
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// JSON helpers

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// Money crosses the wire as decimal currency; internally everything is
// integer cents.

func centsFromAmount(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func amountFromCents(cents int64) float64 {
	return float64(cents) / 100
}

// Order status flow. Kitchen transitions are strictly linear; cancellation
// is an admin override, not a queue step.

var nextOrderStatus = map[string]string{
	model.OrderStatusPending:   model.OrderStatusPreparing,
	model.OrderStatusPreparing: model.OrderStatusReady,
	model.OrderStatusReady:     model.OrderStatusCompleted,
}

func validTransition(from, to string, admin bool) bool {
	if to == model.OrderStatusCancelled {
		return admin && from != model.OrderStatusCompleted && from != model.OrderStatusCancelled
	}
	return nextOrderStatus[from] == to
}

// displayToken returns the 4-digit number shown to kitchen staff.
// Collisions across orders are possible and not checked.
func displayToken() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 1000, nil
}
