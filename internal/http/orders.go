package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mrpavithran/SmartCanteen/internal/model"
	"github.com/mrpavithran/SmartCanteen/internal/repository"
)

type orderItemPayload struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type placeOrderRequest struct {
	Items       []orderItemPayload `json:"items"`
	TotalAmount float64            `json:"totalAmount"`
}

type orderResponse struct {
	ID            string             `json:"id"`
	UserID        string             `json:"userId"`
	Items         []orderItemPayload `json:"items"`
	TotalAmount   float64            `json:"totalAmount"`
	TokenNumber   int                `json:"tokenNumber"`
	Status        string             `json:"status"`
	CreatedAt     string             `json:"createdAt"`
	UserName      *string            `json:"userName,omitempty"`
	UserStudentID *string            `json:"userStudentId,omitempty"`
}

func mapOrderResponse(order model.Order) orderResponse {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			Name:     item.Name,
			Price:    amountFromCents(item.Price),
			Quantity: item.Quantity,
		})
	}
	return orderResponse{
		ID:            order.ID,
		UserID:        order.UserID,
		Items:         items,
		TotalAmount:   amountFromCents(order.TotalAmount),
		TokenNumber:   order.TokenNumber,
		Status:        order.Status,
		CreatedAt:     order.CreatedAt.UTC().Format(time.RFC3339),
		UserName:      order.UserName,
		UserStudentID: order.UserStudentID,
	}
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "empty_order")
		return
	}
	total := centsFromAmount(req.TotalAmount)
	if total <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" || item.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_item")
			return
		}
		items = append(items, model.OrderItem{
			Name:     item.Name,
			Price:    centsFromAmount(item.Price),
			Quantity: item.Quantity,
		})
	}

	token, err := displayToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	order := model.Order{
		ID:          uuid.NewString(),
		UserID:      claims.UserID,
		Items:       items,
		TotalAmount: total,
		TokenNumber: token,
		Status:      model.OrderStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	placed, err := s.store.PlaceOrder(r.Context(), order)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			writeError(w, http.StatusBadRequest, "insufficient_balance")
			return
		}
		s.log.Error("order placement failed", zap.String("user_id", claims.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	s.notifyOrder(r.Context(), placed, "order_placed", "Order Placed",
		fmt.Sprintf("Your order #%d has been placed.", placed.TokenNumber))

	writeJSON(w, http.StatusCreated, mapOrderResponse(placed))
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	orders, err := s.store.ListOrdersByUser(r.Context(), claims.UserID)
	if err != nil {
		s.log.Error("order list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, mapOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.store.ListAllOrders(r.Context())
	if err != nil {
		s.log.Error("order list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, mapOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, resp)
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// Status messages pushed to the order owner on each transition.
var orderStatusMessages = map[string]string{
	model.OrderStatusPreparing: "Your order is being prepared.",
	model.OrderStatusReady:     "Your order is ready for pickup.",
	model.OrderStatusCompleted: "Your order has been completed. Enjoy!",
	model.OrderStatusCancelled: "Your order has been cancelled.",
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	var req orderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, ok := orderStatusMessages[req.Status]; !ok {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	current, err := s.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !validTransition(current.Status, req.Status, isAdmin(claims)) {
		writeError(w, http.StatusBadRequest, "invalid_transition")
		return
	}

	updated, err := s.store.AdvanceOrderStatus(r.Context(), orderID, current.Status, req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			writeError(w, http.StatusConflict, "status_conflict")
			return
		}
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order_not_found")
			return
		}
		s.log.Error("order status update failed", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	s.notifyOrder(r.Context(), updated, "order_status", "Order Update", orderStatusMessages[req.Status])

	writeJSON(w, http.StatusOK, mapOrderResponse(updated))
}

// notifyOrder records an order notification for the order owner. Failures
// are logged and never fail the request.
func (s *Server) notifyOrder(ctx context.Context, order model.Order, kind, title, message string) {
	notification := model.Notification{
		ID:      uuid.NewString(),
		UserID:  order.UserID,
		Type:    "order",
		Title:   title,
		Message: message,
		Data: map[string]any{
			"event":       kind,
			"orderId":     order.ID,
			"tokenNumber": order.TokenNumber,
			"status":      order.Status,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateNotification(ctx, notification); err != nil {
		s.log.Warn("order notification failed", zap.String("order_id", order.ID), zap.Error(err))
	}
}
