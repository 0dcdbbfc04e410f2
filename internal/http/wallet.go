package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mrpavithran/SmartCanteen/internal/model"
)

func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	balance, err := s.store.GetBalance(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"balance": amountFromCents(balance)})
}

type transactionResponse struct {
	ID           string  `json:"id"`
	Amount       float64 `json:"amount"`
	Type         string  `json:"type"`
	OrderID      *string `json:"orderId,omitempty"`
	BalanceAfter float64 `json:"balanceAfter"`
	CreatedAt    string  `json:"createdAt"`
}

func (s *Server) handleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	transactions, err := s.store.ListTransactions(r.Context(), claims.UserID)
	if err != nil {
		s.log.Error("transaction list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]transactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		resp = append(resp, transactionResponse{
			ID:           tx.ID,
			Amount:       amountFromCents(tx.Amount),
			Type:         tx.Kind,
			OrderID:      tx.OrderID,
			BalanceAfter: amountFromCents(tx.BalanceAfter),
			CreatedAt:    tx.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type rechargeRequest struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

func (s *Server) handleWalletRecharge(w http.ResponseWriter, r *http.Request) {
	var req rechargeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id")
		return
	}
	amount := centsFromAmount(req.Amount)
	if amount <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_amount")
		return
	}

	balance, err := s.store.Recharge(r.Context(), req.UserID, amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		s.log.Error("recharge failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	notification := model.Notification{
		ID:      uuid.NewString(),
		UserID:  req.UserID,
		Type:    "wallet",
		Title:   "Wallet Recharged",
		Message: "Your wallet has been recharged.",
		Data: map[string]any{
			"amount":  amountFromCents(amount),
			"balance": amountFromCents(balance),
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateNotification(r.Context(), notification); err != nil {
		s.log.Warn("recharge notification failed", zap.String("user_id", req.UserID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]float64{"balance": amountFromCents(balance)})
}
