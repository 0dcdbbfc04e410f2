package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mrpavithran/SmartCanteen/internal/crypto"
	"github.com/mrpavithran/SmartCanteen/internal/model"
	"github.com/mrpavithran/SmartCanteen/internal/repository"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapUserSummary(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.log.Error("user list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]userSummary, 0, len(users))
	for _, user := range users {
		resp = append(resp, mapUserSummary(user))
	}
	writeJSON(w, http.StatusOK, resp)
}

type createUserRequest struct {
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
	Role      string `json:"role"`
	PIN       string `json:"pin"`
}

func validRole(role string) bool {
	return role == model.RoleStudent || role == model.RoleStaff || role == model.RoleAdmin
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.StudentID = strings.TrimSpace(req.StudentID)
	if req.Name == "" || req.StudentID == "" || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleStudent
	}
	if !validRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	pinHash, err := crypto.HashPassword(req.PIN)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	now := time.Now().UTC()
	qrCode := fmt.Sprintf("CANTEEN_%s_%d", req.StudentID, now.UnixMilli())
	user := model.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		StudentID: req.StudentID,
		Role:      req.Role,
		PINHash:   pinHash,
		QRCode:    &qrCode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "student_id_exists")
			return
		}
		s.log.Error("user create failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapUserSummary(user))
}

type updateUserRequest struct {
	Name *string `json:"name,omitempty"`
	Role *string `json:"role,omitempty"`
	PIN  *string `json:"pin,omitempty"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Role != nil && !validRole(*req.Role) {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	update := repository.UserUpdate{
		Name: req.Name,
		Role: req.Role,
	}
	if req.PIN != nil {
		if *req.PIN == "" {
			writeError(w, http.StatusBadRequest, "invalid_pin")
			return
		}
		pinHash, err := crypto.HashPassword(*req.PIN)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		update.PINHash = &pinHash
	}

	user, err := s.store.UpdateUser(r.Context(), chi.URLParam(r, "userId"), update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapUserSummary(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	userID := chi.URLParam(r, "userId")
	if userID == claims.UserID {
		writeError(w, http.StatusBadRequest, "cannot_delete_self")
		return
	}

	if err := s.store.DeleteUser(r.Context(), userID); err != nil {
		if errors.Is(err, repository.ErrActiveOrders) {
			writeError(w, http.StatusBadRequest, "user_has_active_orders")
			return
		}
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		s.log.Error("user delete failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleQRView returns the stored QR payload for a user. Students may only
// view their own; staff and admin may view anyone's.
func (s *Server) handleQRView(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	userID := chi.URLParam(r, "userId")

	if claims.Role == model.RoleStudent && userID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if user.QRCode == nil {
		writeError(w, http.StatusNotFound, "qr_not_assigned")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"userId": user.ID,
		"name":   user.Name,
		"qrCode": *user.QRCode,
	})
}
