package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mrpavithran/SmartCanteen/internal/model"
)

type notificationResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	ReadAt    *string        `json:"readAt,omitempty"`
	CreatedAt string         `json:"createdAt"`
}

func mapNotificationResponse(n model.Notification) notificationResponse {
	resp := notificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		readAt := n.ReadAt.UTC().Format(time.RFC3339)
		resp.ReadAt = &readAt
	}
	return resp
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	filter := r.URL.Query().Get("filter")

	notifications, err := s.store.ListNotifications(r.Context(), claims.UserID, filter)
	if err != nil {
		s.log.Error("notification list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, mapNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	notification, err := s.store.MarkNotificationRead(r.Context(), chi.URLParam(r, "notificationId"), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "notification_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapNotificationResponse(notification))
}

func (s *Server) handleNotificationsMarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	if err := s.store.MarkAllNotificationsRead(r.Context(), claims.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	err := s.store.DeleteNotification(r.Context(), chi.URLParam(r, "notificationId"), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "notification_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Default notification preferences for users who never saved any.
var defaultNotificationSettings = map[string]bool{
	"orderUpdates":  true,
	"walletUpdates": true,
	"promotions":    true,
	"systemUpdates": true,
}

func (s *Server) handleGetNotificationSettings(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	settings, err := s.store.GetNotificationSettings(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, defaultNotificationSettings)
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutNotificationSettings(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var settings map[string]bool
	if err := decodeJSON(r, &settings); err != nil || len(settings) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := s.store.UpsertNotificationSettings(r.Context(), claims.UserID, settings); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type createNotificationRequest struct {
	UserID  string         `json:"userId"`
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if req.Type == "" {
		req.Type = "system"
	}

	notification := model.Notification{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Data:      req.Data,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateNotification(r.Context(), notification); err != nil {
		s.log.Error("notification create failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, mapNotificationResponse(notification))
}

type broadcastRequest struct {
	Role    string         `json:"role,omitempty"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (s *Server) handleBroadcastNotification(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	userIDs, err := s.store.ListUserIDsByRole(r.Context(), req.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	now := time.Now().UTC()
	notifications := make([]model.Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		notifications = append(notifications, model.Notification{
			ID:        uuid.NewString(),
			UserID:    userID,
			Type:      "system",
			Title:     req.Title,
			Message:   req.Message,
			Data:      req.Data,
			CreatedAt: now,
		})
	}
	if err := s.store.CreateNotifications(r.Context(), notifications); err != nil {
		s.log.Error("broadcast failed", zap.Int("recipients", len(notifications)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"recipients": len(notifications)})
}
