package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/mrpavithran/SmartCanteen/internal/auth"
	"github.com/mrpavithran/SmartCanteen/internal/crypto"
	"github.com/mrpavithran/SmartCanteen/internal/model"
)

type loginRequest struct {
	QRCode string `json:"qrCode"`
	PIN    string `json:"pin"`
}

type enhancedLoginRequest struct {
	StudentID string `json:"studentId"`
	Password  string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userSummary `json:"user"`
}

type userSummary struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	StudentID     string  `json:"studentId"`
	Role          string  `json:"role"`
	WalletBalance float64 `json:"walletBalance"`
	QRCode        *string `json:"qrCode,omitempty"`
}

func mapUserSummary(user model.User) userSummary {
	return userSummary{
		ID:            user.ID,
		Name:          user.Name,
		StudentID:     user.StudentID,
		Role:          user.Role,
		WalletBalance: amountFromCents(user.WalletBalance),
	}
}

// handleLogin is the QR + PIN flow. The presented token is either a
// structured payload carrying the student code or an opaque legacy string
// matched against users.qr_code. Unknown token and wrong PIN produce the
// same rejection so accounts cannot be enumerated.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.QRCode) == "" || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	cred := auth.DecodeQRToken(req.QRCode)

	var user model.User
	var err error
	if cred.Structured {
		user, err = s.store.GetUserByStudentID(r.Context(), cred.StudentCode)
	} else {
		user, err = s.store.GetUserByQRCode(r.Context(), cred.LegacyToken)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		s.log.Error("login lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if !s.verifyPIN(user, cred, req.PIN) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	s.respondWithToken(w, user)
}

// verifyPIN checks the stored hash first. The demo PIN map is a legacy
// fallback inherited from the original deployment: it only applies to
// opaque legacy tokens, and only when hash verification fails.
func (s *Server) verifyPIN(user model.User, cred auth.QRCredential, pin string) bool {
	if user.PINHash != "" && crypto.CheckPassword(user.PINHash, pin) == nil {
		return true
	}
	if !cred.Structured {
		if demo, ok := s.cfg.DemoPINs[cred.LegacyToken]; ok && demo == pin {
			return true
		}
	}
	return false
}

func (s *Server) handleEnhancedLogin(w http.ResponseWriter, r *http.Request) {
	var req enhancedLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.StudentID = strings.TrimSpace(req.StudentID)
	if req.StudentID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.store.GetUserByStudentID(r.Context(), req.StudentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		s.log.Error("login lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	valid := user.PINHash != "" && crypto.CheckPassword(user.PINHash, req.Password) == nil
	if !valid {
		if demo, ok := s.cfg.DemoPasswords[req.StudentID]; ok && demo == req.Password {
			valid = true
		}
	}
	if !valid {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	_ = s.store.UpdateLastLogin(r.Context(), user.ID, time.Now().UTC())

	s.respondWithToken(w, user)
}

func (s *Server) respondWithToken(w http.ResponseWriter, user model.User) {
	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		s.log.Error("token signing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  mapUserSummary(user),
	})
}

type resetRequestRequest struct {
	StudentID string `json:"studentId"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

const resetRequestMessage = "If the account exists, reset instructions will be sent."

// handleResetPasswordRequest answers unknown accounts with the same 200
// and message text as known ones. The token is returned in the response
// for demo parity with the original system, which had no mail delivery,
// so the presence of that field still reveals whether the account exists.
func (s *Server) handleResetPasswordRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.StudentID = strings.TrimSpace(req.StudentID)
	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	user, err := s.store.GetUserByStudentID(r.Context(), req.StudentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, map[string]string{"message": resetRequestMessage})
			return
		}
		s.log.Error("reset request lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	token, err := crypto.NewResetToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if err := s.storeResetToken(r, crypto.HashToken(token), user.ID); err != nil {
		s.log.Error("reset token store failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":    resetRequestMessage,
		"resetToken": token,
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	userID, err := s.consumeResetToken(r, crypto.HashToken(req.Token))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_reset_token")
		return
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "password_hash_failed")
		return
	}
	if err := s.store.SetPINHash(r.Context(), userID, hash); err != nil {
		s.log.Error("password update failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

func resetTokenKey(tokenHash string) string {
	return "reset:" + tokenHash
}

// Reset tokens live in Redis with a TTL when it is configured; otherwise
// they fall back to a table purged by a background job. Either way a token
// is consumed on first use.
func (s *Server) storeResetToken(r *http.Request, tokenHash, userID string) error {
	if s.redis != nil {
		return s.redis.Set(r.Context(), resetTokenKey(tokenHash), userID, s.cfg.ResetTokenTTL).Err()
	}
	now := time.Now().UTC()
	return s.store.CreateResetToken(r.Context(), model.ResetToken{
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
		CreatedAt: now,
	})
}

func (s *Server) consumeResetToken(r *http.Request, tokenHash string) (string, error) {
	if s.redis != nil {
		return s.redis.GetDel(r.Context(), resetTokenKey(tokenHash)).Result()
	}
	token, err := s.store.ConsumeResetToken(r.Context(), tokenHash)
	if err != nil {
		return "", err
	}
	return token.UserID, nil
}
