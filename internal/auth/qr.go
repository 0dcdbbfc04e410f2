package auth

import (
	"encoding/json"
	"strings"
)

// QR login tokens come in two shapes: a structured JSON payload carrying a
// marker field plus the student code, and the older opaque string written
// straight into the users table (e.g. "CANTEEN_STU001_1700000000000" or a
// demo token). DecodeQRToken resolves the shape explicitly instead of
// guessing downstream.

const qrPayloadType = "canteen_login"

type QRCredential struct {
	// Structured selects which of the two fields below is meaningful.
	Structured  bool
	StudentCode string
	LegacyToken string
	IssuedAt    int64
}

type qrPayload struct {
	Type      string `json:"type"`
	StudentID string `json:"studentId"`
	IssuedAt  int64  `json:"issuedAt"`
}

func DecodeQRToken(raw string) QRCredential {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var payload qrPayload
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil && payload.Type == qrPayloadType {
			return QRCredential{
				Structured:  true,
				StudentCode: strings.TrimSpace(payload.StudentID),
				IssuedAt:    payload.IssuedAt,
			}
		}
	}
	return QRCredential{LegacyToken: trimmed}
}
