package http

import (
	"testing"
	"time"

	"github.com/mrpavithran/SmartCanteen/internal/model"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestValidTransition(t *testing.T) {
	cases := []struct {
		name  string
		from  string
		to    string
		admin bool
		want  bool
	}{
		{"pending to preparing", model.OrderStatusPending, model.OrderStatusPreparing, false, true},
		{"preparing to ready", model.OrderStatusPreparing, model.OrderStatusReady, false, true},
		{"ready to completed", model.OrderStatusReady, model.OrderStatusCompleted, false, true},
		{"skip a step", model.OrderStatusPending, model.OrderStatusReady, false, false},
		{"backwards", model.OrderStatusReady, model.OrderStatusPreparing, false, false},
		{"completed is terminal", model.OrderStatusCompleted, model.OrderStatusPending, false, false},
		{"staff cannot cancel", model.OrderStatusPending, model.OrderStatusCancelled, false, false},
		{"admin cancels pending", model.OrderStatusPending, model.OrderStatusCancelled, true, true},
		{"admin cancels preparing", model.OrderStatusPreparing, model.OrderStatusCancelled, true, true},
		{"admin cannot cancel completed", model.OrderStatusCompleted, model.OrderStatusCancelled, true, false},
		{"admin cannot re-cancel", model.OrderStatusCancelled, model.OrderStatusCancelled, true, false},
	}
	for _, tc := range cases {
		if got := validTransition(tc.from, tc.to, tc.admin); got != tc.want {
			t.Errorf("%s: validTransition(%q, %q, %v) = %v, want %v", tc.name, tc.from, tc.to, tc.admin, got, tc.want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	if got := bearerToken("Bearer abc.def.ghi"); got != "abc.def.ghi" {
		t.Errorf("bearerToken = %q", got)
	}
	if got := bearerToken("bearer abc"); got != "abc" {
		t.Errorf("lowercase scheme: got %q", got)
	}
	if got := bearerToken(""); got != "" {
		t.Errorf("empty header: got %q", got)
	}
	if got := bearerToken("Basic dXNlcjpwYXNz"); got != "" {
		t.Errorf("wrong scheme: got %q", got)
	}
}

func TestCentsConversion(t *testing.T) {
	cases := []struct {
		amount float64
		cents  int64
	}{
		{0, 0},
		{1, 100},
		{2.5, 250},
		{0.1, 10},
		{19.99, 1999},
		{0.015, 2},
	}
	for _, tc := range cases {
		if got := centsFromAmount(tc.amount); got != tc.cents {
			t.Errorf("centsFromAmount(%v) = %d, want %d", tc.amount, got, tc.cents)
		}
	}
	if got := amountFromCents(1999); got != 19.99 {
		t.Errorf("amountFromCents(1999) = %v", got)
	}
}

func TestDisplayTokenRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		token, err := displayToken()
		if err != nil {
			t.Fatalf("displayToken: %v", err)
		}
		if token < 1000 || token > 9999 {
			t.Fatalf("token %d out of range", token)
		}
	}
}

func TestReportWindowStart(t *testing.T) {
	now := mustParse(t, "2026-03-15T14:30:00Z")

	got, err := reportWindowStart("", now)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if got != mustParse(t, "2026-03-15T00:00:00Z") {
		t.Errorf("default: got %v", got)
	}

	got, err = reportWindowStart("2026-03-01T00:00:00Z", now)
	if err != nil {
		t.Fatalf("explicit: %v", err)
	}
	if got != mustParse(t, "2026-03-01T00:00:00Z") {
		t.Errorf("explicit: got %v", got)
	}

	if _, err := reportWindowStart("yesterday", now); err == nil {
		t.Error("expected error for unparsable since")
	}
}

func TestDefaultNotificationSettings(t *testing.T) {
	want := []string{"orderUpdates", "walletUpdates", "promotions", "systemUpdates"}
	if len(defaultNotificationSettings) != len(want) {
		t.Fatalf("unexpected default settings: %v", defaultNotificationSettings)
	}
	for _, key := range want {
		if !defaultNotificationSettings[key] {
			t.Errorf("default %q missing or false", key)
		}
	}
}
