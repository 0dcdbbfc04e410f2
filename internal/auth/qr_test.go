package auth

import "testing"

func TestDecodeQRTokenStructured(t *testing.T) {
	cred := DecodeQRToken(`{"type":"canteen_login","studentId":"STU001","issuedAt":1700000000}`)
	if !cred.Structured {
		t.Fatalf("expected structured credential")
	}
	if cred.StudentCode != "STU001" {
		t.Fatalf("expected STU001, got %s", cred.StudentCode)
	}
	if cred.IssuedAt != 1700000000 {
		t.Fatalf("expected issuedAt, got %d", cred.IssuedAt)
	}
}

func TestDecodeQRTokenLegacy(t *testing.T) {
	for _, raw := range []string{
		"DEMO_ADMIN",
		"CANTEEN_STU001_1700000000000",
		"  CANTEEN_STU002_1700000000000  ",
	} {
		cred := DecodeQRToken(raw)
		if cred.Structured {
			t.Fatalf("expected legacy credential for %q", raw)
		}
		if cred.LegacyToken == "" {
			t.Fatalf("expected legacy token for %q", raw)
		}
	}
}

func TestDecodeQRTokenUnknownJSON(t *testing.T) {
	// JSON without the marker field stays an opaque legacy string.
	raw := `{"studentId":"STU001"}`
	cred := DecodeQRToken(raw)
	if cred.Structured {
		t.Fatalf("expected legacy fallback for unmarked JSON")
	}
	if cred.LegacyToken != raw {
		t.Fatalf("expected raw token preserved, got %q", cred.LegacyToken)
	}

	cred = DecodeQRToken(`{"type":"something_else","studentId":"STU001"}`)
	if cred.Structured {
		t.Fatalf("expected legacy fallback for wrong marker")
	}
}
