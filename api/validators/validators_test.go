package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
)

type createPayload struct {
	Name string `json:"name" validate:"required"`
	Qty  int    `json:"qty" validate:"gt=0"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Drill","qty":2}`))
	var payload createPayload
	if err := DecodeJSONBody(req, &payload); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if payload.Name != "Drill" || payload.Qty != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Drill","qty":1,"extra":true}`))
	var payload createPayload
	err := DecodeJSONBody(req, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldErrorsByJSONName(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"qty":0}`))
	var payload createPayload
	err := DecodeJSONBody(req, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["name"] != "is required" {
		t.Fatalf("unexpected details %v", details)
	}
	if !strings.Contains(details["qty"], "greater than") {
		t.Fatalf("unexpected qty message %q", details["qty"])
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=30", nil)
	value, err := ParseQueryInt(req, "limit", 25, 1, 100)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if value != 30 {
		t.Fatalf("expected 30 got %d", value)
	}

	missing := httptest.NewRequest("GET", "/", nil)
	value, err = ParseQueryInt(missing, "limit", 25, 1, 100)
	if err != nil || value != 25 {
		t.Fatalf("expected default 25 got %d err %v", value, err)
	}

	oversized := httptest.NewRequest("GET", "/?limit=5000", nil)
	if _, err := ParseQueryInt(oversized, "limit", 25, 1, 100); err == nil {
		t.Fatal("expected range error")
	}

	garbage := httptest.NewRequest("GET", "/?limit=abc", nil)
	if _, err := ParseQueryInt(garbage, "limit", 25, 1, 100); err == nil {
		t.Fatal("expected numeric error")
	}
}

func TestParseQueryDate(t *testing.T) {
	req := httptest.NewRequest("GET", "/?from=2026-03-14", nil)
	value, err := ParseQueryDate(req, "from")
	if err != nil || value == nil {
		t.Fatalf("expected date got %v err %v", value, err)
	}
	if value.Year() != 2026 || value.Month() != 3 {
		t.Fatalf("unexpected date %v", value)
	}

	rfc := httptest.NewRequest("GET", "/?from=2026-03-14T09:00:00Z", nil)
	if _, err := ParseQueryDate(rfc, "from"); err != nil {
		t.Fatalf("expected RFC3339 accepted, got %v", err)
	}

	missing := httptest.NewRequest("GET", "/", nil)
	value, err = ParseQueryDate(missing, "from")
	if err != nil || value != nil {
		t.Fatalf("expected nil for missing param, got %v err %v", value, err)
	}

	garbage := httptest.NewRequest("GET", "/?from=yesterday", nil)
	if _, err := ParseQueryDate(garbage, "from"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParsePathUUID(t *testing.T) {
	id := uuid.New()
	parsed, err := ParsePathUUID(id.String(), "order_id")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if parsed != id {
		t.Fatalf("expected %s got %s", id, parsed)
	}

	if _, err := ParsePathUUID("not-a-uuid", "order_id"); err == nil {
		t.Fatal("expected uuid error")
	}
}
