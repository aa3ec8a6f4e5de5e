package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fastcore-dev/fastcore/errors"
)

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"name":"alice"}`))
	if err := DecodeJSON(req, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Name != "alice" {
		t.Fatalf("expected alice, got %q", payload.Name)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var payload struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"name":"alice","extra":1}`))
	err := DecodeJSON(req, &payload)
	if !errors.IsCode(err, errors.CodeBadRequest) {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	var payload struct{}
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{`))
	if err := DecodeJSON(req, &payload); !errors.IsCode(err, errors.CodeBadRequest) {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	if got := ClientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected 10.0.0.1, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded address, got %q", got)
	}
}
