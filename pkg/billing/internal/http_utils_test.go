package internal

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadBodyStrict(t *testing.T) {
	req := httptest.NewRequest("POST", "/webhooks", strings.NewReader(`{"id":"evt_1"}`))
	w := httptest.NewRecorder()

	body, err := ReadBodyStrict(w, req, 1024)
	if err != nil {
		t.Fatalf("ReadBodyStrict failed: %v", err)
	}
	if string(body) != `{"id":"evt_1"}` {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestReadBodyStrict_EmptyBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/webhooks", strings.NewReader(""))
	w := httptest.NewRecorder()

	if _, err := ReadBodyStrict(w, req, 1024); err == nil {
		t.Error("Expected error for empty body")
	}
}

func TestReadBodyStrict_TooLarge(t *testing.T) {
	req := httptest.NewRequest("POST", "/webhooks", strings.NewReader(strings.Repeat("x", 100)))
	w := httptest.NewRecorder()

	_, err := ReadBodyStrict(w, req, 10)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/webhooks", http.NoBody)
	req.RemoteAddr = "192.168.1.1:1234"

	if ip := GetClientIP(req); ip != "192.168.1.1:1234" {
		t.Errorf("Expected RemoteAddr fallback, got %s", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if ip := GetClientIP(req); ip != "203.0.113.5" {
		t.Errorf("Expected first X-Forwarded-For entry, got %s", ip)
	}
}
