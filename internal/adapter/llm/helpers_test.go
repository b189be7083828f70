package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cryptochat/internal/domain"
)

func TestMapHTTPError429(t *testing.T) {
	err := mapHTTPError(http.StatusTooManyRequests, []byte(`{"error":"rate limit exceeded"}`))
	if !errors.Is(err, domain.ErrRateLimit) {
		t.Errorf("expected ErrRateLimit, got %v", err)
	}
}

func TestMapHTTPError401(t *testing.T) {
	err := mapHTTPError(http.StatusUnauthorized, []byte(`{"error":"invalid api key"}`))
	if !errors.Is(err, domain.ErrAuthInvalid) {
		t.Errorf("expected ErrAuthInvalid, got %v", err)
	}
}

func TestMapHTTPError403(t *testing.T) {
	err := mapHTTPError(http.StatusForbidden, []byte(`{"error":"forbidden"}`))
	if !errors.Is(err, domain.ErrAuthInvalid) {
		t.Errorf("expected ErrAuthInvalid, got %v", err)
	}
}

func TestMapHTTPErrorServer(t *testing.T) {
	for _, code := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable} {
		err := mapHTTPError(code, []byte(`upstream down`))
		if !errors.Is(err, domain.ErrProviderFailure) {
			t.Errorf("status %d: expected ErrProviderFailure, got %v", code, err)
		}
	}
}

func TestMapHTTPErrorUnknownStatus(t *testing.T) {
	err := mapHTTPError(418, []byte(`I'm a teapot`))
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure, got %v", err)
	}
	if errors.Is(err, domain.ErrRateLimit) || errors.Is(err, domain.ErrAuthInvalid) {
		t.Errorf("unexpected sentinel for 418: %v", err)
	}
}

func TestMapHTTPErrorIncludesBody(t *testing.T) {
	err := mapHTTPError(http.StatusTooManyRequests, []byte(`{"error":{"message":"slow down"}}`))
	if !strings.Contains(err.Error(), "slow down") {
		t.Errorf("error should include body, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "API error 429") {
		t.Errorf("error should include status, got %q", err.Error())
	}
}

func TestDoJSONRequestTransportError(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}

	_, err := doJSONRequest(context.Background(), client, "http://example.invalid", []byte(`{}`), nil)
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure, got %v", err)
	}
}

func TestDoJSONRequestHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("X-Test = %q", r.Header.Get("X-Test"))
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	body, err := doJSONRequest(context.Background(), server.Client(), server.URL, []byte(`{}`), map[string]string{"X-Test": "yes"})
	if err != nil {
		t.Fatalf("doJSONRequest: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %q", body)
	}
}

func TestTemperaturePtr(t *testing.T) {
	if temperaturePtr(0) != nil {
		t.Error("zero temperature should be omitted")
	}
	if p := temperaturePtr(0.2); p == nil || *p != 0.2 {
		t.Errorf("temperaturePtr(0.2) = %v", p)
	}
}
