package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const testRaw = "From: forwarder@workfort.dev\r\nTo: owner@example.com\r\nSubject: Test\r\n\r\nBody"

func newTokenServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "test-token", ExpiresIn: 3600})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGraphProvider_Name(t *testing.T) {
	t.Parallel()

	p := &GraphProvider{}
	if p.Name() != "msgraph" {
		t.Errorf("Name: got %q, want %q", p.Name(), "msgraph")
	}
}

func TestGraphProvider_SendSuccess(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t, nil)

	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if r.URL.Path != "/users/forwarder@workfort.dev/sendMail" {
			t.Errorf("path: got %q, want %q", r.URL.Path, "/users/forwarder@workfort.dev/sendMail")
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Authorization header: got %q, want %q", r.Header.Get("Authorization"), "Bearer test-token")
		}
		if r.Header.Get("Content-Type") != "text/plain" {
			t.Errorf("Content-Type header: got %q, want %q", r.Header.Get("Content-Type"), "text/plain")
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read request body: %v", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(string(body))
		if err != nil {
			t.Errorf("request body is not base64: %v", err)
		}
		if string(decoded) != testRaw {
			t.Errorf("decoded body: got %q, want %q", decoded, testRaw)
		}

		w.WriteHeader(http.StatusAccepted)
	}))
	defer graphServer.Close()

	p := newWithOverrides(
		GraphProviderConfig{TenantID: "test-tenant", ClientID: "test-client", ClientSecret: "test-secret"},
		graphServer.URL,
		tokenServer.URL,
		graphServer.Client(),
	)

	err := p.Send(context.Background(), "forwarder@workfort.dev", []string{"owner@example.com"}, []byte(testRaw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGraphProvider_NoRecipients(t *testing.T) {
	t.Parallel()

	p := newWithOverrides(GraphProviderConfig{}, "http://unused", "http://unused", http.DefaultClient)
	if err := p.Send(context.Background(), "s@example.com", nil, []byte(testRaw)); err == nil {
		t.Fatal("expected error for empty recipient list, got nil")
	}
}

func TestGraphProvider_ErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t, nil)

	var graphCallCount atomic.Int32
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		graphCallCount.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(graphErrorResponse{
			Error: graphError{Code: "ServiceUnavailable", Message: "Try again"},
		})
	}))
	defer graphServer.Close()

	p := newWithOverrides(
		GraphProviderConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"},
		graphServer.URL, tokenServer.URL, graphServer.Client(),
	)

	err := p.Send(context.Background(), "s@example.com", []string{"user@example.com"}, []byte(testRaw))
	if err == nil {
		t.Fatal("expected error for 503 response, got nil")
	}

	var sendErr *sendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected *sendError, got %T", err)
	}
	if sendErr.statusCode != http.StatusServiceUnavailable {
		t.Errorf("statusCode: got %d, want %d", sendErr.statusCode, http.StatusServiceUnavailable)
	}
	if sendErr.code != "ServiceUnavailable" {
		t.Errorf("code: got %q, want %q", sendErr.code, "ServiceUnavailable")
	}
	if graphCallCount.Load() != 1 {
		t.Errorf("graph call count: got %d, want 1", graphCallCount.Load())
	}
}

func TestGraphProvider_UnauthorizedInvalidatesToken(t *testing.T) {
	t.Parallel()

	var tokenCallCount atomic.Int32
	tokenServer := newTokenServer(t, &tokenCallCount)

	var graphCallCount atomic.Int32
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if graphCallCount.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(graphErrorResponse{
				Error: graphError{Code: "InvalidAuthenticationToken", Message: "Token expired"},
			})
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer graphServer.Close()

	p := newWithOverrides(
		GraphProviderConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"},
		graphServer.URL, tokenServer.URL, graphServer.Client(),
	)

	if err := p.Send(context.Background(), "s@example.com", []string{"u@example.com"}, []byte(testRaw)); err == nil {
		t.Fatal("expected error for 401 response, got nil")
	}
	if err := p.Send(context.Background(), "s@example.com", []string{"u@example.com"}, []byte(testRaw)); err != nil {
		t.Fatalf("second send: unexpected error: %v", err)
	}

	if tokenCallCount.Load() != 2 {
		t.Errorf("token call count: got %d, want 2 (401 should invalidate the cache)", tokenCallCount.Load())
	}
}

func TestGraphProvider_NonJSONErrorBody(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t, nil)
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer graphServer.Close()

	p := newWithOverrides(
		GraphProviderConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"},
		graphServer.URL, tokenServer.URL, graphServer.Client(),
	)

	err := p.Send(context.Background(), "s@example.com", []string{"u@example.com"}, []byte(testRaw))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	want := "Graph API error (HTTP 502): upstream unavailable"
	if err.Error() != want {
		t.Errorf("Error(): got %q, want %q", err.Error(), want)
	}
}

func TestGraphProvider_ContextCancellation(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t, nil)
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer graphServer.Close()

	p := newWithOverrides(
		GraphProviderConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"},
		graphServer.URL, tokenServer.URL, graphServer.Client(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Send(ctx, "s@example.com", []string{"u@example.com"}, []byte(testRaw)); err == nil {
		t.Error("expected error for cancelled context, got nil")
	}
}

func TestSendError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  *sendError
		want string
	}{
		{&sendError{statusCode: 500, message: "test error"}, "Graph API error (HTTP 500): test error"},
		{&sendError{statusCode: 403, code: "ErrorAccessDenied", message: "denied"}, "Graph API error (HTTP 403, ErrorAccessDenied): denied"},
		{&sendError{message: "HTTP request failed: dial tcp"}, "Graph API error: HTTP request failed: dial tcp"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error(): got %q, want %q", got, tt.want)
		}
	}
}
