package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newRPCServer(t *testing.T, handler func(req rpcRequest) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		status, body := handler(req)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProvider_Call(t *testing.T) {
	srv := newRPCServer(t, func(req rpcRequest) (int, string) {
		if req.JSONRPC != "2.0" {
			t.Errorf("Expected jsonrpc 2.0, got %q", req.JSONRPC)
		}
		if req.Method != "eth_blockNumber" {
			t.Errorf("Expected eth_blockNumber, got %q", req.Method)
		}
		if req.Params == nil {
			t.Error("Expected params to be an empty array, got null")
		}
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"0x1b4"}`
	})

	p := NewHTTPProvider("test", "bsc", srv.URL, 5*time.Second)
	result, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if string(result) != `"0x1b4"` {
		t.Errorf("Expected \"0x1b4\", got %s", string(result))
	}

	health := p.GetHealth()
	if !health.Available || health.ErrorRate != 0 {
		t.Errorf("Expected healthy provider, got %+v", health)
	}
}

func TestHTTPProvider_RPCError(t *testing.T) {
	srv := newRPCServer(t, func(rpcRequest) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"query returned more than 10000 results"}}`
	})

	p := NewHTTPProvider("test", "bsc", srv.URL, 5*time.Second)
	_, err := p.Call(context.Background(), "eth_getLogs", []any{map[string]any{}})

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("Expected *RPCError, got %v", err)
	}
	if rpcErr.Code != -32005 {
		t.Errorf("Expected code -32005, got %d", rpcErr.Code)
	}
}

func TestHTTPProvider_NonOKStatus(t *testing.T) {
	srv := newRPCServer(t, func(rpcRequest) (int, string) {
		return http.StatusBadGateway, "upstream down"
	})

	p := NewHTTPProvider("test", "bsc", srv.URL, 5*time.Second)
	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err == nil || !strings.Contains(err.Error(), "http 502") {
		t.Fatalf("Expected http 502 error, got %v", err)
	}
	if p.GetHealth().LastFailureAt.IsZero() {
		t.Error("Expected failure to be recorded")
	}
}

func TestHTTPProvider_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewHTTPProvider("test", "bsc", srv.URL, 5*time.Second)
	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("Expected rate limited error, got %v", err)
	}
	if stats := p.Monitor.GetStats(); stats.ThrottleCount429 != 1 {
		t.Errorf("Expected 1 throttle, got %d", stats.ThrottleCount429)
	}
}

func TestHTTPProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewHTTPProvider("test", "bsc", srv.URL, 50*time.Millisecond)
	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
}

func TestHTTPProvider_BlockedSkipsCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewHTTPProvider("test", "bsc", srv.URL, 5*time.Second)
	_, _ = p.Call(context.Background(), "eth_blockNumber", nil)
	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err == nil {
		t.Fatal("Expected error while blocked")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected 1 upstream call while blocked, got %d", n)
	}
	if p.IsAvailable() {
		t.Error("Expected provider to be unavailable while blocked")
	}
}
