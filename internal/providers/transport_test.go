package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendRetries(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retries   int
		wantCalls int32
		wantErr   bool
	}{
		{name: "5xx retried then ok", status: http.StatusBadGateway, retries: 2, wantCalls: 2},
		{name: "5xx without retries", status: http.StatusBadGateway, retries: 0, wantCalls: 1, wantErr: true},
		{name: "429 retried", status: http.StatusTooManyRequests, retries: 1, wantCalls: 2},
		{name: "4xx not retried", status: http.StatusUnauthorized, retries: 3, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 || tt.status < 500 && tt.status != http.StatusTooManyRequests {
					w.WriteHeader(tt.status)
					return
				}
				_, _ = w.Write([]byte("ok"))
			}))
			defer server.Close()

			resp, err := send(context.Background(), server.Client(), call{
				provider: "test",
				method:   http.MethodGet,
				url:      server.URL,
			}, tt.retries, time.Millisecond)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
			if err == nil && string(resp.body) != "ok" {
				t.Errorf("body = %q", resp.body)
			}
		})
	}
}

func TestSendStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"msg":"bad voice"}`))
	}))
	defer server.Close()

	_, err := send(context.Background(), server.Client(), call{
		provider: "test",
		method:   http.MethodPost,
		url:      server.URL,
		message:  func([]byte) string { return "bad voice" },
	}, 0, time.Millisecond)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %T: %v", err, err)
	}
	if se.Status != http.StatusBadRequest || se.Message != "bad voice" {
		t.Errorf("StatusError = %+v", se)
	}
}
