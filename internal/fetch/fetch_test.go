package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "ProgScout") {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Write([]byte("<html><body><h1>MS in CS</h1></body></html>"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{})
	defer client.Close()

	html, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !strings.Contains(html, "MS in CS") {
		t.Errorf("unexpected body %q", html)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{RetryDelay: time.Millisecond})
	defer client.Close()

	html, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch failed after retries: %v", err)
	}
	if !strings.Contains(html, "ok") {
		t.Errorf("unexpected body %q", html)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{RetryDelay: time.Millisecond})
	defer client.Close()

	if _, err := client.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected an error for 404")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("404 must not be retried, got %d attempts", got)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	client := NewClient(ClientConfig{})
	defer client.Close()

	if _, err := client.Fetch(context.Background(), "not a url"); err == nil {
		t.Fatal("expected an error for an invalid URL")
	}
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.Fetch(ctx, server.URL); err == nil {
		t.Fatal("expected a cancellation error")
	}
}

func TestRetryableStatus(t *testing.T) {
	for code, want := range map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusServiceUnavailable:  true,
		http.StatusInternalServerError: true,
		http.StatusNotFound:            false,
		http.StatusForbidden:           false,
	} {
		if got := retryableStatus(code); got != want {
			t.Errorf("retryableStatus(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestBackoffCapped(t *testing.T) {
	if got := backoff(time.Second, 10); got > 30*time.Second {
		t.Errorf("backoff exceeded cap: %v", got)
	}
}
