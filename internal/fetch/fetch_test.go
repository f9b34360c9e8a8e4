package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go-newsletter-exporter/internal/fetch"
	"go-newsletter-exporter/internal/model"
)

func TestFetchText_UserAgentOverride(t *testing.T) {
	t.Setenv("NLE_UA", "test-agent/1.0")
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cl, err := fetch.New(fetch.Options{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	body, err := cl.FetchText(context.Background(), srv.URL, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if body != "ok" || gotUA != "test-agent/1.0" {
		t.Fatalf("body=%q ua=%q", body, gotUA)
	}
}

func TestFetchText_RetryOnStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cl, _ := fetch.New(fetch.Options{Timeout: 2 * time.Second})
	if _, err := cl.FetchText(context.Background(), srv.URL, 1); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}

func TestFetchText_ExhaustedIsTransportError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cl, _ := fetch.New(fetch.Options{Timeout: 2 * time.Second})
	_, err := cl.FetchText(context.Background(), srv.URL, 1)
	var te *model.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if te.URL != srv.URL {
		t.Fatalf("url = %q", te.URL)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}

func TestFetchText_DefaultRetryFromOptions(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cl, _ := fetch.New(fetch.Options{Retry: 2, Timeout: 2 * time.Second})
	if _, err := cl.FetchText(context.Background(), srv.URL, -1); err == nil {
		t.Fatalf("want error")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("calls = %d, want 3", n)
	}
}

func TestFetchBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{1, 2, 3})
	}))
	defer srv.Close()

	cl, _ := fetch.New(fetch.Options{Timeout: 2 * time.Second})
	b, err := cl.FetchBytes(context.Background(), srv.URL, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(b) != 3 {
		t.Fatalf("len = %d", len(b))
	}
}
