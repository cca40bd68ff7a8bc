package synthesis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSynthesizeRequestShape(t *testing.T) {
	var gotQuery map[string]string
	var gotUserAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = make(map[string]string)
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		gotUserAgent = r.Header.Get("User-Agent")
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	cli := NewClient(Config{Endpoint: server.URL})

	audio, err := cli.Synthesize(context.Background(), "añil y miel", "es")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("audio = %q", audio)
	}

	want := map[string]string{
		"ie":      "UTF-8",
		"client":  "tw-ob",
		"q":       "añil y miel",
		"tl":      "es",
		"total":   "1",
		"idx":     "0",
		"textlen": "11", // runas, no bytes
	}
	for key, value := range want {
		if gotQuery[key] != value {
			t.Errorf("param %s = %q, want %q", key, gotQuery[key], value)
		}
	}
	if !strings.HasPrefix(gotUserAgent, "Mozilla/5.0") {
		t.Errorf("User-Agent = %q", gotUserAgent)
	}
}

func TestSynthesizeDefaultsLanguage(t *testing.T) {
	var gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.URL.Query().Get("tl")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	cli := NewClient(Config{Endpoint: server.URL})
	if _, err := cli.Synthesize(context.Background(), "hola", "  "); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotLang != "es" {
		t.Errorf("tl = %q, want es", gotLang)
	}
}

func TestSynthesizeNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cli := NewClient(Config{Endpoint: server.URL})
	_, err := cli.Synthesize(context.Background(), "hola", "es")
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error should carry status and body excerpt: %v", err)
	}
}

func TestSynthesizeEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cli := NewClient(Config{Endpoint: server.URL})
	if _, err := cli.Synthesize(context.Background(), "hola", "es"); err == nil {
		t.Fatal("expected error for empty audio response")
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	cli := NewClient(Config{Endpoint: "http://127.0.0.1:0"})
	if _, err := cli.Synthesize(context.Background(), "   ", "es"); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestSynthesizeContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("tarde"))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cli := NewClient(Config{Endpoint: server.URL})
	if _, err := cli.Synthesize(ctx, "hola", "es"); err == nil {
		t.Fatal("expected error when the context expires")
	}
}
