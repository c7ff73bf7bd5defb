package crawler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://Example.com/Specs/", "https://example.com/Specs"},
		{"https://example.com", "https://example.com/"},
		{"http://example.com:80/page", "http://example.com/page"},
		{"https://example.com:443/page#section", "https://example.com/page"},
	}
	for _, tc := range cases {
		got, err := normalizeURL(tc.in)
		if err != nil {
			t.Fatalf("normalizeURL(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSourceIDForURL(t *testing.T) {
	got := SourceIDForURL("https://toyota.com/camry/specs?trim=xle")
	if strings.ContainsAny(got, "/?&=:#") {
		t.Fatalf("source ID contains URL punctuation: %q", got)
	}
	if !strings.HasPrefix(got, "toyota.com_camry_specs") {
		t.Fatalf("unexpected source ID: %q", got)
	}
}

func TestFetchPageExtractsContent(t *testing.T) {
	body := `<html><head><title>Camry Specifications</title></head><body>
<nav>menu menu menu</nav>
<main><h1>2024 Camry</h1><p>` + strings.Repeat("The Camry produces 208 horsepower. ", 10) + `</p></main>
<footer>copyright</footer>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	res, err := FetchPage(FetchConfig{URL: srv.URL, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if res.Title != "Camry Specifications" {
		t.Errorf("title = %q", res.Title)
	}
	if !strings.Contains(res.Content, "208 horsepower") {
		t.Errorf("content missing main text")
	}
	if strings.Contains(res.Content, "menu menu menu") {
		t.Errorf("navigation text not stripped")
	}
	if res.WordCount < 10 {
		t.Errorf("word count too low: %d", res.WordCount)
	}
}

func TestFetchPageRejectsThinContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>x</title></head><body><p>hi</p></body></html>"))
	}))
	defer srv.Close()

	if _, err := FetchPage(FetchConfig{URL: srv.URL}); err == nil {
		t.Fatal("expected error for page with too little content")
	}
}

func TestFetchPageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := FetchPage(FetchConfig{URL: srv.URL})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "server error") {
		t.Fatalf("unexpected error: %v", err)
	}
}
