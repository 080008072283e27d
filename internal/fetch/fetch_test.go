package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExtractTextFromHTML_PrefersArticle(t *testing.T) {
	html := `<html><body>
		<nav>Site navigation</nav>
		<article>The main article content lives here.</article>
		<footer>Copyright notice</footer>
	</body></html>`

	text, err := ExtractTextFromHTML(html)
	if err != nil {
		t.Fatalf("ExtractTextFromHTML failed: %v", err)
	}
	if !strings.Contains(text, "main article content") {
		t.Errorf("Expected article content, got %q", text)
	}
	if strings.Contains(text, "navigation") || strings.Contains(text, "Copyright") {
		t.Errorf("Boilerplate should be stripped, got %q", text)
	}
}

func TestExtractTextFromHTML_StripsScripts(t *testing.T) {
	html := `<html><body>
		<script>var tracking = true;</script>
		<style>.hidden { display: none }</style>
		<main>Visible body text only.</main>
	</body></html>`

	text, err := ExtractTextFromHTML(html)
	if err != nil {
		t.Fatalf("ExtractTextFromHTML failed: %v", err)
	}
	if strings.Contains(text, "tracking") || strings.Contains(text, "display") {
		t.Errorf("Script and style content should be removed, got %q", text)
	}
	if !strings.Contains(text, "Visible body text") {
		t.Errorf("Expected main content, got %q", text)
	}
}

func TestExtractTextFromHTML_FallsBackToBody(t *testing.T) {
	html := `<html><body><div>Plain div content without semantic containers.</div></body></html>`

	text, err := ExtractTextFromHTML(html)
	if err != nil {
		t.Fatalf("ExtractTextFromHTML failed: %v", err)
	}
	if !strings.Contains(text, "Plain div content") {
		t.Errorf("Expected body fallback content, got %q", text)
	}
}

func TestExtractTextFromHTML_Empty(t *testing.T) {
	if _, err := ExtractTextFromHTML("<html><body></body></html>"); err == nil {
		t.Error("Empty page should fail extraction")
	}
}

func TestFetchSource(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<html><body><article>Fetched article body text.</article></body></html>`))
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "blogsmith-test/1.0")
	doc, err := fetcher.FetchSource(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchSource failed: %v", err)
	}

	if !strings.Contains(doc.Text, "Fetched article body text") {
		t.Errorf("Expected extracted text, got %q", doc.Text)
	}
	if doc.URL != server.URL {
		t.Errorf("Expected URL %q, got %q", server.URL, doc.URL)
	}
	if doc.FetchedAt.IsZero() {
		t.Error("Fetched document should carry a timestamp")
	}
	if gotUserAgent != "blogsmith-test/1.0" {
		t.Errorf("Expected custom user agent, got %q", gotUserAgent)
	}
}

func TestFetchSource_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "")
	if _, err := fetcher.FetchSource(context.Background(), server.URL); err == nil {
		t.Error("Non-200 response should fail")
	}
}

func TestFetchSource_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcher(5*time.Second, "")
	if _, err := fetcher.FetchSource(ctx, server.URL); err == nil {
		t.Error("Cancelled context should abort the fetch")
	}
}
