// Package fetch retrieves source material for article generation: it
// downloads a page, strips navigation and boilerplate, and extracts the main
// article text.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"blogsmith/internal/core"

	"github.com/PuerkitoBio/goquery"
)

// mainContentSelectors are tried in order before falling back to body text.
var mainContentSelectors = []string{
	"article", "main", ".main", "#main", ".content", "#content",
	".post-body", ".entry-content",
}

// Fetcher downloads and extracts source documents.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// FetchSource downloads a URL and returns its cleaned article text as a
// SourceDocument.
func (f *Fetcher) FetchSource(ctx context.Context, url string) (*core.SourceDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status code %d", url, resp.StatusCode)
	}

	text, err := ExtractText(resp)
	if err != nil {
		return nil, err
	}

	return &core.SourceDocument{
		Text:      text,
		URL:       url,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// ExtractText parses an HTML response and extracts the main content text.
func ExtractText(resp *http.Response) (string, error) {
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return extractFromDocument(doc)
}

// ExtractTextFromHTML parses an HTML string and extracts the main content
// text.
func ExtractTextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return extractFromDocument(doc)
}

func extractFromDocument(doc *goquery.Document) (string, error) {
	// Drop elements that never carry article content.
	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript").Remove()

	var text string
	for _, selector := range mainContentSelectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text += s.Text() + " "
		})
		if strings.TrimSpace(text) != "" {
			break
		}
	}

	if strings.TrimSpace(text) == "" {
		text = doc.Find("body").Text()
	}

	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return "", fmt.Errorf("no meaningful text content found")
	}
	return cleaned, nil
}
