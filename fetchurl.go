package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// FetchTimeout bounds each URL fetch.
	FetchTimeout = 30 * time.Second

	// MaxFetchedContentLength caps extracted text so an imported document
	// can't blow out prompt budgets.
	MaxFetchedContentLength = 50000
)

// FetchURLContent fetches a web page and extracts its readable text for use
// as case context (e.g., a published opinion or news article about the
// matter). Scripts, styles, and navigation chrome are stripped.
func FetchURLContent(ctx context.Context, url string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("invalid URL scheme: %s", url)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "LLM-Counsel-Context-Fetcher/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	client := &http.Client{Timeout: FetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	return ExtractReadableText(doc), nil
}

// ExtractReadableText pulls the readable text out of an HTML document.
// Prefers <main>/<article> content when present, falling back to <body>.
func ExtractReadableText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, noscript").Remove()

	root := doc.Find("main, article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var lines []string
	root.Find("h1, h2, h3, h4, h5, h6, p, li, blockquote, td").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			lines = append(lines, text)
		}
	})

	content := strings.Join(lines, "\n")
	if content == "" {
		// Pages without block structure still get their raw text.
		content = strings.TrimSpace(root.Text())
	}

	if len(content) > MaxFetchedContentLength {
		content = content[:MaxFetchedContentLength]
	}
	return content
}
