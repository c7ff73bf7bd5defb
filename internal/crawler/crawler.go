// Package crawler fetches vehicle specification pages for ingestion.
// Only static HTML is supported; pages that require JavaScript to
// render their content will come back mostly empty.
package crawler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

var httpTransport = &http.Transport{
	DisableCompression: false,
}

// FetchConfig holds settings for a single-page fetch.
type FetchConfig struct {
	URL     string
	Timeout time.Duration
}

// FetchResult is the extracted content of one page.
type FetchResult struct {
	URL        string
	Title      string
	Content    string
	WordCount  int
	StatusCode int
	FetchedAt  time.Time
}

// normalizeURL canonicalizes a URL for duplicate detection and stable
// source IDs.
func normalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	parsed.Fragment = ""

	path := parsed.Path
	if path == "" {
		path = "/"
	} else if path != "/" {
		path = strings.TrimSuffix(path, "/")
		if path == "" {
			path = "/"
		}
	}
	parsed.Path = path

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	if parsed.Port() == "80" && parsed.Scheme == "http" {
		host, _, _ := strings.Cut(parsed.Host, ":")
		parsed.Host = host
	}
	if parsed.Port() == "443" && parsed.Scheme == "https" {
		host, _, _ := strings.Cut(parsed.Host, ":")
		parsed.Host = host
	}

	return parsed.String(), nil
}

// FetchPage downloads one page and extracts its readable text. Link
// following is deliberately not supported; a spec page is ingested one
// URL at a time.
func FetchPage(cfg FetchConfig) (*FetchResult, error) {
	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" {
		parsedURL.Scheme = "https"
		cfg.URL = parsedURL.String()
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", parsedURL.Scheme)
	}

	normalized, err := normalizeURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}

	c := colly.NewCollector()
	c.WithTransport(httpTransport)
	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	} else {
		c.SetRequestTimeout(60 * time.Second)
	}
	c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	result := &FetchResult{URL: normalized}
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Accept-Encoding", "gzip, deflate, br")
	})

	c.OnResponse(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml+xml") {
			fetchErr = fmt.Errorf("unsupported content type %q", contentType)
			return
		}

		var bodyReader io.Reader = bytes.NewReader(r.Body)

		// Go's transport decompresses gzip itself; brotli needs manual
		// handling.
		if strings.Contains(r.Headers.Get("Content-Encoding"), "br") {
			decompressed, err := io.ReadAll(brotli.NewReader(bodyReader))
			if err == nil {
				r.Body = decompressed
				bodyReader = bytes.NewReader(decompressed)
			}
		}

		if len(r.Body) > 0 {
			utf8Reader, err := charset.NewReader(bodyReader, contentType)
			if err == nil {
				decoded, readErr := io.ReadAll(utf8Reader)
				if readErr == nil && len(decoded) > 0 {
					r.Body = decoded
				}
			}
		}

		result.StatusCode = r.StatusCode
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		result.Title = strings.TrimSpace(e.DOM.Find("title").Text())
		content := extractMainContent(e.DOM)
		if len(content) < 50 {
			content = strings.TrimSpace(e.DOM.Find("body").Text())
		}
		result.Content = content
		result.WordCount = len(strings.Fields(content))
		result.FetchedAt = time.Now()
	})

	c.OnError(func(r *colly.Response, err error) {
		switch {
		case r.StatusCode == 403:
			fetchErr = fmt.Errorf("access forbidden (403): the website blocked the request")
		case r.StatusCode == 429:
			fetchErr = fmt.Errorf("rate limited (429): too many requests, try again later")
		case r.StatusCode >= 500:
			fetchErr = fmt.Errorf("server error (%d) fetching %s", r.StatusCode, cfg.URL)
		default:
			fetchErr = fmt.Errorf("failed to fetch %s: %w", cfg.URL, err)
		}
	})

	if err := c.Visit(normalized); err != nil {
		return nil, fmt.Errorf("failed to start fetch: %w", err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if result.WordCount < 10 {
		return nil, fmt.Errorf("page %s has too little readable content", normalized)
	}
	return result, nil
}

// extractMainContent pulls readable text, preferring semantic content
// containers over the raw body.
func extractMainContent(selection *goquery.Selection) string {
	doc := selection.Clone()

	doc.Find("script, style, nav, footer, header, aside, .nav, .navbar, .footer, .header, .sidebar, .advertisement, .ads").Remove()

	contentSelectors := []string{
		"main",
		"article",
		"[role='main']",
		".main-content",
		".content",
		"#content",
		"body",
	}

	var content strings.Builder
	contentFound := false

	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 100 {
				content.WriteString(text)
				content.WriteString("\n\n")
				contentFound = true
			}
		})
		if contentFound {
			break
		}
	}

	if !contentFound {
		content.WriteString(doc.Find("body").Text())
	}

	lines := strings.Split(strings.TrimSpace(content.String()), "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// SourceIDForURL derives a stable source identifier from a page URL.
func SourceIDForURL(rawURL string) string {
	normalized, err := normalizeURL(rawURL)
	if err != nil {
		normalized = rawURL
	}
	id := strings.TrimPrefix(normalized, "https://")
	id = strings.TrimPrefix(id, "http://")
	id = strings.Trim(id, "/")
	replacer := strings.NewReplacer("/", "_", "?", "_", "&", "_", "=", "_", ":", "_", "#", "_")
	return replacer.Replace(id)
}
