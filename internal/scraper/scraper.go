// Package scraper fetches a web page and turns it into the title,
// description, markdown and raw HTML the pipeline stages consume.
package scraper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// maxBodyBytes caps how much of a page is read
const maxBodyBytes = 5 << 20

// ErrEmptyContent is returned when a page yields no markdown
var ErrEmptyContent = errors.New("page has no content")

// Page is the result of one fetch
type Page struct {
	URL         string
	Title       string
	Description string
	Language    string
	Markdown    string
	HTML        string
}

// Fetcher is what the pipeline needs from a scraper
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Config configures the HTTP scraper
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// DefaultConfig returns the default scraper settings
func DefaultConfig() Config {
	return Config{
		UserAgent: "autoblog/1.0 (+https://github.com/autoblog)",
		Timeout:   30 * time.Second,
	}
}

// Scraper fetches pages over HTTP
type Scraper struct {
	httpClient  *http.Client
	userAgent   string
	mdConverter *converter.Converter
}

var _ Fetcher = (*Scraper)(nil)

// New creates a scraper
func New(config Config) *Scraper {
	return &Scraper{
		httpClient: &http.Client{
			Timeout: config.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return eris.New("stopped after 10 redirects")
				}
				return nil
			},
		},
		userAgent: config.UserAgent,
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Fetch downloads url and extracts its content. A page without any
// markdown content is an error.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	raw, err := s.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	page, err := s.Parse(pageURL, raw)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(page.Markdown) == "" {
		return nil, eris.Wrapf(ErrEmptyContent, "%s", pageURL)
	}
	return page, nil
}

// FetchHTML downloads the raw HTML of a page
func (s *Scraper) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "failed to create request")
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "failed to fetch %s", pageURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "failed to read response body")
	}
	return string(body), nil
}

// Parse extracts a Page from already downloaded HTML
func (s *Scraper) Parse(pageURL, rawHTML string) (*Page, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, eris.Wrap(err, "failed to parse HTML")
	}

	page := &Page{URL: pageURL, HTML: rawHTML}
	extractOpenGraph(doc, page)
	extractTitle(doc, page)
	extractDescription(doc, page)
	extractLanguage(doc, page)

	markdown, err := s.mdConverter.ConvertString(rawHTML, converter.WithDomain(pageURL))
	if err != nil {
		return nil, eris.Wrap(err, "convert HTML to markdown")
	}
	page.Markdown = strings.TrimSpace(markdown)

	return page, nil
}
