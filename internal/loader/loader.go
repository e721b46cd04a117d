// Package loader fetches news articles over HTTP and extracts their readable
// text. HTML pages are reduced to their headings, paragraphs and list items;
// plain-text responses are used as they are.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/54b3r/rockybot-go/internal/logging"
	"github.com/54b3r/rockybot-go/internal/rag"
)

const (
	// DefaultMaxBytes caps the size of a fetched page.
	DefaultMaxBytes = 1_500_000
	// DefaultTimeout bounds each fetch.
	DefaultTimeout = 20 * time.Second
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "rockybot-go/1.0 (news article loader)"
)

// Config holds the settings for an HTTPLoader.
type Config struct {
	// Timeout is the per-URL request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
	// MaxBytes is the largest body read from a page. Defaults to DefaultMaxBytes.
	MaxBytes int64
	// UserAgent is the HTTP User-Agent header. Defaults to DefaultUserAgent.
	UserAgent string
}

// ConfigFromEnv reads LOADER_TIMEOUT (a Go duration), LOADER_MAX_BYTES and
// LOADER_USER_AGENT. Unset or malformed values keep the defaults.
func ConfigFromEnv() Config {
	cfg := Config{UserAgent: os.Getenv("LOADER_USER_AGENT")}
	if v := os.Getenv("LOADER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("LOADER_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxBytes = n
		}
	}
	return cfg
}

// HTTPLoader implements rag.ArticleLoader. It is safe for concurrent use.
type HTTPLoader struct {
	// cfg holds the resolved settings.
	cfg Config
	// client is the HTTP client used for all fetches.
	client *http.Client
	// now stamps FetchedAt.
	now func() time.Time
}

// New returns an HTTPLoader with defaults applied to cfg.
func New(cfg Config) *HTTPLoader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &HTTPLoader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

// Load fetches every URL in order and returns one Document per URL that
// produced text. A URL that fails is logged and skipped; only cancellation
// of ctx is returned as an error.
func (l *HTTPLoader) Load(ctx context.Context, urls []string) ([]rag.Document, error) {
	log := logging.FromContext(ctx)
	docs := make([]rag.Document, 0, len(urls))

	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}

		doc, err := l.fetch(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("loader: %w", ctx.Err())
			}
			log.Warn("article skipped", slog.String("url", u), slog.String("error", err.Error()))
			continue
		}
		if strings.TrimSpace(doc.Text) == "" {
			log.Warn("article skipped", slog.String("url", u), slog.String("error", "no extractable text"))
			continue
		}
		log.Debug("article loaded",
			slog.String("url", u),
			slog.String("title", doc.Title),
			slog.Int("chars", len(doc.Text)),
		)
		docs = append(docs, doc)
	}
	return docs, nil
}

// errTooLarge is returned when a page exceeds MaxBytes.
var errTooLarge = errors.New("page too large")

// fetch retrieves a single URL and extracts its text.
func (l *HTTPLoader) fetch(ctx context.Context, url string) (rag.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return rag.Document{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", l.cfg.UserAgent)
	req.Header.Set("Accept", "text/html, text/plain")

	resp, err := l.client.Do(req)
	if err != nil {
		return rag.Document{}, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return rag.Document{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > l.cfg.MaxBytes {
		return rag.Document{}, errTooLarge
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.cfg.MaxBytes+1))
	if err != nil {
		return rag.Document{}, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(body)) > l.cfg.MaxBytes {
		return rag.Document{}, errTooLarge
	}

	doc := rag.Document{Source: url, FetchedAt: l.now().UTC()}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "text/plain":
		doc.Text = cleanWhitespace(string(body))
		doc.Title = titleFromText(doc.Text)
	case mediaType == "text/html", mediaType == "application/xhtml+xml", mediaType == "":
		doc.Title, doc.Text, err = extractHTML(body)
		if err != nil {
			return rag.Document{}, fmt.Errorf("parsing html: %w", err)
		}
	default:
		return rag.Document{}, fmt.Errorf("unsupported content type %q", mediaType)
	}
	return doc, nil
}

// extractHTML returns the page title and the text of the headings,
// paragraphs and list items inside main or article, falling back to the
// whole document when neither exists.
func extractHTML(body []byte) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())

	root := doc.Find("main, article")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var parts []string
	root.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	})
	return title, strings.Join(parts, "\n\n"), nil
}

var trailingSpaceRX = regexp.MustCompile(`[ \t]+\n`)

func cleanWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(trailingSpaceRX.ReplaceAllString(s, "\n"))
}

// titleFromText uses the first line, capped at 120 runes.
func titleFromText(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) > 120 {
		line = string(r[:120])
	}
	return line
}
