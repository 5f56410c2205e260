// Package gdocs fetches document text from the Google Docs API.
package gdocs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/metrics"
	"github.com/kailas-cloud/clientrag/internal/retry"
)

// DefaultTimeout bounds a single Documents.Get round trip.
const DefaultTimeout = 120 * time.Second

// retryableCodes are HTTP statuses treated as transient.
var retryableCodes = map[int]bool{
	http.StatusForbidden:           true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusServiceUnavailable:  true,
}

// Config holds the fetcher settings.
type Config struct {
	// CredentialsFile is a service-account JSON key. Ignored when CredentialsJSON is set.
	CredentialsFile string
	CredentialsJSON []byte
	Timeout         time.Duration
	// RequestsPerSecond paces Documents.Get calls. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int
	Retry             retry.Policy
	Logger            *zap.Logger
}

// Fetcher implements domain.Fetcher over the Docs API. Safe for concurrent use.
type Fetcher struct {
	srv     *docs.Service
	limiter *rate.Limiter
	policy  retry.Policy
	logger  *zap.Logger
}

// New builds a Fetcher authenticated with a service-account key.
func New(ctx context.Context, cfg Config) (*Fetcher, error) {
	data := cfg.CredentialsJSON
	if len(data) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, errors.New("gdocs: service account credentials are required")
		}
		var err error
		data, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
	}

	jwtCfg, err := google.JWTConfigFromJSON(data, docs.DocumentsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := oauth2.NewClient(ctx, jwtCfg.TokenSource(ctx))
	httpClient.Timeout = timeout

	srv, err := docs.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("docs service: %w", err)
	}
	return NewWithService(srv, cfg), nil
}

// NewWithService wraps a prepared Docs service. Credential fields of cfg are ignored.
func NewWithService(srv *docs.Service, cfg Config) *Fetcher {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		srv:     srv,
		limiter: limiter,
		policy:  cfg.Retry.Normalize(),
		logger:  log,
	}
}

// Fetch returns the document's plain text with surrounding whitespace trimmed.
// 403, 429, 500, 503 and network timeouts are retried; other failures return at once.
func (f *Fetcher) Fetch(ctx context.Context, documentID string) (string, error) {
	text, err := retry.Do(ctx, f.policy, isRetryable,
		func(ctx context.Context) (string, error) {
			if err := f.limiter.Wait(ctx); err != nil {
				return "", err
			}
			doc, err := f.srv.Documents.Get(documentID).Context(ctx).Do()
			if err != nil {
				return "", err
			}
			return ExtractText(doc), nil
		},
		func(attempt int, err error, wait time.Duration) {
			metrics.FetchRetriesTotal.Inc()
			f.logger.Warn("document fetch failed, retrying",
				zap.String("document_id", documentID),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		metrics.FetchRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("fetch document %s: %w: %w", documentID, domain.ErrFetchFailed, err)
	}
	metrics.FetchRequestsTotal.WithLabelValues("success").Inc()
	return strings.TrimSpace(text), nil
}

func isRetryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return retryableCodes[gerr.Code]
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ExtractText concatenates the text runs of every paragraph, descending into
// tables and tables of contents.
func ExtractText(doc *docs.Document) string {
	if doc == nil || doc.Body == nil {
		return ""
	}
	var b strings.Builder
	writeElements(&b, doc.Body.Content)
	return b.String()
}

func writeElements(b *strings.Builder, elems []*docs.StructuralElement) {
	for _, el := range elems {
		switch {
		case el == nil:
		case el.Paragraph != nil:
			for _, pe := range el.Paragraph.Elements {
				if pe != nil && pe.TextRun != nil {
					b.WriteString(pe.TextRun.Content)
				}
			}
		case el.Table != nil:
			for _, row := range el.Table.TableRows {
				if row == nil {
					continue
				}
				for _, cell := range row.TableCells {
					if cell != nil {
						writeElements(b, cell.Content)
					}
				}
			}
		case el.TableOfContents != nil:
			writeElements(b, el.TableOfContents.Content)
		}
	}
}
