package gdocs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kailas-cloud/clientrag/internal/domain"
	"github.com/kailas-cloud/clientrag/internal/metrics"
	"github.com/kailas-cloud/clientrag/internal/retry"
)

func TestMain(m *testing.M) {
	metrics.RegisterIndexMetrics()
	os.Exit(m.Run())
}

const docJSON = `{
  "documentId": "D1",
  "body": {"content": [
    {"sectionBreak": {}},
    {"paragraph": {"elements": [{"textRun": {"content": "  Project Name: Alpha\n"}}]}},
    {"table": {"tableRows": [
      {"tableCells": [
        {"content": [{"paragraph": {"elements": [{"textRun": {"content": "cell A\n"}}]}}]},
        {"content": [{"paragraph": {"elements": [{"textRun": {"content": "cell B\n"}}]}}]}
      ]}
    ]}},
    {"paragraph": {"elements": [{"textRun": {"content": "Status: Done\n\n"}}, {"inlineObjectElement": {}}]}}
  ]}
}`

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*Fetcher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := docs.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("docs service: %v", err)
	}
	return NewWithService(srv, Config{
		Retry: retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond},
	}), server
}

func TestFetcher_Fetch(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/documents/D1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, docJSON)
	})

	got, err := f.Fetch(context.Background(), "D1")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	want := "Project Name: Alpha\ncell A\ncell B\nStatus: Done"
	if got != want {
		t.Errorf("Fetch = %q, want %q", got, want)
	}
}

func TestFetcher_RetriesTransientStatus(t *testing.T) {
	for _, code := range []int{403, 429, 500, 503} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			var calls atomic.Int32
			f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) < 3 {
					w.WriteHeader(code)
					fmt.Fprint(w, `{"error":{"code":`+fmt.Sprint(code)+`,"message":"try later"}}`)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, docJSON)
			})

			if _, err := f.Fetch(context.Background(), "D1"); err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			if n := calls.Load(); n != 3 {
				t.Errorf("expected 3 calls, got %d", n)
			}
		})
	}
}

func TestFetcher_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := f.Fetch(context.Background(), "D1")
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected wrapped 503 googleapi.Error, got %v", err)
	}
	if n := calls.Load(); n != 5 {
		t.Errorf("expected 5 calls, got %d", n)
	}
}

func TestFetcher_NotFoundFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := f.Fetch(context.Background(), "missing"); !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestFetcher_WhitespaceDocument(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"documentId":"D2","body":{"content":[{"paragraph":{"elements":[{"textRun":{"content":"   \n"}}]}}]}}`)
	})

	got, err := f.Fetch(context.Background(), "D2")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"forbidden", &googleapi.Error{Code: 403}, true},
		{"rate limited", &googleapi.Error{Code: 429}, true},
		{"internal", &googleapi.Error{Code: 500}, true},
		{"unavailable", &googleapi.Error{Code: 503}, true},
		{"bad gateway", &googleapi.Error{Code: 502}, false},
		{"not found", &googleapi.Error{Code: 404}, false},
		{"timeout", fmt.Errorf("get: %w", timeoutErr{}), true},
		{"dns", &net.DNSError{Err: "no such host", Name: "docs.googleapis.com"}, true},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := isRetryable(tt.err); got != tt.want {
			t.Errorf("%s: isRetryable = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestExtractText_Nil(t *testing.T) {
	if got := ExtractText(nil); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := ExtractText(&docs.Document{}); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := New(context.Background(), Config{CredentialsJSON: []byte(`{}`)}); err == nil {
		t.Fatal("expected error for malformed credentials")
	}
}
