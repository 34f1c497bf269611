package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxAPRBps caps accepted quotes at 1000% APR.
const maxAPRBps = 100_000

// Quote is an APR observation in basis points.
type Quote struct {
	APRBps     uint64    `json:"apr_bps"`
	ObservedAt time.Time `json:"observed_at"`
}

// QuoteSource supplies the current APR.
type QuoteSource interface {
	Quote(ctx context.Context) (Quote, error)
}

// StaticQuote always reports the configured APR as freshly observed.
type StaticQuote struct {
	APRBps uint64
	Now    func() time.Time
}

func (s StaticQuote) Quote(context.Context) (Quote, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return Quote{APRBps: s.APRBps, ObservedAt: now()}, nil
}

// HTTPQuote reads {"apr_bps":N,"observed_at":"RFC3339"} from a JSON feed.
type HTTPQuote struct {
	URL    string
	Client *http.Client
}

// NewHTTPQuote builds a traced client with the given timeout.
func NewHTTPQuote(url string, timeout time.Duration) *HTTPQuote {
	return &HTTPQuote{
		URL: url,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (h *HTTPQuote) Quote(ctx context.Context) (Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("relayer: fetch quote: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("relayer: quote feed returned %s", resp.Status)
	}
	var quote Quote
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&quote); err != nil {
		return Quote{}, fmt.Errorf("relayer: decode quote: %w", err)
	}
	if quote.ObservedAt.IsZero() {
		return Quote{}, fmt.Errorf("relayer: quote missing observed_at")
	}
	return quote, nil
}

// NewQuoteSource builds the source selected by cfg.
func NewQuoteSource(cfg QuoteConfig) (QuoteSource, error) {
	switch cfg.Source {
	case SourceStatic, "":
		return StaticQuote{APRBps: cfg.APRBps}, nil
	case SourceHTTP:
		return NewHTTPQuote(cfg.URL, cfg.Timeout.Duration), nil
	default:
		return nil, fmt.Errorf("relayer: unknown quote source %q", cfg.Source)
	}
}
