package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/jjenkins/regwatch/internal/model"
)

const (
	defaultBaseURL        = "https://www.federalregister.gov/api/v1"
	defaultTimeout        = 30 * time.Second
	defaultPerPage        = 1000
	defaultMaxPages       = 10
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultRequestsPerSec = 5
)

// documentFields are the fields requested from the documents endpoint
var documentFields = []string{
	fieldTitle,
	fieldDocumentNumber,
	fieldPublicationDate,
	fieldType,
	fieldHTMLURL,
}

// documentTypes restricts queries to final and proposed rules
var documentTypes = []string{"RULE", "PRORULE"}

// ClientConfig configures the Federal Register client
type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	PerPage        int
	MaxPages       int
	MaxRetries     int
	InitialBackoff time.Duration

	// RequestsPerSecond paces outgoing requests across pages, retries and concurrent fetches
	RequestsPerSecond float64
}

// FederalRegisterClient handles communication with the Federal Register API
type FederalRegisterClient struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     ClientConfig
}

// NewFederalRegisterClient creates a new client, filling unset config fields with defaults
func NewFederalRegisterClient(cfg ClientConfig) *FederalRegisterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRequestsPerSec
	}

	return &FederalRegisterClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
		cfg:     cfg,
	}
}

// ErrTooManyPages is returned when a query still has pages left after MaxPages
var ErrTooManyPages = errors.New("documents query exceeds max pages")

// documentsResponse represents the API response for /documents.json
type documentsResponse struct {
	Count       int               `json:"count"`
	TotalPages  int               `json:"total_pages"`
	NextPageURL string            `json:"next_page_url"`
	Results     []model.RawRecord `json:"results"`
}

// FetchDocuments retrieves raw rule records for the agency slugs published within [start, end]
func (c *FederalRegisterClient) FetchDocuments(ctx context.Context, slugs []string, start, end time.Time) ([]model.RawRecord, error) {
	pageURL := c.DocumentsURL(slugs, start, end)

	var records []model.RawRecord
	for page := 1; pageURL != "" && page <= c.cfg.MaxPages; page++ {
		body, err := c.fetchWithRetry(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch documents page %d: %w", page, err)
		}

		var resp documentsResponse
		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.UseNumber()
		if err := decoder.Decode(&resp); err != nil {
			return nil, fmt.Errorf("failed to parse documents response: %w", err)
		}

		records = append(records, resp.Results...)
		pageURL = resp.NextPageURL
	}

	if pageURL != "" {
		return nil, fmt.Errorf("%w: stopped after %d pages with %d records", ErrTooManyPages, c.cfg.MaxPages, len(records))
	}

	return records, nil
}

// DocumentsURL builds the first page URL for a documents query
func (c *FederalRegisterClient) DocumentsURL(slugs []string, start, end time.Time) string {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	params.Set("order", "newest")
	params.Set("conditions[publication_date][gte]", start.Format(model.DateLayout))
	params.Set("conditions[publication_date][lte]", end.Format(model.DateLayout))
	for _, t := range documentTypes {
		params.Add("conditions[type][]", t)
	}
	for _, slug := range slugs {
		params.Add("conditions[agencies][]", slug)
	}
	for _, f := range documentFields {
		params.Add("fields[]", f)
	}

	return fmt.Sprintf("%s/documents.json?%s", c.cfg.BaseURL, params.Encode())
}

// fetchWithRetry performs an HTTP GET with exponential backoff retry
func (c *FederalRegisterClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	backoff := c.cfg.InitialBackoff

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			continue
		}

		// Other 4xx responses will not succeed on retry
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		return body, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}
