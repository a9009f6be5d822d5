package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"tlc-ingest/models"
	"tlc-ingest/utils"
)

// Fetcher downloads monthly trip-data files from the TLC distribution host.
type Fetcher struct {
	baseURL string
	client  *http.Client
	logger  *utils.Logger
}

// NewFetcher creates a Fetcher. A zero timeout leaves the request unbounded.
func NewFetcher(baseURL string, timeout time.Duration, logger *utils.Logger) *Fetcher {
	return &Fetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// SourceURL builds the deterministic file URL for p.
func (f *Fetcher) SourceURL(p models.Params) string {
	return fmt.Sprintf("%s/trip-data/%s_tripdata_%s-%s.parquet", f.baseURL, p.TaxiType, p.Year, p.Month)
}

// Fetch performs a single GET and returns the body. Any non-2xx status is
// an error carrying the status text; there is no retry.
func (f *Fetcher) Fetch(ctx context.Context, p models.Params) ([]byte, error) {
	target := f.SourceURL(p)
	f.logger.Info("[fetcher] GET %s", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("GET %s: unexpected status %s", target, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", target, err)
	}

	f.logger.Info("[fetcher] Downloaded %d bytes", len(body))
	return body, nil
}
