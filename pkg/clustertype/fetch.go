package clustertype

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxTemplateSize limits the size of a fetched template.
const maxTemplateSize = 1 << 20

// Fetcher fetches files referenced by URL from HOT fragments.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

func NewHTTPFetcher(logger *slog.Logger, timeout time.Duration) HTTPFetcher {
	client := retryablehttp.NewClient()
	client.Logger = logger
	client.RetryMax = 2
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = timeout
	return HTTPFetcher{client: client}
}

// HTTPFetcher fetches files over HTTP(S).
type HTTPFetcher struct {
	client *retryablehttp.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %q: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTemplateSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %v", url, err)
	}
	if len(body) > maxTemplateSize {
		return nil, fmt.Errorf("failed to fetch %q: larger than %d bytes", url, maxTemplateSize)
	}
	return body, nil
}
