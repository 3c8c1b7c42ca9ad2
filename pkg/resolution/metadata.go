package resolution

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// MetadataFetcher retrieves off-chain JSON documents. Token metadata is the
// only network access in the engine that is not a naming-service RPC call.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type httpFetcher struct {
	client *http.Client
}

func defaultMetadataFetcher() MetadataFetcher {
	return &httpFetcher{client: &http.Client{Timeout: 30 * time.Second}}
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// fetchTokenMetadata fetches and parses the document behind a token URI.
// Transport failures are always wrapped into ServiceProviderError.
func fetchTokenMetadata(ctx context.Context, fetcher MetadataFetcher, uri string) (*TokenMetadata, error) {
	log.Debug("fetching token metadata: ", uri)
	bs, err := fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, wrapError(ServiceProviderError, err, "cannot fetch token metadata from %s", uri)
	}
	metadata := &TokenMetadata{}
	if err := json.Unmarshal(bs, metadata); err != nil {
		return nil, wrapError(ServiceProviderError, err, "cannot parse token metadata from %s", uri)
	}
	return metadata, nil
}
