package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	golanglru2 "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethstorage/domain-resolution/pkg/resolution"
)

type fakeResolverDomain struct {
	owner    string
	resolver string
	records  map[string]string
}

type fakeResolver struct {
	domains map[string]*fakeResolverDomain
	calls   int
}

func (f *fakeResolver) lookup(domain string) (*fakeResolverDomain, error) {
	f.calls++
	d, ok := f.domains[domain]
	if !ok {
		return nil, &resolution.ResolutionError{
			Kind: resolution.UnregisteredDomain, Message: "domain " + domain + " is not registered"}
	}
	return d, nil
}

func (f *fakeResolver) Owner(ctx context.Context, domain string) (string, error) {
	d, err := f.lookup(domain)
	if err != nil {
		return "", err
	}
	return d.owner, nil
}

func (f *fakeResolver) Resolver(ctx context.Context, domain string) (string, error) {
	d, err := f.lookup(domain)
	if err != nil {
		return "", err
	}
	if d.resolver == "" {
		return "", &resolution.ResolutionError{
			Kind: resolution.UnspecifiedResolver, Message: "domain " + domain + " has no resolver set"}
	}
	return d.resolver, nil
}

func (f *fakeResolver) AllRecords(ctx context.Context, domain string) (map[string]string, error) {
	d, err := f.lookup(domain)
	if err != nil {
		return nil, err
	}
	return d.records, nil
}

func (f *fakeResolver) Record(ctx context.Context, domain string, key string) (string, error) {
	d, err := f.lookup(domain)
	if err != nil {
		return "", err
	}
	if d.records[key] == "" {
		return "", &resolution.ResolutionError{
			Kind: resolution.RecordNotFound, Message: "no record " + key}
	}
	return d.records[key], nil
}

func setupServer(domains map[string]*fakeResolverDomain) *fakeResolver {
	fake := &fakeResolver{domains: domains}
	resolver = fake
	config = ServerConfig{CORS: "*"}
	pageCache = golanglru2.NewLRU[PageCacheKey, PageCacheEntry](16, nil, time.Minute)
	return fake
}

func get(t *testing.T, path string) (*http.Response, []byte) {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	handle(w, req)
	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func TestHandleDomain(t *testing.T) {
	setupServer(map[string]*fakeResolverDomain{
		"brad.crypto": {
			owner:    "0x8aaD44321A86b170879d7A244c1e8d360c99DdA8",
			resolver: "0xb66DcE2DA6afAAa98F2013446dBCB0f4B0ab2842",
			records:  map[string]string{"crypto.ETH.address": "0x8aaD44321A86b170879d7A244c1e8d360c99DdA8"},
		},
	})

	res, data := get(t, "/domains/brad.crypto")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))

	var body domainResponse
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "brad.crypto", body.Domain)
	assert.Equal(t, "0x8aaD44321A86b170879d7A244c1e8d360c99DdA8", body.Owner)
	assert.Equal(t, "0xb66DcE2DA6afAAa98F2013446dBCB0f4B0ab2842", body.Resolver)
	assert.Equal(t, "0x8aaD44321A86b170879d7A244c1e8d360c99DdA8", body.Records["crypto.ETH.address"])
}

func TestHandleDomainWithoutResolver(t *testing.T) {
	setupServer(map[string]*fakeResolverDomain{
		"bare.crypto": {owner: "0x8aaD44321A86b170879d7A244c1e8d360c99DdA8"},
	})

	res, data := get(t, "/domains/bare.crypto")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var body domainResponse
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "", body.Resolver)
	assert.Empty(t, body.Records)
}

func TestHandleRecord(t *testing.T) {
	setupServer(map[string]*fakeResolverDomain{
		"brad.crypto": {
			owner:    "0x8aaD44321A86b170879d7A244c1e8d360c99DdA8",
			resolver: "0xb66DcE2DA6afAAa98F2013446dBCB0f4B0ab2842",
			records:  map[string]string{"crypto.ETH.address": "0x8aaD44321A86b170879d7A244c1e8d360c99DdA8"},
		},
	})

	res, data := get(t, "/domains/brad.crypto/records/crypto.ETH.address")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var body recordResponse
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "crypto.ETH.address", body.Key)
	assert.Equal(t, "0x8aaD44321A86b170879d7A244c1e8d360c99DdA8", body.Value)

	res, data = get(t, "/domains/brad.crypto/records/crypto.BTC.address")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	var errBody errorResponse
	require.NoError(t, json.Unmarshal(data, &errBody))
	assert.Equal(t, "RecordNotFound", errBody.Code)
}

func TestHandleUnregisteredDomain(t *testing.T) {
	setupServer(nil)

	res, data := get(t, "/domains/ghost.crypto")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	var body errorResponse
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "UnregisteredDomain", body.Code)
}

func TestHandleUnknownPath(t *testing.T) {
	setupServer(nil)

	res, _ := get(t, "/domains/brad.crypto/unknown")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = get(t, "/domains/")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHandleMethodNotAllowed(t *testing.T) {
	setupServer(nil)

	req := httptest.NewRequest("POST", "/domains/brad.crypto", nil)
	w := httptest.NewRecorder()
	handle(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Result().StatusCode)
}

func TestHandlePageCache(t *testing.T) {
	fake := setupServer(map[string]*fakeResolverDomain{
		"cached.crypto": {
			owner:    "0x8aaD44321A86b170879d7A244c1e8d360c99DdA8",
			resolver: "0xb66DcE2DA6afAAa98F2013446dBCB0f4B0ab2842",
			records:  map[string]string{},
		},
	})

	_, first := get(t, "/domains/cached.crypto")
	callsAfterFirst := fake.calls
	_, second := get(t, "/domains/cached.crypto")
	assert.Equal(t, string(first), string(second))
	// The second request is served from the page cache.
	assert.Equal(t, callsAfterFirst, fake.calls)
}

func TestStatusForError(t *testing.T) {
	for kind, status := range map[resolution.ErrorKind]int{
		resolution.UnregisteredDomain:        http.StatusNotFound,
		resolution.RecordNotFound:            http.StatusNotFound,
		resolution.UnspecifiedResolver:       http.StatusNotFound,
		resolution.UnsupportedDomain:         http.StatusBadRequest,
		resolution.UnsupportedMethod:         http.StatusBadRequest,
		resolution.ServiceProviderError:      http.StatusBadGateway,
		resolution.InvalidConfigurationField: http.StatusInternalServerError,
	} {
		err := &resolution.ResolutionError{Kind: kind, Message: "x"}
		assert.Equal(t, status, statusForError(err), string(kind))
	}
}

func TestLoadConfig(t *testing.T) {
	err := loadConfig("", &ServerConfig{})
	assert.Error(t, err)

	cfg := ServerConfig{}
	err = loadConfig("../../config.toml", &cfg)
	require.NoError(t, err)
	assert.Equal(t, "mainnet", cfg.Uns.Layer1.Network)
	assert.Equal(t, "polygon-mainnet", cfg.Uns.Layer2.Network)
	assert.Equal(t, "mainnet", cfg.Zns.Network)
}
