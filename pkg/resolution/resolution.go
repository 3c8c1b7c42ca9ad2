// Package resolution resolves human-readable blockchain domain names into
// their stored records by querying on-chain naming registries. Two naming
// families are supported: a layered family spanning a base chain and a
// scaling chain, and a single-chain family queried through substate maps.
package resolution

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Config wires the facade: one config per naming family plus the off-chain
// metadata fetcher.
type Config struct {
	Uns UnsConfig
	Zns ZnsConfig
	// Fetcher retrieves token metadata documents. Defaults to a plain
	// HTTP client with a 30s timeout.
	Fetcher MetadataFetcher
}

// Resolution dispatches each domain to the owning naming service by suffix
// and exposes the convenience operations built from primitive record reads.
type Resolution struct {
	uns      *Uns
	zns      *Zns
	services map[ServiceKind]NamingService
	suffixes map[string]ServiceKind
	fetcher  MetadataFetcher
}

// New validates the whole configuration and builds the facade. The suffix
// dispatch table is built once here and never mutated.
func New(cfg Config) (*Resolution, error) {
	uns, err := NewUns(cfg.Uns)
	if err != nil {
		return nil, err
	}
	zns, err := NewZns(cfg.Zns)
	if err != nil {
		return nil, err
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = defaultMetadataFetcher()
	}
	return &Resolution{
		uns: uns,
		zns: zns,
		services: map[ServiceKind]NamingService{
			ServiceUNS: uns,
			ServiceZNS: zns,
		},
		suffixes: map[string]ServiceKind{
			"zil": ServiceZNS,
		},
		fetcher: fetcher,
	}, nil
}

// serviceOf normalizes a domain and picks the owning naming service.
// Unmatched suffixes default to the layered family.
func (r *Resolution) serviceOf(domain string) (NamingService, string, error) {
	normalized := normalizeDomain(domain)
	if !validDomainName(normalized) {
		return nil, "", newError(UnsupportedDomain, "invalid domain name: %s", domain)
	}
	kind, ok := r.suffixes[domainSuffix(normalized)]
	if !ok {
		kind = ServiceUNS
	}
	return r.services[kind], normalized, nil
}

// IsSupportedDomain reports whether the domain passes syntax validation.
func (r *Resolution) IsSupportedDomain(domain string) bool {
	_, _, err := r.serviceOf(domain)
	return err == nil
}

// Namehash derives the domain's token id under the owning family's
// algorithm, then applies presentation formatting only.
func (r *Resolution) Namehash(domain string, options NamehashOptions) (string, error) {
	service, normalized, err := r.serviceOf(domain)
	if err != nil {
		return "", err
	}
	hex, err := service.Namehash(normalized)
	if err != nil {
		return "", err
	}
	hash, err := parseNamehash(hex)
	if err != nil {
		return "", err
	}
	return formatNamehash(hash, options), nil
}

// ChildHash performs one fold step of the named family's hash. The service
// kind is explicit because the step differs per family.
func (r *Resolution) ChildHash(parentHash string, label string, kind ServiceKind) (string, error) {
	service, ok := r.services[kind]
	if !ok {
		return "", newError(UnsupportedService, "unknown naming service: %s", kind)
	}
	return service.ChildHash(parentHash, label)
}

func (r *Resolution) Owner(ctx context.Context, domain string) (string, error) {
	service, normalized, err := r.serviceOf(domain)
	if err != nil {
		return "", err
	}
	return service.Owner(ctx, normalized)
}

func (r *Resolution) Resolver(ctx context.Context, domain string) (string, error) {
	service, normalized, err := r.serviceOf(domain)
	if err != nil {
		return "", err
	}
	return service.Resolver(ctx, normalized)
}

func (r *Resolution) Record(ctx context.Context, domain string, key string) (string, error) {
	service, normalized, err := r.serviceOf(domain)
	if err != nil {
		return "", err
	}
	return service.Record(ctx, normalized, key)
}

func (r *Resolution) Records(ctx context.Context, domain string, keys []string) (map[string]string, error) {
	service, normalized, err := r.serviceOf(domain)
	if err != nil {
		return nil, err
	}
	return service.Records(ctx, normalized, keys)
}

func (r *Resolution) AllRecords(ctx context.Context, domain string) (map[string]string, error) {
	service, normalized, err := r.serviceOf(domain)
	if err != nil {
		return nil, err
	}
	return service.AllRecords(ctx, normalized)
}

func (r *Resolution) Twitter(ctx context.Context, domain string) (string, error) {
	service, normalized, err := r.serviceOf(domain)
	if err != nil {
		return "", err
	}
	return service.Twitter(ctx, normalized)
}

func (r *Resolution) IsRegistered(ctx context.Context, domain string) (bool, error) {
	service, normalized, err := r.serviceOf(domain)
	if err != nil {
		return false, err
	}
	return service.IsRegistered(ctx, normalized)
}

func (r *Resolution) IsAvailable(ctx context.Context, domain string) (bool, error) {
	service, normalized, err := r.serviceOf(domain)
	if err != nil {
		return false, err
	}
	return service.IsAvailable(ctx, normalized)
}

func (r *Resolution) RegistryAddress(ctx context.Context, domain string) (string, error) {
	service, normalized, err := r.serviceOf(domain)
	if err != nil {
		return "", err
	}
	return service.RegistryAddress(ctx, normalized)
}

// Locations groups the domains by owning service and merges the per-service
// results. A nil entry means the domain is unregistered everywhere.
func (r *Resolution) Locations(ctx context.Context, domains []string) (map[string]*Location, error) {
	byService := make(map[ServiceKind][]string)
	for _, domain := range domains {
		service, normalized, err := r.serviceOf(domain)
		if err != nil {
			return nil, err
		}
		byService[service.Kind()] = append(byService[service.Kind()], normalized)
	}
	out := make(map[string]*Location, len(domains))
	for kind, group := range byService {
		locations, err := r.services[kind].Locations(ctx, group)
		if err != nil {
			return nil, err
		}
		for domain, location := range locations {
			out[domain] = location
		}
	}
	return out, nil
}

func (r *Resolution) TokenURI(ctx context.Context, domain string) (string, error) {
	service, normalized, err := r.serviceOf(domain)
	if err != nil {
		return "", err
	}
	return service.TokenURI(ctx, normalized)
}

// Addr returns the domain's payment address for a ticker.
func (r *Resolution) Addr(ctx context.Context, domain string, ticker string) (string, error) {
	return r.Record(ctx, domain, fmt.Sprintf("crypto.%s.address", strings.ToUpper(ticker)))
}

// MultiChainAddr returns the address of a multi-chain token on one
// specific chain, e.g. USDT on ERC20 vs TRON.
func (r *Resolution) MultiChainAddr(ctx context.Context, domain string, ticker string, chain string) (string, error) {
	key := fmt.Sprintf("crypto.%s.version.%s.address", strings.ToUpper(ticker), strings.ToUpper(chain))
	return r.Record(ctx, domain, key)
}

func (r *Resolution) Email(ctx context.Context, domain string) (string, error) {
	return r.Record(ctx, domain, recordEmail)
}

func (r *Resolution) ChatId(ctx context.Context, domain string) (string, error) {
	return r.Record(ctx, domain, recordChatId)
}

func (r *Resolution) ChatPk(ctx context.Context, domain string) (string, error) {
	return r.Record(ctx, domain, recordChatPk)
}

// IpfsHash prefers the current key over its deprecated spelling; both are
// fetched in one batched call.
func (r *Resolution) IpfsHash(ctx context.Context, domain string) (string, error) {
	return r.preferredRecord(ctx, domain, recordIpfsHash, recordIpfsHashLegacy)
}

// HTTPUrl prefers the current redirect key over its deprecated spelling.
func (r *Resolution) HTTPUrl(ctx context.Context, domain string) (string, error) {
	return r.preferredRecord(ctx, domain, recordHttpUrl, recordHttpUrlLegacy)
}

func (r *Resolution) preferredRecord(ctx context.Context, domain string, newKey string, deprecatedKey string) (string, error) {
	records, err := r.Records(ctx, domain, []string{newKey, deprecatedKey})
	if err != nil {
		return "", err
	}
	if records[newKey] != "" {
		return records[newKey], nil
	}
	if records[deprecatedKey] != "" {
		return records[deprecatedKey], nil
	}
	return "", newError(RecordNotFound, "no %s or %s record for domain %s", newKey, deprecatedKey, domain)
}

// DNS fetches the stored DNS records for the requested types in one
// batched call and reconstructs them.
func (r *Resolution) DNS(ctx context.Context, domain string, types []DNSRecordType) ([]DNSRecord, error) {
	records, err := r.Records(ctx, domain, dnsKeyList(types))
	if err != nil {
		return nil, err
	}
	return buildDNSRecords(types, records), nil
}

// TokenURIMetadata fetches and parses the off-chain document behind the
// domain's token URI.
func (r *Resolution) TokenURIMetadata(ctx context.Context, domain string) (*TokenMetadata, error) {
	uri, err := r.TokenURI(ctx, domain)
	if err != nil {
		return nil, err
	}
	return fetchTokenMetadata(ctx, r.fetcher, uri)
}

// Unhash recovers a domain name from its token id via the token metadata,
// refusing metadata whose name does not hash back to the id.
func (r *Resolution) Unhash(ctx context.Context, hash string) (string, error) {
	tokenId, err := parseNamehash(hash)
	if err != nil {
		return "", err
	}
	uri, err := r.uns.tokenURIById(ctx, tokenId)
	if err != nil {
		return "", err
	}
	metadata, err := fetchTokenMetadata(ctx, r.fetcher, uri)
	if err != nil {
		return "", err
	}
	if metadata.Name == "" {
		return "", newError(ServiceProviderError, "token metadata for %s carries no name", tokenId.Hex())
	}
	if unsNamehash(metadata.Name) != tokenId {
		log.Infof("metadata name %s does not hash to %s", metadata.Name, tokenId.Hex())
		return "", newError(ServiceProviderError, "token metadata name %s does not match token %s", metadata.Name, tokenId.Hex())
	}
	return metadata.Name, nil
}
