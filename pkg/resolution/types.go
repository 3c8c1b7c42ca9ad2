package resolution

import (
	"context"
	"regexp"
)

// ServiceKind identifies a naming family.
type ServiceKind string

const (
	ServiceUNS ServiceKind = "UNS"
	ServiceZNS ServiceKind = "ZNS"
)

// NamingService is the capability set every naming family exposes.
// Families that cannot express an operation return UnsupportedMethod.
type NamingService interface {
	Kind() ServiceKind
	IsSupportedDomain(domain string) bool
	Namehash(domain string) (string, error)
	ChildHash(parentHash string, label string) (string, error)
	Owner(ctx context.Context, domain string) (string, error)
	Resolver(ctx context.Context, domain string) (string, error)
	Record(ctx context.Context, domain string, key string) (string, error)
	Records(ctx context.Context, domain string, keys []string) (map[string]string, error)
	AllRecords(ctx context.Context, domain string) (map[string]string, error)
	Twitter(ctx context.Context, domain string) (string, error)
	IsRegistered(ctx context.Context, domain string) (bool, error)
	IsAvailable(ctx context.Context, domain string) (bool, error)
	RegistryAddress(ctx context.Context, domain string) (string, error)
	Locations(ctx context.Context, domains []string) (map[string]*Location, error)
	TokenURI(ctx context.Context, domain string) (string, error)
}

// Location describes where a registered domain lives. A nil Location means
// the domain is unregistered on every layer queried.
type Location struct {
	RegistryAddress       string `json:"registryAddress"`
	ResolverAddress       string `json:"resolverAddress"`
	NetworkId             int    `json:"networkId"`
	Blockchain            string `json:"blockchain"`
	OwnerAddress          string `json:"ownerAddress"`
	BlockchainProviderUrl string `json:"blockchainProviderUrl"`
}

// NamehashFormat selects the presentation of a namehash. It never affects
// the underlying hash.
type NamehashFormat string

const (
	NamehashHex NamehashFormat = "hex"
	NamehashDec NamehashFormat = "dec"
)

type NamehashOptions struct {
	Format NamehashFormat
	Prefix bool
}

var DefaultNamehashOptions = NamehashOptions{Format: NamehashHex, Prefix: true}

// DNSRecordType is a DNS record type name as stored on-chain (dns.<TYPE>).
type DNSRecordType string

const (
	DNSA     DNSRecordType = "A"
	DNSAAAA  DNSRecordType = "AAAA"
	DNSCNAME DNSRecordType = "CNAME"
	DNSMX    DNSRecordType = "MX"
	DNSTXT   DNSRecordType = "TXT"
)

// DNSRecord is one reconstructed DNS entry.
type DNSRecord struct {
	Type DNSRecordType `json:"type"`
	TTL  int           `json:"TTL"`
	Data string        `json:"data"`
}

// TokenMetadata is the off-chain JSON document reported by a token URI.
type TokenMetadata struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Image       string                   `json:"image"`
	ExternalUrl string                   `json:"external_url"`
	Attributes  []TokenMetadataAttribute `json:"attributes"`
}

type TokenMetadataAttribute struct {
	DisplayType string      `json:"display_type,omitempty"`
	TraitType   string      `json:"trait_type,omitempty"`
	Value       interface{} `json:"value"`
}

var (
	hexAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	rawHex40Pattern   = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{40}$`)
	bech32ZilPattern  = regexp.MustCompile(`^zil1[qpzry9x8gf2tvdw0s3jn54khce6mua7l]{38}$`)
)

// networkToChainId maps the network names accepted in layer configs to
// chain ids. Loaded once, never mutated.
var networkToChainId = map[string]int{
	"mainnet":         1,
	"goerli":          5,
	"sepolia":         11155111,
	"polygon-mainnet": 137,
	"polygon-mumbai":  80001,
	"matic":           137,
	"mumbai":          80001,
}

// chainKind names the chain family a network belongs to, reported in
// Location results.
var chainKind = map[string]string{
	"mainnet":         "ETH",
	"goerli":          "ETH",
	"sepolia":         "ETH",
	"polygon-mainnet": "MATIC",
	"polygon-mumbai":  "MATIC",
	"matic":           "MATIC",
	"mumbai":          "MATIC",
}

// legacyResolvers lists resolver contracts per network that predate per-key
// change logs. Reads against them fall back to the standard key set.
var legacyResolvers = map[string][]string{
	"mainnet": {
		"0xa1cac442be6673c49f8e74ffc7c4fd746f3cbd0d",
		"0x878bc2f3f717766ab69c0a5f9a6144931e61aed3",
	},
}

// upToDateResolvers lists the current resolver deployments per network.
// A resolver in neither list is treated as non-legacy; the event scan
// degrades to the standard key set on its own when no NewKey logs exist.
var upToDateResolvers = map[string][]string{
	"mainnet": {
		"0xb66dce2da6afaaa98f2013446dbcb0f4b0ab2842",
	},
}

// eventStartBlock is the historical block from which key-change logs are
// scanned when no records reset is found for a token.
var eventStartBlock = map[string]uint64{
	"mainnet":         9080000,
	"goerli":          7627790,
	"sepolia":         3300000,
	"polygon-mainnet": 19345077,
	"polygon-mumbai":  26961746,
}
