package resolution

import (
	"context"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	znsMainnetUrl      = "https://api.zilliqa.com"
	znsTestnetUrl      = "https://dev-api.zilliqa.com"
	znsMainnetRegistry = "zil1jcgu2wlx6xejqk9jw3aaankw6lsjzeunx2j0jz"
	znsTestnetRegistry = "0xB925adD1d5EaF13f40efD43451bF97A22aB3d727"

	zilBech32Prefix = "zil"
	zilChainKind    = "ZIL"
)

var znsChainIds = map[string]int{
	"mainnet": 1,
	"testnet": 333,
}

// ZnsConfig configures the single-chain naming family. Network is one of
// the presets ("mainnet", "testnet") or "custom"; a custom network must
// supply both a registry address and an endpoint or provider.
type ZnsConfig struct {
	Network     string
	ProviderUrl string
	Provider    SubstateProvider
	Registry    string
}

// Zns resolves the single-chain naming family through substate map
// queries: one registry lookup for ownership, one unfiltered resolver
// fetch for records, filtered client-side.
type Zns struct {
	network     string
	chainId     int
	providerUrl string
	provider    SubstateProvider
	// registryBase16 is the raw-hex form the substate endpoint expects;
	// registryAddress the chain-native encoded form reported to callers.
	registryBase16  string
	registryAddress string
}

// NewZns validates the config and builds the service, before any network
// call.
func NewZns(cfg ZnsConfig) (*Zns, error) {
	network := cfg.Network
	if network == "" {
		network = "mainnet"
	}
	registry := cfg.Registry
	providerUrl := cfg.ProviderUrl
	provider := cfg.Provider

	switch network {
	case "mainnet":
		if registry == "" {
			registry = znsMainnetRegistry
		}
		if providerUrl == "" && provider == nil {
			providerUrl = znsMainnetUrl
		}
	case "testnet":
		if registry == "" {
			registry = znsTestnetRegistry
		}
		if providerUrl == "" && provider == nil {
			providerUrl = znsTestnetUrl
		}
	default:
		if registry == "" || (providerUrl == "" && provider == nil) {
			return nil, newError(CustomNetworkConfigMissing,
				"network %s requires an explicit registry address and endpoint", network)
		}
	}

	base16, display, err := parseZilAddress(registry)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		provider, err = dialSubstateProvider(providerUrl)
		if err != nil {
			return nil, err
		}
	}
	chainId := znsChainIds[network]
	return &Zns{
		network:         network,
		chainId:         chainId,
		providerUrl:     providerUrl,
		provider:        provider,
		registryBase16:  base16,
		registryAddress: display,
	}, nil
}

// parseZilAddress accepts a raw-hex-40 address (with or without the 0x
// prefix) or the chain-native bech32 form, returning both representations.
func parseZilAddress(addr string) (base16 string, display string, err error) {
	switch {
	case rawHex40Pattern.MatchString(addr):
		base16 = strings.ToLower(strings.TrimPrefix(addr, "0x"))
		display, err = toBech32Address(base16)
		return
	case bech32ZilPattern.MatchString(strings.ToLower(addr)):
		base16, err = fromBech32Address(addr)
		return base16, strings.ToLower(addr), err
	default:
		return "", "", newError(InvalidConfigurationField, "malformed registry address: %s", addr)
	}
}

// toBech32Address renders a raw-hex address in the chain-native form.
func toBech32Address(base16 string) (string, error) {
	raw := common.FromHex("0x" + base16)
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", wrapError(InvalidConfigurationField, err, "cannot encode address %s", base16)
	}
	encoded, err := bech32.Encode(zilBech32Prefix, conv)
	if err != nil {
		return "", wrapError(InvalidConfigurationField, err, "cannot encode address %s", base16)
	}
	return encoded, nil
}

func fromBech32Address(addr string) (string, error) {
	hrp, data, err := bech32.Decode(strings.ToLower(addr))
	if err != nil || hrp != zilBech32Prefix {
		return "", newError(InvalidConfigurationField, "malformed bech32 address: %s", addr)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", wrapError(InvalidConfigurationField, err, "malformed bech32 address: %s", addr)
	}
	return common.Bytes2Hex(raw), nil
}

func (z *Zns) Kind() ServiceKind {
	return ServiceZNS
}

func (z *Zns) IsSupportedDomain(domain string) bool {
	normalized := normalizeDomain(domain)
	return validDomainName(normalized) && domainSuffix(normalized) == "zil"
}

func (z *Zns) Namehash(domain string) (string, error) {
	normalized := normalizeDomain(domain)
	if !validDomainName(normalized) {
		return "", newError(UnsupportedDomain, "invalid domain name: %s", domain)
	}
	return znsNamehash(normalized).Hex(), nil
}

func (z *Zns) ChildHash(parentHash string, label string) (string, error) {
	parent, err := parseNamehash(parentHash)
	if err != nil {
		return "", err
	}
	return znsChildHash(parent, normalizeDomain(label)).Hex(), nil
}

// substateRecord is one entry of a contract's records map as reported by
// the substate endpoint.
type substateRecord struct {
	Arguments   []string `json:"arguments"`
	Constructor string   `json:"constructor"`
}

// registryState performs the single registry map lookup keyed by namehash,
// yielding the owner and resolver addresses.
func (z *Zns) registryState(ctx context.Context, domain string) (owner string, resolver string, err error) {
	normalized := normalizeDomain(domain)
	if !validDomainName(normalized) {
		return "", "", newError(UnsupportedDomain, "invalid domain name: %s", domain)
	}
	node := strings.ToLower(znsNamehash(normalized).Hex())
	var out struct {
		Records map[string]substateRecord `json:"records"`
	}
	err = z.provider.Request(ctx, &out, "GetSmartContractSubState", z.registryBase16, "records", []string{node})
	if err != nil {
		return "", "", wrapError(ServiceProviderError, err, "registry substate query failed for %s", domain)
	}
	entry, ok := out.Records[node]
	if !ok || len(entry.Arguments) < 2 {
		return "", "", newError(UnregisteredDomain, "domain %s is not registered", domain)
	}
	owner = entry.Arguments[0]
	resolver = entry.Arguments[1]
	if owner == "" || strings.Trim(strings.TrimPrefix(owner, "0x"), "0") == "" {
		return "", "", newError(UnregisteredDomain, "domain %s is not registered", domain)
	}
	log.Debugf("zns state for %s: owner=%s resolver=%s", domain, owner, resolver)
	return owner, resolver, nil
}

// resolverRecords fetches the resolver contract's whole records field. The
// endpoint cannot filter server-side, so callers filter the returned map.
func (z *Zns) resolverRecords(ctx context.Context, resolver string) (map[string]string, error) {
	base16 := strings.ToLower(strings.TrimPrefix(resolver, "0x"))
	var out struct {
		Records map[string]string `json:"records"`
	}
	err := z.provider.Request(ctx, &out, "GetSmartContractSubState", base16, "records", []string{})
	if err != nil {
		return nil, wrapError(ServiceProviderError, err, "resolver substate query failed")
	}
	if out.Records == nil {
		return map[string]string{}, nil
	}
	return out.Records, nil
}

func (z *Zns) Owner(ctx context.Context, domain string) (string, error) {
	owner, _, err := z.registryState(ctx, domain)
	if err != nil {
		return "", err
	}
	// Owners are reported in the chain-native encoded form.
	if rawHex40Pattern.MatchString(owner) {
		return toBech32Address(strings.ToLower(strings.TrimPrefix(owner, "0x")))
	}
	return owner, nil
}

func (z *Zns) Resolver(ctx context.Context, domain string) (string, error) {
	_, resolver, err := z.registryState(ctx, domain)
	if err != nil {
		return "", err
	}
	if resolver == "" || strings.Trim(strings.TrimPrefix(resolver, "0x"), "0") == "" {
		return "", newError(UnspecifiedResolver, "domain %s has no resolver set", domain)
	}
	return resolver, nil
}

func (z *Zns) Record(ctx context.Context, domain string, key string) (string, error) {
	records, err := z.Records(ctx, domain, []string{key})
	if err != nil {
		return "", err
	}
	if records[key] == "" {
		return "", newError(RecordNotFound, "no record %s for domain %s", key, domain)
	}
	return records[key], nil
}

func (z *Zns) Records(ctx context.Context, domain string, keys []string) (map[string]string, error) {
	resolver, err := z.Resolver(ctx, domain)
	if err != nil {
		return nil, err
	}
	all, err := z.resolverRecords(ctx, resolver)
	if err != nil {
		return nil, err
	}
	return constructRecordsFromMap(keys, all), nil
}

func (z *Zns) AllRecords(ctx context.Context, domain string) (map[string]string, error) {
	resolver, err := z.Resolver(ctx, domain)
	if err != nil {
		return nil, err
	}
	return z.resolverRecords(ctx, resolver)
}

func (z *Zns) Twitter(ctx context.Context, domain string) (string, error) {
	return "", newError(UnsupportedMethod, "twitter verification is not supported for %s domains", domainSuffix(domain))
}

func (z *Zns) IsRegistered(ctx context.Context, domain string) (bool, error) {
	_, _, err := z.registryState(ctx, domain)
	if err != nil {
		if IsKind(err, UnregisteredDomain) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (z *Zns) IsAvailable(ctx context.Context, domain string) (bool, error) {
	registered, err := z.IsRegistered(ctx, domain)
	if err != nil {
		return false, err
	}
	return !registered, nil
}

func (z *Zns) RegistryAddress(ctx context.Context, domain string) (string, error) {
	normalized := normalizeDomain(domain)
	if !validDomainName(normalized) {
		return "", newError(UnsupportedDomain, "invalid domain name: %s", domain)
	}
	return z.registryAddress, nil
}

func (z *Zns) Locations(ctx context.Context, domains []string) (map[string]*Location, error) {
	locations := make([]*Location, len(domains))
	g, gctx := errgroup.WithContext(ctx)
	for i, domain := range domains {
		i, domain := i, domain
		g.Go(func() error {
			owner, resolver, err := z.registryState(gctx, domain)
			if err != nil {
				if IsKind(err, UnregisteredDomain) {
					return nil
				}
				return err
			}
			if rawHex40Pattern.MatchString(owner) {
				owner, err = toBech32Address(strings.ToLower(strings.TrimPrefix(owner, "0x")))
				if err != nil {
					return err
				}
			}
			locations[i] = &Location{
				RegistryAddress:       z.registryAddress,
				ResolverAddress:       resolver,
				NetworkId:             z.chainId,
				Blockchain:            zilChainKind,
				OwnerAddress:          owner,
				BlockchainProviderUrl: z.providerUrl,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]*Location, len(domains))
	for i, domain := range domains {
		out[domain] = locations[i]
	}
	return out, nil
}

func (z *Zns) TokenURI(ctx context.Context, domain string) (string, error) {
	return "", newError(UnsupportedMethod, "token uris are not supported for %s domains", domainSuffix(domain))
}
