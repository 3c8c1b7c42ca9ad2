package resolution

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Registry event signatures used by the full-record enumeration scan.
var (
	eventNewKeySig       = crypto.Keccak256Hash([]byte("NewKey(uint256,string,string)"))
	eventResetRecordsSig = crypto.Keccak256Hash([]byte("ResetRecords(uint256)"))
)

// UnsLayerConfig configures one chain of the layered naming family.
// Either ProviderUrl or Backend must be set; a caller-supplied backend is
// used as-is, otherwise the URL is dialed at construction.
type UnsLayerConfig struct {
	Network     string
	ProviderUrl string
	Backend     ContractBackend
	ProxyReader string
	Registry    string
}

// UnsConfig wires the two layers together. Layer1 is the base chain,
// Layer2 the scaling chain.
type UnsConfig struct {
	Layer1 UnsLayerConfig
	Layer2 UnsLayerConfig
	// Verifier checks twitter validation signatures. Defaults to the
	// EIP-191 recovery verifier bound to the known validator address.
	Verifier TwitterVerifier
}

// unsLayer is one per-chain reader: proxy-reader calls for data, registry
// logs for key enumeration.
type unsLayer struct {
	network     string
	chainId     int
	providerUrl string
	backend     ContractBackend
	proxyReader common.Address
	registry    common.Address
	startBlock  uint64
}

// layerData is the result of one batched get(tokenId, keys) on a layer.
type layerData struct {
	owner    common.Address
	resolver common.Address
	values   []string
}

// Uns resolves the layered naming family across the base and scaling
// chains, applying scaling-layer precedence.
type Uns struct {
	layer1   *unsLayer
	layer2   *unsLayer
	verifier TwitterVerifier
}

func newUnsLayer(cfg UnsLayerConfig) (*unsLayer, error) {
	chainId, ok := networkToChainId[cfg.Network]
	if !ok {
		return nil, newError(UnsupportedNetwork, "unknown network: %s", cfg.Network)
	}
	if !hexAddressPattern.MatchString(cfg.ProxyReader) {
		return nil, newError(InvalidConfigurationField, "malformed proxy reader address: %s", cfg.ProxyReader)
	}
	if !hexAddressPattern.MatchString(cfg.Registry) {
		return nil, newError(InvalidConfigurationField, "malformed registry address: %s", cfg.Registry)
	}
	backend := cfg.Backend
	if backend == nil {
		if cfg.ProviderUrl == "" {
			return nil, newError(IncorrectBlockchainProvider, "no provider for network %s", cfg.Network)
		}
		var err error
		backend, err = dialBackend(cfg.ProviderUrl)
		if err != nil {
			return nil, err
		}
	}
	return &unsLayer{
		network:     cfg.Network,
		chainId:     chainId,
		providerUrl: cfg.ProviderUrl,
		backend:     backend,
		proxyReader: common.HexToAddress(cfg.ProxyReader),
		registry:    common.HexToAddress(cfg.Registry),
		startBlock:  eventStartBlock[cfg.Network],
	}, nil
}

// NewUns validates both layer configs and builds the service. All
// validation happens here, before any network call.
func NewUns(cfg UnsConfig) (*Uns, error) {
	layer1, err := newUnsLayer(cfg.Layer1)
	if err != nil {
		return nil, err
	}
	layer2, err := newUnsLayer(cfg.Layer2)
	if err != nil {
		return nil, err
	}
	verifier := cfg.Verifier
	if verifier == nil {
		verifier = defaultTwitterVerifier()
	}
	return &Uns{layer1: layer1, layer2: layer2, verifier: verifier}, nil
}

func (u *Uns) Kind() ServiceKind {
	return ServiceUNS
}

func (u *Uns) IsSupportedDomain(domain string) bool {
	return validDomainName(normalizeDomain(domain))
}

func (u *Uns) Namehash(domain string) (string, error) {
	normalized := normalizeDomain(domain)
	if !validDomainName(normalized) {
		return "", newError(UnsupportedDomain, "invalid domain name: %s", domain)
	}
	return unsNamehash(normalized).Hex(), nil
}

func (u *Uns) ChildHash(parentHash string, label string) (string, error) {
	parent, err := parseNamehash(parentHash)
	if err != nil {
		return "", err
	}
	return unsChildHash(parent, normalizeDomain(label)).Hex(), nil
}

// get performs the batched read on one layer.
func (l *unsLayer) get(ctx context.Context, tokenId common.Hash, keys []string) (*layerData, error) {
	if keys == nil {
		keys = []string{}
	}
	res, err := callContract(ctx, l.backend, l.proxyReader, "getData",
		[]abi.Type{typeStringSlice, typeUint256},
		[]abi.Type{typeAddress, typeAddress, typeStringSlice},
		keys, tokenBig(tokenId))
	if err != nil {
		return nil, err
	}
	return &layerData{
		resolver: res[0].(common.Address),
		owner:    res[1].(common.Address),
		values:   res[2].([]string),
	}, nil
}

// getByHash reads current values for keys identified only by their hash,
// returning the plain keys alongside.
func (l *unsLayer) getByHash(ctx context.Context, tokenId common.Hash, keyHashes []*big.Int) ([]string, []string, error) {
	res, err := callContract(ctx, l.backend, l.proxyReader, "getDataByHash",
		[]abi.Type{typeUint256Slice, typeUint256},
		[]abi.Type{typeAddress, typeAddress, typeStringSlice, typeStringSlice},
		keyHashes, tokenBig(tokenId))
	if err != nil {
		return nil, nil, err
	}
	return res[2].([]string), res[3].([]string), nil
}

func (l *unsLayer) registryOf(ctx context.Context, tokenId common.Hash) (common.Address, error) {
	res, err := callContract(ctx, l.backend, l.proxyReader, "registryOf",
		[]abi.Type{typeUint256}, []abi.Type{typeAddress}, tokenBig(tokenId))
	if err != nil {
		return common.Address{}, err
	}
	return res[0].(common.Address), nil
}

func (l *unsLayer) tokenURI(ctx context.Context, tokenId common.Hash) (string, error) {
	res, err := callContract(ctx, l.backend, l.proxyReader, "tokenURI",
		[]abi.Type{typeUint256}, []abi.Type{typeString}, tokenBig(tokenId))
	if err != nil {
		return "", err
	}
	return res[0].(string), nil
}

// fetchLogs retrieves registry logs for one event and token, from the
// given block onwards.
func (l *unsLayer) fetchLogs(ctx context.Context, eventSig common.Hash, tokenId common.Hash, fromBlock uint64) ([]ethereumLog, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{l.registry},
		Topics:    [][]common.Hash{{eventSig}, {tokenId}},
	}
	logs, err := l.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, wrapError(ServiceProviderError, err, "cannot fetch %s logs", eventSig.Hex())
	}
	out := make([]ethereumLog, 0, len(logs))
	for _, lg := range logs {
		out = append(out, ethereumLog{topics: lg.Topics, blockNumber: lg.BlockNumber})
	}
	return out, nil
}

type ethereumLog struct {
	topics      []common.Hash
	blockNumber uint64
}

// chooseLayer applies the cross-layer precedence rule: a domain owned on
// the scaling layer wins unconditionally; otherwise the base layer, if
// owned there; otherwise the domain is unregistered.
func chooseLayer(l2 *layerData, l1 *layerData) (*layerData, bool) {
	if !zeroAddress(l2.owner) {
		return l2, true
	}
	if !zeroAddress(l1.owner) {
		return l1, false
	}
	return nil, false
}

// getData runs the batched read on both layers concurrently and resolves
// precedence once both have settled. Fail-fast: either layer's error
// propagates immediately.
func (u *Uns) getData(ctx context.Context, domain string, keys []string) (*layerData, *unsLayer, error) {
	tokenId, err := u.tokenId(domain)
	if err != nil {
		return nil, nil, err
	}
	var data1, data2 *layerData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data1, err = u.layer1.get(gctx, tokenId, keys)
		return
	})
	g.Go(func() (err error) {
		data2, err = u.layer2.get(gctx, tokenId, keys)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	data, onLayer2 := chooseLayer(data2, data1)
	if data == nil {
		return nil, nil, newError(UnregisteredDomain, "domain %s is not registered", domain)
	}
	layer := u.layer1
	if onLayer2 {
		layer = u.layer2
	}
	log.Debugf("domain %s resolves on %s", domain, layer.network)
	return data, layer, nil
}

func (u *Uns) tokenId(domain string) (common.Hash, error) {
	normalized := normalizeDomain(domain)
	if !validDomainName(normalized) {
		return common.Hash{}, newError(UnsupportedDomain, "invalid domain name: %s", domain)
	}
	return unsNamehash(normalized), nil
}

func (u *Uns) Owner(ctx context.Context, domain string) (string, error) {
	data, _, err := u.getData(ctx, domain, nil)
	if err != nil {
		return "", err
	}
	return data.owner.Hex(), nil
}

func (u *Uns) Resolver(ctx context.Context, domain string) (string, error) {
	data, _, err := u.getData(ctx, domain, nil)
	if err != nil {
		return "", err
	}
	if zeroAddress(data.resolver) {
		return "", newError(UnspecifiedResolver, "domain %s has no resolver set", domain)
	}
	return data.resolver.Hex(), nil
}

func (u *Uns) Record(ctx context.Context, domain string, key string) (string, error) {
	records, err := u.Records(ctx, domain, []string{key})
	if err != nil {
		return "", err
	}
	if records[key] == "" {
		return "", newError(RecordNotFound, "no record %s for domain %s", key, domain)
	}
	return records[key], nil
}

func (u *Uns) Records(ctx context.Context, domain string, keys []string) (map[string]string, error) {
	data, _, err := u.getData(ctx, domain, keys)
	if err != nil {
		return nil, err
	}
	if zeroAddress(data.resolver) {
		return nil, newError(UnspecifiedResolver, "domain %s has no resolver set", domain)
	}
	return constructRecords(keys, data.values), nil
}

// AllRecords enumerates every record currently set on a domain. Legacy
// resolvers lack per-key change logs, so reads against them return the
// standard key set; otherwise the registry's NewKey logs since the last
// ResetRecords drive the enumeration, with the standard key set as the
// fallback when the scan comes back empty.
func (u *Uns) AllRecords(ctx context.Context, domain string) (map[string]string, error) {
	data, layer, err := u.getData(ctx, domain, standardKeys)
	if err != nil {
		return nil, err
	}
	if zeroAddress(data.resolver) {
		return nil, newError(UnspecifiedResolver, "domain %s has no resolver set", domain)
	}
	if containsAddress(legacyResolvers[layer.network], data.resolver.Hex()) {
		return nonEmptyRecords(constructRecords(standardKeys, data.values)), nil
	}

	tokenId, err := u.tokenId(domain)
	if err != nil {
		return nil, err
	}
	fromBlock := layer.startBlock
	resetLogs, err := layer.fetchLogs(ctx, eventResetRecordsSig, tokenId, fromBlock)
	if err != nil {
		return nil, err
	}
	if len(resetLogs) > 0 {
		fromBlock = resetLogs[len(resetLogs)-1].blockNumber
	}
	newKeyLogs, err := layer.fetchLogs(ctx, eventNewKeySig, tokenId, fromBlock)
	if err != nil {
		return nil, err
	}

	seen := make(map[common.Hash]bool)
	var keyHashes []*big.Int
	for _, lg := range newKeyLogs {
		if len(lg.topics) < 3 || seen[lg.topics[2]] {
			continue
		}
		seen[lg.topics[2]] = true
		keyHashes = append(keyHashes, new(big.Int).SetBytes(lg.topics[2].Bytes()))
	}
	if len(keyHashes) == 0 {
		return nonEmptyRecords(constructRecords(standardKeys, data.values)), nil
	}
	keys, values, err := layer.getByHash(ctx, tokenId, keyHashes)
	if err != nil {
		return nil, err
	}
	return nonEmptyRecords(constructRecords(keys, values)), nil
}

// nonEmptyRecords drops unset keys from a full enumeration result.
func nonEmptyRecords(records map[string]string) map[string]string {
	out := make(map[string]string, len(records))
	for key, value := range records {
		if value != "" {
			out[key] = value
		}
	}
	return out
}

func (u *Uns) Twitter(ctx context.Context, domain string) (string, error) {
	keys := []string{recordTwitterValidation, recordTwitterHandle}
	data, _, err := u.getData(ctx, domain, keys)
	if err != nil {
		return "", err
	}
	if zeroAddress(data.resolver) {
		return "", newError(UnspecifiedResolver, "domain %s has no resolver set", domain)
	}
	records := constructRecords(keys, data.values)
	signature := records[recordTwitterValidation]
	handle := records[recordTwitterHandle]
	if signature == "" || handle == "" {
		return "", newError(RecordNotFound, "no twitter verification records for domain %s", domain)
	}
	tokenId, err := u.tokenId(domain)
	if err != nil {
		return "", err
	}
	ok, err := u.verifier.Verify(tokenId.Hex(), data.owner.Hex(), handle, signature)
	if err != nil {
		return "", wrapError(InvalidTwitterVerification, err, "cannot verify twitter handle for %s", domain)
	}
	if !ok {
		return "", newError(InvalidTwitterVerification, "twitter signature mismatch for domain %s", domain)
	}
	return handle, nil
}

func (u *Uns) IsRegistered(ctx context.Context, domain string) (bool, error) {
	tokenId, err := u.tokenId(domain)
	if err != nil {
		return false, err
	}
	var data1, data2 *layerData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data1, err = u.layer1.get(gctx, tokenId, nil)
		return
	})
	g.Go(func() (err error) {
		data2, err = u.layer2.get(gctx, tokenId, nil)
		return
	})
	if err := g.Wait(); err != nil {
		return false, err
	}
	// Only existence matters here, precedence does not.
	return !zeroAddress(data1.owner) || !zeroAddress(data2.owner), nil
}

func (u *Uns) IsAvailable(ctx context.Context, domain string) (bool, error) {
	registered, err := u.IsRegistered(ctx, domain)
	if err != nil {
		return false, err
	}
	return !registered, nil
}

func (u *Uns) RegistryAddress(ctx context.Context, domain string) (string, error) {
	tokenId, err := u.tokenId(domain)
	if err != nil {
		return "", err
	}
	_, layer, err := u.getData(ctx, domain, nil)
	if err != nil {
		return "", err
	}
	registry, err := layer.registryOf(ctx, tokenId)
	if err != nil {
		return "", err
	}
	if zeroAddress(registry) {
		return "", newError(UnregisteredDomain, "domain %s is not registered", domain)
	}
	return registry.Hex(), nil
}

// Locations resolves the winning layer for each domain and emits its
// Location, or nil for domains unregistered on both layers. Domains are
// queried concurrently; there is no concurrency cap for callers to rely on.
func (u *Uns) Locations(ctx context.Context, domains []string) (map[string]*Location, error) {
	locations := make([]*Location, len(domains))
	g, gctx := errgroup.WithContext(ctx)
	for i, domain := range domains {
		i, domain := i, domain
		g.Go(func() error {
			location, err := u.location(gctx, domain)
			if err != nil {
				return err
			}
			locations[i] = location
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

func (u *Uns) location(ctx context.Context, domain string) (*Location, error) {
	data, layer, err := u.getData(ctx, domain, nil)
	if err != nil {
		if IsKind(err, UnregisteredDomain) {
			return nil, nil
		}
		return nil, err
	}
	tokenId, err := u.tokenId(domain)
	if err != nil {
		return nil, err
	}
	registry, err := layer.registryOf(ctx, tokenId)
	if err != nil {
		return nil, err
	}
	return &Location{
		RegistryAddress:       registry.Hex(),
		ResolverAddress:       data.resolver.Hex(),
		NetworkId:             layer.chainId,
		Blockchain:            chainKind[layer.network],
		OwnerAddress:          data.owner.Hex(),
		BlockchainProviderUrl: layer.providerUrl,
	}, nil
}

// TokenURI forwards to whichever layer currently resolves the token.
func (u *Uns) TokenURI(ctx context.Context, domain string) (string, error) {
	tokenId, err := u.tokenId(domain)
	if err != nil {
		return "", err
	}
	_, layer, err := u.getData(ctx, domain, nil)
	if err != nil {
		return "", err
	}
	return layer.tokenURI(ctx, tokenId)
}

// tokenURIById serves unhash lookups, where only the token id is known.
// The scaling layer is tried first, matching read precedence.
func (u *Uns) tokenURIById(ctx context.Context, tokenId common.Hash) (string, error) {
	uri, err := u.layer2.tokenURI(ctx, tokenId)
	if err == nil && strings.TrimSpace(uri) != "" {
		return uri, nil
	}
	uri, err = u.layer1.tokenURI(ctx, tokenId)
	if err != nil {
		return "", wrapError(UnregisteredDomain, err, "no token uri for %s", tokenId.Hex())
	}
	return uri, nil
}
