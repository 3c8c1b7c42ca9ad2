package resolution

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubstateProvider answers GetSmartContractSubState the way the chain
// endpoint does: registry lookups filtered by namehash, resolver fetches
// unfiltered.
type fakeSubstateProvider struct {
	registryBase16 string
	registry       map[string]substateRecord
	resolvers      map[string]map[string]string
}

func (p *fakeSubstateProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	if method != "GetSmartContractSubState" {
		return errors.New("unexpected method: " + method)
	}
	addr := params[0].(string)
	indices := params[2].([]string)

	var payload interface{}
	if addr == p.registryBase16 {
		records := map[string]substateRecord{}
		for _, node := range indices {
			if entry, ok := p.registry[node]; ok {
				records[node] = entry
			}
		}
		if len(records) == 0 {
			// The endpoint reports a missing substate as null.
			return nil
		}
		payload = map[string]interface{}{"records": records}
	} else if records, ok := p.resolvers[addr]; ok {
		payload = map[string]interface{}{"records": records}
	} else {
		return nil
	}
	bs, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(bs, result)
}

const (
	testZnsRegistry = "0x9611c53be6d1b32058b2747bdececed7e1216793"
	testZnsResolver = "0xdac22230adfe4601f00631eae92df6d77f054891"
	testZnsOwnerHex = "0x1d19918a737306218b5cbb3241fcdcbd998c3a72"
	testZnsOwnerZil = "zil1r5verznnwvrzrz6uhveyrlxuhkvccwnju4aehf"
)

func newTestZns(t *testing.T, provider SubstateProvider) *Zns {
	zns, err := NewZns(ZnsConfig{
		Network:  "mainnet",
		Provider: provider,
		Registry: testZnsRegistry,
	})
	require.NoError(t, err)
	return zns
}

func registeredZilDomain(domain string) *fakeSubstateProvider {
	node := strings.ToLower(znsNamehash(domain).Hex())
	return &fakeSubstateProvider{
		registryBase16: strings.TrimPrefix(testZnsRegistry, "0x"),
		registry: map[string]substateRecord{
			node: {Arguments: []string{testZnsOwnerHex, testZnsResolver}, Constructor: "Record"},
		},
		resolvers: map[string]map[string]string{
			strings.TrimPrefix(testZnsResolver, "0x"): {
				"crypto.ZIL.address": "zil1yu5u4hegy9v3xgluweg4en54zm8f8auwxu0xxj",
				"ipfs.html.value":    "QmVaAtQbi3EtsfpKoLzALm6vXphdi2KjMgxEDKeGg6wHuK",
			},
		},
	}
}

func TestZnsOwner(t *testing.T) {
	zns := newTestZns(t, registeredZilDomain("brad.zil"))

	owner, err := zns.Owner(context.Background(), "brad.zil")
	assert.NoError(t, err)
	assert.Equal(t, testZnsOwnerZil, owner)
}

func TestZnsResolver(t *testing.T) {
	zns := newTestZns(t, registeredZilDomain("brad.zil"))

	resolver, err := zns.Resolver(context.Background(), "brad.zil")
	assert.NoError(t, err)
	assert.Equal(t, testZnsResolver, resolver)
}

func TestZnsRecords(t *testing.T) {
	zns := newTestZns(t, registeredZilDomain("brad.zil"))

	records, err := zns.Records(context.Background(), "brad.zil",
		[]string{"crypto.ZIL.address", "crypto.BTC.address"})
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "zil1yu5u4hegy9v3xgluweg4en54zm8f8auwxu0xxj", records["crypto.ZIL.address"])
	assert.Equal(t, "", records["crypto.BTC.address"])
}

func TestZnsRecordNotFound(t *testing.T) {
	zns := newTestZns(t, registeredZilDomain("brad.zil"))

	_, err := zns.Record(context.Background(), "brad.zil", "crypto.BTC.address")
	assert.True(t, IsKind(err, RecordNotFound))
}

func TestZnsAllRecords(t *testing.T) {
	zns := newTestZns(t, registeredZilDomain("brad.zil"))

	records, err := zns.AllRecords(context.Background(), "brad.zil")
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{
		"crypto.ZIL.address": "zil1yu5u4hegy9v3xgluweg4en54zm8f8auwxu0xxj",
		"ipfs.html.value":    "QmVaAtQbi3EtsfpKoLzALm6vXphdi2KjMgxEDKeGg6wHuK",
	}, records)
}

func TestZnsUnregisteredDomain(t *testing.T) {
	zns := newTestZns(t, registeredZilDomain("brad.zil"))
	ctx := context.Background()

	_, err := zns.Owner(ctx, "ghost.zil")
	assert.True(t, IsKind(err, UnregisteredDomain))

	registered, err := zns.IsRegistered(ctx, "ghost.zil")
	assert.NoError(t, err)
	assert.False(t, registered)

	available, err := zns.IsAvailable(ctx, "ghost.zil")
	assert.NoError(t, err)
	assert.True(t, available)
}

func TestZnsRegisteredDomain(t *testing.T) {
	zns := newTestZns(t, registeredZilDomain("brad.zil"))

	registered, err := zns.IsRegistered(context.Background(), "brad.zil")
	assert.NoError(t, err)
	assert.True(t, registered)
}

func TestZnsUnspecifiedResolver(t *testing.T) {
	provider := registeredZilDomain("bare.zil")
	node := strings.ToLower(znsNamehash("bare.zil").Hex())
	provider.registry[node] = substateRecord{
		Arguments:   []string{testZnsOwnerHex, "0x0000000000000000000000000000000000000000"},
		Constructor: "Record",
	}
	zns := newTestZns(t, provider)

	_, err := zns.Resolver(context.Background(), "bare.zil")
	assert.True(t, IsKind(err, UnspecifiedResolver))

	_, err = zns.Records(context.Background(), "bare.zil", []string{"crypto.ZIL.address"})
	assert.True(t, IsKind(err, UnspecifiedResolver))
}

func TestZnsUnsupportedMethods(t *testing.T) {
	zns := newTestZns(t, registeredZilDomain("brad.zil"))
	ctx := context.Background()

	_, err := zns.Twitter(ctx, "brad.zil")
	assert.True(t, IsKind(err, UnsupportedMethod))

	_, err = zns.TokenURI(ctx, "brad.zil")
	assert.True(t, IsKind(err, UnsupportedMethod))
}

func TestZnsLocations(t *testing.T) {
	zns := newTestZns(t, registeredZilDomain("brad.zil"))

	locations, err := zns.Locations(context.Background(), []string{"brad.zil", "ghost.zil"})
	assert.NoError(t, err)
	assert.Len(t, locations, 2)
	assert.Nil(t, locations["ghost.zil"])

	brad := locations["brad.zil"]
	require.NotNil(t, brad)
	assert.Equal(t, "ZIL", brad.Blockchain)
	assert.Equal(t, 1, brad.NetworkId)
	assert.Equal(t, testZnsOwnerZil, brad.OwnerAddress)
	assert.Equal(t, testZnsResolver, brad.ResolverAddress)
}

func TestZnsRegistryAddress(t *testing.T) {
	zns := newTestZns(t, registeredZilDomain("brad.zil"))

	registry, err := zns.RegistryAddress(context.Background(), "brad.zil")
	assert.NoError(t, err)
	assert.Equal(t, "zil1jcgu2wlx6xejqk9jw3aaankw6lsjzeunx2j0jz", registry)
}

func TestZnsCustomNetworkValidation(t *testing.T) {
	_, err := NewZns(ZnsConfig{Network: "custom"})
	assert.True(t, IsKind(err, CustomNetworkConfigMissing))

	_, err = NewZns(ZnsConfig{Network: "custom", Registry: testZnsRegistry})
	assert.True(t, IsKind(err, CustomNetworkConfigMissing))

	zns, err := NewZns(ZnsConfig{
		Network:  "custom",
		Registry: testZnsRegistry,
		Provider: registeredZilDomain("brad.zil"),
	})
	assert.NoError(t, err)
	assert.NotNil(t, zns)
}

func TestZnsRegistryAddressForms(t *testing.T) {
	// The bech32 and raw-hex spellings of the registry are equivalent.
	fromBech, err := NewZns(ZnsConfig{
		Network:  "mainnet",
		Registry: "zil1jcgu2wlx6xejqk9jw3aaankw6lsjzeunx2j0jz",
		Provider: registeredZilDomain("brad.zil"),
	})
	require.NoError(t, err)
	fromHex, err := NewZns(ZnsConfig{
		Network:  "mainnet",
		Registry: testZnsRegistry,
		Provider: registeredZilDomain("brad.zil"),
	})
	require.NoError(t, err)
	assert.Equal(t, fromHex.registryBase16, fromBech.registryBase16)
	assert.Equal(t, fromHex.registryAddress, fromBech.registryAddress)

	_, err = NewZns(ZnsConfig{
		Network:  "mainnet",
		Registry: "not-an-address",
		Provider: registeredZilDomain("brad.zil"),
	})
	assert.True(t, IsKind(err, InvalidConfigurationField))
}

func TestZilAddressRoundTrip(t *testing.T) {
	encoded, err := toBech32Address("1d19918a737306218b5cbb3241fcdcbd998c3a72")
	assert.NoError(t, err)
	assert.Equal(t, testZnsOwnerZil, encoded)

	decoded, err := fromBech32Address(testZnsOwnerZil)
	assert.NoError(t, err)
	assert.Equal(t, "1d19918a737306218b5cbb3241fcdcbd998c3a72", decoded)

	_, err = fromBech32Address("bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq")
	assert.True(t, IsKind(err, InvalidConfigurationField))
}
