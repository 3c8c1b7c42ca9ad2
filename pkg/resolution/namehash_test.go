package resolution

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var unsNamehashVectors = []struct {
	domain string
	hash   string
}{
	{"", "0x0000000000000000000000000000000000000000000000000000000000000000"},
	{"crypto", "0x0f4a10a4f46c288cea365fcf45cccf0e9d901b945b9829ccdb54c10dc3cb7a6f"},
	{"brad.crypto", "0x756e4e998dbffd803c21d23b06cd855cdc7a4b57706c95964a37e24b47c10fc9"},
	{"eth", "0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae"},
}

func TestUnsNamehash(t *testing.T) {
	for _, test := range unsNamehashVectors {
		t.Run(test.domain, func(t *testing.T) {
			assert.Equal(t, test.hash, unsNamehash(test.domain).Hex())
		})
	}
}

func TestNamehashCaseInsensitive(t *testing.T) {
	assert.Equal(t, unsNamehash("brad.crypto"), unsNamehash("Brad.Crypto"))
	assert.Equal(t, unsNamehash("brad.crypto"), unsNamehash("  BRAD.CRYPTO  "))
	assert.Equal(t, znsNamehash("brad.zil"), znsNamehash("BRAD.zil"))
}

func TestZnsNamehash(t *testing.T) {
	assert.Equal(t,
		"0x9915d0456b878862e822e2361da37232f626a2e47505c8795134a95d36138ed3",
		znsNamehash("zil").Hex())
	assert.Equal(t, common.Hash{}.Hex(), znsNamehash("").Hex())
}

func TestChildHashComposition(t *testing.T) {
	assert.Equal(t, unsNamehash("brad.crypto"), unsChildHash(unsNamehash("crypto"), "brad"))
	assert.Equal(t, unsNamehash("a.b.c.crypto"), unsChildHash(unsNamehash("b.c.crypto"), "a"))
	assert.Equal(t, znsNamehash("brad.zil"), znsChildHash(znsNamehash("zil"), "brad"))
}

func TestValidDomainName(t *testing.T) {
	for domain, valid := range map[string]bool{
		"brad.crypto":  true,
		"crypto":       true,
		"a.b.c.crypto": true,
		"":             false,
		".crypto":      false,
		"brad..crypto": false,
		"brad.crypto.": false,
	} {
		assert.Equal(t, valid, validDomainName(domain), domain)
	}
}

func TestFormatNamehash(t *testing.T) {
	hash := unsNamehash("crypto")
	assert.Equal(t,
		"0x0f4a10a4f46c288cea365fcf45cccf0e9d901b945b9829ccdb54c10dc3cb7a6f",
		formatNamehash(hash, NamehashOptions{Format: NamehashHex, Prefix: true}))
	assert.Equal(t,
		"0f4a10a4f46c288cea365fcf45cccf0e9d901b945b9829ccdb54c10dc3cb7a6f",
		formatNamehash(hash, NamehashOptions{Format: NamehashHex, Prefix: false}))
	assert.Equal(t,
		"6915554286656091279949062454670022140884697215296220624394276976218079984239",
		formatNamehash(hash, NamehashOptions{Format: NamehashDec}))
}

func TestParseNamehash(t *testing.T) {
	hash := unsNamehash("crypto")

	parsed, err := parseNamehash(hash.Hex())
	assert.NoError(t, err)
	assert.Equal(t, hash, parsed)

	parsed, err = parseNamehash(formatNamehash(hash, NamehashOptions{Format: NamehashHex}))
	assert.NoError(t, err)
	assert.Equal(t, hash, parsed)

	parsed, err = parseNamehash(formatNamehash(hash, NamehashOptions{Format: NamehashDec}))
	assert.NoError(t, err)
	assert.Equal(t, hash, parsed)

	_, err = parseNamehash("not-a-hash")
	assert.True(t, IsKind(err, InvalidConfigurationField))
}
