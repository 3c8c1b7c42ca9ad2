package resolution

import (
	"crypto/sha256"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
	"golang.org/x/net/idna"
)

var idnaProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false), idna.Transitional(false))

// normalizeDomain trims and lower-cases a domain name. Hashing and dispatch
// always operate on the normalized form.
func normalizeDomain(domain string) string {
	normalized, err := idnaProfile.ToUnicode(strings.TrimSpace(domain))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(domain))
	}
	return strings.ToLower(normalized)
}

// validDomainName reports whether every dot-separated label is non-empty.
func validDomainName(domain string) bool {
	if domain == "" {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return false
		}
	}
	return true
}

// unsNamehash implements the recursive keccak label-hash scheme used by
// Ethereum-style naming. The root is the zero hash.
func unsNamehash(domain string) common.Hash {
	hash := common.Hash{}
	if domain == "" {
		return hash
	}
	labels := strings.Split(normalizeDomain(domain), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		hash = unsChildHash(hash, labels[i])
	}
	return hash
}

// unsChildHash performs one fold step: keccak(parent ++ keccak(label)).
func unsChildHash(parent common.Hash, label string) (hash common.Hash) {
	labelSha := sha3.NewLegacyKeccak256()
	labelSha.Write([]byte(label))
	sha := sha3.NewLegacyKeccak256()
	sha.Write(parent[:])
	sha.Write(labelSha.Sum(nil))
	sha.Sum(hash[:0])
	return
}

// znsNamehash is the single-chain family's hash: same recursive shape, but
// sha256 over the label bytes with a zero root.
func znsNamehash(domain string) common.Hash {
	hash := common.Hash{}
	if domain == "" {
		return hash
	}
	labels := strings.Split(normalizeDomain(domain), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		hash = znsChildHash(hash, labels[i])
	}
	return hash
}

func znsChildHash(parent common.Hash, label string) common.Hash {
	labelHash := sha256.Sum256([]byte(label))
	return sha256.Sum256(append(parent.Bytes(), labelHash[:]...))
}

// formatNamehash applies presentation options to a computed hash. It is a
// pure formatting step and never changes the hash itself.
func formatNamehash(hash common.Hash, options NamehashOptions) string {
	if options.Format == NamehashDec {
		return new(big.Int).SetBytes(hash.Bytes()).String()
	}
	hex := common.Bytes2Hex(hash.Bytes())
	if options.Prefix {
		return "0x" + hex
	}
	return hex
}

// parseNamehash accepts a 32-byte hash in hex form, with or without the 0x
// prefix, or in decimal form.
func parseNamehash(value string) (common.Hash, error) {
	s := strings.TrimSpace(value)
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s) == 64 && isHex(s) {
		return common.HexToHash("0x" + s), nil
	}
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 256 {
		return common.Hash{}, newError(InvalidConfigurationField, "invalid namehash: %s", value)
	}
	return common.BigToHash(n), nil
}
