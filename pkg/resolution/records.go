package resolution

import (
	"encoding/json"
	"strconv"
)

// Well-known record keys used by the convenience operations.
const (
	recordIpfsHash          = "dweb.ipfs.hash"
	recordIpfsHashLegacy    = "ipfs.html.value"
	recordHttpUrl           = "browser.redirect_url"
	recordHttpUrlLegacy     = "ipfs.redirect_domain.value"
	recordEmail             = "whois.email.value"
	recordChatId            = "gundb.username.value"
	recordChatPk            = "gundb.public_key.value"
	recordTwitterHandle     = "social.twitter.username"
	recordTwitterValidation = "validation.social.twitter.username"

	dnsDefaultTTL = 300
)

// standardKeys is the fixed enumerable key set used whenever full key
// enumeration is unavailable (legacy resolvers, empty event scans).
var standardKeys = []string{
	"crypto.BTC.address",
	"crypto.ETH.address",
	"crypto.ZIL.address",
	"crypto.LTC.address",
	"crypto.XRP.address",
	"crypto.ETC.address",
	"crypto.EQL.address",
	"crypto.LINK.address",
	"crypto.USDC.address",
	"crypto.BAT.address",
	"crypto.REP.address",
	"crypto.ZRX.address",
	"crypto.DAI.address",
	"crypto.BCH.address",
	"crypto.XMR.address",
	"crypto.DASH.address",
	"crypto.NEO.address",
	"crypto.DOGE.address",
	"crypto.SWTH.address",
	"crypto.CRO.address",
	"crypto.USDT.version.ERC20.address",
	"crypto.USDT.version.TRON.address",
	"crypto.USDT.version.EOS.address",
	"crypto.USDT.version.OMNI.address",
	"dns.ttl",
	"dns.A",
	"dns.A.ttl",
	"dns.AAAA",
	"dns.AAAA.ttl",
	"dweb.ipfs.hash",
	"ipfs.html.value",
	"browser.preferred_protocols",
	"browser.redirect_url",
	"ipfs.redirect_domain.value",
	"whois.email.value",
	"whois.for_sale.value",
	"gundb.username.value",
	"gundb.public_key.value",
	"social.image.value",
	"social.twitter.username",
	"social.type.value",
	"validation.social.twitter.username",
}

// StandardKeys returns a copy of the standard record key set.
func StandardKeys() []string {
	keys := make([]string, len(standardKeys))
	copy(keys, standardKeys)
	return keys
}

// constructRecords pairs requested keys with a parallel value slice. Every
// requested key appears in the result; a missing value defaults to "".
func constructRecords(keys []string, values []string) map[string]string {
	records := make(map[string]string, len(keys))
	for i, key := range keys {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		records[key] = value
	}
	return records
}

// constructRecordsFromMap filters a full key/value map down to the
// requested keys, defaulting missing values to "".
func constructRecordsFromMap(keys []string, values map[string]string) map[string]string {
	records := make(map[string]string, len(keys))
	for _, key := range keys {
		records[key] = values[key]
	}
	return records
}

// dnsKeyList builds the record keys needed to reconstruct the requested
// DNS types: the domain-default TTL plus a value and TTL key per type.
func dnsKeyList(types []DNSRecordType) []string {
	keys := []string{"dns.ttl"}
	for _, ty := range types {
		keys = append(keys, "dns."+string(ty), "dns."+string(ty)+".ttl")
	}
	return keys
}

// parseDNSValues decodes a record value as a JSON array of strings. A
// missing or malformed value yields no entries.
func parseDNSValues(value string) []string {
	if value == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(value), &values); err != nil {
		return nil
	}
	return values
}

// buildDNSRecords reconstructs DNS entries from raw records. Each requested
// type emits one entry per stored array element, with the type-specific TTL
// when present and the domain default otherwise. Ordering follows the
// requested type order, then array order.
func buildDNSRecords(types []DNSRecordType, records map[string]string) []DNSRecord {
	defaultTTL := dnsDefaultTTL
	if ttl, err := strconv.Atoi(records["dns.ttl"]); err == nil {
		defaultTTL = ttl
	}
	var out []DNSRecord
	for _, ty := range types {
		ttl := defaultTTL
		if typeTTL, err := strconv.Atoi(records["dns."+string(ty)+".ttl"]); err == nil {
			ttl = typeTTL
		}
		for _, data := range parseDNSValues(records["dns."+string(ty)]) {
			out = append(out, DNSRecord{Type: ty, TTL: ttl, Data: data})
		}
	}
	return out
}
