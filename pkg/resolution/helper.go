package resolution

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// has0xPrefix validates str begins with '0x' or '0X'.
func has0xPrefix(str string) bool {
	return len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X')
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// isHex validates whether each byte is valid hexadecimal string.
func isHex(str string) bool {
	if len(str)%2 != 0 {
		return false
	}
	for _, c := range []byte(str) {
		if !isHexCharacter(c) {
			return false
		}
	}
	return true
}

// zeroAddress reports whether addr is unset.
func zeroAddress(addr common.Address) bool {
	return addr == common.Address{}
}

// containsAddress reports whether list holds addr, case-insensitively.
func containsAddress(list []string, addr string) bool {
	for _, a := range list {
		if strings.EqualFold(a, addr) {
			return true
		}
	}
	return false
}

// domainSuffix returns the last dot-separated label of a domain.
func domainSuffix(domain string) string {
	ss := strings.Split(domain, ".")
	return ss[len(ss)-1]
}
