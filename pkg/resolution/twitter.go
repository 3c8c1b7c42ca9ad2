package resolution

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TwitterVerifier checks a domain's social-verification proof. The engine
// treats it as an external collaborator; the default implementation
// recovers the EIP-191 signer and compares it to the known validator.
type TwitterVerifier interface {
	Verify(tokenId string, owner string, handle string, signature string) (bool, error)
}

// twitterValidatorAddress signed all production twitter proofs.
const twitterValidatorAddress = "0x0e94B1B0219183F3A0D4eA2A510d7c5C2F98F753"

type eip191Verifier struct {
	validator common.Address
}

func defaultTwitterVerifier() TwitterVerifier {
	return &eip191Verifier{validator: common.HexToAddress(twitterValidatorAddress)}
}

// NewEIP191Verifier builds a verifier bound to a specific validator
// address, for deployments running their own validation service.
func NewEIP191Verifier(validator string) (TwitterVerifier, error) {
	if !hexAddressPattern.MatchString(validator) {
		return nil, newError(InvalidConfigurationField, "malformed validator address: %s", validator)
	}
	return &eip191Verifier{validator: common.HexToAddress(validator)}, nil
}

// verificationMessage is the exact byte string the validator signed.
func verificationMessage(tokenId, owner, handle string) []byte {
	return []byte(tokenId + ":" + strings.ToLower(owner) + ":" + handle)
}

func (v *eip191Verifier) Verify(tokenId string, owner string, handle string, signature string) (bool, error) {
	sig := common.FromHex(signature)
	if len(sig) != crypto.SignatureLength {
		return false, newError(InvalidTwitterVerification, "malformed signature: %s", signature)
	}
	// Normalize the recovery id: signers emit 27/28, recovery wants 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	hash := accounts.TextHash(verificationMessage(tokenId, owner, handle))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false, err
	}
	return crypto.PubkeyToAddress(*pub) == v.validator, nil
}
