package resolution

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
)

// Pre-built ABI types for the small set of signatures the readers use.
var (
	typeString, _       = abi.NewType("string", "", nil)
	typeStringSlice, _  = abi.NewType("string[]", "", nil)
	typeUint256, _      = abi.NewType("uint256", "", nil)
	typeUint256Slice, _ = abi.NewType("uint256[]", "", nil)
	typeAddress, _      = abi.NewType("address", "", nil)
)

// methodCalldata builds the calldata for a method call: keccak of the
// canonical signature for the selector, ABI-packed values after it.
func methodCalldata(methodName string, argTypes []abi.Type, argValues ...interface{}) ([]byte, error) {
	arguments := abi.Arguments{}
	for _, ty := range argTypes {
		arguments = append(arguments, abi.Argument{Type: ty})
	}
	packed, err := arguments.Pack(argValues...)
	if err != nil {
		return nil, err
	}

	signature := methodName + "("
	for i, ty := range argTypes {
		signature += ty.String()
		if i < len(argTypes)-1 {
			signature += ","
		}
	}
	signature += ")"
	selector := crypto.Keccak256Hash([]byte(signature))

	return append(selector[0:4], packed...), nil
}

// unpackResult decodes a contract return according to the given type list.
func unpackResult(returnTypes []abi.Type, output []byte) ([]interface{}, error) {
	var arguments abi.Arguments
	for _, ty := range returnTypes {
		arguments = append(arguments, abi.Argument{Type: ty})
	}
	return arguments.UnpackValues(output)
}

// callContract performs one eth_call against the backend and decodes the
// return values.
func callContract(ctx context.Context, backend ContractBackend, contract common.Address,
	method string, argTypes []abi.Type, returnTypes []abi.Type, argValues ...interface{}) ([]interface{}, error) {
	calldata, err := methodCalldata(method, argTypes, argValues...)
	if err != nil {
		return nil, wrapError(ServiceProviderError, err, "cannot encode %s call", method)
	}
	msg := ethereum.CallMsg{
		From:      common.HexToAddress("0x0000000000000000000000000000000000000000"),
		To:        &contract,
		Gas:       0,
		GasPrice:  nil,
		GasFeeCap: nil,
		GasTipCap: nil,
		Data:      calldata,
		Value:     nil,
	}
	bs, err := backend.CallContract(ctx, msg, nil)
	if err != nil {
		log.Debug("contract call failed: ", err)
		return nil, wrapError(ServiceProviderError, err, "%s call to %s failed", method, contract.Hex())
	}
	res, err := unpackResult(returnTypes, bs)
	if err != nil {
		return nil, wrapError(ServiceProviderError, err, "cannot decode %s return data", method)
	}
	return res, nil
}

// tokenBig converts a namehash into the uint256 token id contracts expect.
func tokenBig(tokenId common.Hash) *big.Int {
	return new(big.Int).SetBytes(tokenId.Bytes())
}
