package resolution

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// ContractBackend is the narrow contract the ABI-based readers consume:
// read-only calls plus event-log retrieval. *ethclient.Client satisfies it.
type ContractBackend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// SubstateProvider is the raw JSON-RPC capability the map-query family
// consumes. Heterogeneous caller-supplied providers are normalized into
// this one shape at construction; the services never branch on provider
// shape internally.
type SubstateProvider interface {
	Request(ctx context.Context, result interface{}, method string, params ...interface{}) error
}

// dialBackend turns an endpoint URL into a ContractBackend.
func dialBackend(url string) (ContractBackend, error) {
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, wrapError(IncorrectBlockchainProvider, err, "cannot dial %s", url)
	}
	return client, nil
}

type rpcSubstateProvider struct {
	client *rpc.Client
}

func (p *rpcSubstateProvider) Request(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	return p.client.CallContext(ctx, result, method, params...)
}

// dialSubstateProvider turns an endpoint URL into a SubstateProvider. The
// endpoint speaks plain JSON-RPC 2.0, so the go-ethereum rpc client doubles
// as the transport.
func dialSubstateProvider(url string) (SubstateProvider, error) {
	client, err := rpc.Dial(url)
	if err != nil {
		return nil, wrapError(IncorrectBlockchainProvider, err, "cannot dial %s", url)
	}
	return &rpcSubstateProvider{client: client}, nil
}
