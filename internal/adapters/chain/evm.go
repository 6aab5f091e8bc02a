package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

const erc20ABIJSON = `[
	{"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

// tokenMetadataTTL bounds how long on-chain ERC-20 metadata is cached.
// Decimals and symbols are effectively immutable, so a long TTL is safe.
const tokenMetadataTTL = 12 * time.Hour

// evmBackend is the slice of ethclient.Client the adapter needs. Narrowed
// to an interface so tests can stub RPC without a node.
type evmBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// EVMAdapter serves all configured EVM chains through one adapter
// instance, one RPC client per chain.
type EVMAdapter struct {
	logger   zerolog.Logger
	chains   map[string]types.ChainInfo
	clients  map[string]evmBackend
	erc20    abi.ABI
	metadata *ristretto.Cache
}

// NewEVMAdapter dials every configured EVM chain. RPC endpoints come from
// the static chain table unless overridden in cfg.RPCOverrides.
func NewEVMAdapter(cfg types.StaticConfig, logger zerolog.Logger) (*EVMAdapter, error) {
	a, err := newEVMAdapter(logger)
	if err != nil {
		return nil, err
	}
	for _, info := range evmChains {
		endpoint := info.RPCEndpoint
		if override, ok := cfg.RPCOverrides[info.ID]; ok {
			endpoint = override
			info.RPCEndpoint = override
		}
		client, err := ethclient.Dial(endpoint)
		if err != nil {
			return nil, fmt.Errorf("dialing %s rpc: %w", info.ID, err)
		}
		a.chains[info.ID] = info
		a.clients[info.ID] = client
	}
	return a, nil
}

func newEVMAdapter(logger zerolog.Logger) (*EVMAdapter, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing erc20 abi: %w", err)
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating metadata cache: %w", err)
	}
	return &EVMAdapter{
		logger:   logger.With().Str("component", "evm_adapter").Logger(),
		chains:   make(map[string]types.ChainInfo),
		clients:  make(map[string]evmBackend),
		erc20:    parsed,
		metadata: cache,
	}, nil
}

func (a *EVMAdapter) Ecosystem() types.Ecosystem { return types.EcosystemEVM }

func (a *EVMAdapter) GetSupportedChains() []types.ChainInfo {
	out := make([]types.ChainInfo, 0, len(a.chains))
	for _, info := range evmChains {
		if stored, ok := a.chains[info.ID]; ok {
			out = append(out, stored)
		}
	}
	return out
}

func (a *EVMAdapter) GetChain(chainID string) (types.ChainInfo, bool) {
	info, ok := a.chains[chainID]
	return info, ok
}

// IsValidAddress checks hex shape and, for mixed-case input, the EIP-55
// checksum. All-lower and all-upper addresses carry no checksum and pass
// on shape alone. No network I/O.
func (a *EVMAdapter) IsValidAddress(chainID, address string) bool {
	if _, ok := a.chains[chainID]; !ok {
		return false
	}
	if !common.IsHexAddress(address) {
		return false
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if hex == strings.ToLower(hex) || hex == strings.ToUpper(hex) {
		return true
	}
	return address == common.HexToAddress(address).Hex()
}

func (a *EVMAdapter) GetNativeBalance(ctx context.Context, chainID, address string) (*types.TokenBalance, error) {
	info, ok := a.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrChainNotSupported, chainID)
	}
	if !a.IsValidAddress(chainID, address) {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidAddress, address)
	}
	raw, err := a.clients[chainID].BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s native balance: %v", types.ErrProviderFailure, chainID, err)
	}
	return newBalance(info.NativeToken, raw)
}

func (a *EVMAdapter) GetTokenBalance(ctx context.Context, chainID, address, tokenIdentifier string) (*types.TokenBalance, error) {
	token, err := a.ResolveToken(ctx, chainID, tokenIdentifier)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(token.Address, NativeTokenEVM) {
		return a.GetNativeBalance(ctx, chainID, address)
	}
	if !a.IsValidAddress(chainID, address) {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidAddress, address)
	}
	raw, err := a.erc20BalanceOf(ctx, chainID, token.Address, address)
	if err != nil {
		return nil, err
	}
	return newBalance(*token, raw)
}

// GetTokenBalances resolves and reads each token in order. The first
// failure fails the whole batch.
func (a *EVMAdapter) GetTokenBalances(ctx context.Context, chainID, address string, tokenIdentifiers []string) ([]types.TokenBalance, error) {
	out := make([]types.TokenBalance, 0, len(tokenIdentifiers))
	for _, ident := range tokenIdentifiers {
		bal, err := a.GetTokenBalance(ctx, chainID, address, ident)
		if err != nil {
			return nil, err
		}
		out = append(out, *bal)
	}
	return out, nil
}

// ResolveToken maps a symbol or contract address to token metadata.
// Order: native sentinel/symbol, static table, then on-chain metadata
// for contract addresses.
func (a *EVMAdapter) ResolveToken(ctx context.Context, chainID, symbolOrAddress string) (*types.TokenInfo, error) {
	info, ok := a.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrChainNotSupported, chainID)
	}
	upper := strings.ToUpper(symbolOrAddress)
	if strings.EqualFold(symbolOrAddress, NativeTokenEVM) || upper == info.NativeToken.Symbol {
		native := info.NativeToken
		return &native, nil
	}
	if known, ok := lookupKnownToken(chainID, upper); ok {
		return &known, nil
	}
	if common.IsHexAddress(symbolOrAddress) {
		return a.resolveContract(ctx, chainID, symbolOrAddress)
	}
	return nil, fmt.Errorf("%w: %q on %s", types.ErrTokenNotFound, symbolOrAddress, chainID)
}

func (a *EVMAdapter) resolveContract(ctx context.Context, chainID, address string) (*types.TokenInfo, error) {
	cacheKey := chainID + ":" + strings.ToLower(address)
	if cached, ok := a.metadata.Get(cacheKey); ok {
		info := cached.(types.TokenInfo)
		return &info, nil
	}

	// An address that does not answer decimals()/symbol() is not an
	// ERC-20 contract. That is a resolution miss, not a provider fault:
	// EOAs and non-token contracts return empty call data here.
	var decimals uint8
	if err := a.viewCall(ctx, chainID, address, "decimals", &decimals); err != nil {
		return nil, fmt.Errorf("%w: %s on %s: %v", types.ErrTokenNotFound, address, chainID, err)
	}
	var symbol string
	if err := a.viewCall(ctx, chainID, address, "symbol", &symbol); err != nil {
		return nil, fmt.Errorf("%w: %s on %s: %v", types.ErrTokenNotFound, address, chainID, err)
	}
	var name string
	if err := a.viewCall(ctx, chainID, address, "name", &name); err != nil {
		// Some tokens omit name(); fall back to the symbol.
		a.logger.Debug().Str("chain", chainID).Str("token", address).Msg("token name() unavailable")
		name = symbol
	}

	info := types.TokenInfo{
		Symbol:   symbol,
		Name:     name,
		Decimals: int(decimals),
		Address:  common.HexToAddress(address).Hex(),
		ChainID:  chainID,
	}
	a.metadata.SetWithTTL(cacheKey, info, 1, tokenMetadataTTL)
	return &info, nil
}

func (a *EVMAdapter) erc20BalanceOf(ctx context.Context, chainID, tokenAddress, holder string) (*big.Int, error) {
	data, err := a.erc20.Pack("balanceOf", common.HexToAddress(holder))
	if err != nil {
		return nil, fmt.Errorf("packing balanceOf: %w", err)
	}
	contract := common.HexToAddress(tokenAddress)
	result, err := a.clients[chainID].CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s balanceOf %s: %v", types.ErrProviderFailure, chainID, tokenAddress, err)
	}
	var balance *big.Int
	if err := a.erc20.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, fmt.Errorf("%w: decoding balanceOf: %v", types.ErrProviderFailure, err)
	}
	return balance, nil
}

func (a *EVMAdapter) viewCall(ctx context.Context, chainID, tokenAddress, method string, out interface{}) error {
	data, err := a.erc20.Pack(method)
	if err != nil {
		return fmt.Errorf("packing %s: %w", method, err)
	}
	contract := common.HexToAddress(tokenAddress)
	result, err := a.clients[chainID].CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("%w: %s %s() on %s: %v", types.ErrProviderFailure, chainID, method, tokenAddress, err)
	}
	if err := a.erc20.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("%w: decoding %s(): %v", types.ErrProviderFailure, method, err)
	}
	return nil
}

// EthCall performs a raw read-only contract call. Protocol integrations
// use this for calls outside the ERC-20 surface; not part of the
// ChainAdapter interface.
func (a *EVMAdapter) EthCall(ctx context.Context, chainID, to string, data []byte) ([]byte, error) {
	client, ok := a.clients[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrChainNotSupported, chainID)
	}
	contract := common.HexToAddress(to)
	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s call to %s: %v", types.ErrProviderFailure, chainID, to, err)
	}
	return result, nil
}

// SuggestGasPrice exposes the chain's current gas price in wei. Used by
// the cost estimator; not part of the ChainAdapter surface.
func (a *EVMAdapter) SuggestGasPrice(ctx context.Context, chainID string) (*big.Int, error) {
	client, ok := a.clients[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrChainNotSupported, chainID)
	}
	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s gas price: %v", types.ErrProviderFailure, chainID, err)
	}
	return price, nil
}
