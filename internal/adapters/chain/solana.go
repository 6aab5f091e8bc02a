package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/dgraph-io/ristretto"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// SPL token account layout: mint [0:32], owner [32:64], amount u64 LE [64:72].
// SPL mint layout: decimals is the byte at offset 44.
const (
	splTokenAccountMinLen = 72
	splMintMinLen         = 82
	splMintDecimalsOffset = 44
)

// solanaBackend is the subset of rpc.Client the adapter uses, stubbed in
// tests.
type solanaBackend interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// SolanaAdapter serves Solana through the JSON-RPC API. Token balances
// are aggregated across all of the owner's token accounts for the mint.
type SolanaAdapter struct {
	logger   zerolog.Logger
	chains   map[string]types.ChainInfo
	clients  map[string]solanaBackend
	metadata *ristretto.Cache
}

func NewSolanaAdapter(cfg types.StaticConfig, logger zerolog.Logger) (*SolanaAdapter, error) {
	a, err := newSolanaAdapter(logger)
	if err != nil {
		return nil, err
	}
	for _, info := range solanaChains {
		if override, ok := cfg.RPCOverrides[info.ID]; ok {
			info.RPCEndpoint = override
		}
		a.chains[info.ID] = info
		a.clients[info.ID] = rpc.New(info.RPCEndpoint)
	}
	return a, nil
}

func newSolanaAdapter(logger zerolog.Logger) (*SolanaAdapter, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating metadata cache: %w", err)
	}
	return &SolanaAdapter{
		logger:   logger.With().Str("component", "solana_adapter").Logger(),
		chains:   make(map[string]types.ChainInfo),
		clients:  make(map[string]solanaBackend),
		metadata: cache,
	}, nil
}

func (a *SolanaAdapter) Ecosystem() types.Ecosystem { return types.EcosystemSolana }

func (a *SolanaAdapter) GetSupportedChains() []types.ChainInfo {
	out := make([]types.ChainInfo, 0, len(a.chains))
	for _, info := range solanaChains {
		if stored, ok := a.chains[info.ID]; ok {
			out = append(out, stored)
		}
	}
	return out
}

func (a *SolanaAdapter) GetChain(chainID string) (types.ChainInfo, bool) {
	info, ok := a.chains[chainID]
	return info, ok
}

// IsValidAddress accepts any base58 string decoding to exactly 32 bytes.
// No network I/O.
func (a *SolanaAdapter) IsValidAddress(chainID, address string) bool {
	if _, ok := a.chains[chainID]; !ok {
		return false
	}
	decoded, err := base58.Decode(address)
	return err == nil && len(decoded) == solana.PublicKeyLength
}

func (a *SolanaAdapter) GetNativeBalance(ctx context.Context, chainID, address string) (*types.TokenBalance, error) {
	info, ok := a.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrChainNotSupported, chainID)
	}
	owner, err := a.parseAddress(chainID, address)
	if err != nil {
		return nil, err
	}
	resp, err := a.clients[chainID].GetBalance(ctx, owner, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %s native balance: %v", types.ErrProviderFailure, chainID, err)
	}
	return newBalance(info.NativeToken, new(big.Int).SetUint64(resp.Value))
}

func (a *SolanaAdapter) GetTokenBalance(ctx context.Context, chainID, address, tokenIdentifier string) (*types.TokenBalance, error) {
	token, err := a.ResolveToken(ctx, chainID, tokenIdentifier)
	if err != nil {
		return nil, err
	}
	// The sentinel mint stands for native SOL, so a resolved address
	// matching it takes the lamport-balance path, not the token-account
	// scan. This covers "SOL", "WSOL", and the raw sentinel mint.
	if token.Address == NativeTokenSolana {
		return a.GetNativeBalance(ctx, chainID, address)
	}
	owner, err := a.parseAddress(chainID, address)
	if err != nil {
		return nil, err
	}
	mint, err := solana.PublicKeyFromBase58(token.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: mint %s: %v", types.ErrTokenNotFound, token.Address, err)
	}
	resp, err := a.clients[chainID].GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: token accounts for %s: %v", types.ErrProviderFailure, token.Symbol, err)
	}

	// An owner may hold several token accounts for one mint; sum them.
	total := new(big.Int)
	for _, acct := range resp.Value {
		data := acct.Account.Data.GetBinary()
		if len(data) < splTokenAccountMinLen {
			continue
		}
		amount := binary.LittleEndian.Uint64(data[64:72])
		total.Add(total, new(big.Int).SetUint64(amount))
	}
	return newBalance(*token, total)
}

func (a *SolanaAdapter) GetTokenBalances(ctx context.Context, chainID, address string, tokenIdentifiers []string) ([]types.TokenBalance, error) {
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

// ResolveToken maps a symbol or mint address to token metadata. Unknown
// mints are resolved by reading the mint account; only decimals are
// recoverable on-chain, so the symbol falls back to a shortened mint.
func (a *SolanaAdapter) ResolveToken(ctx context.Context, chainID, symbolOrAddress string) (*types.TokenInfo, error) {
	info, ok := a.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrChainNotSupported, chainID)
	}
	upper := strings.ToUpper(symbolOrAddress)
	if upper == "SOL" || symbolOrAddress == NativeTokenSolana {
		native := info.NativeToken
		return &native, nil
	}
	if known, ok := lookupKnownToken(chainID, upper); ok {
		return &known, nil
	}
	mint, err := solana.PublicKeyFromBase58(symbolOrAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %q on %s", types.ErrTokenNotFound, symbolOrAddress, chainID)
	}
	return a.resolveMint(ctx, chainID, mint)
}

func (a *SolanaAdapter) resolveMint(ctx context.Context, chainID string, mint solana.PublicKey) (*types.TokenInfo, error) {
	cacheKey := chainID + ":" + mint.String()
	if cached, ok := a.metadata.Get(cacheKey); ok {
		info := cached.(types.TokenInfo)
		return &info, nil
	}

	resp, err := a.clients[chainID].GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("%w: mint %s: %v", types.ErrProviderFailure, mint, err)
	}
	if resp.Value == nil {
		return nil, fmt.Errorf("%w: mint %s does not exist", types.ErrTokenNotFound, mint)
	}
	data := resp.Value.Data.GetBinary()
	if len(data) < splMintMinLen {
		return nil, fmt.Errorf("%w: %s is not a token mint", types.ErrTokenNotFound, mint)
	}

	addr := mint.String()
	info := types.TokenInfo{
		Symbol:   addr[:4] + ".." + addr[len(addr)-4:],
		Name:     addr,
		Decimals: int(data[splMintDecimalsOffset]),
		Address:  addr,
		ChainID:  chainID,
	}
	a.metadata.SetWithTTL(cacheKey, info, 1, tokenMetadataTTL)
	return &info, nil
}

func (a *SolanaAdapter) parseAddress(chainID, address string) (solana.PublicKey, error) {
	if !a.IsValidAddress(chainID, address) {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", types.ErrInvalidAddress, address)
	}
	return solana.PublicKeyFromBase58(address)
}
