package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cosmos/btcutil/bech32"
	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// CosmosAdapter serves Cosmos SDK chains over their LCD REST API. The
// native denom string (e.g. "uatom") doubles as the token identifier.
type CosmosAdapter struct {
	logger zerolog.Logger
	chains map[string]types.ChainInfo
	client *http.Client
}

func NewCosmosAdapter(cfg types.StaticConfig, logger zerolog.Logger) *CosmosAdapter {
	a := &CosmosAdapter{
		logger: logger.With().Str("component", "cosmos_adapter").Logger(),
		chains: make(map[string]types.ChainInfo),
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, info := range cosmosChains {
		if override, ok := cfg.RPCOverrides[info.ID]; ok {
			info.RPCEndpoint = override
		}
		a.chains[info.ID] = info
	}
	return a
}

func (a *CosmosAdapter) Ecosystem() types.Ecosystem { return types.EcosystemCosmos }

func (a *CosmosAdapter) GetSupportedChains() []types.ChainInfo {
	out := make([]types.ChainInfo, 0, len(a.chains))
	for _, info := range cosmosChains {
		if stored, ok := a.chains[info.ID]; ok {
			out = append(out, stored)
		}
	}
	return out
}

func (a *CosmosAdapter) GetChain(chainID string) (types.ChainInfo, bool) {
	info, ok := a.chains[chainID]
	return info, ok
}

// IsValidAddress decodes the bech32 string and requires the chain's
// account prefix. No network I/O.
func (a *CosmosAdapter) IsValidAddress(chainID, address string) bool {
	prefix, ok := cosmosPrefixes[chainID]
	if !ok {
		return false
	}
	hrp, _, err := bech32.Decode(address, 1023)
	return err == nil && hrp == prefix
}

func (a *CosmosAdapter) GetNativeBalance(ctx context.Context, chainID, address string) (*types.TokenBalance, error) {
	info, ok := a.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrChainNotSupported, chainID)
	}
	return a.denomBalance(ctx, info, address, info.NativeToken)
}

func (a *CosmosAdapter) GetTokenBalance(ctx context.Context, chainID, address, tokenIdentifier string) (*types.TokenBalance, error) {
	info, ok := a.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrChainNotSupported, chainID)
	}
	token, err := a.ResolveToken(ctx, chainID, tokenIdentifier)
	if err != nil {
		return nil, err
	}
	return a.denomBalance(ctx, info, address, *token)
}

func (a *CosmosAdapter) GetTokenBalances(ctx context.Context, chainID, address string, tokenIdentifiers []string) ([]types.TokenBalance, error) {
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

// ResolveToken maps a symbol or denom to token metadata. Unknown denoms
// are resolved through the bank module's denom metadata endpoint.
func (a *CosmosAdapter) ResolveToken(ctx context.Context, chainID, symbolOrAddress string) (*types.TokenInfo, error) {
	info, ok := a.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrChainNotSupported, chainID)
	}
	upper := strings.ToUpper(symbolOrAddress)
	if upper == info.NativeToken.Symbol || symbolOrAddress == info.NativeToken.Address {
		native := info.NativeToken
		return &native, nil
	}
	if known, ok := lookupKnownToken(chainID, upper); ok {
		return &known, nil
	}
	if strings.HasPrefix(symbolOrAddress, "ibc/") || strings.HasPrefix(symbolOrAddress, "u") || strings.HasPrefix(symbolOrAddress, "factory/") {
		return a.resolveDenom(ctx, info, symbolOrAddress)
	}
	return nil, fmt.Errorf("%w: %q on %s", types.ErrTokenNotFound, symbolOrAddress, chainID)
}

type denomMetadataResponse struct {
	Metadata struct {
		Description string `json:"description"`
		Base        string `json:"base"`
		Display     string `json:"display"`
		Name        string `json:"name"`
		Symbol      string `json:"symbol"`
		DenomUnits  []struct {
			Denom    string `json:"denom"`
			Exponent int    `json:"exponent"`
		} `json:"denom_units"`
	} `json:"metadata"`
}

func (a *CosmosAdapter) resolveDenom(ctx context.Context, info types.ChainInfo, denom string) (*types.TokenInfo, error) {
	endpoint := info.RPCEndpoint + "/cosmos/bank/v1beta1/denoms_metadata/" + url.PathEscape(denom)
	var resp denomMetadataResponse
	if err := a.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("%w: denom %s: %v", types.ErrTokenNotFound, denom, err)
	}
	if resp.Metadata.Base == "" {
		return nil, fmt.Errorf("%w: denom %s has no metadata", types.ErrTokenNotFound, denom)
	}

	// The display unit's exponent gives the human decimals.
	decimals := 6
	for _, unit := range resp.Metadata.DenomUnits {
		if unit.Denom == resp.Metadata.Display {
			decimals = unit.Exponent
		}
	}
	symbol := resp.Metadata.Symbol
	if symbol == "" {
		symbol = strings.ToUpper(resp.Metadata.Display)
	}
	return &types.TokenInfo{
		Symbol:   symbol,
		Name:     resp.Metadata.Name,
		Decimals: decimals,
		Address:  resp.Metadata.Base,
		ChainID:  info.ID,
	}, nil
}

type balanceByDenomResponse struct {
	Balance struct {
		Denom  string `json:"denom"`
		Amount string `json:"amount"`
	} `json:"balance"`
}

func (a *CosmosAdapter) denomBalance(ctx context.Context, info types.ChainInfo, address string, token types.TokenInfo) (*types.TokenBalance, error) {
	if !a.IsValidAddress(info.ID, address) {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidAddress, address)
	}
	endpoint := fmt.Sprintf("%s/cosmos/bank/v1beta1/balances/%s/by_denom?denom=%s",
		info.RPCEndpoint, url.PathEscape(address), url.QueryEscape(token.Address))
	var resp balanceByDenomResponse
	if err := a.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s balance of %s: %v", types.ErrProviderFailure, info.ID, token.Symbol, err)
	}
	amount := resp.Balance.Amount
	if amount == "" {
		amount = "0"
	}
	raw, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, fmt.Errorf("%w: bad amount %q for %s", types.ErrProviderFailure, amount, token.Symbol)
	}
	return newBalance(token, raw)
}

func (a *CosmosAdapter) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lcd returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
