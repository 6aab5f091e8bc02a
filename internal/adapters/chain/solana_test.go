package chain

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

type mockSolanaBackend struct {
	getBalance       func(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	getTokenAccounts func(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	getAccountInfo   func(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

func (m *mockSolanaBackend) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	if m.getBalance == nil {
		return nil, errors.New("unexpected GetBalance")
	}
	return m.getBalance(ctx, account, commitment)
}

func (m *mockSolanaBackend) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	if m.getTokenAccounts == nil {
		return nil, errors.New("unexpected GetTokenAccountsByOwner")
	}
	return m.getTokenAccounts(ctx, owner, conf, opts)
}

func (m *mockSolanaBackend) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if m.getAccountInfo == nil {
		return nil, errors.New("unexpected GetAccountInfo")
	}
	return m.getAccountInfo(ctx, account)
}

func newTestSolanaAdapter(t *testing.T, backend solanaBackend) *SolanaAdapter {
	t.Helper()
	a, err := newSolanaAdapter(zerolog.Nop())
	require.NoError(t, err)
	for _, info := range solanaChains {
		a.chains[info.ID] = info
		a.clients[info.ID] = backend
	}
	return a
}

// tokenAccountsJSON renders a GetTokenAccountsByOwner response carrying
// raw SPL token account bytes with the given amounts.
func tokenAccountsJSON(t *testing.T, owner solana.PublicKey, amounts ...uint64) *rpc.GetTokenAccountsResult {
	t.Helper()
	values := ""
	for i, amount := range amounts {
		data := make([]byte, 165)
		binary.LittleEndian.PutUint64(data[64:72], amount)
		if i > 0 {
			values += ","
		}
		values += fmt.Sprintf(`{"pubkey":%q,"account":{"lamports":2039280,"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","data":[%q,"base64"]}}`,
			owner, base64.StdEncoding.EncodeToString(data))
	}
	var out rpc.GetTokenAccountsResult
	require.NoError(t, json.Unmarshal([]byte(`{"context":{"slot":1},"value":[`+values+`]}`), &out))
	return &out
}

func mintAccountJSON(t *testing.T, decimals byte) *rpc.GetAccountInfoResult {
	t.Helper()
	data := make([]byte, splMintMinLen)
	data[splMintDecimalsOffset] = decimals
	raw := fmt.Sprintf(`{"context":{"slot":1},"value":{"lamports":1,"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","data":[%q,"base64"]}}`,
		base64.StdEncoding.EncodeToString(data))
	var out rpc.GetAccountInfoResult
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return &out
}

func TestSolanaAdapter_IsValidAddress(t *testing.T) {
	a := newTestSolanaAdapter(t, &mockSolanaBackend{})
	wallet := solana.NewWallet().PublicKey().String()

	tests := []struct {
		name    string
		chainID string
		address string
		want    bool
	}{
		{"valid pubkey", "solana", wallet, true},
		{"usdc mint", "solana", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", true},
		{"invalid base58 char", "solana", "0OIl", false},
		{"too short", "solana", "abc", false},
		{"evm address", "solana", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", false},
		{"unknown chain", "ethereum", wallet, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.IsValidAddress(tt.chainID, tt.address))
		})
	}
}

func TestSolanaAdapter_GetNativeBalance(t *testing.T) {
	a := newTestSolanaAdapter(t, &mockSolanaBackend{
		getBalance: func(_ context.Context, _ solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
			return &rpc.GetBalanceResult{Value: 2_500_000_000}, nil
		},
	})

	bal, err := a.GetNativeBalance(context.Background(), "solana", solana.NewWallet().PublicKey().String())
	require.NoError(t, err)
	assert.Equal(t, "2500000000", bal.BalanceRaw)
	assert.Equal(t, "2.5", bal.BalanceFormatted)
	assert.Equal(t, "SOL", bal.Token.Symbol)
}

func TestSolanaAdapter_GetTokenBalance_SumsAccounts(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	a := newTestSolanaAdapter(t, &mockSolanaBackend{
		getTokenAccounts: func(_ context.Context, got solana.PublicKey, conf *rpc.GetTokenAccountsConfig, _ *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
			assert.Equal(t, owner, got)
			require.NotNil(t, conf.Mint)
			assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", conf.Mint.String())
			return tokenAccountsJSON(t, got, 1_000_000, 250_000), nil
		},
	})

	bal, err := a.GetTokenBalance(context.Background(), "solana", owner.String(), "USDC")
	require.NoError(t, err)
	assert.Equal(t, "1250000", bal.BalanceRaw)
	assert.Equal(t, "1.25", bal.BalanceFormatted)
}

func TestSolanaAdapter_GetTokenBalance_NoAccounts(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	a := newTestSolanaAdapter(t, &mockSolanaBackend{
		getTokenAccounts: func(_ context.Context, got solana.PublicKey, _ *rpc.GetTokenAccountsConfig, _ *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
			return tokenAccountsJSON(t, got), nil
		},
	})

	bal, err := a.GetTokenBalance(context.Background(), "solana", owner.String(), "USDC")
	require.NoError(t, err)
	assert.Equal(t, "0", bal.BalanceRaw)
	assert.Equal(t, "0", bal.BalanceFormatted)
}

func TestSolanaAdapter_GetTokenBalance_NativeSentinelRedirects(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	// Only getBalance is stubbed: resolving or scanning token accounts
	// for the sentinel would fail the test through the mock's
	// unexpected-call errors.
	a := newTestSolanaAdapter(t, &mockSolanaBackend{
		getBalance: func(_ context.Context, _ solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
			return &rpc.GetBalanceResult{Value: 7_000_000_000}, nil
		},
	})
	ctx := context.Background()

	for _, ident := range []string{NativeTokenSolana, "SOL", "sol", "WSOL"} {
		bal, err := a.GetTokenBalance(ctx, "solana", owner.String(), ident)
		require.NoError(t, err, "identifier %q", ident)
		assert.Equal(t, "7000000000", bal.BalanceRaw, "identifier %q", ident)
		assert.Equal(t, "7", bal.BalanceFormatted, "identifier %q", ident)
		assert.Equal(t, "SOL", bal.Token.Symbol, "identifier %q", ident)
	}
}

func TestSolanaAdapter_ResolveToken(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	a := newTestSolanaAdapter(t, &mockSolanaBackend{
		getAccountInfo: func(_ context.Context, got solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
			assert.Equal(t, mint, got)
			return mintAccountJSON(t, 8), nil
		},
	})
	ctx := context.Background()

	native, err := a.ResolveToken(ctx, "solana", "sol")
	require.NoError(t, err)
	assert.Equal(t, 9, native.Decimals)
	assert.Equal(t, NativeTokenSolana, native.Address)

	usdc, err := a.ResolveToken(ctx, "solana", "usdc")
	require.NoError(t, err)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", usdc.Address)

	onchain, err := a.ResolveToken(ctx, "solana", mint.String())
	require.NoError(t, err)
	assert.Equal(t, 8, onchain.Decimals)
	assert.Equal(t, mint.String(), onchain.Address)

	_, err = a.ResolveToken(ctx, "solana", "definitely-not-base58!")
	assert.ErrorIs(t, err, types.ErrTokenNotFound)
}
