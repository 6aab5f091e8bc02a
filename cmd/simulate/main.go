// Command simulate runs one wallet scan and one yield query against a
// fully wired registry, printing both results as indented JSON. Useful
// for eyeballing live provider behavior without starting the server.
//
// Usage:
//
//	simulate <wallet-address> [token] [amount]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/adapters/chain"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/adapters/cost"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/adapters/price"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/core/service"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/plugins/scanners"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/plugins/yieldsource"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/registry"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: simulate <wallet-address> [token] [amount]")
		os.Exit(2)
	}
	address := os.Args[1]
	token := "USDC"
	if len(os.Args) > 2 {
		token = os.Args[2]
	}
	amount := 1000.0
	if len(os.Args) > 3 {
		parsed, err := strconv.ParseFloat(os.Args[3], 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad amount %q: %v\n", os.Args[3], err)
			os.Exit(2)
		}
		amount = parsed
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	cfg := types.StaticConfig{}

	reg := registry.New(cfg, logger)
	feed, err := wire(reg, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wiring failed: %v\n", err)
		os.Exit(1)
	}
	rctx := reg.Freeze()

	ctx := context.Background()

	scanner := service.NewScanEngine(rctx, logger)
	summary, err := scanner.ScanWallet(ctx, types.WalletScanRequest{Address: address})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(1)
	}
	printJSON("wallet scan", summary)

	estimator := cost.NewEstimator(rctx, feed, logger)
	yields := service.NewYieldEngine(rctx, estimator, logger)
	ranking, err := yields.FindBestYield(ctx, types.YieldRequest{
		TokenSymbol:    token,
		Amount:         amount,
		CurrentChainID: "ethereum",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "yield query failed: %v\n", err)
		os.Exit(1)
	}
	printJSON("yield ranking", ranking)
}

func wire(reg *registry.Registry, cfg types.StaticConfig, logger zerolog.Logger) (price.Feed, error) {
	evm, err := chain.NewEVMAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	sol, err := chain.NewSolanaAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	for _, adapter := range []types.ChainAdapter{evm, sol, chain.NewCosmosAdapter(cfg, logger)} {
		if err := reg.RegisterChainAdapter(adapter); err != nil {
			return nil, err
		}
	}

	feed, err := price.NewDexScreenerFeed(logger)
	if err != nil {
		return nil, err
	}

	var evmIDs []string
	for _, info := range evm.GetSupportedChains() {
		evmIDs = append(evmIDs, info.ID)
	}
	for _, s := range []types.ProtocolScanner{
		scanners.NewNativeBalanceScanner(feed, logger),
		scanners.NewERC20Scanner(feed, evmIDs, logger),
		scanners.NewAaveSupplyScanner(feed, logger),
	} {
		if err := reg.RegisterScanner(s); err != nil {
			return nil, err
		}
	}

	aaveSource, err := yieldsource.NewAaveV3Source(logger)
	if err != nil {
		return nil, err
	}
	for _, src := range []types.YieldSource{yieldsource.NewDefiLlamaSource(logger), aaveSource} {
		if err := reg.RegisterYieldSource(src); err != nil {
			return nil, err
		}
	}
	return feed, nil
}

func printJSON(label string, v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encoding %s: %v\n", label, err)
		return
	}
	fmt.Printf("--- %s ---\n%s\n", label, out)
}
