package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/adapters/chain"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/adapters/price"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/plugins/balances"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/plugins/portfolio"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/plugins/scanners"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/plugins/yield"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/internal/plugins/yieldsource"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/cache"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/registry"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/server"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/version"
)

func main() {
	_ = godotenv.Load()

	logger := newLogger()
	logger.Info().Str("build", version.String()).Msg("starting")
	cfg := loadConfig()

	reg := registry.New(cfg, logger)
	if err := wireRegistry(reg, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("registry wiring failed")
	}
	reg.Freeze()

	results := newResultCache(logger)
	defer results.Close()

	srv := server.New(reg, results, server.Config{
		ListenAddr: envOr("LISTEN_ADDR", ":8080"),
		JWTSecret:  []byte(os.Getenv("JWT_SECRET")),
	}, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("shutdown error")
		}
	}()

	if err := srv.Serve(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// loadConfig builds the read-only registry config from the environment.
// Per-chain RPC endpoints come from RPC_<CHAIN> variables, e.g.
// RPC_ETHEREUM, RPC_SOLANA, RPC_OSMOSIS.
func loadConfig() types.StaticConfig {
	overrides := make(map[string]string)
	apiKeys := make(map[string]string)
	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || val == "" {
			continue
		}
		switch {
		case strings.HasPrefix(key, "RPC_"):
			overrides[strings.ToLower(strings.TrimPrefix(key, "RPC_"))] = val
		case strings.HasPrefix(key, "APIKEY_"):
			apiKeys[strings.ToLower(strings.TrimPrefix(key, "APIKEY_"))] = val
		}
	}
	return types.StaticConfig{RPCOverrides: overrides, APIKeys: apiKeys}
}

func wireRegistry(reg *registry.Registry, cfg types.StaticConfig, logger zerolog.Logger) error {
	evm, err := chain.NewEVMAdapter(cfg, logger)
	if err != nil {
		return err
	}
	sol, err := chain.NewSolanaAdapter(cfg, logger)
	if err != nil {
		return err
	}
	cosmos := chain.NewCosmosAdapter(cfg, logger)

	for _, adapter := range []types.ChainAdapter{evm, sol, cosmos} {
		if err := reg.RegisterChainAdapter(adapter); err != nil {
			return err
		}
	}

	feed, err := price.NewDexScreenerFeed(logger)
	if err != nil {
		return err
	}

	scannerList := []types.ProtocolScanner{
		scanners.NewNativeBalanceScanner(feed, logger),
		scanners.NewERC20Scanner(feed, evmChainIDs(evm), logger),
		scanners.NewAaveSupplyScanner(feed, logger),
	}
	for _, s := range scannerList {
		if err := reg.RegisterScanner(s); err != nil {
			return err
		}
	}

	aaveSource, err := yieldsource.NewAaveV3Source(logger)
	if err != nil {
		return err
	}
	for _, src := range []types.YieldSource{yieldsource.NewDefiLlamaSource(logger), aaveSource} {
		if err := reg.RegisterYieldSource(src); err != nil {
			return err
		}
	}

	ctx := context.Background()
	for _, plugin := range []types.Plugin{
		balances.New(logger),
		portfolio.New(logger),
		yield.New(feed, logger),
	} {
		if err := reg.RegisterPlugin(ctx, plugin); err != nil {
			return err
		}
	}
	return nil
}

func evmChainIDs(evm *chain.EVMAdapter) []string {
	infos := evm.GetSupportedChains()
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	return ids
}

// newResultCache returns the Redis-backed tool result cache when
// REDIS_ENABLED is set, falling back to a no-op cache on any failure.
func newResultCache(logger zerolog.Logger) cache.Cache {
	if !envBool("REDIS_ENABLED") {
		return cache.NoOpCache{}
	}
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Address:   envOr("REDIS_ADDRESS", "localhost:6379"),
		Username:  os.Getenv("REDIS_USERNAME"),
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        db,
		KeyPrefix: envOr("REDIS_KEY_PREFIX", "chainpilot:"),
		UseTLS:    envBool("REDIS_USE_TLS"),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, continuing without result cache")
		return cache.NoOpCache{}
	}
	logger.Info().Msg("redis result cache enabled")
	return redisCache
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envBool(key string) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && val
}
