// Package service holds the aggregation engines that fan work out across
// registered scanners and yield sources through the read-only registry
// context.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/format"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/types"
)

// taskTimeout caps each (scanner, chain) or yield-source task so one
// stalled RPC cannot delay the join indefinitely. A timed-out task is
// treated like any other failed task: empty contribution.
const taskTimeout = 20 * time.Second

// ScanEngine aggregates wallet positions across every registered
// protocol scanner and candidate chain.
type ScanEngine struct {
	logger zerolog.Logger
	rctx   types.Context
}

func NewScanEngine(rctx types.Context, logger zerolog.Logger) *ScanEngine {
	return &ScanEngine{
		logger: logger.With().Str("component", "scan_engine").Logger(),
		rctx:   rctx,
	}
}

type scanTask struct {
	scanner types.ProtocolScanner
	chainID string
}

// ScanWallet fans (scanner, chain) pairs out concurrently and folds the
// surviving results into one report. A failing pair contributes nothing;
// it never aborts the scan.
func (e *ScanEngine) ScanWallet(ctx context.Context, req types.WalletScanRequest) (*types.WalletScanResult, error) {
	chains, err := e.candidateChains(req)
	if err != nil {
		return nil, err
	}
	scanners := e.candidateScanners(req)
	tasks := buildScanTasks(scanners, chains)

	e.logger.Debug().
		Str("wallet", req.Address).
		Int("chains", len(chains)).
		Int("scanners", len(scanners)).
		Int("tasks", len(tasks)).
		Msg("starting wallet scan")

	results := make([][]types.ProtocolPosition, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(slot int, task scanTask) {
			defer wg.Done()
			results[slot] = e.runScanTask(ctx, task, req.Address)
		}(i, task)
	}
	wg.Wait()

	var positions []types.ProtocolPosition
	for _, contribution := range results {
		positions = append(positions, contribution...)
	}
	return e.reduce(req.Address, chains, scanners, positions), nil
}

// runScanTask executes one (scanner, chain) pair under its own timeout
// and converts every failure mode, panics included, into an empty
// contribution.
func (e *ScanEngine) runScanTask(ctx context.Context, task scanTask, wallet string) (positions []types.ProtocolPosition) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().
				Str("protocol", task.scanner.ProtocolName()).
				Str("chain", task.chainID).
				Interface("panic", r).
				Msg("scanner panicked, dropping its contribution")
			positions = nil
		}
	}()

	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	found, err := task.scanner.ScanPositions(taskCtx, task.chainID, wallet, e.rctx)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("protocol", task.scanner.ProtocolName()).
			Str("chain", task.chainID).
			Msg("scanner failed, dropping its contribution")
		return nil
	}
	return found
}

// candidateChains returns the explicit subset when given, otherwise every
// registered chain whose adapter accepts the address format.
func (e *ScanEngine) candidateChains(req types.WalletScanRequest) ([]string, error) {
	if len(req.ChainIDs) > 0 {
		for _, chainID := range req.ChainIDs {
			if _, err := e.rctx.GetChainAdapterForChain(chainID); err != nil {
				return nil, fmt.Errorf("scan request: %w", err)
			}
		}
		return req.ChainIDs, nil
	}

	var chains []string
	for _, info := range e.rctx.GetAllChains() {
		adapter, err := e.rctx.GetChainAdapterForChain(info.ID)
		if err != nil {
			continue
		}
		if adapter.IsValidAddress(info.ID, req.Address) {
			chains = append(chains, info.ID)
		}
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("%w: %q matches no registered chain's format", types.ErrInvalidAddress, req.Address)
	}
	sort.Strings(chains)
	return chains, nil
}

func (e *ScanEngine) candidateScanners(req types.WalletScanRequest) []types.ProtocolScanner {
	all := e.rctx.GetScanners()
	if len(req.Protocols) == 0 {
		return all
	}
	wanted := make(map[string]bool, len(req.Protocols))
	for _, name := range req.Protocols {
		wanted[strings.ToLower(name)] = true
	}
	var out []types.ProtocolScanner
	for _, scanner := range all {
		if wanted[strings.ToLower(scanner.ProtocolName())] {
			out = append(out, scanner)
		}
	}
	return out
}

// buildScanTasks crosses scanners with chains, honoring each scanner's
// supported-chain list. An empty list means the scanner runs everywhere.
func buildScanTasks(scanners []types.ProtocolScanner, chains []string) []scanTask {
	var tasks []scanTask
	for _, scanner := range scanners {
		supported := scanner.SupportedChains()
		for _, chainID := range chains {
			if len(supported) > 0 && !containsString(supported, chainID) {
				continue
			}
			tasks = append(tasks, scanTask{scanner: scanner, chainID: chainID})
		}
	}
	return tasks
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// reduce folds the flat position list into the per-protocol and
// per-chain summaries. Debt positions carry negative values and net
// against supply in TotalUSD; GrossUSD counts only positive exposure.
func (e *ScanEngine) reduce(wallet string, chains []string, scanners []types.ProtocolScanner, positions []types.ProtocolPosition) *types.WalletScanResult {
	sort.SliceStable(positions, func(i, j int) bool {
		if positions[i].ChainID != positions[j].ChainID {
			return positions[i].ChainID < positions[j].ChainID
		}
		if positions[i].Protocol != positions[j].Protocol {
			return positions[i].Protocol < positions[j].Protocol
		}
		return positions[i].Kind < positions[j].Kind
	})

	byProtocol := make(map[string]types.GroupSummary)
	byChain := make(map[string]types.GroupSummary)
	total := 0.0
	for _, pos := range positions {
		total += pos.TotalValueUSD
		byProtocol[pos.Protocol] = accumulate(byProtocol[pos.Protocol], pos.TotalValueUSD)
		byChain[pos.ChainID] = accumulate(byChain[pos.ChainID], pos.TotalValueUSD)
	}

	protocolNames := make([]string, 0, len(scanners))
	seen := make(map[string]bool)
	for _, scanner := range scanners {
		name := scanner.ProtocolName()
		if !seen[name] {
			seen[name] = true
			protocolNames = append(protocolNames, name)
		}
	}
	sort.Strings(protocolNames)

	sortedChains := append([]string(nil), chains...)
	sort.Strings(sortedChains)

	return &types.WalletScanResult{
		WalletAddress:     wallet,
		TotalValueUSD:     total,
		TotalUSDFormatted: format.USD(total),
		ChainsScanned:     sortedChains,
		ProtocolsScanned:  protocolNames,
		ByProtocol:        byProtocol,
		ByChain:           byChain,
		Positions:         positions,
	}
}

func accumulate(summary types.GroupSummary, valueUSD float64) types.GroupSummary {
	summary.TotalUSD += valueUSD
	if valueUSD > 0 {
		summary.GrossUSD += valueUSD
	}
	summary.Positions++
	summary.TotalUSDFormatted = format.USD(summary.TotalUSD)
	return summary
}
