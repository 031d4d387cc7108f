// Package supervisor starts the per-chain ingestors as independent
// long-running tasks and treats either one's termination as fatal to the
// process, per spec §4.6. Reconnect and backoff live inside each ingestor's
// own loop; the supervisor only joins them.
package supervisor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ingestor is the minimal surface the supervisor depends on. Both the EVM
// and Solana ingestors satisfy it; the supervisor shares no other code with
// them, per the "polymorphic ingestor" design note.
type Ingestor interface {
	Run(ctx context.Context) error
}

// Supervisor joins the EVM and Solana ingestor tasks.
type Supervisor struct {
	evm    Ingestor
	sol    Ingestor
	logger *zap.Logger
}

// New builds a Supervisor over the two ingestors.
func New(evm, sol Ingestor, logger *zap.Logger) *Supervisor {
	return &Supervisor{evm: evm, sol: sol, logger: logger.Named("supervisor")}
}

type result struct {
	name string
	err  error
}

// Run starts both ingestors and blocks until ctx is cancelled or either
// ingestor returns. A parent cancellation is reported as context.Canceled;
// any other return is treated as a fatal ingestor termination and reported
// as an error so the caller can exit the process.
func (s *Supervisor) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// runID tags every log line of this run so that restarts (the process is
	// re-exec'd by its supervising init system after a fatal exit) can be told
	// apart in aggregated logs.
	runID := uuid.New().String()
	logger := s.logger.With(zap.String("run_id", runID))

	logger.Info("starting ingestors")

	results := make(chan result, 2)
	go func() { results <- result{"evm", s.evm.Run(runCtx)} }()
	go func() { results <- result{"solana", s.sol.Run(runCtx)} }()

	first := <-results
	cancel()
	second := <-results

	if ctx.Err() != nil {
		return ctx.Err()
	}

	logger.Error("ingestor terminated, stopping the other and exiting",
		zap.String("ingestor", first.name), zap.Error(first.err))
	logger.Info("remaining ingestor stopped",
		zap.String("ingestor", second.name), zap.Error(second.err))

	if first.err != nil {
		return fmt.Errorf("%s ingestor terminated: %w", first.name, first.err)
	}
	return fmt.Errorf("%s ingestor terminated unexpectedly", first.name)
}
