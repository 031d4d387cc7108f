// Command watcher runs the cross-chain transfer watcher: it loads
// configuration from the environment, starts the EVM and Solana ingestors
// under a supervisor, and publishes normalized transfer events to the
// shared broker topic until an ingestor terminates fatally or the process
// receives a shutdown signal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/algonius/chain-watcher/pkg/broker"
	"github.com/algonius/chain-watcher/pkg/config"
	"github.com/algonius/chain-watcher/pkg/dedupe"
	wErrors "github.com/algonius/chain-watcher/pkg/errors"
	evmingest "github.com/algonius/chain-watcher/pkg/ingest/evm"
	solingest "github.com/algonius/chain-watcher/pkg/ingest/solana"
	"github.com/algonius/chain-watcher/pkg/logging"
	"github.com/algonius/chain-watcher/pkg/supervisor"
)

func main() {
	bootstrap, err := logging.New("watcher", os.Getenv("LOG_LEVEL"))
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg, err := config.Load(".env", bootstrap)
	if err != nil {
		bootstrap.Error("failed to load configuration", zap.Error(err))
		os.Exit(1)
	}

	logger, err := logging.New("watcher", cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	evmAddrs, err := parseEthAddresses(cfg.WatchedETH)
	if err != nil {
		logger.Error("invalid watched EVM address, aborting startup", zap.Error(err))
		os.Exit(1)
	}

	solAddrs, err := parseSolAddresses(cfg.WatchedSOL)
	if err != nil {
		logger.Error("invalid watched Solana address, aborting startup", zap.Error(err))
		os.Exit(1)
	}

	publisher, err := broker.New(cfg.RedisURL, logger)
	if err != nil {
		logger.Error("failed to configure broker publisher", zap.Error(err))
		os.Exit(1)
	}

	store := dedupe.New()

	evmIngestor := evmingest.New(evmingest.Config{
		RPCURL:  cfg.EthRPCURL,
		Network: cfg.EthNetwork,
		Watched: evmAddrs,
	}, store, publisher, logger)

	solIngestor := solingest.New(solingest.Config{
		RPCURL:  cfg.SolRPCURL,
		Network: cfg.SolNetwork,
		Watched: solAddrs,
	}, store, publisher, logger)

	sup := supervisor.New(evmIngestor, solIngestor, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("received shutdown signal")
		cancel()
	}()

	runErr := sup.Run(ctx)
	if runErr != nil && ctx.Err() == nil {
		logger.Error("supervisor exited, shutting down", zap.Error(runErr))
		os.Exit(1)
	}

	logger.Info("chain-watcher shutdown complete")
}

func parseEthAddresses(raw []string) ([]common.Address, error) {
	addrs := make([]common.Address, 0, len(raw))
	for _, a := range raw {
		if !common.IsHexAddress(a) {
			return nil, wErrors.InvalidAddressError(a, "ethereum")
		}
		addrs = append(addrs, common.HexToAddress(a))
	}
	return addrs, nil
}

func parseSolAddresses(raw []string) ([]solanago.PublicKey, error) {
	addrs := make([]solanago.PublicKey, 0, len(raw))
	for _, a := range raw {
		pk, err := solanago.PublicKeyFromBase58(a)
		if err != nil {
			return nil, wErrors.InvalidAddressError(a, "solana").WithDetails(err.Error())
		}
		addrs = append(addrs, pk)
	}
	return addrs, nil
}
