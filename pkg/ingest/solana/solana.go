// Package solana watches a set of Solana-like addresses for transaction
// activity. Unlike the EVM ingestor there is no subscription transport in
// play here: every watched address gets its own polling goroutine, grounded
// on the same rpc.New / solana.Signature / base58 shapes the native host's
// Jito broadcast channel already uses for transaction-status lookups.
package solana

import (
	"context"
	"strings"
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/algonius/chain-watcher/pkg/broker"
	"github.com/algonius/chain-watcher/pkg/dedupe"
	"github.com/algonius/chain-watcher/pkg/event"
)

const (
	pollInterval  = 5 * time.Second
	sigFetchLimit = 25

	// rpcRateLimit bounds the combined request rate across every watched
	// address's poller, independent of each one's own 5s ticker (a busy
	// address's signature page can fan out into many GetTransaction calls).
	rpcRateLimit rate.Limit = 15
	rpcBurst                = 30
)

// Config configures a single Solana ingestor instance.
type Config struct {
	RPCURL  string
	Network string
	Watched []solanago.PublicKey
}

// Ingestor observes a set of Solana addresses and publishes solana_tx events
// for every confirmed transaction touching them.
type Ingestor struct {
	cfg       Config
	client    *rpc.Client
	limiter   *rate.Limiter
	store     *dedupe.Store
	publisher *broker.Publisher
	logger    *zap.Logger
}

// New builds a Solana ingestor. A `ws`/`wss` RPC URL signals streaming
// intent, but no subscription protocol is used here; it is degraded to
// polling against the equivalent HTTP(S) URL per spec, since pub/sub support
// has proven unstable across RPC providers.
func New(cfg Config, store *dedupe.Store, publisher *broker.Publisher, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		cfg:       cfg,
		client:    rpc.New(httpEquivalentURL(cfg.RPCURL)),
		limiter:   rate.NewLimiter(rpcRateLimit, rpcBurst),
		store:     store,
		publisher: publisher,
		logger:    logger.Named("solana"),
	}
}

func httpEquivalentURL(raw string) string {
	switch {
	case strings.HasPrefix(raw, "wss:"):
		return "https:" + strings.TrimPrefix(raw, "wss:")
	case strings.HasPrefix(raw, "ws:"):
		return "http:" + strings.TrimPrefix(raw, "ws:")
	default:
		return raw
	}
}

// Run blocks until ctx is cancelled. If the watched address list is empty
// the ingestor is inactive: it idles until cancellation rather than starting
// any poller, so the supervisor never observes it as a terminated task.
func (i *Ingestor) Run(ctx context.Context) error {
	if len(i.cfg.Watched) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	var wg sync.WaitGroup
	wg.Add(len(i.cfg.Watched))
	for _, addr := range i.cfg.Watched {
		addr := addr
		go func() {
			defer wg.Done()
			i.watchAddress(ctx, addr)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (i *Ingestor) watchAddress(ctx context.Context, addr solanago.PublicKey) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.pollAddress(ctx, addr)
		}
	}
}

func (i *Ingestor) pollAddress(ctx context.Context, addr solanago.PublicKey) {
	if err := i.limiter.Wait(ctx); err != nil {
		return
	}

	limit := sigFetchLimit
	sigs, err := i.client.GetSignaturesForAddressWithOpts(ctx, addr, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		i.logger.Warn("failed to fetch signatures", zap.String("address", addr.String()), zap.Error(err))
		return
	}

	for _, sig := range sigs {
		if sig == nil {
			continue
		}
		eventID := event.SolEventID(sig.Signature.String())
		if i.store.Has(eventID) {
			continue
		}
		i.processSignature(ctx, addr, sig.Signature)
	}
}

func (i *Ingestor) processSignature(ctx context.Context, addr solanago.PublicKey, sig solanago.Signature) {
	if err := i.limiter.Wait(ctx); err != nil {
		return
	}

	maxVersion := uint64(0)
	tx, err := i.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solanago.EncodingJSONParsed,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		i.logger.Warn("failed to fetch transaction", zap.String("signature", sig.String()), zap.Error(err))
		return
	}
	if tx == nil || tx.Transaction == nil {
		return
	}

	parsed, err := tx.Transaction.GetParsedTransaction()
	if err != nil {
		i.logger.Warn("failed to decode parsed transaction", zap.String("signature", sig.String()), zap.Error(err))
		return
	}
	if !accountKeyPresent(parsed, addr) {
		return
	}

	blockTime := int64(0)
	if tx.BlockTime != nil {
		blockTime = int64(*tx.BlockTime)
	}

	slot := tx.Slot
	e := &event.Event{
		EventID:   event.SolEventID(sig.String()),
		Chain:     event.ChainSolana,
		Network:   i.cfg.Network,
		TxHash:    sig.String(),
		Timestamp: time.Unix(blockTime, 0).UTC().Format(time.RFC3339),
		EventType: event.TypeSolanaTx,
		Slot:      &slot,
	}
	i.publish(ctx, e)
	i.store.AdvanceSolSlot(tx.Slot)
}

func accountKeyPresent(tx *rpc.ParsedTransaction, addr solanago.PublicKey) bool {
	for _, k := range tx.Message.AccountKeys {
		if k.PublicKey.Equals(addr) {
			return true
		}
	}
	return false
}

func (i *Ingestor) publish(ctx context.Context, e *event.Event) {
	if !i.store.CheckAndSet(e.EventID) {
		return
	}
	if err := i.publisher.Publish(ctx, e); err != nil {
		i.logger.Error("failed to publish event", zap.String("event_id", e.EventID), zap.Error(err))
	}
}
