// Package evm watches an EVM-compatible chain for native and ERC-20 transfer
// activity. It follows the dial/subscribe shape of the native host's
// ETHChain client, generalized from a signing-and-broadcast client into a
// read-only observer with the two ingestion modes spec.md describes: a
// streaming mode over a websocket RPC endpoint, and a polling mode over an
// HTTP(S) endpoint.
package evm

import (
	"context"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	ethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/algonius/chain-watcher/pkg/broker"
	"github.com/algonius/chain-watcher/pkg/dedupe"
	wErrors "github.com/algonius/chain-watcher/pkg/errors"
	"github.com/algonius/chain-watcher/pkg/event"
	"github.com/algonius/chain-watcher/pkg/utils/limiter"
)

// transferEventSig is the Keccak-256 topic hash of Transfer(address,address,uint256).
var transferEventSig = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

const (
	wsReconnectDelay   = 10 * time.Second
	sessionCooldown    = 5 * time.Second
	pollInterval       = 2 * time.Second
	regressionLookback = 10

	// pollingRPCRateLimit bounds the HTTP request rate issued against the
	// polling-mode RPC endpoint, independent of the 2s scan ticker (a single
	// cycle can issue one request per block plus one receipt fetch per
	// transaction).
	pollingRPCRateLimit rate.Limit = 20
	pollingRPCBurst                = 40
)

// Config configures a single EVM ingestor instance.
type Config struct {
	RPCURL  string
	Network string
	Watched []common.Address
}

// Ingestor observes one EVM-compatible chain and publishes normalized
// transfer events for the watched address set.
type Ingestor struct {
	cfg       Config
	watched   map[common.Address]struct{}
	store     *dedupe.Store
	publisher *broker.Publisher
	logger    *zap.Logger
}

// New builds an EVM ingestor. store and publisher are shared with the rest
// of the process and must already be non-nil.
func New(cfg Config, store *dedupe.Store, publisher *broker.Publisher, logger *zap.Logger) *Ingestor {
	watched := make(map[common.Address]struct{}, len(cfg.Watched))
	for _, a := range cfg.Watched {
		watched[a] = struct{}{}
	}
	return &Ingestor{
		cfg:       cfg,
		watched:   watched,
		store:     store,
		publisher: publisher,
		logger:    logger.Named("evm"),
	}
}

// Run blocks until ctx is cancelled or the ingestor hits a non-recoverable
// error. The connection mode is chosen from the RPC URL's scheme.
func (i *Ingestor) Run(ctx context.Context) error {
	if isWebsocketURL(i.cfg.RPCURL) {
		return i.runStreaming(ctx)
	}
	return i.runPolling(ctx)
}

func isWebsocketURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.HasPrefix(raw, "ws")
	}
	return strings.HasPrefix(u.Scheme, "ws")
}

func (i *Ingestor) watchedFilter(addr common.Address) bool {
	if len(i.watched) == 0 {
		return true
	}
	_, ok := i.watched[addr]
	return ok
}

func isZeroAddress(addr common.Address) bool {
	return addr == common.Address{}
}

// --- streaming mode -------------------------------------------------------

func (i *Ingestor) runStreaming(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		client, err := ethclient.DialContext(ctx, i.cfg.RPCURL)
		if err != nil {
			i.logger.Warn("streaming connect failed, retrying", zap.Error(err))
			if !sleepOrDone(ctx, wsReconnectDelay) {
				return ctx.Err()
			}
			continue
		}

		sessionErr := i.runStreamingSession(ctx, client)
		client.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		i.logger.Warn("streaming session ended, reconnecting", zap.Error(sessionErr))
		if !sleepOrDone(ctx, sessionCooldown) {
			return ctx.Err()
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// runStreamingSession races the native and fungible-token sub-trackers.
// Whichever returns first cancels the other; either return is treated as a
// session failure that triggers a reconnect.
func (i *Ingestor) runStreamingSession(ctx context.Context, client *ethclient.Client) error {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	trackers := 1
	go func() { errCh <- i.runNativeTracker(sessionCtx, client) }()

	if len(i.cfg.Watched) > 0 {
		trackers++
		go func() { errCh <- i.runTokenTracker(sessionCtx, client) }()
	}

	first := <-errCh
	cancel()
	for n := 1; n < trackers; n++ {
		<-errCh
	}
	return first
}

func (i *Ingestor) runNativeTracker(ctx context.Context, client *ethclient.Client) error {
	heads := make(chan *types.Header)
	sub, err := client.SubscribeNewHead(ctx, heads)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case h := <-heads:
			i.processStreamingHead(ctx, client, h)
		}
	}
}

func (i *Ingestor) processStreamingHead(ctx context.Context, client *ethclient.Client, h *types.Header) {
	block, err := client.BlockByHash(ctx, h.Hash())
	if err != nil {
		i.logger.Warn("failed to fetch block for new head", zap.String("hash", h.Hash().Hex()), zap.Error(err))
		return
	}

	ts := strconv.FormatUint(block.Time(), 10)
	for _, tx := range block.Transactions() {
		from, to, ok := senderRecipient(tx)
		if !ok || isZeroAddress(from) {
			continue
		}
		if i.watchedFilter(from) || (to != nil && i.watchedFilter(*to)) {
			i.emitNativeTransfer(ctx, tx, from, to, ts)
		}
	}
	i.store.AdvanceEthBlock(block.NumberU64())
}

func (i *Ingestor) runTokenTracker(ctx context.Context, client *ethclient.Client) error {
	logsCh := make(chan types.Log)
	query := ethereum.FilterQuery{Topics: [][]common.Hash{{transferEventSig}}}
	sub, err := client.SubscribeFilterLogs(ctx, query, logsCh)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case lg := <-logsCh:
			i.handleTransferLog(ctx, client, lg, false)
		}
	}
}

// --- polling mode ----------------------------------------------------------

func (i *Ingestor) runPolling(ctx context.Context) error {
	rpcClient, err := ethrpc.DialHTTPWithClient(i.cfg.RPCURL, &http.Client{
		Transport: limiter.NewRateLimiter(pollingRPCRateLimit, pollingRPCBurst),
	})
	if err != nil {
		return wErrors.NetworkError("dial eth rpc", err)
	}
	client := ethclient.NewClient(rpcClient)
	defer client.Close()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := i.pollOnce(ctx, client); err != nil {
				i.logger.Warn("poll cycle failed", zap.Error(err))
			}
		}
	}
}

func (i *Ingestor) pollOnce(ctx context.Context, client *ethclient.Client) error {
	current, err := client.BlockNumber(ctx)
	if err != nil {
		return wErrors.RPCError("eth_blockNumber", err)
	}
	C := current

	last, hasLast := i.store.LastEthBlock()
	rng := resolvePollRange(C, last, hasLast)
	if rng.regressed {
		i.logger.Warn("chain regression detected",
			zap.Uint64("current_block", C),
			zap.Uint64("previous_watermark", last),
			zap.Uint64("rewound_to", rng.newWatermark))
	}

	if rng.start <= rng.end {
		for n := rng.start; n <= rng.end; n++ {
			if err := i.processBlock(ctx, client, n); err != nil {
				i.logger.Warn("failed to process block", zap.Uint64("block", n), zap.Error(err))
			}
		}
	}

	i.store.SetEthBlock(C)
	return nil
}

// pollRange is the block range to scan in one polling cycle, along with
// whether a chain regression was detected and where the watermark was
// rewound to.
type pollRange struct {
	start, end   uint64
	regressed    bool
	newWatermark uint64
}

// resolvePollRange implements spec's watermark/regression arithmetic:
// first iteration starts at block 0 (or at C if the chain is still at
// genesis); a regression rewinds by regressionLookback blocks; otherwise
// the range resumes just past the previous watermark.
func resolvePollRange(current, last uint64, hasLast bool) pollRange {
	var start uint64
	var lastForRange uint64
	haveLastForRange := false

	regressed := false
	newWatermark := uint64(0)

	switch {
	case !hasLast:
		if current > 0 {
			start = 0
		} else {
			start = current
		}
	case current < last:
		newLast := uint64(0)
		if current > regressionLookback {
			newLast = current - regressionLookback
		}
		start = newLast
		lastForRange = newLast
		haveLastForRange = true
		regressed = true
		newWatermark = newLast
	default:
		start = last
		lastForRange = last
		haveLastForRange = true
	}

	rangeStart := start
	if haveLastForRange && current > start {
		rangeStart = lastForRange + 1
	}
	return pollRange{start: rangeStart, end: current, regressed: regressed, newWatermark: newWatermark}
}

func (i *Ingestor) processBlock(ctx context.Context, client *ethclient.Client, n uint64) error {
	block, err := client.BlockByNumber(ctx, new(big.Int).SetUint64(n))
	if err != nil {
		return wErrors.RPCError("eth_getBlockByNumber", err)
	}

	ts := strconv.FormatUint(block.Time(), 10)
	for _, tx := range block.Transactions() {
		i.processPollingTx(ctx, client, tx, ts)
	}
	return nil
}

func (i *Ingestor) processPollingTx(ctx context.Context, client *ethclient.Client, tx *types.Transaction, timestamp string) {
	from, to, ok := senderRecipient(tx)
	if ok && !isZeroAddress(from) && (i.watchedFilter(from) || (to != nil && i.watchedFilter(*to))) {
		i.emitNativeTransfer(ctx, tx, from, to, timestamp)
	}

	receipt, err := client.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		i.logger.Warn("failed to fetch receipt", zap.String("tx_hash", tx.Hash().Hex()), zap.Error(err))
		return
	}
	for _, lg := range receipt.Logs {
		if lg == nil || len(lg.Topics) == 0 || lg.Topics[0] != transferEventSig {
			continue
		}
		i.handleTransferLog(ctx, client, *lg, true)
	}
}

// --- shared emission paths --------------------------------------------------

func senderRecipient(tx *types.Transaction) (common.Address, *common.Address, bool) {
	signer := types.LatestSignerForChainID(tx.ChainId())
	from, err := types.Sender(signer, tx)
	if err != nil {
		return common.Address{}, nil, false
	}
	return from, tx.To(), true
}

func (i *Ingestor) emitNativeTransfer(ctx context.Context, tx *types.Transaction, from common.Address, to *common.Address, timestamp string) {
	toStr := ""
	if to != nil {
		toStr = to.Hex()
	}
	e := &event.Event{
		EventID:   event.EthNativeEventID(tx.Hash().Hex()),
		Chain:     event.ChainEthereum,
		Network:   i.cfg.Network,
		TxHash:    tx.Hash().Hex(),
		Timestamp: timestamp,
		From:      from.Hex(),
		To:        toStr,
		Value:     tx.Value().String(),
		EventType: event.TypeNativeTransfer,
	}
	i.publish(ctx, e)
}

func (i *Ingestor) handleTransferLog(ctx context.Context, client *ethclient.Client, lg types.Log, indexed bool) {
	if len(lg.Topics) != 3 {
		i.logger.Warn("skipping transfer log with unexpected topic count", zap.Int("topics", len(lg.Topics)))
		return
	}
	from := common.BytesToAddress(lg.Topics[1].Bytes())
	to := common.BytesToAddress(lg.Topics[2].Bytes())

	if !(i.watchedFilter(from) || i.watchedFilter(to)) {
		return
	}

	value := new(big.Int).SetBytes(lg.Data)

	timestamp := ""
	if block, err := client.BlockByHash(ctx, lg.BlockHash); err == nil {
		timestamp = strconv.FormatUint(block.Time(), 10)
	}

	e := &event.Event{
		EventID:   event.EthLogEventID(lg.TxHash.Hex(), lg.Index, indexed),
		Chain:     event.ChainEthereum,
		Network:   i.cfg.Network,
		TxHash:    lg.TxHash.Hex(),
		Timestamp: timestamp,
		From:      from.Hex(),
		To:        to.Hex(),
		Value:     value.String(),
		EventType: event.TypeERC20Transfer,
	}
	i.publish(ctx, e)
}

func (i *Ingestor) publish(ctx context.Context, e *event.Event) {
	if !i.store.CheckAndSet(e.EventID) {
		return
	}
	if err := i.publisher.Publish(ctx, e); err != nil {
		i.logger.Error("failed to publish event", zap.String("event_id", e.EventID), zap.Error(err))
	}
}
