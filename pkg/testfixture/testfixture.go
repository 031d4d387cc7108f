// Package testfixture loads golden chain-activity fixtures from YAML, the
// same `gopkg.in/yaml.v3` idiom the native host uses for its own
// configuration files, so ingestor decode logic can be exercised offline
// against recorded payloads instead of a live RPC endpoint.
package testfixture

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"
)

// EVMLogRecord is a recorded fungible-token transfer log.
type EVMLogRecord struct {
	TxHash         string   `yaml:"tx_hash"`
	BlockHash      string   `yaml:"block_hash"`
	LogIndex       uint     `yaml:"log_index"`
	Topics         []string `yaml:"topics"`
	DataHex        string   `yaml:"data_hex"`
	BlockTimestamp uint64   `yaml:"block_timestamp"`
}

// Value decodes DataHex as a big-endian unsigned integer, per spec §4.4's
// fungible-token log decoding rule.
func (r EVMLogRecord) Value() (*big.Int, error) {
	raw, err := hex.DecodeString(trimHexPrefix(r.DataHex))
	if err != nil {
		return nil, fmt.Errorf("decode data_hex: %w", err)
	}
	return new(big.Int).SetBytes(raw), nil
}

// EVMTransactionRecord is a recorded block transaction.
type EVMTransactionRecord struct {
	Hash  string `yaml:"hash"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Value string `yaml:"value"`
}

// EVMBlockRecord is a recorded block with its full transaction bodies.
type EVMBlockRecord struct {
	Number       uint64                  `yaml:"number"`
	Timestamp    uint64                  `yaml:"timestamp"`
	Transactions []EVMTransactionRecord  `yaml:"transactions"`
}

// SolanaTransactionRecord is a recorded confirmed Solana transaction.
type SolanaTransactionRecord struct {
	Signature   string   `yaml:"signature"`
	Slot        uint64   `yaml:"slot"`
	BlockTime   int64    `yaml:"block_time"`
	AccountKeys []string `yaml:"account_keys"`
}

// Fixture is the top-level golden-data document.
type Fixture struct {
	EVMLogs            []EVMLogRecord            `yaml:"evm_logs"`
	EVMBlocks          []EVMBlockRecord          `yaml:"evm_blocks"`
	SolanaTransactions []SolanaTransactionRecord `yaml:"solana_transactions"`
}

// Load reads and parses a fixture file from path.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
