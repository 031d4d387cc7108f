package testfixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ParsesSampleFixture(t *testing.T) {
	f, err := Load("testdata/sample.yaml")
	require.NoError(t, err)

	require.Len(t, f.EVMLogs, 1)
	assert.Equal(t, "0x0101010101010101010101010101010101010101010101010101010101010101", f.EVMLogs[0].TxHash)

	value, err := f.EVMLogs[0].Value()
	require.NoError(t, err)
	assert.Equal(t, "42", value.String())

	require.Len(t, f.EVMBlocks, 1)
	assert.EqualValues(t, 100, f.EVMBlocks[0].Number)
	require.Len(t, f.EVMBlocks[0].Transactions, 1)

	require.Len(t, f.SolanaTransactions, 1)
	assert.EqualValues(t, 12345, f.SolanaTransactions[0].Slot)
	assert.Len(t, f.SolanaTransactions[0].AccountKeys, 2)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}
