package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
}

func TestParseRedisURL_NoAuth(t *testing.T) {
	opts, err := parseRedisURL("redis://localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Empty(t, opts.Password)
	assert.Equal(t, 0, opts.DB)
}

func TestParseRedisDB(t *testing.T) {
	assert.Equal(t, 0, parseRedisDB(""))
	assert.Equal(t, 0, parseRedisDB("/"))
	assert.Equal(t, 0, parseRedisDB("/not-a-number"))
	assert.Equal(t, 2, parseRedisDB("/2"))
	assert.Equal(t, 15, parseRedisDB("/15"))
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("://bad-url", nil)
	require.Error(t, err)
}

func TestNew_ValidURLDoesNotDial(t *testing.T) {
	p, err := New("redis://localhost:6379/0", nil)
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379/0", p.String())
}
