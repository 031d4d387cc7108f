package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeIngestor struct {
	err     error
	blocked chan struct{}
}

func (f *fakeIngestor) Run(ctx context.Context) error {
	if f.blocked != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.blocked:
			return f.err
		}
	}
	return f.err
}

func TestRun_EitherTerminationIsFatal(t *testing.T) {
	failing := &fakeIngestor{err: errors.New("connection reset")}
	blocked := &fakeIngestor{blocked: make(chan struct{})}

	s := New(failing, blocked, zap.NewNop())
	err := s.Run(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "evm ingestor terminated")
}

func TestRun_ParentCancellationIsNotFatal(t *testing.T) {
	a := &fakeIngestor{blocked: make(chan struct{})}
	b := &fakeIngestor{blocked: make(chan struct{})}

	s := New(a, b, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
