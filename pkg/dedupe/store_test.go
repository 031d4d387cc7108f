package dedupe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAndSet_FirstInsertWins(t *testing.T) {
	s := New()
	assert.True(t, s.CheckAndSet("eth:0x01"))
	assert.False(t, s.CheckAndSet("eth:0x01"))
	assert.True(t, s.Has("eth:0x01"))
}

func TestCheckAndSet_ConcurrentCallersExactlyOneWins(t *testing.T) {
	s := New()
	const goroutines = 50
	var wg sync.WaitGroup
	wins := make([]bool, goroutines)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		i := i
		go func() {
			defer wg.Done()
			wins[i] = s.CheckAndSet("sol:sig")
		}()
	}
	wg.Wait()

	winners := 0
	for _, w := range wins {
		if w {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestAdvanceEthBlock_MonotonicAndUnsetInitially(t *testing.T) {
	s := New()
	_, ok := s.LastEthBlock()
	assert.False(t, ok)

	s.AdvanceEthBlock(10)
	v, ok := s.LastEthBlock()
	assert.True(t, ok)
	assert.EqualValues(t, 10, v)

	s.AdvanceEthBlock(5) // must not regress
	v, _ = s.LastEthBlock()
	assert.EqualValues(t, 10, v)

	s.AdvanceEthBlock(20)
	v, _ = s.LastEthBlock()
	assert.EqualValues(t, 20, v)
}

func TestSetEthBlock_AllowsExplicitRegression(t *testing.T) {
	s := New()
	s.AdvanceEthBlock(100)
	s.SetEthBlock(40)
	v, ok := s.LastEthBlock()
	assert.True(t, ok)
	assert.EqualValues(t, 40, v)
}

func TestAdvanceSolSlot_Monotonic(t *testing.T) {
	s := New()
	s.AdvanceSolSlot(5)
	s.AdvanceSolSlot(3)
	v, ok := s.LastSolSlot()
	assert.True(t, ok)
	assert.EqualValues(t, 5, v)
}
