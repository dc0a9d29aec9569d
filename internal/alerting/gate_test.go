package alerting

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate_InitiallyOpen(t *testing.T) {
	g := NewGate()
	assert.True(t, g.Allow(0))
	assert.Equal(t, int64(0), g.Deadline())
}

func TestGate_RaiseIsMonotonic(t *testing.T) {
	g := NewGate()

	assert.Equal(t, int64(5000), g.Raise(5000))
	assert.Equal(t, int64(5000), g.Raise(3000), "lower deadline never shortens suppression")
	assert.Equal(t, int64(8000), g.Raise(8000))

	assert.False(t, g.Allow(7999))
	assert.True(t, g.Allow(8000))
}

func TestGate_ConcurrentRaiseKeepsMax(t *testing.T) {
	g := NewGate()

	var wg sync.WaitGroup
	for i := int64(1); i <= 200; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			g.Raise(v * 10)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(2000), g.Deadline())
}
