package cuckoo

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionalBasicOps(t *testing.T) {
	s := NewTransactional[int](16)

	assert.True(t, s.Add(1))
	assert.True(t, s.Add(2))
	assert.False(t, s.Add(2), "duplicate add should fail")
	assert.True(t, s.Contains(1))
	assert.False(t, s.Contains(9))
	assert.True(t, s.Remove(1))
	assert.False(t, s.Remove(1), "second remove should fail")
	assert.Equal(t, 1, s.Size())
}

func TestTransactionalGrowsUnderPressure(t *testing.T) {
	s := NewTransactional[int](4)

	for i := 1; i <= 64; i++ {
		assert.True(t, s.Add(i), "add %d should succeed", i)
	}
	assert.Equal(t, 64, s.Size())
	for i := 1; i <= 64; i++ {
		assert.True(t, s.Contains(i), "key %d should survive the resizes", i)
	}
}

func TestTransactionalPopulateSkipsDuplicates(t *testing.T) {
	s := NewTransactional[int](16)

	assert.Equal(t, 2, s.Populate([]int{5, 5, 6}))
	assert.Equal(t, 2, s.Size())
}

// TestTransactionalDisjointPairs is the add/remove ping-pong: each worker
// owns a key outside the populated range, so every add and every remove
// must succeed and the populated keys must come through untouched.
func TestTransactionalDisjointPairs(t *testing.T) {
	s := NewTransactional[int](64)
	const workers = 8
	const rounds = 10000

	for i := 1; i <= 100; i++ {
		require.True(t, s.Add(i))
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			key := 101 + worker
			for i := 0; i < rounds; i++ {
				assert.True(t, s.Add(key), "add of worker-owned key must succeed")
				assert.True(t, s.Remove(key), "remove of worker-owned key must succeed")
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 100, s.Size(), "only the populated keys should remain")
	for i := 1; i <= 100; i++ {
		assert.True(t, s.Contains(i), "populated key %d must survive", i)
	}
}

func TestTransactionalMixedWorkload(t *testing.T) {
	s := NewTransactional[int](2000)
	const workers = 4
	const opsPerWorker = 10000
	const keyRange = 10000

	initial := 0
	for i := 1; i <= 1000; i++ {
		if s.Add(i) {
			initial++
		}
	}
	require.Equal(t, 1000, initial)

	var adds, removes atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(worker) + 101))
			for i := 0; i < opsPerWorker; i++ {
				key := 1 + rng.Intn(keyRange)
				switch p := rng.Float64(); {
				case p < 0.8:
					s.Contains(key)
				case p < 0.9:
					if s.Add(key) {
						adds.Add(1)
					}
				default:
					if s.Remove(key) {
						removes.Add(1)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	expected := initial + int(adds.Load()) - int(removes.Load())
	assert.Equal(t, expected, s.Size(), "size law must hold after join")
}

// TestTransactionalResizeUnderLoad shrinks the initial table so resizes
// overlap with optimistic readers and writer regions.
func TestTransactionalResizeUnderLoad(t *testing.T) {
	s := NewTransactional[int](2)
	const workers = 4

	var adds, removes atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			base := worker * 1000
			for i := 0; i < 1000; i++ {
				if s.Add(base + i) {
					adds.Add(1)
				}
				s.Contains(base + i)
				if i%3 == 0 {
					if s.Remove(base + i) {
						removes.Add(1)
					}
				}
			}
		}(w)
	}
	wg.Wait()

	expected := int(adds.Load()) - int(removes.Load())
	assert.Equal(t, expected, s.Size(), "no key may be lost or duplicated across resizes")
}
