package cuckoo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSaltsDistinct(t *testing.T) {
	for i := 0; i < 1000; i++ {
		s1, s2 := newSalts()
		assert.NotEqual(t, s1, s2, "salt pair must be distinct")
	}
}

func TestIndexInBounds(t *testing.T) {
	s1, s2 := newSalts()
	for capacity := 2; capacity <= 64; capacity *= 2 {
		for key := 0; key < 1000; key++ {
			sum := baseHash(key)
			assert.Less(t, index(sum, s1, capacity), capacity)
			assert.GreaterOrEqual(t, index(sum, s1, capacity), 0)
			assert.Less(t, index(sum, s2, capacity), capacity)
		}
	}
}

func TestBaseHashStable(t *testing.T) {
	assert.Equal(t, baseHash(42), baseHash(42), "hash must be deterministic")
	assert.Equal(t, baseHash("key"), baseHash("key"))
}
