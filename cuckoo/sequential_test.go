package cuckoo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialAddRemoveContains(t *testing.T) {
	s := NewSequential[int](16)

	assert.True(t, s.Add(1), "1 should be newly added")
	assert.True(t, s.Add(2), "2 should be newly added")
	assert.True(t, s.Add(3), "3 should be newly added")
	assert.True(t, s.Contains(2), "2 should be present")
	assert.True(t, s.Remove(2), "2 should be removed")
	assert.False(t, s.Contains(2), "2 should be gone after remove")
	assert.Equal(t, 2, s.Size(), "two keys should remain")
}

func TestSequentialDuplicateAdd(t *testing.T) {
	s := NewSequential[int](16)

	assert.True(t, s.Add(7), "first add should succeed")
	assert.False(t, s.Add(7), "second add of the same key should fail")
	assert.True(t, s.Remove(7), "first remove should succeed")
	assert.False(t, s.Remove(7), "second remove should fail")
	assert.False(t, s.Contains(7), "key should be gone")
	assert.Equal(t, 0, s.Size())
}

func TestSequentialGrowsUnderPressure(t *testing.T) {
	s := NewSequential[int](4)

	for i := 1; i <= 32; i++ {
		assert.True(t, s.Add(i), "add %d should succeed", i)
	}
	assert.Equal(t, 32, s.Size(), "all 32 keys should survive the resizes")
	for i := 1; i <= 32; i++ {
		assert.True(t, s.Contains(i), "key %d should survive the resizes", i)
	}
	assert.Greater(t, s.capacity, 4, "capacity should have doubled at least once")
}

func TestSequentialPopulateSkipsDuplicates(t *testing.T) {
	s := NewSequential[int](16)

	added := s.Populate([]int{5, 5, 6})
	assert.Equal(t, 2, added, "duplicate should not count as added")
	assert.Equal(t, 2, s.Size())
}

func TestSequentialStrings(t *testing.T) {
	s := NewSequential[string](8)

	assert.True(t, s.Add("alpha"))
	assert.True(t, s.Add("beta"))
	assert.False(t, s.Add("alpha"), "duplicate string should fail")
	assert.True(t, s.Contains("beta"))
	assert.Equal(t, 2, s.Size())
}

// TestSequentialMatchesModel drives the set against a map model and checks
// every result and the size law along the way.
func TestSequentialMatchesModel(t *testing.T) {
	s := NewSequential[int](8)
	model := make(map[int]struct{})
	rng := rand.New(rand.NewSource(42))

	adds, removes := 0, 0
	for i := 0; i < 20000; i++ {
		key := rng.Intn(500)
		switch rng.Intn(3) {
		case 0:
			_, inModel := model[key]
			got := s.Add(key)
			require.Equal(t, !inModel, got, "add(%d) disagrees with model", key)
			if got {
				model[key] = struct{}{}
				adds++
			}
		case 1:
			_, inModel := model[key]
			got := s.Remove(key)
			require.Equal(t, inModel, got, "remove(%d) disagrees with model", key)
			if got {
				delete(model, key)
				removes++
			}
		default:
			_, inModel := model[key]
			require.Equal(t, inModel, s.Contains(key), "contains(%d) disagrees with model", key)
		}
	}

	assert.Equal(t, len(model), s.Size(), "size should match the model")
	assert.Equal(t, adds-removes, s.Size(), "size law should hold")
}

// TestSequentialPlacement checks that every occupied slot sits at one of
// the key's two candidate indices under the current salts.
func TestSequentialPlacement(t *testing.T) {
	s := NewSequential[int](4)
	for i := 0; i < 100; i++ {
		s.Add(i)
	}

	for table := 0; table < 2; table++ {
		for i, sl := range s.tables[table] {
			if !sl.occupied {
				continue
			}
			assert.Equal(t, s.index(table, sl.value), i,
				"key %d in table %d is off its candidate slot", sl.value, table)
		}
	}
}

func TestSequentialSaltsDiffer(t *testing.T) {
	s := NewSequential[int](16)
	assert.NotEqual(t, s.salt1, s.salt2, "salts must be distinct")

	s.resize(0)
	assert.NotEqual(t, s.salt1, s.salt2, "salts must stay distinct after resize")
}
