package cuckoo

import (
	"fmt"
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// goldenGamma is mixed into the second salt so the two salts differ even
// if the generator repeats itself. Distinct salts do not make the index
// functions distinct: with a power-of-two capacity, salts that agree in
// their low bits give every key the same index in both tables.
const goldenGamma uint64 = 0x9e3779b97f4a7c15

// baseHash is the keyed base hash H. Keys are rendered through their
// default formatting and summed with xxhash, so any comparable type works.
func baseHash[T comparable](key T) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%v", key))
}

// newSalts draws a fresh salt pair. The pair is distinct by construction;
// the loop guards against the one-in-2^64 degenerate draw.
func newSalts() (uint64, uint64) {
	s1 := rand.Uint64()
	s2 := rand.Uint64() ^ goldenGamma
	for s1 == s2 {
		s2 = rand.Uint64() ^ goldenGamma
	}
	return s1, s2
}

// index maps a precomputed base hash to a slot index under the given salt.
func index(sum, salt uint64, capacity int) int {
	return int((sum ^ salt) % uint64(capacity))
}
