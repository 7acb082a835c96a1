package cuckoo

import (
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
)

// txState is one generation of the transactional set. Slots hold atomic
// pointers so optimistic readers can inspect them while a writer region
// is being validated against.
type txState[T comparable] struct {
	capacity         int
	maxDisplacements int
	salt1, salt2     uint64
	slots            [2][]atomic.Pointer[T]
}

func newTxState[T comparable](capacity int) *txState[T] {
	salt1, salt2 := newSalts()
	st := &txState[T]{
		capacity:         capacity,
		maxDisplacements: displacementBudget(capacity),
		salt1:            salt1,
		salt2:            salt2,
	}
	st.slots[0] = make([]atomic.Pointer[T], capacity)
	st.slots[1] = make([]atomic.Pointer[T], capacity)
	return st
}

func (st *txState[T]) indexes(key T) (int, int) {
	sum := baseHash(key)
	return index(sum, st.salt1, st.capacity), index(sum, st.salt2, st.capacity)
}

// alternate returns the candidate slot of key in the table it does not
// currently occupy.
func (st *txState[T]) alternate(key T, table int) pathEntry {
	other := 1 - table
	salt := st.salt1
	if other == 1 {
		salt = st.salt2
	}
	return pathEntry{table: other, index: index(baseHash(key), salt, st.capacity)}
}

// lookup inspects both candidate slots. Only valid inside a region or
// under the exclusive resize guard.
func (st *txState[T]) lookup(key T, i0, i1 int) bool {
	if p := st.slots[0][i0].Load(); p != nil && *p == key {
		return true
	}
	if p := st.slots[1][i1].Load(); p != nil && *p == key {
		return true
	}
	return false
}

// TransactionalSet executes each operation's slot reads and writes inside
// an atomic region built on a sequence counter. Readers run
// optimistically: they snapshot the counter, read, and retry if a writer
// committed in between. Writers claim the counter's odd state by
// compare-and-swap; a failed claim is an aborted region that immediately
// retries. Everything with side effects beyond the slots, entry
// allocation, dropped-entry cleanup, resize, happens outside the region.
type TransactionalSet[T comparable] struct {
	state    atomic.Pointer[txState[T]]
	seq      atomic.Uint64
	resizing atomic.Bool
}

// NewTransactional returns an empty set with the given per-table capacity.
func NewTransactional[T comparable](initialCapacity int) *TransactionalSet[T] {
	capacity := normalizeCapacity(initialCapacity)
	s := &TransactionalSet[T]{}
	s.state.Store(newTxState[T](capacity))
	trackTableAlloc(pointerTableBytes(capacity))
	return s
}

// begin claims the writer region. The returned value is passed to commit.
func (s *TransactionalSet[T]) begin() uint64 {
	for {
		v := s.seq.Load()
		if v&1 == 0 && s.seq.CompareAndSwap(v, v+1) {
			return v + 1
		}
		runtime.Gosched()
	}
}

func (s *TransactionalSet[T]) commit(v uint64) {
	s.seq.Store(v + 1)
}

// Add inserts key. The entry is allocated before the region. Inside the
// region the displacement path is probed read-only first, so the region
// either commits a complete insertion or writes nothing at all; a full
// table leaves the region untouched and triggers a resize after commit.
func (s *TransactionalSet[T]) Add(key T) bool {
	entry := new(T)
	*entry = key

	for {
		if s.resizing.Load() {
			runtime.Gosched()
			continue
		}

		v := s.begin()
		st := s.state.Load()
		i0, i1 := st.indexes(key)
		if st.lookup(key, i0, i1) {
			s.commit(v)
			return false
		}
		if st.slots[0][i0].Load() == nil {
			st.slots[0][i0].Store(entry)
			s.commit(v)
			return true
		}
		if st.slots[1][i1].Load() == nil {
			st.slots[1][i1].Store(entry)
			s.commit(v)
			return true
		}

		placed := false
		for _, start := range [2]pathEntry{{table: 0, index: i0}, {table: 1, index: i1}} {
			path, ok := txFindPath(st, start)
			if !ok {
				continue
			}
			txShift(st, path)
			st.slots[start.table][start.index].Store(entry)
			placed = true
			break
		}
		s.commit(v)

		if placed {
			return true
		}
		s.resize(st)
	}
}

// Remove clears the key's slot inside a region. The dropped entry is left
// to the collector after commit.
func (s *TransactionalSet[T]) Remove(key T) bool {
	for {
		if s.resizing.Load() {
			runtime.Gosched()
			continue
		}

		v := s.begin()
		st := s.state.Load()
		i0, i1 := st.indexes(key)
		var dropped *T
		if p := st.slots[0][i0].Load(); p != nil && *p == key {
			dropped = p
			st.slots[0][i0].Store(nil)
		} else if p := st.slots[1][i1].Load(); p != nil && *p == key {
			dropped = p
			st.slots[1][i1].Store(nil)
		}
		s.commit(v)
		return dropped != nil
	}
}

// Contains is a read-only region: snapshot the counter, read both
// candidate slots, and validate that no writer committed in between.
func (s *TransactionalSet[T]) Contains(key T) bool {
	for {
		v := s.seq.Load()
		if v&1 == 1 {
			runtime.Gosched()
			continue
		}
		st := s.state.Load()
		i0, i1 := st.indexes(key)
		found := st.lookup(key, i0, i1)
		if s.seq.Load() == v {
			return found
		}
	}
}

// Size counts occupied slots under a claimed region so the count is a
// consistent snapshot. The driver only calls it after workers join.
func (s *TransactionalSet[T]) Size() int {
	v := s.begin()
	st := s.state.Load()
	count := 0
	for t := 0; t < 2; t++ {
		for i := range st.slots[t] {
			if st.slots[t][i].Load() != nil {
				count++
			}
		}
	}
	s.commit(v)
	return count
}

// Populate adds each key and returns how many were newly inserted.
func (s *TransactionalSet[T]) Populate(keys []T) int {
	added := 0
	for _, key := range keys {
		if s.Add(key) {
			added++
		}
	}
	return added
}

// txFindPath follows occupants to their alternate slots until it reaches
// an empty one. Callers hold the writer region, so the walk is exact.
func txFindPath[T comparable](st *txState[T], start pathEntry) ([]pathEntry, bool) {
	budget := 2 * st.maxDisplacements
	path := []pathEntry{start}
	for len(path) <= budget {
		cur := path[len(path)-1]
		p := st.slots[cur.table][cur.index].Load()
		if p == nil {
			return path, true
		}
		path = append(path, st.alternate(*p, cur.table))
	}
	return nil, false
}

// txShift executes the path last hop first, leaving path[0] empty.
func txShift[T comparable](st *txState[T], path []pathEntry) {
	for j := len(path) - 2; j >= 0; j-- {
		src, dst := path[j], path[j+1]
		st.slots[dst.table][dst.index].Store(st.slots[src.table][src.index].Load())
		st.slots[src.table][src.index].Store(nil)
	}
}

// resize doubles the geometry under the compare-and-set guard. The guard
// admits one resizer; the claimed sequence counter keeps every region out
// while keys are extracted and re-inserted, so the rebuild itself needs
// no regions at all.
func (s *TransactionalSet[T]) resize(trigger *txState[T]) {
	for !s.resizing.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
	defer s.resizing.Store(false)

	v := s.begin()
	defer func() { s.commit(v) }()

	st := s.state.Load()
	if st != trigger {
		// Another thread already grew the tables; retry against them.
		return
	}

	next := newTxState[T](st.capacity * 2)
	for t := 0; t < 2; t++ {
		for i := range st.slots[t] {
			if p := st.slots[t][i].Load(); p != nil {
				txReinsertOrDie(next, p)
			}
		}
	}
	s.state.Store(next)
	trackTableAlloc(pointerTableBytes(next.capacity))
	trackTableFree(pointerTableBytes(st.capacity))
}

// txChain runs a displacement chain in an exclusively held generation and
// returns the entry still floating when the budget runs out, if any.
func txChain[T comparable](st *txState[T], entry *T) *T {
	floating := entry
	for i := 0; i < st.maxDisplacements && floating != nil; i++ {
		if floating = st.swap(0, floating); floating == nil {
			break
		}
		floating = st.swap(1, floating)
	}
	return floating
}

// swap stores the floating entry into its candidate slot of the given
// table and returns the previous occupant.
func (st *txState[T]) swap(table int, floating *T) *T {
	salt := st.salt1
	if table == 1 {
		salt = st.salt2
	}
	i := index(baseHash(*floating), salt, st.capacity)
	prev := st.slots[table][i].Load()
	st.slots[table][i].Store(floating)
	return prev
}

func txReinsertOrDie[T comparable](st *txState[T], entry *T) {
	if floating := txChain(st, entry); floating != nil {
		zap.L().Error("rehash exhausted displacement budget during resize",
			zap.Int("capacity", st.capacity),
			zap.Int("max_displacements", st.maxDisplacements))
		panic(ErrRehashFailed)
	}
}
