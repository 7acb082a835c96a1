package cuckoo

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// concState is one immutable generation of the concurrent set: tables,
// per-slot locks, salts and geometry all travel together so an operation
// can never mix indices from one generation with slots from another.
type concState[T comparable] struct {
	capacity         int
	maxDisplacements int
	salt1, salt2     uint64
	tables           [2][]slot[T]
	locks            [2][]sync.Mutex
}

func newConcState[T comparable](capacity int) *concState[T] {
	salt1, salt2 := newSalts()
	st := &concState[T]{
		capacity:         capacity,
		maxDisplacements: displacementBudget(capacity),
		salt1:            salt1,
		salt2:            salt2,
	}
	st.tables[0] = make([]slot[T], capacity)
	st.tables[1] = make([]slot[T], capacity)
	st.locks[0] = make([]sync.Mutex, capacity)
	st.locks[1] = make([]sync.Mutex, capacity)
	return st
}

// indexes returns the key's candidate slot in each table.
func (st *concState[T]) indexes(key T) (int, int) {
	sum := baseHash(key)
	return index(sum, st.salt1, st.capacity), index(sum, st.salt2, st.capacity)
}

// lookupNoLock inspects both candidate slots. Callers hold both slot locks.
func (st *concState[T]) lookupNoLock(key T, i0, i1 int) bool {
	if st.tables[0][i0].occupied && st.tables[0][i0].value == key {
		return true
	}
	if st.tables[1][i1].occupied && st.tables[1][i1].value == key {
		return true
	}
	return false
}

// pathEntry is one slot on a displacement path.
type pathEntry struct {
	table, index int
}

// alternate returns the candidate slot of key in the table it does not
// currently occupy.
func (st *concState[T]) alternate(key T, table int) pathEntry {
	other := 1 - table
	salt := st.salt1
	if other == 1 {
		salt = st.salt2
	}
	return pathEntry{table: other, index: index(baseHash(key), salt, st.capacity)}
}

// ConcurrentSet is the fine-grained locked backend. Every slot owns a
// mutex; operations lock a key's table-0 slot before its table-1 slot, so
// lock order is uniform and cycle-free. Insertion frees a full candidate
// slot by shifting keys along a displacement path; each shift moves one
// key between its own two candidate slots under both of its locks, so a
// key is never absent from the tables mid-flight. Resize swaps in a whole
// new generation under a dedicated lock while holding every slot lock of
// the old one, so no operation can observe a half-rehashed table.
type ConcurrentSet[T comparable] struct {
	state    atomic.Pointer[concState[T]]
	resizeMu sync.Mutex
}

// NewConcurrent returns an empty set with the given per-table capacity.
func NewConcurrent[T comparable](initialCapacity int) *ConcurrentSet[T] {
	capacity := normalizeCapacity(initialCapacity)
	c := &ConcurrentSet[T]{}
	c.state.Store(newConcState[T](capacity))
	trackTableAlloc(slotTableBytes[T](capacity))
	return c
}

// lockPair acquires both candidate slot locks of a key in table order and
// revalidates the state pointer. A false result means a resize installed a
// new generation while we waited; the caller must retry.
func (c *ConcurrentSet[T]) lockPair(st *concState[T], i0, i1 int) bool {
	st.locks[0][i0].Lock()
	st.locks[1][i1].Lock()
	if c.state.Load() != st {
		st.locks[1][i1].Unlock()
		st.locks[0][i0].Unlock()
		return false
	}
	return true
}

func unlockPair[T comparable](st *concState[T], i0, i1 int) {
	st.locks[1][i1].Unlock()
	st.locks[0][i0].Unlock()
}

// Add inserts key. The fast path places the key under its own two slot
// locks. When both candidates are full, a displacement path is shifted to
// free one of them and the insert is retried; if no bounded path exists
// the set resizes first.
func (c *ConcurrentSet[T]) Add(key T) bool {
	for {
		st := c.state.Load()
		i0, i1 := st.indexes(key)
		if !c.lockPair(st, i0, i1) {
			continue
		}
		if st.lookupNoLock(key, i0, i1) {
			unlockPair(st, i0, i1)
			return false
		}
		if !st.tables[0][i0].occupied {
			st.tables[0][i0] = slot[T]{value: key, occupied: true}
			unlockPair(st, i0, i1)
			return true
		}
		if !st.tables[1][i1].occupied {
			st.tables[1][i1] = slot[T]{value: key, occupied: true}
			unlockPair(st, i0, i1)
			return true
		}
		unlockPair(st, i0, i1)

		if !c.makeRoom(st, i0, i1) {
			c.resize(st)
		}
	}
}

// makeRoom tries to empty one of the two candidate slots by shifting keys
// along a displacement path. It reports false only when neither slot has
// a bounded path to an empty slot, which is the resize trigger; a shift
// lost to a racing mutation reports true and the caller just retries.
func (c *ConcurrentSet[T]) makeRoom(st *concState[T], i0, i1 int) bool {
	for _, start := range [2]pathEntry{{table: 0, index: i0}, {table: 1, index: i1}} {
		path, ok := c.findPath(st, start)
		if !ok {
			continue
		}
		c.shiftPath(st, path)
		return true
	}
	return false
}

// findPath follows occupants to their alternate slots until it reaches an
// empty one. The walk is advisory: slots are peeked one at a time, and
// every hop is revalidated when the shift executes.
func (c *ConcurrentSet[T]) findPath(st *concState[T], start pathEntry) ([]pathEntry, bool) {
	budget := 2 * st.maxDisplacements
	path := []pathEntry{start}
	for len(path) <= budget {
		cur := path[len(path)-1]
		occupant, occupied := c.peek(st, cur)
		if !occupied {
			return path, true
		}
		path = append(path, st.alternate(occupant, cur.table))
	}
	return nil, false
}

// peek reads one slot under its lock.
func (c *ConcurrentSet[T]) peek(st *concState[T], e pathEntry) (T, bool) {
	st.locks[e.table][e.index].Lock()
	sl := st.tables[e.table][e.index]
	st.locks[e.table][e.index].Unlock()
	return sl.value, sl.occupied
}

// shiftPath executes the path last hop first, so each move lands in a
// slot the previous move emptied. A move that fails validation aborts the
// shift; whatever already moved stays where it is, still in candidate
// slots of its keys.
func (c *ConcurrentSet[T]) shiftPath(st *concState[T], path []pathEntry) {
	for j := len(path) - 2; j >= 0; j-- {
		if !c.moveSlot(st, path[j], path[j+1]) {
			return
		}
	}
}

// moveSlot relocates the occupant of src into dst, which must be its
// alternate slot. Both locks are taken in table order; the move is
// dropped if a racing mutation changed either slot since the path walk.
func (c *ConcurrentSet[T]) moveSlot(st *concState[T], src, dst pathEntry) bool {
	first, second := src, dst
	if first.table == 1 {
		first, second = second, first
	}
	st.locks[first.table][first.index].Lock()
	st.locks[second.table][second.index].Lock()
	defer func() {
		st.locks[second.table][second.index].Unlock()
		st.locks[first.table][first.index].Unlock()
	}()

	if c.state.Load() != st {
		return false
	}
	sl := st.tables[src.table][src.index]
	if !sl.occupied {
		return false
	}
	if st.alternate(sl.value, src.table) != dst {
		return false
	}
	if st.tables[dst.table][dst.index].occupied {
		return false
	}
	st.tables[dst.table][dst.index] = slot[T]{value: sl.value, occupied: true}
	st.tables[src.table][src.index] = slot[T]{}
	return true
}

// Remove clears the key's slot if present.
func (c *ConcurrentSet[T]) Remove(key T) bool {
	for {
		st := c.state.Load()
		i0, i1 := st.indexes(key)
		if !c.lockPair(st, i0, i1) {
			continue
		}
		found := false
		if st.tables[0][i0].occupied && st.tables[0][i0].value == key {
			st.tables[0][i0] = slot[T]{}
			found = true
		} else if st.tables[1][i1].occupied && st.tables[1][i1].value == key {
			st.tables[1][i1] = slot[T]{}
			found = true
		}
		unlockPair(st, i0, i1)
		return found
	}
}

// Contains checks the key's two candidate slots under their locks.
func (c *ConcurrentSet[T]) Contains(key T) bool {
	for {
		st := c.state.Load()
		i0, i1 := st.indexes(key)
		if !c.lockPair(st, i0, i1) {
			continue
		}
		found := st.lookupNoLock(key, i0, i1)
		unlockPair(st, i0, i1)
		return found
	}
}

// Size counts occupied slots. It excludes resize but not concurrent
// mutators, so it is only meaningful once all writers have finished.
func (c *ConcurrentSet[T]) Size() int {
	c.resizeMu.Lock()
	defer c.resizeMu.Unlock()
	st := c.state.Load()
	count := 0
	for _, table := range st.tables {
		for _, sl := range table {
			if sl.occupied {
				count++
			}
		}
	}
	return count
}

// Populate adds each key and returns how many were newly inserted.
func (c *ConcurrentSet[T]) Populate(keys []T) int {
	added := 0
	for _, key := range keys {
		if c.Add(key) {
			added++
		}
	}
	return added
}

// lockAll acquires every slot lock of st in (table, index) order,
// excluding all mutators from the generation.
func lockAll[T comparable](st *concState[T]) {
	for table := 0; table < 2; table++ {
		for i := range st.locks[table] {
			st.locks[table][i].Lock()
		}
	}
}

func unlockAll[T comparable](st *concState[T]) {
	for table := 1; table >= 0; table-- {
		for i := len(st.locks[table]) - 1; i >= 0; i-- {
			st.locks[table][i].Unlock()
		}
	}
}

// resize installs a doubled generation containing every surviving key.
// If another resize already replaced trigger there is nothing to do; the
// caller retries against the new generation.
func (c *ConcurrentSet[T]) resize(trigger *concState[T]) {
	c.resizeMu.Lock()
	defer c.resizeMu.Unlock()

	st := c.state.Load()
	if st != trigger {
		return
	}
	lockAll(st)
	defer unlockAll(st)

	next := newConcState[T](st.capacity * 2)
	for _, table := range st.tables {
		for _, sl := range table {
			if sl.occupied {
				reinsertOrDie(next, sl.value)
			}
		}
	}
	c.state.Store(next)
	trackTableAlloc(slotTableBytes[T](next.capacity))
	trackTableFree(slotTableBytes[T](st.capacity))
}

// chainSwap swaps the floating key into its candidate slot of the given
// table and returns the previous occupant. Callers hold the generation
// exclusively.
func chainSwap[T comparable](st *concState[T], table int, floating T) (T, bool) {
	salt := st.salt1
	if table == 1 {
		salt = st.salt2
	}
	i := index(baseHash(floating), salt, st.capacity)
	prev := st.tables[table][i]
	st.tables[table][i] = slot[T]{value: floating, occupied: true}
	return prev.value, prev.occupied
}

// reinsertOrDie places a key into a freshly built generation. The doubled
// budget must suffice; failure means the hash is broken and the key would
// otherwise be dropped silently.
func reinsertOrDie[T comparable](st *concState[T], key T) {
	floating := key
	for i := 0; i < st.maxDisplacements; i++ {
		var occupied bool
		if floating, occupied = chainSwap(st, 0, floating); !occupied {
			return
		}
		if floating, occupied = chainSwap(st, 1, floating); !occupied {
			return
		}
	}
	zap.L().Error("rehash exhausted displacement budget during resize",
		zap.Int("capacity", st.capacity),
		zap.Int("max_displacements", st.maxDisplacements))
	panic(ErrRehashFailed)
}
