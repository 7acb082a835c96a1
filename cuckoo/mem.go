package cuckoo

import (
	"sync/atomic"
	"unsafe"
)

var tableMemory int64

// trackTableAlloc accounts for a freshly allocated table pair.
func trackTableAlloc(n int64) {
	atomic.AddInt64(&tableMemory, n)
}

// trackTableFree accounts for a table pair released to the collector.
func trackTableFree(n int64) {
	atomic.AddInt64(&tableMemory, -n)
}

// TableMemory returns the bytes of slot storage allocated by every set
// created in the process, net of tables released by resizes. Tables of a
// set that is no longer referenced stay counted. During a resize the old
// and new tables overlap, so the value transiently doubles for the
// resizing set.
func TableMemory() int64 {
	return atomic.LoadInt64(&tableMemory)
}

// slotTableBytes estimates the slot storage of one table pair.
func slotTableBytes[T comparable](capacity int) int64 {
	var s slot[T]
	return int64(unsafe.Sizeof(s)) * 2 * int64(capacity)
}

// pointerTableBytes estimates the slot storage of one table pair whose
// slots are pointer-sized, as in the transactional backend.
func pointerTableBytes(capacity int) int64 {
	return int64(unsafe.Sizeof(uintptr(0))) * 2 * int64(capacity)
}
