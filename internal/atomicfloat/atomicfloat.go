// Package atomicfloat provides lock-free accumulation of a float64
// shared between goroutines, for MCTS backprop statistics that may be
// touched by concurrent Update jobs walking overlapping ancestor chains.
//
// Uses a compare-and-swap loop over an unsafe.Pointer-punned float64:
// the gc may relocate the pointed-to variable, so the pointer conversion
// must be re-taken on every loop iteration rather than cached across it.
package atomicfloat

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Add atomically adds addend to *val and returns the new value.
func Add(val *float64, addend float64) float64 {
	for {
		old := *val
		next := old + addend
		if atomic.CompareAndSwapUint64(
			(*uint64)(unsafe.Pointer(val)),
			math.Float64bits(old),
			math.Float64bits(next),
		) {
			return next
		}
	}
}

// Read atomically reads *val.
func Read(val *float64) float64 {
	return math.Float64frombits(atomic.LoadUint64((*uint64)(unsafe.Pointer(val))))
}
