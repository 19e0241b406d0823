// Package numeric implements the sortable numeric encodings and the
// length-byte approximation used by the codec layer (spec.md §6,
// "Numeric encoding" and "Length byte encoding"). The algorithms are carried
// over unchanged from the indexed engine this module's design is distilled
// from, since the spec leaves their exact bit-twiddling to "the standard
// flip sign bit, flip all bits if negative trick" and a precomputed table —
// details that must match exactly for on-disk sort order to hold.
package numeric

import "math"

// ToSortableInt offsets a signed integer so that its big-endian byte
// encoding sorts the same as its numeric value. bits is the width of the
// original value (8, 16, 32, or 64); signed indicates whether the caller's
// value can be negative.
func ToSortableInt(bits int, signed bool, x int64) uint64 {
	if !signed {
		return uint64(x)
	}
	return uint64(x + (1 << uint(bits-1)))
}

// FromSortableInt reverses ToSortableInt.
func FromSortableInt(bits int, signed bool, x uint64) int64 {
	if !signed {
		return int64(x)
	}
	return int64(x) - (1 << uint(bits-1))
}

// ToSortableFloat64 transforms an IEEE-754 double into a uint64 whose
// unsigned numeric order matches the float's numeric order: flip the sign
// bit for non-negative numbers, flip every bit for negative ones.
func ToSortableFloat64(x float64) uint64 {
	bits := math.Float64bits(x)
	if bits&(1<<63) != 0 {
		// Negative: flip every bit.
		return ^bits
	}
	// Non-negative: flip just the sign bit.
	return bits ^ (1 << 63)
}

// FromSortableFloat64 reverses ToSortableFloat64.
func FromSortableFloat64(x uint64) float64 {
	if x&(1<<63) != 0 {
		// Was non-negative: flip the sign bit back.
		return math.Float64frombits(x ^ (1 << 63))
	}
	return math.Float64frombits(^x)
}

// ToSortableFloat32 is the 32-bit analogue of ToSortableFloat64.
func ToSortableFloat32(x float32) uint32 {
	bits := math.Float32bits(x)
	if bits&(1<<31) != 0 {
		return ^bits
	}
	return bits ^ (1 << 31)
}

// FromSortableFloat32 reverses ToSortableFloat32.
func FromSortableFloat32(x uint32) float32 {
	if x&(1<<31) != 0 {
		return math.Float32frombits(x ^ (1 << 31))
	}
	return math.Float32frombits(^x)
}
