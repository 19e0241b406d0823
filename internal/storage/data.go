package storage

import (
	"encoding/binary"
	"fmt"
)

// Data is the random-read view spec.md §4.1 requires: a byte range that
// exposes its length, sub-ranging, slice reads, and endian-aware
// fixed-width reads, independent of whether the bytes backing it came from
// a memory map or a loaded buffer.
type Data interface {
	// Len returns the number of bytes in this view.
	Len() int64
	// Subset returns a Data over [offset, offset+length) of this view.
	Subset(offset, length int64) (Data, error)
	// Slice returns a copy of [offset, offset+length) as a byte slice.
	Slice(offset, length int64) ([]byte, error)

	// Byte reads a single byte at offset.
	Byte(offset int64) (byte, error)
	// Uint16 reads a big-endian uint16 at offset.
	Uint16(offset int64) (uint16, error)
	// Uint32 reads a big-endian uint32 at offset.
	Uint32(offset int64) (uint32, error)
	// Uint64 reads a big-endian uint64 at offset.
	Uint64(offset int64) (uint64, error)

	// MapArray returns count elements of the given byte width starting at
	// offset, either as a zero-copy view into the backing bytes (when
	// native is true and the backend supports it) or a freshly loaded
	// slice. Nothing in this module calls it: segment codec files are
	// read whole into byte slices.
	MapArray(offset int64, width, count int, native bool) ([]byte, error)
}

// bufferData is a Data backed by an in-memory byte slice, used for
// MapArray/MapFile views the backend can't (or chooses not to) mmap, and
// for temp storage.
type bufferData struct {
	buf []byte
}

// NewBufferData wraps buf as a Data. Ownership of buf passes to the
// returned Data; callers must not mutate it afterward.
func NewBufferData(buf []byte) Data {
	return &bufferData{buf: buf}
}

func (d *bufferData) Len() int64 { return int64(len(d.buf)) }

func (d *bufferData) bounds(offset, length int64) error {
	if offset < 0 || length < 0 || offset+length > int64(len(d.buf)) {
		return fmt.Errorf("storage: range [%d, %d) out of bounds for %d-byte Data", offset, offset+length, len(d.buf))
	}
	return nil
}

func (d *bufferData) Subset(offset, length int64) (Data, error) {
	if err := d.bounds(offset, length); err != nil {
		return nil, err
	}
	return &bufferData{buf: d.buf[offset : offset+length]}, nil
}

func (d *bufferData) Slice(offset, length int64) ([]byte, error) {
	if err := d.bounds(offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, d.buf[offset:offset+length])
	return out, nil
}

func (d *bufferData) Byte(offset int64) (byte, error) {
	if err := d.bounds(offset, 1); err != nil {
		return 0, err
	}
	return d.buf[offset], nil
}

func (d *bufferData) Uint16(offset int64) (uint16, error) {
	if err := d.bounds(offset, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(d.buf[offset:]), nil
}

func (d *bufferData) Uint32(offset int64) (uint32, error) {
	if err := d.bounds(offset, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(d.buf[offset:]), nil
}

func (d *bufferData) Uint64(offset int64) (uint64, error) {
	if err := d.bounds(offset, 8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(d.buf[offset:]), nil
}

func (d *bufferData) MapArray(offset int64, width, count int, native bool) ([]byte, error) {
	length := int64(width * count)
	if err := d.bounds(offset, length); err != nil {
		return nil, err
	}
	if native {
		// Zero-copy: hand back a window into the backing slice.
		return d.buf[offset : offset+length], nil
	}
	out := make([]byte, length)
	copy(out, d.buf[offset:offset+length])
	return out, nil
}

// mmapData is a Data backed by a live memory-mapped region. Subset and
// MapArray(..., native=true) return windows into the mapping itself, so
// readers pay no copy cost for sequential block scans.
type mmapData struct {
	region []byte // the mmap.MMap, viewed as a plain byte slice
	base   *bufferData
}

func newMmapData(region []byte) Data {
	return &mmapData{region: region, base: &bufferData{buf: region}}
}

func (d *mmapData) Len() int64 { return d.base.Len() }
func (d *mmapData) Subset(offset, length int64) (Data, error) {
	return d.base.Subset(offset, length)
}
func (d *mmapData) Slice(offset, length int64) ([]byte, error) { return d.base.Slice(offset, length) }
func (d *mmapData) Byte(offset int64) (byte, error)            { return d.base.Byte(offset) }
func (d *mmapData) Uint16(offset int64) (uint16, error)        { return d.base.Uint16(offset) }
func (d *mmapData) Uint32(offset int64) (uint32, error)        { return d.base.Uint32(offset) }
func (d *mmapData) Uint64(offset int64) (uint64, error)        { return d.base.Uint64(offset) }
func (d *mmapData) MapArray(offset int64, width, count int, native bool) ([]byte, error) {
	return d.base.MapArray(offset, width, count, native)
}
