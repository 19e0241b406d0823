package storage

import (
	"encoding/binary"
	"math"
	"time"

	cerrors "github.com/cinderfts/cinder/pkg/errors"
)

// compoundMagic is the little-endian 4-byte magic spec.md §6 assigns the
// compound container format.
var compoundMagic = [4]byte{'C', 'm', 'p', 'd'}

type compoundEntry struct {
	name   string
	offset uint64
	length uint64
	mtime  float32
}

// WriteCompoundFile concatenates the named files read from src into a
// single new file called name in dest, followed by a directory of
// (name_len, name, offset, length, mtime) entries and a (magic,
// dir_offset, dir_count) footer, every integer big-endian. Nothing in the
// writer calls it; a container is built only by an explicit call.
func WriteCompoundFile(dest Storage, name string, src Storage, fileNames []string) error {
	out, err := dest.CreateFile(name)
	if err != nil {
		return err
	}
	defer out.Close()

	entries := make([]compoundEntry, 0, len(fileNames))
	for _, fn := range fileNames {
		in, err := src.OpenFile(fn)
		if err != nil {
			return err
		}
		modTime, _ := src.FileModified(fn)

		offset := out.Tell()
		buf := make([]byte, 1<<20)
		var readOffset int64
		length := in.Len()
		for readOffset < length {
			n := int64(len(buf))
			if remaining := length - readOffset; remaining < n {
				n = remaining
			}
			read, rerr := in.ReadAt(buf[:n], readOffset)
			if read > 0 {
				if _, werr := out.Write(buf[:read]); werr != nil {
					in.Close()
					return werr
				}
			}
			readOffset += int64(read)
			if rerr != nil && readOffset < length {
				in.Close()
				return cerrors.NewStorageError(rerr, cerrors.ErrorCodeIO, "failed to copy file into compound container").
					WithFileName(fn)
			}
		}
		in.Close()

		entries = append(entries, compoundEntry{
			name:   fn,
			offset: uint64(offset),
			length: uint64(length),
			mtime:  float32(modTime.Unix()),
		})
	}

	dirOffset := out.Tell()
	for _, e := range entries {
		rec := make([]byte, 2+len(e.name)+8+8+4)
		binary.BigEndian.PutUint16(rec[0:2], uint16(len(e.name)))
		pos := 2
		copy(rec[pos:], e.name)
		pos += len(e.name)
		binary.BigEndian.PutUint64(rec[pos:], e.offset)
		pos += 8
		binary.BigEndian.PutUint64(rec[pos:], e.length)
		pos += 8
		binary.BigEndian.PutUint32(rec[pos:], math.Float32bits(e.mtime))
		if _, err := out.Write(rec); err != nil {
			return err
		}
	}

	footer := make([]byte, 4+8+4)
	copy(footer[0:4], compoundMagic[:])
	binary.BigEndian.PutUint64(footer[4:12], uint64(dirOffset))
	binary.BigEndian.PutUint32(footer[12:16], uint32(len(entries)))
	if _, err := out.Write(footer); err != nil {
		return err
	}
	return nil
}

// CompoundStorage is the read-only compound Storage backend spec.md §4.1
// requires: a single underlying file, opened transparently as if it were a
// directory of the names in its footer directory.
type CompoundStorage struct {
	containerName string
	underlying    Storage
	in            InputFile
	entries       map[string]compoundEntry
}

// OpenCompoundStorage reads containerName's trailing footer from src and
// returns a Storage exposing each bundled file by its original name.
func OpenCompoundStorage(src Storage, containerName string) (*CompoundStorage, error) {
	in, err := src.OpenFile(containerName)
	if err != nil {
		return nil, err
	}

	size := in.Len()
	if size < 16 {
		in.Close()
		return nil, cerrors.NewFileHeaderError(nil, containerName).WithDetail("reason", "file too small for compound footer")
	}

	footerTail := make([]byte, 16)
	if _, err := in.ReadAt(footerTail, size-16); err != nil {
		in.Close()
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to read compound footer").WithFileName(containerName)
	}
	if string(footerTail[0:4]) != string(compoundMagic[:]) {
		in.Close()
		return nil, cerrors.NewFileHeaderError(nil, containerName).WithDetail("reason", "bad compound magic")
	}
	dirOffset := binary.BigEndian.Uint64(footerTail[4:12])
	dirCount := binary.BigEndian.Uint32(footerTail[12:16])

	dirLen := size - 16 - int64(dirOffset)
	dirBuf := make([]byte, dirLen)
	if _, err := in.ReadAt(dirBuf, int64(dirOffset)); err != nil {
		in.Close()
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to read compound directory").WithFileName(containerName)
	}

	entries := make(map[string]compoundEntry, dirCount)
	pos := 0
	for i := uint32(0); i < dirCount; i++ {
		if pos+2 > len(dirBuf) {
			in.Close()
			return nil, cerrors.NewFileHeaderError(nil, containerName).WithDetail("reason", "truncated compound directory")
		}
		nameLen := int(binary.BigEndian.Uint16(dirBuf[pos : pos+2]))
		pos += 2
		if pos+nameLen+20 > len(dirBuf) {
			in.Close()
			return nil, cerrors.NewFileHeaderError(nil, containerName).WithDetail("reason", "truncated compound directory entry")
		}
		name := string(dirBuf[pos : pos+nameLen])
		pos += nameLen
		offset := binary.BigEndian.Uint64(dirBuf[pos : pos+8])
		pos += 8
		length := binary.BigEndian.Uint64(dirBuf[pos : pos+8])
		pos += 8
		mtimeBits := binary.BigEndian.Uint32(dirBuf[pos : pos+4])
		pos += 4
		entries[name] = compoundEntry{name: name, offset: offset, length: length, mtime: math.Float32frombits(mtimeBits)}
	}

	return &CompoundStorage{containerName: containerName, underlying: src, in: in, entries: entries}, nil
}

func (c *CompoundStorage) ReadOnly() bool { return true }

func (c *CompoundStorage) lookup(name string) (compoundEntry, error) {
	e, ok := c.entries[name]
	if !ok {
		return compoundEntry{}, cerrors.NewStorageError(nil, cerrors.ErrorCodeIO, "file not present in compound container").
			WithFileName(name)
	}
	return e, nil
}

func (c *CompoundStorage) CreateFile(name string) (OutputFile, error) {
	return nil, newReadOnlyError("CreateFile")
}

func (c *CompoundStorage) OpenFile(name string) (InputFile, error) {
	e, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return &compoundInput{name: name, container: c.in, base: int64(e.offset), size: int64(e.length)}, nil
}

func (c *CompoundStorage) MapFile(name string, offset, length int64) (Data, error) {
	e, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	if length <= 0 {
		length = int64(e.length) - offset
	}
	buf := make([]byte, length)
	if _, err := c.in.ReadAt(buf, int64(e.offset)+offset); err != nil {
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to read mapped range from compound container").
			WithFileName(name)
	}
	return NewBufferData(buf), nil
}

func (c *CompoundStorage) List() ([]string, error) {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	return names, nil
}

func (c *CompoundStorage) FileExists(name string) (bool, error) {
	_, ok := c.entries[name]
	return ok, nil
}

func (c *CompoundStorage) FileLength(name string) (int64, error) {
	e, err := c.lookup(name)
	if err != nil {
		return 0, err
	}
	return int64(e.length), nil
}

func (c *CompoundStorage) FileModified(name string) (time.Time, error) {
	e, err := c.lookup(name)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(e.mtime), 0), nil
}

func (c *CompoundStorage) DeleteFile(name string) error {
	return newReadOnlyError("DeleteFile")
}

func (c *CompoundStorage) RenameFile(oldName, newName string, safe bool) error {
	return newReadOnlyError("RenameFile")
}

func (c *CompoundStorage) Lock(name string) (Lock, error) {
	return nil, newReadOnlyError("Lock")
}

func (c *CompoundStorage) TempStorage() (Storage, error) {
	return c.underlying.TempStorage()
}

func (c *CompoundStorage) Close() error {
	return c.in.Close()
}

// compoundInput adapts a byte range of the container's InputFile into an
// InputFile over one bundled member, translating reads by base offset and
// rejecting any that would cross into a neighboring entry.
type compoundInput struct {
	name      string
	container InputFile
	base      int64
	size      int64
}

func (c *compoundInput) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > c.size {
		return 0, cerrors.NewOverrunError(c.name)
	}
	n := int64(len(p))
	if off+n > c.size {
		n = c.size - off
	}
	read, err := c.container.ReadAt(p[:n], c.base+off)
	return read, err
}

func (c *compoundInput) Close() error { return nil }
func (c *compoundInput) Name() string { return c.name }
func (c *compoundInput) Len() int64   { return c.size }
