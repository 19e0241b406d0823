package storage

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"
	"github.com/gofrs/flock"
	"go.uber.org/zap"

	cerrors "github.com/cinderfts/cinder/pkg/errors"
	"github.com/cinderfts/cinder/pkg/filesys"
)

// DirectoryStorage is the directory-of-files Storage backend spec.md §4.1
// requires. Every name maps 1:1 to a file directly under root.
type DirectoryStorage struct {
	root string
	log  *zap.SugaredLogger

	mu    sync.Mutex
	locks map[string]*flock.Flock
}

// NewDirectoryStorage opens (creating if necessary) a directory-backed
// Storage rooted at dir.
func NewDirectoryStorage(dir string, log *zap.SugaredLogger) (*DirectoryStorage, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if err := filesys.CreateDir(dir, 0755, true); err != nil {
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to create storage directory").
			WithPath(dir)
	}
	log.Infow("opened directory storage", "root", dir)
	return &DirectoryStorage{root: dir, log: log, locks: make(map[string]*flock.Flock)}, nil
}

func (d *DirectoryStorage) path(name string) string {
	return filepath.Join(d.root, name)
}

func (d *DirectoryStorage) ReadOnly() bool { return false }

func (d *DirectoryStorage) CreateFile(name string) (OutputFile, error) {
	path := d.path(name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to create file").
			WithFileName(name).WithPath(path)
	}
	return &fileOutput{name: name, f: f}, nil
}

func (d *DirectoryStorage) OpenFile(name string) (InputFile, error) {
	path := d.path(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to open file").
			WithFileName(name).WithPath(path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to stat file").
			WithFileName(name).WithPath(path)
	}
	return &fileInput{name: name, f: f, size: info.Size()}, nil
}

func (d *DirectoryStorage) MapFile(name string, offset, length int64) (Data, error) {
	path := d.path(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to open file for mapping").
			WithFileName(name).WithPath(path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to stat file for mapping").
			WithFileName(name).WithPath(path)
	}
	if length <= 0 {
		length = info.Size() - offset
	}
	if offset < 0 || length < 0 || offset+length > info.Size() {
		return nil, cerrors.NewStorageError(nil, cerrors.ErrorCodeIO, "mapped range out of bounds").
			WithFileName(name).WithDetail("offset", offset).WithDetail("length", length).WithDetail("fileSize", info.Size())
	}

	// mmap-go maps from offset 0; map the whole file and hand back the
	// requested window as a Subset so unmapping semantics stay simple.
	region, err := mmap.MapRegion(f, int(info.Size()), mmap.RDONLY, 0, 0)
	if err != nil {
		// Some filesystems (tmpfs under certain sandboxes, zero-length
		// files) reject mmap; fall back to a loaded buffer rather than
		// failing the read outright.
		d.log.Debugw("mmap failed, falling back to buffered read", "file", name, "error", err)
		buf, rerr := readRange(f, offset, length)
		if rerr != nil {
			return nil, cerrors.NewStorageError(rerr, cerrors.ErrorCodeIO, "failed to read mapped range").
				WithFileName(name).WithPath(path)
		}
		return NewBufferData(buf), nil
	}

	view := newMmapData([]byte(region))
	data, err := view.Subset(offset, length)
	if err != nil {
		region.Unmap()
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to subset mapped range").
			WithFileName(name).WithPath(path)
	}
	return &unmapOnFinalize{Data: data, region: region}, nil
}

func readRange(f *os.File, offset, length int64) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

// unmapOnFinalize wraps a mapped Data so Close releases the mapping. Data
// itself has no Close method per spec.md §4.1 (only Storage files do).
// DirectoryStorage does not track mappings and its Close does not release
// them; a mapping is released only by this Close, which readers reach by
// type-asserting for io.Closer.
type unmapOnFinalize struct {
	Data
	region mmap.MMap
}

func (u *unmapOnFinalize) Close() error { return u.region.Unmap() }

func (d *DirectoryStorage) List() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to list storage directory").
			WithPath(d.root)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *DirectoryStorage) FileExists(name string) (bool, error) {
	return filesys.Exists(d.path(name))
}

func (d *DirectoryStorage) FileLength(name string) (int64, error) {
	info, err := os.Stat(d.path(name))
	if err != nil {
		return 0, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to stat file").WithFileName(name)
	}
	return info.Size(), nil
}

func (d *DirectoryStorage) FileModified(name string) (time.Time, error) {
	info, err := os.Stat(d.path(name))
	if err != nil {
		return time.Time{}, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to stat file").WithFileName(name)
	}
	return info.ModTime(), nil
}

func (d *DirectoryStorage) DeleteFile(name string) error {
	if err := os.Remove(d.path(name)); err != nil && !os.IsNotExist(err) {
		return cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to delete file").WithFileName(name)
	}
	return nil
}

func (d *DirectoryStorage) RenameFile(oldName, newName string, safe bool) error {
	oldPath, newPath := d.path(oldName), d.path(newName)
	if safe {
		if exists, _ := filesys.Exists(newPath); exists {
			return cerrors.NewStorageError(nil, cerrors.ErrorCodeIO, "rename target already exists").
				WithFileName(newName)
		}
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to rename file").
			WithFileName(oldName).WithDetail("newName", newName)
	}
	return nil
}

func (d *DirectoryStorage) Lock(name string) (Lock, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fl := flock.New(d.path(name))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, cerrors.NewEngineError(err, cerrors.ErrorCodeLock, "failed to acquire write lock").
			WithDetail("lockFile", name)
	}
	if !locked {
		return nil, cerrors.NewLockError(name)
	}
	d.locks[name] = fl
	return &directoryLock{storage: d, name: name, fl: fl}, nil
}

type directoryLock struct {
	storage *DirectoryStorage
	name    string
	fl      *flock.Flock
	once    sync.Once
}

func (l *directoryLock) Unlock() error {
	var err error
	l.once.Do(func() {
		err = l.fl.Unlock()
		l.storage.mu.Lock()
		delete(l.storage.locks, l.name)
		l.storage.mu.Unlock()
	})
	return err
}

func (d *DirectoryStorage) TempStorage() (Storage, error) {
	dir, err := os.MkdirTemp(d.root, ".tmp-*")
	if err != nil {
		return nil, cerrors.NewStorageError(err, cerrors.ErrorCodeIO, "failed to create temp storage directory").
			WithPath(d.root)
	}
	return NewDirectoryStorage(dir, d.log)
}

func (d *DirectoryStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, fl := range d.locks {
		if err := fl.Unlock(); err != nil {
			d.log.Warnw("failed to release lock on close", "lock", name, "error", err)
		}
	}
	d.locks = make(map[string]*flock.Flock)
	return nil
}

// fileOutput adapts *os.File to OutputFile.
type fileOutput struct {
	name string
	f    *os.File
	pos  int64
}

func (o *fileOutput) Write(p []byte) (int, error) {
	n, err := o.f.Write(p)
	o.pos += int64(n)
	return n, err
}
func (o *fileOutput) Close() error { return o.f.Close() }
func (o *fileOutput) Name() string { return o.name }
func (o *fileOutput) Tell() int64  { return o.pos }

// fileInput adapts *os.File to InputFile.
type fileInput struct {
	name string
	f    *os.File
	size int64
}

func (i *fileInput) ReadAt(p []byte, off int64) (int, error) { return i.f.ReadAt(p, off) }
func (i *fileInput) Close() error                            { return i.f.Close() }
func (i *fileInput) Name() string                             { return i.name }
func (i *fileInput) Len() int64                               { return i.size }
