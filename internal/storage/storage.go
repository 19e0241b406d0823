// Package storage implements the named byte-range container abstraction
// spec.md §4.1 sits the rest of the engine on top of: a place to create,
// open, and memory-map files by name, list and delete them, and take an
// advisory process-wide lock — with two concrete backends, a plain
// directory of files and a compound container that bundles several files
// behind one footer-indexed file.
//
// Everything above this package — codec readers/writers, the segment list,
// the TOC — talks only to the Storage interface, never to os.File or a
// directory path directly, so a Searcher opened against a compound file and
// one opened against a live directory run identical code.
package storage

import (
	"io"
	"time"

	cerrors "github.com/cinderfts/cinder/pkg/errors"
)

// OutputFile is a sequential, write-once, closeable byte sink returned by
// Storage.CreateFile.
type OutputFile interface {
	io.Writer
	io.Closer

	// Name returns the file name this OutputFile was created with.
	Name() string
	// Tell returns the number of bytes written so far.
	Tell() int64
}

// InputFile is a seekable, random-access byte source returned by
// Storage.OpenFile.
type InputFile interface {
	io.ReaderAt
	io.Closer

	// Name returns the file name this InputFile was opened from.
	Name() string
	// Len returns the total length of the file in bytes.
	Len() int64
}

// Lock is an advisory, process-wide lock acquired by Storage.Lock. Only one
// Lock may be held on a given name at a time, enforced via the name's
// backing file and gofrs/flock's OS-level advisory locking.
type Lock interface {
	// Unlock releases the lock. Unlock is idempotent.
	Unlock() error
}

// Storage is the named byte-range container spec.md §4.1 requires. Every
// method fails with a distinguishable *errors.EngineError or
// *errors.StorageError rather than a bare error, so callers can branch on
// cerrors.GetErrorCode.
type Storage interface {
	// CreateFile opens name for sequential writing, truncating any
	// existing content.
	CreateFile(name string) (OutputFile, error)
	// OpenFile opens name for random-access reading.
	OpenFile(name string) (InputFile, error)
	// MapFile returns a Data view over [offset, offset+length) of name,
	// using a zero-copy memory map when the backend supports one.
	MapFile(name string, offset, length int64) (Data, error)

	// List returns the names of every file currently present.
	List() ([]string, error)
	// FileExists reports whether name is present.
	FileExists(name string) (bool, error)
	// FileLength returns the length of name in bytes.
	FileLength(name string) (int64, error)
	// FileModified returns name's last-modified time.
	FileModified(name string) (time.Time, error)
	// DeleteFile removes name. Deleting a name that does not exist is not
	// an error, matching the writer's "delete files owned by no live TOC"
	// cleanup step, which may race harmlessly with a concurrent deletion.
	DeleteFile(name string) error
	// RenameFile renames oldName to newName. When safe is true the
	// implementation must not leave the storage in a state where neither
	// name is present if it can avoid it (used for the TOC's atomic
	// publish rename).
	RenameFile(oldName, newName string, safe bool) error

	// Lock acquires the named advisory lock, failing fast with a
	// *errors.EngineError carrying ErrorCodeLock if another holder already
	// has it.
	Lock(name string) (Lock, error)

	// TempStorage returns a Storage for spill files (the writer pipeline's
	// posting-tuple sorting spiller), backed by the same or an equivalent
	// medium but with no expectation of durability across process restarts.
	TempStorage() (Storage, error)

	// ReadOnly reports whether mutating operations on this Storage fail
	// with ErrorCodeReadOnly.
	ReadOnly() bool

	// Close releases any resources (such as held locks) kept by the
	// Storage itself, not by files or mapped Data obtained from it.
	Close() error
}

func newReadOnlyError(operation string) error {
	return cerrors.NewReadOnlyError(operation)
}
