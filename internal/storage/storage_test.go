package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryStorageCreateReadDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	out, err := s.CreateFile("segment.pst")
	require.NoError(t, err)
	n, err := out.Write([]byte("hello postings"))
	require.NoError(t, err)
	assert.Equal(t, 14, n)
	require.NoError(t, out.Close())

	exists, err := s.FileExists("segment.pst")
	require.NoError(t, err)
	assert.True(t, exists)

	length, err := s.FileLength("segment.pst")
	require.NoError(t, err)
	assert.EqualValues(t, 14, length)

	in, err := s.OpenFile("segment.pst")
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = in.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
	require.NoError(t, in.Close())

	require.NoError(t, s.DeleteFile("segment.pst"))
	exists, err = s.FileExists("segment.pst")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDirectoryStorageDeleteMissingIsNotAnError(t *testing.T) {
	s, err := NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.DeleteFile("does-not-exist.pst"))
}

func TestDirectoryStorageRename(t *testing.T) {
	s, err := NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	out, err := s.CreateFile("_idx_1.toc")
	require.NoError(t, err)
	_, _ = out.Write([]byte("toc"))
	require.NoError(t, out.Close())

	require.NoError(t, s.RenameFile("_idx_1.toc", "_idx_2.toc", true))
	exists, _ := s.FileExists("_idx_1.toc")
	assert.False(t, exists)
	exists, _ = s.FileExists("_idx_2.toc")
	assert.True(t, exists)
}

func TestDirectoryStorageMapFile(t *testing.T) {
	s, err := NewDirectoryStorage(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	out, err := s.CreateFile("data.col")
	require.NoError(t, err)
	_, _ = out.Write([]byte("0123456789"))
	require.NoError(t, out.Close())

	data, err := s.MapFile("data.col", 2, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 4, data.Len())
	b, err := data.Slice(0, 4)
	require.NoError(t, err)
	assert.Equal(t, "2345", string(b))
	if closer, ok := data.(interface{ Close() error }); ok {
		assert.NoError(t, closer.Close())
	}
}

func TestDirectoryStorageLockExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	lock, err := s.Lock("WRITELOCK")
	require.NoError(t, err)

	s2, err := NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.Lock("WRITELOCK")
	assert.Error(t, err)

	require.NoError(t, lock.Unlock())
}

func TestCompoundStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src, err := NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	defer src.Close()

	for name, content := range map[string]string{
		"seg.trm": "term-dictionary-bytes",
		"seg.pst": "posting-block-bytes",
		"seg.fln": "field-lengths",
	} {
		out, err := src.CreateFile(name)
		require.NoError(t, err)
		_, _ = out.Write([]byte(content))
		require.NoError(t, out.Close())
	}

	require.NoError(t, WriteCompoundFile(src, "seg.cmpd", src, []string{"seg.trm", "seg.pst", "seg.fln"}))

	cs, err := OpenCompoundStorage(src, "seg.cmpd")
	require.NoError(t, err)
	defer cs.Close()

	names, err := cs.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"seg.trm", "seg.pst", "seg.fln"}, names)

	in, err := cs.OpenFile("seg.pst")
	require.NoError(t, err)
	buf := make([]byte, in.Len())
	_, err = in.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "posting-block-bytes", string(buf))

	assert.True(t, cs.ReadOnly())
	_, err = cs.CreateFile("new.trm")
	assert.Error(t, err)
	err = cs.DeleteFile("seg.trm")
	assert.Error(t, err)
}

func TestCompoundStorageRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	src, err := NewDirectoryStorage(dir, nil)
	require.NoError(t, err)
	defer src.Close()

	out, err := src.CreateFile("bad.cmpd")
	require.NoError(t, err)
	_, _ = out.Write(make([]byte, 32))
	require.NoError(t, out.Close())

	_, err = OpenCompoundStorage(src, "bad.cmpd")
	assert.Error(t, err)
}
