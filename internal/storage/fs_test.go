package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\n{{ .file.Basename }}\n")
	require.NoError(t, s.Write("note.md", content))

	got, err := s.Read("note.md")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	require.NoError(t, s.Write("_templates/daily/morning.md", []byte("deep")))

	got, err := s.Read("_templates/daily/morning.md")
	require.NoError(t, err)
	assert.Equal(t, "deep", string(got))
}

func TestWriteRejectsRoot(t *testing.T) {
	s := tempVault(t)
	assert.Error(t, s.Write("", []byte("x")))
}

func TestList(t *testing.T) {
	s := tempVault(t)
	require.NoError(t, s.Write("b.md", []byte("b")))
	require.NoError(t, s.Write("_templates/a.md", []byte("a")))
	require.NoError(t, s.Write("readme.txt", []byte("not md")))
	require.NoError(t, s.Write(".obsidian/workspace.md", []byte("hidden")))

	docs, err := s.List("")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "_templates/a.md", docs[0].Path)
	assert.Equal(t, "a", docs[0].Basename)
	assert.Equal(t, "md", docs[0].Extension)
	assert.Equal(t, Checksum([]byte("a")), docs[0].Checksum)
	assert.False(t, docs[0].UpdatedAt.IsZero())
	assert.Equal(t, "b.md", docs[1].Path)
}

func TestListSubdir(t *testing.T) {
	s := tempVault(t)
	require.NoError(t, s.Write("root.md", []byte("r")))
	require.NoError(t, s.Write("_templates/t.md", []byte("t")))

	docs, err := s.List("_templates")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "_templates/t.md", docs[0].Path)

	_, err = s.List("missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		_, err := s.Read(p)
		assert.Error(t, err, "read %q", p)
		assert.Error(t, s.Write(p, []byte("x")), "write %q", p)
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempVault(t)
	require.NoError(t, s.Write("atomic.md", []byte("original")))
	require.NoError(t, s.Write("atomic.md", []byte("updated")))

	got, err := s.Read("atomic.md")
	require.NoError(t, err)
	assert.Equal(t, "updated", string(got))

	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".temple-tmp-*"))
	assert.Empty(t, matches)
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	_, err := NewFS(f)
	assert.Error(t, err)
}
