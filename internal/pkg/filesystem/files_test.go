package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFilePreservesModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(src, []byte("<eps> 0\nA 1\n"), 0o644))
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(src, past, past))

	dst := filepath.Join(dir, "copy.txt")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "<eps> 0\nA 1\n", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, past.Unix(), info.ModTime().Unix())
}

func TestRandomNameKeepsPrefixAndSuffix(t *testing.T) {
	a := RandomName("/cache", "L-", ".fst")
	b := RandomName("/cache", "L-", ".fst")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "/cache/L-"))
	assert.True(t, strings.HasSuffix(a, ".fst"))
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.idx")
	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestDirSizeMissingDir(t *testing.T) {
	size, err := DirSize(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestHomePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".skip", "contexts"), StatePath("contexts"))
	assert.Equal(t, filepath.Join(home, "kaldi"), ExpandHome("~/kaldi"))
	assert.Equal(t, "/opt/kaldi", ExpandHome("/opt/kaldi"))
	assert.Equal(t, "~", ExpandHome("~"))
}
