package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDirsCreatesFixedLayout(t *testing.T) {
	root := t.TempDir()
	confDir := filepath.Join(root, "uacme")
	l := newLayout(confDir, "example.com", false)

	require.NoError(t, l.ensureDirs(true))

	assertMode(t, confDir, confDirMode)
	assertMode(t, filepath.Join(confDir, "private"), privateMode)
	assertMode(t, l.domainKeyDir, privateMode)
	assertMode(t, l.certDir, domainDirMode)

	require.Equal(t, filepath.Join(confDir, "private", "key.pem"), l.accountKey)
	require.Equal(t, filepath.Join(confDir, "private", "example.com", "key.pem"), l.domainKeyPath)
	require.Equal(t, filepath.Join(confDir, "example.com"), l.certDir)
}

func TestEnsureDirsSkipsDomainDirsWhenNotNeeded(t *testing.T) {
	root := t.TempDir()
	confDir := filepath.Join(root, "uacme")
	l := newLayout(confDir, "", false)

	require.NoError(t, l.ensureDirs(false))

	_, err := os.Stat(filepath.Join(confDir, "private"))
	require.NoError(t, err)
}

func TestEnsureDirsFailsWhenNoCreateAndMissing(t *testing.T) {
	root := t.TempDir()
	confDir := filepath.Join(root, "uacme")
	l := newLayout(confDir, "example.com", true)

	err := l.ensureDirs(true)
	require.Error(t, err)
}

func TestEnsureDirsIsIdempotent(t *testing.T) {
	root := t.TempDir()
	confDir := filepath.Join(root, "uacme")
	l := newLayout(confDir, "example.com", false)

	require.NoError(t, l.ensureDirs(true))
	require.NoError(t, l.ensureDirs(true))
}

func assertMode(t *testing.T, path string, want os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, want, info.Mode().Perm())
}
