package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockBucketNames_FromEnvList(t *testing.T) {
	cfg := Config{MockBuckets: []string{" a ", "", "b"}}
	names, err := cfg.MockBucketNames()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names)
}

func TestMockBucketNames_FileTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "buckets.yaml")
	require.NoError(t, os.WriteFile(p, []byte("buckets:\n  - fixture-1\n  - fixture-2\n"), 0o600))

	cfg := Config{MockBuckets: []string{"ignored"}, MockBucketsFile: p}
	names, err := cfg.MockBucketNames()
	require.NoError(t, err)
	require.Equal(t, []string{"fixture-1", "fixture-2"}, names)
}

func TestLoadMockBuckets_Errors(t *testing.T) {
	_, err := LoadMockBuckets(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("buckets: [unterminated"), 0o600))
	_, err = LoadMockBuckets(p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse")
}
