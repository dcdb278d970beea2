package hashfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webnis/webnis/internal/mapstore/hashfile"
)

func buildFixture(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.whf")
	require.NoError(t, hashfile.Build(path, entries))
	return path
}

func TestLookup_Hit(t *testing.T) {
	path := buildFixture(t, map[string][]byte{
		"mikevs": []byte("mikevs:x:1000:1000:Mike:/home/mikevs:/bin/sh"),
		"alice":  []byte("alice:x:1001:1001:Alice:/home/alice:/bin/bash"),
	})

	tbl, err := hashfile.Open(path)
	require.NoError(t, err)
	defer tbl.Close()

	val, ok, err := tbl.Lookup("mikevs")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mikevs:x:1000:1000:Mike:/home/mikevs:/bin/sh", string(val))

	val, ok, err = tbl.Lookup("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice:x:1001:1001:Alice:/home/alice:/bin/bash", string(val))
}

func TestLookup_Miss(t *testing.T) {
	path := buildFixture(t, map[string][]byte{"mikevs": []byte("present")})

	tbl, err := hashfile.Open(path)
	require.NoError(t, err)
	defer tbl.Close()

	_, ok, err := tbl.Lookup("nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookup_Empty(t *testing.T) {
	path := buildFixture(t, map[string][]byte{})

	tbl, err := hashfile.Open(path)
	require.NoError(t, err)
	defer tbl.Close()

	_, ok, err := tbl.Lookup("anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookup_ManyKeysWithCollisions(t *testing.T) {
	entries := make(map[string][]byte)
	for i := 0; i < 500; i++ {
		key := "user" + string(rune('a'+i%26)) + string(rune('0'+i%10))
		entries[key] = []byte{byte(i % 256)}
	}
	path := buildFixture(t, entries)

	tbl, err := hashfile.Open(path)
	require.NoError(t, err)
	defer tbl.Close()

	for k, want := range entries {
		got, ok, err := tbl.Lookup(k)
		require.NoError(t, err)
		require.True(t, ok, "key %q should be found", k)
		assert.Equal(t, want, got)
	}
}

func TestOpen_BadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.whf")
	require.NoError(t, writeRaw(path, []byte("NOPE")))

	_, err := hashfile.Open(path)
	assert.Error(t, err)
}

func writeRaw(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
