package logger

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSimpleLogger(t *testing.T) {
	tmpDir := t.TempDir()

	rl := NewSimpleLogger(tmpDir, "test", time.Millisecond*100)
	require.NoError(t, rl.Open())

	_, err := rl.Write([]byte("test log\n"))
	require.NoError(t, err)

	time.Sleep(time.Millisecond * 100)

	_, err = rl.Write([]byte("test log2\n"))
	require.NoError(t, err)

	require.NoError(t, rl.Close())

	f, err := os.Open(tmpDir)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	fis, _ := f.Readdir(0)
	require.Equal(t, 2, len(fis))
	for _, fi := range fis {
		require.Regexp(t, `test\d{8}\.\d{2}:\d{2}:\d{2}\.\d{3}\.log`, fi.Name())
	}

	b, err := os.ReadFile(path.Join(tmpDir, fis[0].Name()))
	require.NoError(t, err)
	b2, err := os.ReadFile(path.Join(tmpDir, fis[1].Name()))
	require.NoError(t, err)

	contents := []string{string(b), string(b2)}
	require.Contains(t, contents, "test log\n")
	require.Contains(t, contents, "test log2\n")
}
