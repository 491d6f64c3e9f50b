package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher(t *testing.T) {
	t.Run("Should only fire callbacks of the written file", func(t *testing.T) {
		dir := t.TempDir()
		watched := filepath.Join(dir, "sqlagent.yaml")
		other := filepath.Join(dir, "other.yaml")
		require.NoError(t, os.WriteFile(watched, []byte("a: 1\n"), 0o600))
		require.NoError(t, os.WriteFile(other, []byte("a: 1\n"), 0o600))

		w, err := NewWatcher()
		require.NoError(t, err)
		t.Cleanup(func() { _ = w.Close() })
		var hits, otherHits atomic.Int32
		require.NoError(t, w.Watch(t.Context(), watched, func() { hits.Add(1) }))
		require.NoError(t, w.Watch(t.Context(), other, func() { otherHits.Add(1) }))

		require.NoError(t, os.WriteFile(watched, []byte("a: 2\n"), 0o600))
		assert.Eventually(t, func() bool { return hits.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
		assert.Zero(t, otherHits.Load())
	})

	t.Run("Should be closable more than once", func(t *testing.T) {
		w, err := NewWatcher()
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
	})
}
