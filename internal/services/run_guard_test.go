package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunGuard(t *testing.T) {
	t.Run("in-process exclusion", func(t *testing.T) {
		guard, err := NewRunGuard("")
		require.NoError(t, err)

		release, err := guard.TryAcquire("photo-stream")
		require.NoError(t, err)
		assert.True(t, guard.Held("photo-stream"))

		_, err = guard.TryAcquire("photo-stream")
		assert.ErrorIs(t, err, ErrReconcileInProgress)

		other, err := guard.TryAcquire("other")
		require.NoError(t, err)
		other()

		release()
		release() // second call is a no-op
		assert.False(t, guard.Held("photo-stream"))

		again, err := guard.TryAcquire("photo-stream")
		require.NoError(t, err)
		again()
	})

	t.Run("lock file excludes a second guard", func(t *testing.T) {
		dir := t.TempDir()
		first, err := NewRunGuard(dir)
		require.NoError(t, err)
		second, err := NewRunGuard(dir)
		require.NoError(t, err)

		release, err := first.TryAcquire(StreamLockKey)
		require.NoError(t, err)

		_, err = second.TryAcquire(StreamLockKey)
		assert.ErrorIs(t, err, ErrReconcileInProgress)

		release()

		releaseSecond, err := second.TryAcquire(StreamLockKey)
		require.NoError(t, err)
		releaseSecond()
	})
}
