package countdown

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// recorder collects callback invocations.
type recorder struct {
	ticks   []time.Duration
	expired int
	mu      sync.Mutex
}

func (r *recorder) onTick(remaining time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ticks = append(r.ticks, remaining)
}

func (r *recorder) onExpire() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.expired++
}

func (r *recorder) snapshot() ([]time.Duration, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]time.Duration(nil), r.ticks...), r.expired
}

// TestTimer_RunsToExpiry lets a 30 second countdown run out and checks ticks and the single expiry.
func TestTimer_RunsToExpiry(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		timer := New()
		rec := new(recorder)

		h, err := timer.Start(30*time.Second, rec.onTick, rec.onExpire)
		require.NoError(t, err)
		require.True(t, timer.Active())

		time.Sleep(29 * time.Second)
		synctest.Wait()

		ticks, expired := rec.snapshot()
		require.Len(t, ticks, 29)
		require.Equal(t, time.Second, ticks[len(ticks)-1])
		require.Zero(t, expired)
		require.Equal(t, time.Second, h.State().Remaining)

		time.Sleep(time.Second)
		<-h.Done()

		ticks, expired = rec.snapshot()
		require.Len(t, ticks, 30)
		require.Zero(t, ticks[len(ticks)-1])
		require.Equal(t, 1, expired)
		require.True(t, h.Expired())
		require.False(t, timer.Active())

		// Cancelling after expiry is a no-op and never re-runs the callback.
		require.False(t, timer.Cancel(h))

		time.Sleep(10 * time.Second)
		synctest.Wait()

		_, expired = rec.snapshot()
		require.Equal(t, 1, expired)
	})
}

// TestTimer_CancelAtLastSecond cancels with one second left and checks expiry never runs.
func TestTimer_CancelAtLastSecond(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		timer := New()
		rec := new(recorder)

		h, err := timer.Start(30*time.Second, rec.onTick, rec.onExpire)
		require.NoError(t, err)

		time.Sleep(29 * time.Second)
		synctest.Wait()
		require.Equal(t, time.Second, h.State().Remaining)

		require.True(t, timer.Cancel(h))
		<-h.Done()
		require.False(t, timer.Active())

		time.Sleep(5 * time.Second)
		synctest.Wait()

		ticks, expired := rec.snapshot()
		require.Len(t, ticks, 29)
		require.Zero(t, expired)
		require.False(t, h.Expired())
	})
}

// TestTimer_SingleActive ensures a second countdown is rejected while one runs.
func TestTimer_SingleActive(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		timer := New()

		_, err := timer.Start(0, nil, nil)
		require.ErrorIs(t, err, ErrInvalidDuration)

		h, err := timer.Start(3*time.Second, nil, nil)
		require.NoError(t, err)

		_, err = timer.Start(3*time.Second, nil, nil)
		require.ErrorIs(t, err, ErrTimerActive)

		require.True(t, timer.Cancel(h))

		h2, err := timer.Start(3*time.Second, nil, nil)
		require.NoError(t, err)

		// Cancelling a stale handle must not free the new countdown's slot.
		require.False(t, timer.Cancel(h))
		require.True(t, timer.Active())

		time.Sleep(3 * time.Second)
		<-h2.Done()
		require.False(t, timer.Active())
	})
}

// TestTimer_RestartFromExpiry starts a follow-up countdown from inside the expiry callback path.
func TestTimer_RestartFromExpiry(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		timer := New(WithInterval(500 * time.Millisecond))
		restarted := make(chan error, 1)

		first, err := timer.Start(time.Second, nil, func() {
			_, err := timer.Start(time.Second, nil, nil)
			restarted <- err
		})
		require.NoError(t, err)

		<-first.Done()
		require.NoError(t, <-restarted)
		require.True(t, timer.Active())

		time.Sleep(time.Second)
		synctest.Wait()
		require.False(t, timer.Active())
	})
}
