package location

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/safe-walk/internal/domain/walk"
)

// TestCache_RoundTrip checks Current returns exactly the last update until the next one.
func TestCache_RoundTrip(t *testing.T) {
	t.Parallel()

	c := NewCache()

	_, ok := c.Current()
	require.False(t, ok)

	_, err := c.Require()
	require.ErrorIs(t, err, ErrLocationUnavailable)

	first := walk.PositionSample{
		Latitude:  43.6532,
		Longitude: -79.3832,
		Accuracy:  12.5,
		Timestamp: time.Date(2024, 11, 5, 18, 30, 0, 0, time.UTC),
	}
	c.Update(first)

	for range 3 {
		got, ok := c.Current()
		require.True(t, ok)
		require.Equal(t, first, got)
	}

	second := first
	second.Latitude = 43.7
	c.Update(second)

	got, err := c.Require()
	require.NoError(t, err)
	require.Equal(t, second, got)

	c.Clear()

	_, ok = c.Current()
	require.False(t, ok)
}

// TestCache_NoStalenessCheck documents that old fixes are still reported as current.
func TestCache_NoStalenessCheck(t *testing.T) {
	t.Parallel()

	c := NewCache()
	old := walk.PositionSample{Latitude: 1, Longitude: 2, Timestamp: time.Now().Add(-time.Hour)}
	c.Update(old)

	got, ok := c.Current()
	require.True(t, ok)
	require.Equal(t, old, got)
}
