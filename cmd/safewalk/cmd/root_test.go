package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/safe-walk/internal/domain/walk"
)

// TestParsePosition covers the optional accuracy and range checks.
func TestParsePosition(t *testing.T) {
	t.Parallel()

	p, err := parsePosition([]string{"52.52", "13.405"})
	require.NoError(t, err)
	require.Equal(t, walk.PositionSample{Latitude: 52.52, Longitude: 13.405}, p)

	p, err = parsePosition([]string{"-33.86", "151.21", "12.5"})
	require.NoError(t, err)
	require.InDelta(t, 12.5, p.Accuracy, 1e-9)

	_, err = parsePosition([]string{"north", "13.405"})
	require.Error(t, err)

	_, err = parsePosition([]string{"95", "13.405"})
	require.ErrorIs(t, err, walk.ErrInvalidPosition)
}
