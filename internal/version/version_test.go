package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
}

// TestFields pairs every key with its value.
func TestFields(t *testing.T) {
	t.Parallel()

	fields := Fields()
	require.Len(t, fields, 6)
	require.Equal(t, "version", fields[0])
	require.Equal(t, Short(), fields[1])
}
