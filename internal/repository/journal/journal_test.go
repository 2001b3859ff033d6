package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/safe-walk/internal/domain/walk"
)

// sampleAlerts returns two alerts a minute apart, the manual one first.
func sampleAlerts() []*walk.AlertRecord {
	base := time.Date(2024, 11, 5, 18, 30, 0, 0, time.UTC)

	return []*walk.AlertRecord{
		{
			ID:            "alert-1",
			SessionID:     "session-1",
			Latitude:      43.6532,
			Longitude:     -79.3832,
			LocationKnown: true,
			Address:       walk.ManualAlertAddress,
			Reporter:      &walk.Actor{Hostname: "phone", Username: "walker"},
			CreatedAt:     base,
		},
		{
			ID:          "alert-2",
			SessionID:   "session-1",
			IsAutomatic: true,
			Address:     walk.AutomaticAlertAddress,
			CreatedAt:   base.Add(time.Minute),
		},
	}
}

// exerciseRepository runs the shared Repository contract against repo.
func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()

	ctx := context.Background()

	empty, err := repo.ListAlerts(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, empty)

	alerts := sampleAlerts()
	for _, a := range alerts {
		require.NoError(t, repo.SaveAlert(ctx, a))
	}

	require.Error(t, repo.SaveAlert(ctx, nil))

	got, err := repo.ListAlerts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, alerts[1], got[0])
	require.Equal(t, alerts[0], got[1])

	got, err = repo.ListAlerts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "alert-2", got[0].ID)
}

// TestSQLiteRepository covers alerts, idempotent inserts and the location trail.
func TestSQLiteRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	repo, err := OpenSQLite(ctx, path)
	require.NoError(t, err)

	exerciseRepository(t, repo)

	// Same ID again is ignored.
	require.NoError(t, repo.SaveAlert(ctx, sampleAlerts()[0]))

	all, err := repo.ListAlerts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	ts := time.Date(2024, 11, 5, 18, 30, 0, 0, time.UTC)
	require.NoError(t, repo.RecordPosition(ctx, "session-1", walk.PositionSample{Latitude: 1, Longitude: 2, Accuracy: 5, Timestamp: ts}))
	require.NoError(t, repo.RecordPosition(ctx, "session-1", walk.PositionSample{Latitude: 3, Longitude: 4, Accuracy: 6, Timestamp: ts.Add(time.Second)}))
	require.NoError(t, repo.RecordPosition(ctx, "session-2", walk.PositionSample{Latitude: 9, Longitude: 9, Timestamp: ts}))

	trail, err := repo.ListPositions(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	require.Equal(t, walk.PositionSample{Latitude: 1, Longitude: 2, Accuracy: 5, Timestamp: ts}, trail[0])
	require.InDelta(t, 3, trail[1].Latitude, 1e-9)

	require.NoError(t, repo.Close())

	// Reopening runs migrations again without error and keeps the data.
	repo, err = OpenSQLite(ctx, path)
	require.NoError(t, err)

	all, err = repo.ListAlerts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NoError(t, repo.Close())
}

// TestFileRepository covers the JSON-lines spool.
func TestFileRepository(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	exerciseRepository(t, NewFileRepository(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestFileRepository_Corrupt reports the offending line.
func TestFileRepository_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), DefaultFilePermissions))

	_, err := NewFileRepository(path).ListAlerts(context.Background(), 0)
	require.ErrorContains(t, err, "line 1")
}
