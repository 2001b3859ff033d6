package server

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/safe-walk/internal/config"
	"github.com/oshokin/safe-walk/internal/domain/walk"
	"github.com/oshokin/safe-walk/internal/repository/journal"
)

func writeSettings(t *testing.T, journals config.Journal) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(path, &config.Config{
		ServerAddress: "127.0.0.1:50051",
		Journal:       journals,
	}))

	return path
}

// TestAlertsAndTrail reads back what a session journaled.
func TestAlertsAndTrail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	at := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)

	repo, err := journal.OpenSQLite(ctx, dbPath)
	require.NoError(t, err)

	require.NoError(t, repo.SaveAlert(ctx, &walk.AlertRecord{
		ID:          "alert-1",
		SessionID:   "session-1",
		IsAutomatic: true,
		Address:     walk.AutomaticAlertAddress,
		Reporter:    &walk.Actor{Hostname: "phone", Username: "alice"},
		CreatedAt:   at,
	}))
	require.NoError(t, repo.RecordPosition(ctx, "session-1", walk.PositionSample{
		Latitude: 52.52, Longitude: 13.405, Accuracy: 8, Timestamp: at,
	}))
	require.NoError(t, repo.Close())

	opts := &HistoryOptions{ConfigPath: writeSettings(t, config.Journal{SQLitePath: dbPath})}

	var out bytes.Buffer

	require.NoError(t, Alerts(ctx, opts, &out))
	require.Equal(t, 1, strings.Count(out.String(), "\n"))
	require.Contains(t, out.String(), "alert-1")
	require.Contains(t, out.String(), "automatic")
	require.Contains(t, out.String(), "location=-")
	require.Contains(t, out.String(), "alice@phone")

	out.Reset()
	require.NoError(t, Trail(ctx, opts, "session-1", &out))
	require.Equal(t, "2026-03-01T21:00:00Z 52.520000,13.405000 ±8m\n", out.String())

	out.Reset()
	require.NoError(t, Trail(ctx, opts, "session-2", &out))
	require.Empty(t, out.String())
}

// TestAlerts_FileSpool falls back to the JSON-lines journal.
func TestAlerts_FileSpool(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	spool := filepath.Join(t.TempDir(), "alerts.jsonl")

	require.NoError(t, journal.NewFileRepository(spool).SaveAlert(ctx, &walk.AlertRecord{
		ID:            "alert-2",
		LocationKnown: true,
		Latitude:      1.5,
		Longitude:     2.5,
		Address:       walk.ManualAlertAddress,
		CreatedAt:     time.Now(),
	}))

	opts := &HistoryOptions{ConfigPath: writeSettings(t, config.Journal{FilePath: spool})}

	var out bytes.Buffer

	require.NoError(t, Alerts(ctx, opts, &out))
	require.Contains(t, out.String(), "alert-2")
	require.Contains(t, out.String(), "location=1.500000,2.500000")

	require.ErrorIs(t, Trail(ctx, opts, "session-1", &out), ErrNoTrail)
}

// TestAlerts_NoJournal reports the missing configuration.
func TestAlerts_NoJournal(t *testing.T) {
	t.Parallel()

	opts := &HistoryOptions{ConfigPath: writeSettings(t, config.Journal{})}

	require.ErrorIs(t, Alerts(context.Background(), opts, new(bytes.Buffer)), ErrNoJournal)
}
