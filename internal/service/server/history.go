package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/safe-walk/internal/config"
	"github.com/oshokin/safe-walk/internal/domain/walk"
	"github.com/oshokin/safe-walk/internal/logger"
	"github.com/oshokin/safe-walk/internal/repository/journal"
)

var (
	// ErrNoJournal indicates that neither journal is configured.
	ErrNoJournal = errors.New("no alert journal configured")
	// ErrNoTrail indicates that the position trail needs the SQLite journal.
	ErrNoTrail = errors.New("position trail requires the sqlite journal")
)

// HistoryOptions controls the journal readers of safewalk-server.
type HistoryOptions struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// Limit caps the number of alerts, journal default when not positive.
	Limit int
}

// Alerts writes the newest journaled alerts to w, one per line. The SQLite
// journal is preferred over the file spool when both are configured.
func Alerts(ctx context.Context, opts *HistoryOptions, w io.Writer) error {
	ctx = logger.WithName(ctx, "safewalk-alerts")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	var repo journal.Repository

	switch {
	case settings.Journal.SQLitePath != "":
		sqlite, err := journal.OpenSQLite(ctx, settings.Journal.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite journal: %w", err)
		}

		defer func() {
			_ = sqlite.Close()
		}()

		repo = sqlite
	case settings.Journal.FilePath != "":
		repo = journal.NewFileRepository(settings.Journal.FilePath)
	default:
		return ErrNoJournal
	}

	alerts, err := repo.ListAlerts(ctx, opts.Limit)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	for _, alert := range alerts {
		if _, err := fmt.Fprintln(w, formatJournalAlert(alert)); err != nil {
			return err
		}
	}

	logger.DebugKV(ctx, "Alerts listed", "count", len(alerts))

	return nil
}

// Trail writes the positions recorded during a session to w, oldest first.
func Trail(ctx context.Context, opts *HistoryOptions, sessionID string, w io.Writer) error {
	ctx = logger.WithName(ctx, "safewalk-trail")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if settings.Journal.SQLitePath == "" {
		return ErrNoTrail
	}

	repo, err := journal.OpenSQLite(ctx, settings.Journal.SQLitePath)
	if err != nil {
		return fmt.Errorf("open sqlite journal: %w", err)
	}

	defer func() {
		_ = repo.Close()
	}()

	positions, err := repo.ListPositions(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}

	for _, p := range positions {
		_, err := fmt.Fprintf(w, "%s %.6f,%.6f ±%.0fm\n",
			p.Timestamp.Format(time.RFC3339), p.Latitude, p.Longitude, p.Accuracy)
		if err != nil {
			return err
		}
	}

	logger.DebugKV(ctx, "Trail listed", "session_id", sessionID, "count", len(positions))

	return nil
}

func formatJournalAlert(alert *walk.AlertRecord) string {
	kind := "manual"
	if alert.IsAutomatic {
		kind = "automatic"
	}

	location := "-"
	if alert.LocationKnown {
		location = fmt.Sprintf("%.6f,%.6f", alert.Latitude, alert.Longitude)
	}

	return fmt.Sprintf("%s %-9s %s session=%s location=%s reporter=%s %q",
		alert.CreatedAt.Format(time.RFC3339),
		kind,
		alert.ID,
		alert.SessionID,
		location,
		alert.Reporter.String(),
		alert.Address,
	)
}
