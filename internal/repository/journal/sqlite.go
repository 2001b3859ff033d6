package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/safe-walk/internal/domain/walk"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// errAlertRequired is returned when a nil alert is saved.
var errAlertRequired = errors.New("alert is required")

// SQLiteRepository keeps alerts and positions in a SQLite database.
type SQLiteRepository struct {
	// db is the underlying connection pool.
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping journal: %w", err)
	}

	if err = migrateUp(db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

// migrateUp applies all pending embedded migrations.
func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, new(migratesqlite.Config))
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	// The migrate instance is not closed: that would close db as well.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate journal: %w", err)
	}

	return nil
}

// Close releases the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// SaveAlert inserts the alert; saving the same ID twice is a no-op.
func (r *SQLiteRepository) SaveAlert(ctx context.Context, alert *walk.AlertRecord) error {
	if alert == nil {
		return errAlertRequired
	}

	var host, user sql.NullString
	if alert.Reporter != nil {
		host = sql.NullString{String: alert.Reporter.Hostname, Valid: true}
		user = sql.NullString{String: alert.Reporter.Username, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (
			alert_id, session_id, latitude, longitude, location_known,
			is_automatic, address, reporter_host, reporter_user, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (alert_id) DO NOTHING`,
		alert.ID,
		alert.SessionID,
		alert.Latitude,
		alert.Longitude,
		alert.LocationKnown,
		alert.IsAutomatic,
		alert.Address,
		host,
		user,
		alert.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	return nil
}

// ListAlerts returns the newest alerts first.
func (r *SQLiteRepository) ListAlerts(ctx context.Context, limit int) ([]*walk.AlertRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT alert_id, session_id, latitude, longitude, location_known,
		       is_automatic, address, reporter_host, reporter_user, created_at_ns
		FROM alerts
		ORDER BY created_at_ns DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var alerts []*walk.AlertRecord

	for rows.Next() {
		var (
			alert      walk.AlertRecord
			host, user sql.NullString
			createdAt  int64
		)

		err = rows.Scan(
			&alert.ID,
			&alert.SessionID,
			&alert.Latitude,
			&alert.Longitude,
			&alert.LocationKnown,
			&alert.IsAutomatic,
			&alert.Address,
			&host,
			&user,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}

		if host.Valid || user.Valid {
			alert.Reporter = &walk.Actor{Hostname: host.String, Username: user.String}
		}

		alert.CreatedAt = time.Unix(0, createdAt).UTC()
		alerts = append(alerts, &alert)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}

	return alerts, nil
}

// RecordPosition appends a fix to the location trail of a session.
func (r *SQLiteRepository) RecordPosition(ctx context.Context, sessionID string, p walk.PositionSample) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO positions (session_id, latitude, longitude, accuracy, recorded_at_ns)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID,
		p.Latitude,
		p.Longitude,
		p.Accuracy,
		p.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}

	return nil
}

// ListPositions returns the trail of a session, oldest first.
func (r *SQLiteRepository) ListPositions(ctx context.Context, sessionID string) ([]walk.PositionSample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT latitude, longitude, accuracy, recorded_at_ns
		FROM positions
		WHERE session_id = ?
		ORDER BY recorded_at_ns, position_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var trail []walk.PositionSample

	for rows.Next() {
		var (
			p          walk.PositionSample
			recordedAt int64
		)

		if err = rows.Scan(&p.Latitude, &p.Longitude, &p.Accuracy, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}

		p.Timestamp = time.Unix(0, recordedAt).UTC()
		trail = append(trail, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}

	return trail, nil
}
