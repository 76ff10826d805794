package telemetry

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/LdDl/lockon/lockon"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite Sink. Every Store instance is one run.
type Store struct {
	db     *sql.DB
	runID  uuid.UUID
	logger zerolog.Logger
}

// OpenStore opens (creates) database at path, applies pending migrations and registers a new run
func OpenStore(ctx context.Context, path string, label string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open telemetry database %q", path)
	}
	// Single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	store := &Store{
		db:     db,
		runID:  uuid.New(),
		logger: logger,
	}
	if err := store.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, label) VALUES (?, ?, ?)`,
		store.runID.String(), time.Now().UnixNano(), label)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "can't register run")
	}
	logger.Info().Str("run_id", store.runID.String()).Str("path", path).Msg("Telemetry store opened")
	return store, nil
}

func (store *Store) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "can't load embedded migrations")
	}
	driver, err := sqlite.WithInstance(store.db, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "can't create sqlite migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "can't create migrate instance")
	}
	m.Log = &migrateLogger{logger: store.logger}
	// m is not closed: that would close the underlying connection
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migration up failed")
	}
	return nil
}

// RunID returns identifier of the run this store writes to
func (store *Store) RunID() uuid.UUID {
	return store.runID
}

// RecordReport stores telemetry report
func (store *Store) RecordReport(ctx context.Context, report Report) error {
	lockID := ""
	if report.Locked {
		lockID = report.LockID.String()
	}
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO reports (
			run_id, ts, fps, detections, candidates,
			latency_mean_us, latency_stddev_us, latency_p95_us,
			locked, lock_id, frames, commits, errors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		store.runID.String(), report.Time.UnixNano(), report.FPS, report.Detections, report.Candidates,
		report.LatencyMean.Microseconds(), report.LatencyStdDev.Microseconds(), report.LatencyP95.Microseconds(),
		report.Locked, lockID, report.Counters.Frames, report.Counters.Commits, report.Counters.Errors,
	)
	if err != nil {
		return errors.Wrap(err, "can't insert report")
	}
	return nil
}

// RecordCommit stores commit event
func (store *Store) RecordCommit(ctx context.Context, event CommitEvent) error {
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO commits (run_id, ts, lock_id, target_x, target_y, pointer_x, pointer_y)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		store.runID.String(), event.Time.UnixNano(), event.LockID.String(),
		event.Target.X, event.Target.Y, event.Pointer.X, event.Pointer.Y,
	)
	if err != nil {
		return errors.Wrap(err, "can't insert commit")
	}
	return nil
}

// Commits returns commit events of the current run ordered by time
func (store *Store) Commits(ctx context.Context) ([]CommitEvent, error) {
	rows, err := store.db.QueryContext(ctx, `
		SELECT ts, lock_id, target_x, target_y, pointer_x, pointer_y
		FROM commits WHERE run_id = ? ORDER BY ts, commit_id`, store.runID.String())
	if err != nil {
		return nil, errors.Wrap(err, "can't query commits")
	}
	defer rows.Close()

	events := []CommitEvent{}
	for rows.Next() {
		var (
			ts             int64
			lockID         string
			tx, ty, px, py int
		)
		if err := rows.Scan(&ts, &lockID, &tx, &ty, &px, &py); err != nil {
			return nil, errors.Wrap(err, "can't scan commit")
		}
		id, err := uuid.Parse(lockID)
		if err != nil {
			return nil, errors.Wrapf(err, "bad lock id %q", lockID)
		}
		events = append(events, CommitEvent{
			Time:    time.Unix(0, ts),
			LockID:  id,
			Target:  lockon.NewPoint(tx, ty),
			Pointer: lockon.NewPoint(px, py),
		})
	}
	return events, errors.Wrap(rows.Err(), "can't iterate commits")
}

// ReportCount returns number of reports stored for the current run
func (store *Store) ReportCount(ctx context.Context) (int, error) {
	var n int
	err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE run_id = ?`, store.runID.String()).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "can't count reports")
	}
	return n, nil
}

// Close closes database
func (store *Store) Close() error {
	return store.db.Close()
}

// migrateLogger adapts zerolog to migrate.Logger
type migrateLogger struct {
	logger zerolog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
