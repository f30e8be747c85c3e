package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"ionbatch/internal/outcome"
	"ionbatch/internal/services"
)

const (
	databaseName = "project.db"
	lockName     = "project.lock"
)

// ErrLocked indicates another run holds the project lock.
var ErrLocked = errors.New("project is locked by another run")

// Store manages outcome persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Open creates or opens the project in dir and takes its write lock.
func Open(dir string) (*Store, error) {
	return open(dir, true)
}

// OpenReadOnly opens an existing project without taking the write lock.
func OpenReadOnly(dir string) (*Store, error) {
	if _, err := os.Stat(filepath.Join(dir, databaseName)); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "project", "open", fmt.Sprintf("no project in %s", dir), err)
	}
	return open(dir, false)
}

func open(dir string, writable bool) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "project", "open", "project directory required", nil)
	}
	if writable {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "project", "open", "create project directory", err)
		}
	}

	store := &Store{path: filepath.Join(dir, databaseName)}
	if writable {
		store.lock = flock.New(filepath.Join(dir, lockName))
		ok, err := store.lock.TryLock()
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "project", "lock", dir, err)
		}
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "project", "lock", dir, ErrLocked)
		}
	}

	db, err := sql.Open("sqlite", store.path)
	if err != nil {
		store.unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	store.db = db

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := store.initSchema(context.Background(), writable); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database and releases the project lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
	}
	s.unlock()
	return err
}

func (s *Store) unlock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
		s.lock = nil
	}
}

// MaxIndex returns the largest stored instance index. ok is false for a
// project without outcomes.
func (s *Store) MaxIndex(ctx context.Context) (idx int, ok bool, err error) {
	var stored sql.NullInt64
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT MAX(instance_index) FROM outcomes").Scan(&stored); err != nil {
		return 0, false, fmt.Errorf("max index: %w", err)
	}
	if !stored.Valid {
		return 0, false, nil
	}
	return int(stored.Int64), true, nil
}

// Write persists rec and its ranked candidates, replacing any earlier record
// for the same instance index.
func (s *Store) Write(ctx context.Context, rec outcome.Record) error {
	ctx = ensureContext(ctx)
	runID, _ := services.RunIDFromContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.writeRecord(ctx, runID, rec)
	})
}

func (s *Store) writeRecord(ctx context.Context, runID string, rec outcome.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM outcomes WHERE instance_index = ?", rec.Index); err != nil {
		return fmt.Errorf("replace outcome %d: %w", rec.Index, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO outcomes (
            instance_index, run_id, name, source_file, ion_type, ion_mass,
            kind, message, correlation_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Index,
		nullableString(runID),
		nullableString(rec.Name),
		nullableString(rec.SourceFile),
		nullableString(rec.IonType),
		rec.IonMass,
		string(rec.Kind),
		nullableString(rec.Message),
		nullableString(rec.CorrelationID),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert outcome %d: %w", rec.Index, err)
	}
	for rank, c := range rec.Candidates {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO candidates (
                instance_index, rank, formula, ion_type, score, tree_score,
                isotope_score, tree_size, explained_intensity, isotope_peaks
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Index,
			rank+1,
			c.Formula.String(),
			nullableString(c.IonType.String()),
			c.Score,
			c.TreeScore,
			c.IsotopeScore,
			c.TreeSize,
			c.ExplainedIntensity,
			c.IsotopePeaks,
		)
		if err != nil {
			return fmt.Errorf("insert candidate %d/%d: %w", rec.Index, rank+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outcome %d: %w", rec.Index, err)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
