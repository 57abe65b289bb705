// Package pg is the PostgreSQL store. Every mutating service operation runs
// inside one transaction via InTx so entity writes and audit entries commit
// together; the status-compare update turns lost races into ErrConflict.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"crewplane.org/internal/audit"
	"crewplane.org/internal/workforce"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps the connection pool.
type Store struct {
	db *sql.DB
}

var _ workforce.Store = (*Store)(nil)

// Open connects to PostgreSQL via the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing pool; tests hand in a mocked *sql.DB.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Timesheets() workforce.TimesheetStore {
	return &timesheetRepo{q: s.db}
}

func (s *Store) CrewSwaps() workforce.CrewSwapStore {
	return &crewSwapRepo{q: s.db}
}

func (s *Store) CrewAssignments() workforce.CrewAssignmentStore {
	return &assignmentRepo{q: s.db}
}

func (s *Store) Audit() audit.Store {
	return &auditRepo{q: s.db}
}

// InTx runs fn inside one database transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx workforce.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) Timesheets() workforce.TimesheetStore {
	return &timesheetRepo{q: t.tx}
}

func (t *pgTx) CrewSwaps() workforce.CrewSwapStore {
	return &crewSwapRepo{q: t.tx}
}

func (t *pgTx) CrewAssignments() workforce.CrewAssignmentStore {
	return &assignmentRepo{q: t.tx}
}

func (t *pgTx) Audit() audit.Store {
	return &auditRepo{q: t.tx}
}

// checkMoved distinguishes a vanished row from a lost status race after a
// compare-and-set update touched zero rows.
func checkMoved(ctx context.Context, q querier, table, what, id string) error {
	var status string
	err := q.QueryRowContext(ctx, `select status from `+table+` where id=$1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s %s", workforce.ErrNotFound, what, id)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s %s is now %s", workforce.ErrConflict, what, id, status)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
