// Package migrate applies SQL migration and seed files stored on disk.
// Applied file names are recorded in bookkeeping tables so reruns are
// idempotent, and a session advisory lock serializes concurrent runners.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"crewplane.org/internal/obs"
)

const (
	migrationsTable = "schema_migrations"
	seedsTable      = "schema_seeds"

	// lockKey is the advisory lock shared by every runner of this schema.
	lockKey = 742690317
)

// Runner executes migrations against one database.
type Runner struct {
	db            *sql.DB
	migrationsDir string
	seedsDir      string
}

// NewRunner constructs a Runner. seedsDir may be empty when the deployment
// carries no seed data.
func NewRunner(db *sql.DB, migrationsDir, seedsDir string) *Runner {
	return &Runner{db: db, migrationsDir: migrationsDir, seedsDir: seedsDir}
}

// Up applies every pending .up.sql file in name order.
func (r *Runner) Up(ctx context.Context) error {
	return r.locked(ctx, func() error {
		applied, err := r.applied(ctx, migrationsTable)
		if err != nil {
			return err
		}
		files, err := collectSQL(r.migrationsDir, ".up.sql")
		if err != nil {
			return err
		}
		for _, f := range files {
			if applied[f.base] {
				continue
			}
			started := time.Now()
			if err := r.execFile(ctx, f.path); err != nil {
				return fmt.Errorf("apply migration %s: %w", f.base, err)
			}
			if err := r.record(ctx, migrationsTable, f.base); err != nil {
				return err
			}
			obs.LogOperation(map[string]any{
				"msg":         "migration applied",
				"file":        f.base,
				"duration_ms": time.Since(started).Milliseconds(),
			})
		}
		return nil
	})
}

// Down rolls back the most recently applied migration using its .down.sql
// counterpart.
func (r *Runner) Down(ctx context.Context) error {
	return r.locked(ctx, func() error {
		history, err := r.history(ctx)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			return errors.New("migrate: nothing to roll back")
		}
		last := history[len(history)-1]
		downPath := strings.TrimSuffix(filepath.Join(r.migrationsDir, last), ".up.sql") + ".down.sql"
		if _, err := os.Stat(downPath); err != nil {
			return fmt.Errorf("migrate: missing down file for %s", last)
		}
		if err := r.execFile(ctx, downPath); err != nil {
			return fmt.Errorf("rollback migration %s: %w", last, err)
		}
		_, err = r.db.ExecContext(ctx, `delete from `+migrationsTable+` where name=$1`, last)
		if err == nil {
			obs.LogOperation(map[string]any{"msg": "migration rolled back", "file": last})
		}
		return err
	})
}

// Status returns applied migration names in apply order.
func (r *Runner) Status(ctx context.Context) ([]string, error) {
	if err := r.ensureTables(ctx); err != nil {
		return nil, err
	}
	return r.history(ctx)
}

// Seed applies every pending seed file in name order.
func (r *Runner) Seed(ctx context.Context) error {
	if r.seedsDir == "" {
		return nil
	}
	return r.locked(ctx, func() error {
		applied, err := r.applied(ctx, seedsTable)
		if err != nil {
			return err
		}
		files, err := collectSQL(r.seedsDir, ".sql")
		if err != nil {
			return err
		}
		for _, f := range files {
			if applied[f.base] {
				continue
			}
			if err := r.execFile(ctx, f.path); err != nil {
				return fmt.Errorf("apply seed %s: %w", f.base, err)
			}
			if err := r.record(ctx, seedsTable, f.base); err != nil {
				return err
			}
			obs.LogOperation(map[string]any{"msg": "seed applied", "file": f.base})
		}
		return nil
	})
}

// locked takes the advisory lock for the duration of fn. The lock rides on a
// dedicated connection so unlock pairs with the same session.
func (r *Runner) locked(ctx context.Context, fn func() error) error {
	if err := r.ensureTables(ctx); err != nil {
		return err
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, `select pg_advisory_lock($1)`, lockKey); err != nil {
		return err
	}
	defer func() { _, _ = conn.ExecContext(ctx, `select pg_advisory_unlock($1)`, lockKey) }()
	return fn()
}

func (r *Runner) ensureTables(ctx context.Context) error {
	for _, table := range []string{migrationsTable, seedsTable} {
		ddl := `create table if not exists ` + table + ` (
			name text primary key,
			applied_at timestamptz not null default now()
		)`
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) execFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Runner) record(ctx context.Context, table, name string) error {
	_, err := r.db.ExecContext(ctx, `insert into `+table+`(name) values ($1)`, name)
	return err
}

func (r *Runner) applied(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `select name from `+table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func (r *Runner) history(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `select name from `+migrationsTable+` order by applied_at asc, name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

type sqlFile struct {
	base string
	path string
}

func collectSQL(dir, suffix string) ([]sqlFile, error) {
	if dir == "" {
		return nil, nil
	}
	var files []sqlFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), suffix) {
			files = append(files, sqlFile{base: d.Name(), path: path})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].base < files[j].base })
	return files, nil
}

// splitStatements splits on semicolons outside single-quoted strings. Good
// enough for the DDL in migrations/; no dollar-quoted bodies are used there.
func splitStatements(sql string) []string {
	var (
		stmts    []string
		current  strings.Builder
		inString bool
	)
	for _, r := range sql {
		switch r {
		case '\'':
			current.WriteRune(r)
			inString = !inString
		case ';':
			current.WriteRune(r)
			if !inString {
				stmts = append(stmts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		stmts = append(stmts, current.String())
	}
	return stmts
}
