// Package memory is the in-process store used by tests and the smoke
// scenario binary. Transactions stage their writes and apply them under one
// lock at commit, so the status-compare update gives the same conflict
// semantics as the SQL store.
package memory

import (
	"context"
	"sync"

	"crewplane.org/internal/audit"
	"crewplane.org/internal/workforce"
)

var _ workforce.Store = (*Store)(nil)

// Store holds every collection behind a single mutex.
type Store struct {
	mu          sync.RWMutex
	timesheets  map[string]*workforce.Timesheet
	swaps       map[string]*workforce.CrewSwap
	assignments map[string]*workforce.CrewAssignment
	entries     []audit.Entry
}

// New returns an empty store.
func New() *Store {
	return &Store{
		timesheets:  make(map[string]*workforce.Timesheet),
		swaps:       make(map[string]*workforce.CrewSwap),
		assignments: make(map[string]*workforce.CrewAssignment),
	}
}

func (s *Store) Timesheets() workforce.TimesheetStore {
	return &timesheetCol{s: s}
}

func (s *Store) CrewSwaps() workforce.CrewSwapStore {
	return &crewSwapCol{s: s}
}

func (s *Store) CrewAssignments() workforce.CrewAssignmentStore {
	return &assignmentCol{s: s}
}

func (s *Store) Audit() audit.Store {
	return &auditCol{s: s}
}

// InTx runs fn against a staging transaction. Writes are buffered; at commit
// every staged check runs under the lock before any write lands, so the
// transaction applies completely or not at all.
func (s *Store) InTx(ctx context.Context, fn func(tx workforce.Tx) error) error {
	t := &memTx{s: s}
	if err := fn(t); err != nil {
		return err
	}
	return t.commit(ctx)
}

type stagedOp struct {
	validate func() error
	apply    func()
}

type memTx struct {
	s   *Store
	ops []stagedOp
}

func (t *memTx) Timesheets() workforce.TimesheetStore {
	return &timesheetCol{s: t.s, tx: t}
}

func (t *memTx) CrewSwaps() workforce.CrewSwapStore {
	return &crewSwapCol{s: t.s, tx: t}
}

func (t *memTx) CrewAssignments() workforce.CrewAssignmentStore {
	return &assignmentCol{s: t.s, tx: t}
}

func (t *memTx) Audit() audit.Store {
	return &auditCol{s: t.s, tx: t}
}

func (t *memTx) commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, op := range t.ops {
		if op.validate != nil {
			if err := op.validate(); err != nil {
				return err
			}
		}
	}
	for _, op := range t.ops {
		op.apply()
	}
	return nil
}

// run stages the operation when inside a transaction, otherwise applies it
// immediately under the lock.
func run(s *Store, tx *memTx, validate func() error, apply func()) error {
	if tx != nil {
		tx.ops = append(tx.ops, stagedOp{validate: validate, apply: apply})
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if validate != nil {
		if err := validate(); err != nil {
			return err
		}
	}
	apply()
	return nil
}

func pageSlice[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	start := page * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
