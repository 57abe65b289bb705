// Package workflow resolves lifecycle transitions against per-entity state
// tables. A table is ordinary data: it maps the persisted status and a
// named operation to the target status and the roles allowed to perform
// the move. Anything absent from the table is an illegal transition.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"crewplane.org/internal/auth"
)

var (
	// ErrIllegalTransition is returned when no rule exists for the
	// entity's current status and the requested operation.
	ErrIllegalTransition = errors.New("workflow: illegal transition")

	// ErrReasonRequired is returned when a rule demands a non-blank
	// reason and none was supplied.
	ErrReasonRequired = errors.New("workflow: reason is required")
)

// State is an entity status value.
type State string

// Operation is a named lifecycle operation.
type Operation string

// Key addresses one rule in a table.
type Key struct {
	From State
	Op   Operation
}

// Rule describes a single legal move.
type Rule struct {
	Target        State
	Roles         []auth.Role
	RequireReason bool
}

// Table is the transition table for one entity kind.
type Table map[Key]Rule

// Resolve looks up the rule for (from, op). The lookup must use the
// persisted status read inside the mutating transaction, never a status the
// client supplied.
func (t Table) Resolve(from State, op Operation) (Rule, error) {
	rule, ok := t[Key{From: from, Op: op}]
	if !ok {
		return Rule{}, fmt.Errorf("%w: cannot %s from status %q", ErrIllegalTransition, op, from)
	}
	return rule, nil
}

// Apply resolves the rule, enforces its role gate and reason requirement,
// and returns the target state. Field writes specific to the operation are
// the caller's responsibility.
func (t Table) Apply(actor auth.Actor, from State, op Operation, reason string) (State, error) {
	rule, err := t.Resolve(from, op)
	if err != nil {
		return "", err
	}
	if err := auth.EnsureAnyRole(actor, rule.Roles...); err != nil {
		return "", err
	}
	if rule.RequireReason && strings.TrimSpace(reason) == "" {
		return "", fmt.Errorf("%w: operation %s", ErrReasonRequired, op)
	}
	return rule.Target, nil
}

// Operations returns the operations defined for a given source state.
// Useful for callers that surface available actions.
func (t Table) Operations(from State) []Operation {
	var ops []Operation
	for k := range t {
		if k.From == from {
			ops = append(ops, k.Op)
		}
	}
	return ops
}
