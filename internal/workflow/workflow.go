// Package workflow implements the role-gated approval chain shared by
// invoices and payment requests. A Definition is pure data: an ordered list
// of steps, the status implied while an aggregate sits at each step, and the
// roles allowed to decide there. Decide is a pure transition function with
// no side effects; persistence and audit belong to the calling service.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
	"github.com/fincontrol/fincontrol/internal/rbac"
)

// Action is a decision taken at a step.
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
)

// Wire-level action values accepted at the API boundary.
const (
	wireApproved        = "aprovado"
	wireApprovedPartial = "aprovado_parcial"
	wireRejected        = "rejeitado"
)

var (
	// ErrTerminal is returned when a decision targets an aggregate whose
	// status permits no further transitions.
	ErrTerminal = fmt.Errorf("%w: workflow state is terminal", httpx.ErrConflict)
	// ErrUnauthorized is returned when the acting role does not match the
	// current step and is not Admin.
	ErrUnauthorized = fmt.Errorf("%w: role not authorized for current step", httpx.ErrForbidden)
	// ErrInvalidAction is returned for an action outside the closed set.
	ErrInvalidAction = fmt.Errorf("%w: unknown workflow action", httpx.ErrValidation)
	// ErrUnknownStep is returned when the current step is not part of the
	// definition, which indicates corrupted state. Deliberately not
	// categorized so it surfaces as a 500.
	ErrUnknownStep = errors.New("workflow: unknown step")
)

// ParseAction converts a wire action value into an Action. Both approval
// variants map to ActionApprove; anything else fails with ErrInvalidAction.
func ParseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case wireApproved, wireApprovedPartial:
		return ActionApprove, nil
	case wireRejected:
		return ActionReject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, raw)
	}
}

// Step identifies a position in the approval pipeline.
type Step string

// Status is the outward-facing lifecycle state, richer than the step alone.
type Status string

// State pairs the step with the status it implies. Constructed only through
// Definition methods so the two can never drift apart.
type State struct {
	Step   Step
	Status Status
}

// StepSpec describes one position in the chain.
type StepSpec struct {
	Step   Step
	Status Status
	// Roles allowed to decide at this step besides Admin. Empty for the
	// final step, where no further decision exists.
	Roles []rbac.Role
}

// Definition is a complete approval chain. The last step is the absorbing
// success state; Rejected and Cancelled are absorbing side exits reachable
// from any earlier step.
type Definition struct {
	Name      string
	Steps     []StepSpec
	Rejected  Status
	Cancelled Status
}

// Initial returns the state a freshly created aggregate starts in.
func (d Definition) Initial() State {
	return State{Step: d.Steps[0].Step, Status: d.Steps[0].Status}
}

// IsTerminal reports whether no further transition is permitted from status.
func (d Definition) IsTerminal(status Status) bool {
	if status == d.Rejected || status == d.Cancelled {
		return true
	}
	return status == d.Steps[len(d.Steps)-1].Status
}

// StepIndex returns the position of step in the chain, or -1.
func (d Definition) StepIndex(step Step) int {
	for i, s := range d.Steps {
		if s.Step == step {
			return i
		}
	}
	return -1
}

// Authorized reports whether role may decide at step. Admin passes at any
// step.
func (d Definition) Authorized(step Step, role rbac.Role) bool {
	if role.IsAdmin() {
		return true
	}
	i := d.StepIndex(step)
	if i < 0 {
		return false
	}
	for _, r := range d.Steps[i].Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Decide computes the state following a decision by role at the current
// state. Preconditions are checked in order: the state must not be terminal,
// the role must be authorized for the current step (checked before the
// transition is computed), and the action must be a member of the closed
// set. On approve the state advances one step; on reject the step is kept so
// the record preserves where the chain was exited, and the status becomes
// the terminal rejected status.
func (d Definition) Decide(current State, action Action, role rbac.Role) (State, error) {
	if d.IsTerminal(current.Status) {
		return State{}, fmt.Errorf("%w: status %q", ErrTerminal, current.Status)
	}
	i := d.StepIndex(current.Step)
	if i < 0 {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownStep, current.Step)
	}
	if !d.Authorized(current.Step, role) {
		return State{}, fmt.Errorf("%w: role %q at step %q", ErrUnauthorized, role, current.Step)
	}
	switch action {
	case ActionApprove:
		if i+1 >= len(d.Steps) {
			return State{}, fmt.Errorf("%w: step %q has no successor", ErrTerminal, current.Step)
		}
		next := d.Steps[i+1]
		return State{Step: next.Step, Status: next.Status}, nil
	case ActionReject:
		return State{Step: current.Step, Status: d.Rejected}, nil
	default:
		return State{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

// Cancel moves a non-terminal state to the cancelled side exit, keeping the
// step for the record.
func (d Definition) Cancel(current State) (State, error) {
	if d.IsTerminal(current.Status) {
		return State{}, fmt.Errorf("%w: status %q", ErrTerminal, current.Status)
	}
	return State{Step: current.Step, Status: d.Cancelled}, nil
}

// Validate checks structural invariants of the definition: at least two
// steps, unique steps and statuses, side-exit statuses distinct from every
// step status. Called once at package init by the owners of a definition.
func (d Definition) Validate() error {
	if len(d.Steps) < 2 {
		return fmt.Errorf("workflow %s: need at least two steps", d.Name)
	}
	seenSteps := make(map[Step]struct{}, len(d.Steps))
	seenStatus := make(map[Status]struct{}, len(d.Steps))
	for _, s := range d.Steps {
		if _, dup := seenSteps[s.Step]; dup {
			return fmt.Errorf("workflow %s: duplicate step %q", d.Name, s.Step)
		}
		if _, dup := seenStatus[s.Status]; dup {
			return fmt.Errorf("workflow %s: duplicate status %q", d.Name, s.Status)
		}
		seenSteps[s.Step] = struct{}{}
		seenStatus[s.Status] = struct{}{}
	}
	if _, clash := seenStatus[d.Rejected]; clash || d.Rejected == "" {
		return fmt.Errorf("workflow %s: invalid rejected status", d.Name)
	}
	if _, clash := seenStatus[d.Cancelled]; clash || d.Cancelled == "" {
		return fmt.Errorf("workflow %s: invalid cancelled status", d.Name)
	}
	if len(d.Steps[len(d.Steps)-1].Roles) != 0 {
		return fmt.Errorf("workflow %s: final step must not accept decisions", d.Name)
	}
	return nil
}
