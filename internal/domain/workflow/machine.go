package workflow

import (
	"context"
	"fmt"
)

// StateMachine tracks a document's stage and validates transitions against the table
type StateMachine interface {
	// State returns the current stage
	State() Stage

	// Facts returns the facts as updated by the last successful Fire
	Facts() Facts

	// CanFire returns true if role may fire action from the current stage
	CanFire(ctx context.Context, action Action, role Role) bool

	// Fire executes the action, moving to the new stage if allowed.
	// On error the machine is left unchanged.
	Fire(ctx context.Context, action Action, role Role) error

	// PermittedActions returns the actions role may fire from the current stage
	PermittedActions(ctx context.Context, role Role) []Action
}

type stateMachine struct {
	current        Stage
	facts          Facts
	configurations map[Stage]*stageConfig
}

// State returns the current stage
func (m *stateMachine) State() Stage {
	return m.current
}

// Facts returns the facts as updated by the last successful Fire
func (m *stateMachine) Facts() Facts {
	return m.facts
}

// CanFire returns true if role may fire action from the current stage
func (m *stateMachine) CanFire(ctx context.Context, action Action, role Role) bool {
	_, err := m.next(ctx, action, role)
	return err == nil
}

// Fire executes the action, moving to the new stage if allowed
func (m *stateMachine) Fire(ctx context.Context, action Action, role Role) error {
	to, err := m.next(ctx, action, role)
	if err != nil {
		return err
	}

	from := m.current
	m.current = to
	switch {
	case to == StageReturned:
		m.facts.ReturnedFrom = from
	case from == StageReturned:
		m.facts.ReturnedFrom = ""
	}
	return nil
}

// PermittedActions returns the actions role may fire from the current stage
func (m *stateMachine) PermittedActions(ctx context.Context, role Role) []Action {
	actions := make([]Action, 0, len(allActions))
	for _, action := range allActions {
		if m.CanFire(ctx, action, role) {
			actions = append(actions, action)
		}
	}
	return actions
}

func (m *stateMachine) next(ctx context.Context, action Action, role Role) (Stage, error) {
	config, exists := m.configurations[m.current]
	if !exists {
		return "", fmt.Errorf("%w: %s cannot %s from %s (no configuration)", ErrInvalidTransition, role, action, m.current)
	}

	transitions := config.transitions[transitionKey{action: action, role: role}]
	if len(transitions) == 0 {
		return "", fmt.Errorf("%w: %s cannot %s from %s", ErrInvalidTransition, role, action, m.current)
	}

	// first passing transition wins
	for _, t := range transitions {
		if to, ok := t.resolve(ctx, m.facts); ok {
			return to, nil
		}
	}

	return "", fmt.Errorf("%w: %w: %s %s from %s", ErrInvalidTransition, ErrGuardFailed, role, action, m.current)
}
