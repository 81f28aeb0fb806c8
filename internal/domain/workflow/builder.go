package workflow

import (
	"context"
	"fmt"
)

// Facts is the per-document data guards and dynamic targets read
type Facts struct {
	// SentToFinance is set once a document has been re-routed to Finance for an advance payment
	SentToFinance bool
	// ReturnedFrom is the stage a RETURNED document came back from
	ReturnedFrom Stage
}

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context, facts Facts) bool

// TargetFunc resolves a transition's destination at fire time
type TargetFunc func(facts Facts) (Stage, bool)

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a stage configuration for the given stage
	Configure(stage Stage) StageConfiguration

	// Build creates a new state machine positioned at the given stage
	Build(initial Stage, facts Facts) StateMachine
}

// StageConfiguration configures transitions out of a specific stage
type StageConfiguration interface {
	// Permit allows role to move the document to toStage with action
	Permit(action Action, role Role, toStage Stage) StageConfiguration

	// PermitIf is Permit with a guard that must pass
	PermitIf(action Action, role Role, toStage Stage, guard GuardFunc) StageConfiguration

	// PermitDynamic allows role to fire action with the destination resolved from the facts
	PermitDynamic(action Action, role Role, target TargetFunc) StageConfiguration
}

type transitionKey struct {
	action Action
	role   Role
}

type transition struct {
	toStage Stage
	target  TargetFunc
	guard   GuardFunc
}

func (t transition) resolve(ctx context.Context, facts Facts) (Stage, bool) {
	if t.guard != nil && !t.guard(ctx, facts) {
		return "", false
	}
	if t.target != nil {
		return t.target(facts)
	}
	return t.toStage, true
}

type stageConfig struct {
	fromStage   Stage
	transitions map[transitionKey][]transition
}

type stateMachineBuilder struct {
	configurations map[Stage]*stageConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[Stage]*stageConfig),
	}
}

// Configure returns a stage configuration for the given stage
func (b *stateMachineBuilder) Configure(stage Stage) StageConfiguration {
	if !stage.IsValid() {
		panic(fmt.Sprintf("invalid stage: %s", stage))
	}

	config, exists := b.configurations[stage]
	if !exists {
		config = &stageConfig{
			fromStage:   stage,
			transitions: make(map[transitionKey][]transition),
		}
		b.configurations[stage] = config
	}

	return config
}

// Build creates a new state machine instance. Configurations are copied so later
// builder calls do not leak into machines already handed out.
func (b *stateMachineBuilder) Build(initial Stage, facts Facts) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial stage: %s", initial))
	}

	configsCopy := make(map[Stage]*stageConfig, len(b.configurations))
	for stage, config := range b.configurations {
		transitionsCopy := make(map[transitionKey][]transition, len(config.transitions))
		for key, transitions := range config.transitions {
			transitionsCopy[key] = append([]transition{}, transitions...)
		}
		configsCopy[stage] = &stageConfig{
			fromStage:   stage,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		current:        initial,
		facts:          facts,
		configurations: configsCopy,
	}
}

// Permit allows role to move the document to toStage with action
func (c *stageConfig) Permit(action Action, role Role, toStage Stage) StageConfiguration {
	return c.PermitIf(action, role, toStage, nil)
}

// PermitIf is Permit with a guard that must pass
func (c *stageConfig) PermitIf(action Action, role Role, toStage Stage, guard GuardFunc) StageConfiguration {
	if !toStage.IsValid() {
		panic(fmt.Sprintf("invalid target stage: %s", toStage))
	}
	c.add(action, role, transition{toStage: toStage, guard: guard})
	return c
}

// PermitDynamic allows role to fire action with the destination resolved from the facts
func (c *stageConfig) PermitDynamic(action Action, role Role, target TargetFunc) StageConfiguration {
	if target == nil {
		panic("nil target func")
	}
	c.add(action, role, transition{target: target})
	return c
}

func (c *stageConfig) add(action Action, role Role, t transition) {
	if !action.IsValid() {
		panic(fmt.Sprintf("invalid action: %s", action))
	}
	if !role.IsValid() {
		panic(fmt.Sprintf("invalid role: %s", role))
	}
	key := transitionKey{action: action, role: role}
	c.transitions[key] = append(c.transitions[key], t)
}
