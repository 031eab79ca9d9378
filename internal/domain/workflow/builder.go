package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a transition may proceed. A non-nil error blocks it.
type GuardFunc func(ctx context.Context, subject Subject) error

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a stage configuration for the given stage
	Configure(stage Stage) StageConfiguration

	// Build creates a new state machine instance positioned at the given stage
	Build(initial Stage) StateMachine
}

// StageConfiguration configures transitions for a specific stage
type StageConfiguration interface {
	// Permit allows a trigger to transition to the target stage
	Permit(trigger Trigger, to Stage) StageConfiguration

	// PermitIf allows a trigger to transition to the target stage if the guard passes
	PermitIf(trigger Trigger, to Stage, guard GuardFunc) StageConfiguration
}

type transition struct {
	to    Stage
	guard GuardFunc
}

type stageConfig struct {
	from        Stage
	transitions map[Trigger][]transition
}

type stateMachineBuilder struct {
	configurations map[Stage]*stageConfig
}

type stateMachine struct {
	current        Stage
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
			from:        stage,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[stage] = config
	}

	return config
}

// Build creates a new state machine instance positioned at the given stage.
// Later Configure calls on the builder do not affect machines already built.
func (b *stateMachineBuilder) Build(initial Stage) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial stage: %s", initial))
	}

	configsCopy := make(map[Stage]*stageConfig, len(b.configurations))
	for stage, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition, len(config.transitions))
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, transitions...)
		}
		configsCopy[stage] = &stageConfig{
			from:        stage,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		current:        initial,
		configurations: configsCopy,
	}
}

// Permit allows a trigger to transition to the target stage
func (c *stageConfig) Permit(trigger Trigger, to Stage) StageConfiguration {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf allows a trigger to transition to the target stage if the guard passes
func (c *stageConfig) PermitIf(trigger Trigger, to Stage, guard GuardFunc) StageConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target stage: %s", to))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		to:    to,
		guard: guard,
	})

	return c
}

// Stage returns the current stage
func (m *stateMachine) Stage() Stage {
	return m.current
}

// CanFire returns true if the trigger is configured for the current stage.
// Guards are not evaluated.
func (m *stateMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.current]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

// Fire tries each configured transition in order and takes the first whose
// guard passes. When every guard fails, the first guard error is returned.
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger, subject Subject) error {
	config, exists := m.configurations[m.current]
	if !exists {
		return fmt.Errorf("%w: cannot fire trigger %s from stage %s (no configuration)", ErrInvalidTransition, trigger, m.current)
	}

	transitions := config.transitions[trigger]
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s from stage %s", ErrInvalidTransition, trigger, m.current)
	}

	var firstErr error
	for _, t := range transitions {
		if t.guard == nil {
			m.current = t.to
			return nil
		}
		err := t.guard(ctx, subject)
		if err == nil {
			m.current = t.to
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	return fmt.Errorf("trigger %s from stage %s: %w", trigger, m.current, firstErr)
}

// PermittedTriggers returns all triggers configured for the current stage, sorted
func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.current]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })

	return triggers
}
