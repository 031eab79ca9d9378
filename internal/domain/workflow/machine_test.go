package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestStage_IsTerminal(t *testing.T) {
	tests := []struct {
		stage    Stage
		expected bool
	}{
		{StageCreated, false},
		{StageDefectLogged, false},
		{StageAnalyzed, false},
		{StageDispositioned, false},
		{StageClosed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			if got := tt.stage.IsTerminal(); got != tt.expected {
				t.Errorf("Stage.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStage_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		stage    Stage
		expected bool
	}{
		{"valid stage", StageCreated, true},
		{"valid stage", StageClosed, true},
		{"invalid stage", Stage("REOPENED"), false},
		{"empty stage", Stage(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stage.IsValid(); got != tt.expected {
				t.Errorf("Stage.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTrigger_String(t *testing.T) {
	if got := TriggerClose.String(); got != "CLOSE" {
		t.Errorf("Trigger.String() = %v, want %v", got, "CLOSE")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidStage(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid stage")
		}
	}()

	NewBuilder().Configure(Stage("BOGUS"))
}

func TestBuilder_BuildPanicsOnInvalidInitialStage(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial stage")
		}
	}()

	NewBuilder().Build(Stage("BOGUS"))
}

func TestStageConfiguration_PermitIf_GuardFails(t *testing.T) {
	blocked := errors.New("blocked")
	builder := NewBuilder()
	builder.Configure(StageCreated).
		PermitIf(TriggerClose, StageClosed, func(ctx context.Context, s Subject) error { return blocked })

	machine := builder.Build(StageCreated)
	err := machine.Fire(context.Background(), TriggerClose, Subject{})
	if err == nil {
		t.Fatal("Fire() should fail when guard fails")
	}
	if !errors.Is(err, blocked) {
		t.Errorf("Fire() error = %v, want %v", err, blocked)
	}
	if machine.Stage() != StageCreated {
		t.Errorf("Stage should remain %v after failed Fire(), got %v", StageCreated, machine.Stage())
	}
}

func TestStageConfiguration_PermitIf_FallsThroughToNextTransition(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StageCreated).
		PermitIf(TriggerEdit, StageAnalyzed, func(ctx context.Context, s Subject) error { return errors.New("no") }).
		Permit(TriggerEdit, StageDefectLogged)

	machine := builder.Build(StageCreated)
	if err := machine.Fire(context.Background(), TriggerEdit, Subject{}); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine.Stage() != StageDefectLogged {
		t.Errorf("Stage after Fire() = %v, want %v", machine.Stage(), StageDefectLogged)
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StageCreated).Permit(TriggerEdit, StageCreated)

	machine := builder.Build(StageCreated)
	err := machine.Fire(context.Background(), TriggerClose, Subject{})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestStateMachine_Fire_NoConfiguration(t *testing.T) {
	machine := NewBuilder().Build(StageAnalyzed)
	err := machine.Fire(context.Background(), TriggerEdit, Subject{})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestStateMachine_Immutability(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StageCreated).Permit(TriggerEdit, StageCreated)
	machine := builder.Build(StageCreated)

	builder.Configure(StageCreated).Permit(TriggerClose, StageClosed)

	if machine.CanFire(TriggerClose) {
		t.Error("machine built earlier should not see later configuration")
	}
}

func TestLifecycle_PermittedTriggers(t *testing.T) {
	for _, stage := range OpenStages {
		triggers := lifecycle.Build(stage).PermittedTriggers()
		if len(triggers) != 2 || triggers[0] != TriggerClose || triggers[1] != TriggerEdit {
			t.Errorf("stage %s: PermittedTriggers() = %v, want [CLOSE EDIT]", stage, triggers)
		}
	}

	if triggers := lifecycle.Build(StageClosed).PermittedTriggers(); len(triggers) != 0 {
		t.Errorf("closed stage should have 0 permitted triggers, got %v", triggers)
	}
}
