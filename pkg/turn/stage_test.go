package turn

import "testing"

func TestStageMachineHappyPath(t *testing.T) {
	m := newStageMachine()
	order := []Stage{StageTranscribing, StageQuerying, StageSynthesizing, StagePlaying, StageDone}
	for _, next := range order {
		if err := m.Advance(next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	if m.Stage() != StageDone {
		t.Fatalf("expected DONE, got %s", m.Stage())
	}
}

func TestStageMachineRejectsSkips(t *testing.T) {
	m := newStageMachine()
	if err := m.Advance(StageQuerying); err == nil {
		t.Fatalf("expected error skipping transcription")
	}
	if m.Stage() != StageCapturing {
		t.Fatalf("failed advance must not move the stage, got %s", m.Stage())
	}
}

func TestStageMachineFailFromAnyActiveStage(t *testing.T) {
	m := newStageMachine()
	_ = m.Advance(StageTranscribing)
	if err := m.Advance(StageFailed); err != nil {
		t.Fatalf("fail from TRANSCRIBING: %v", err)
	}
	if err := m.Advance(StageFailed); err == nil {
		t.Fatalf("FAILED is terminal, expected error")
	}
}

func TestStageMachineDoneIsTerminal(t *testing.T) {
	m := newStageMachine()
	for _, next := range []Stage{StageTranscribing, StageQuerying, StageSynthesizing, StagePlaying, StageDone} {
		_ = m.Advance(next)
	}
	if err := m.Advance(StageFailed); err == nil {
		t.Fatalf("expected no transition out of DONE")
	}
	if !StageDone.Terminal() || !StageFailed.Terminal() || StagePlaying.Terminal() {
		t.Fatalf("terminal classification wrong")
	}
}
