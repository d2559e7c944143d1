package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonDialogueService)
	if Reason(err) != ReasonDialogueService {
		t.Fatalf("expected reason %s, got %s", ReasonDialogueService, Reason(err))
	}
	if !HasReason(err, ReasonDialogueService) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonSTTService)
	second := Wrap(first, ReasonDialogueService)
	if Reason(second) != ReasonSTTService {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestSoftFailure(t *testing.T) {
	if !SoftFailure(ReasonNoAudio) || !SoftFailure(ReasonUnintelligible) {
		t.Fatalf("expected capture soft failures to be retryable")
	}
	if SoftFailure(ReasonDialogueService) || SoftFailure(ReasonParticipantAbsent) {
		t.Fatalf("service and absence failures must not be retryable")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
