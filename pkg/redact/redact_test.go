package redact

import (
	"strings"
	"testing"
)

func TestRedactDisabled(t *testing.T) {
	SetEnabled(false)
	in := "email a@b.com and phone +62 812 3456 7890"
	if got := Text(in); got != in {
		t.Fatalf("expected no redaction, got %q", got)
	}
}

func TestRedactEnabled(t *testing.T) {
	SetEnabled(true)
	in := "email a@b.com and phone +62 812 3456 7890"
	got := Text(in)
	if got == in {
		t.Fatalf("expected redaction")
	}
	if want := "[REDACTED_EMAIL]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
	if want := "[REDACTED_PHONE]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
}

func TestRedactPreservesMentions(t *testing.T) {
	SetEnabled(true)
	in := "<@123456789012345678> call me at +62 812 3456 7890"
	got := Text(in)
	if !strings.Contains(got, "<@123456789012345678>") {
		t.Fatalf("mention must survive redaction, got %q", got)
	}
	if !strings.Contains(got, "[REDACTED_PHONE]") {
		t.Fatalf("phone must still be redacted, got %q", got)
	}
}
