package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
	// User/channel mentions carry long numeric snowflake ids that the phone
	// pattern would otherwise eat, breaking the mention rendering.
	mentionRe = regexp.MustCompile(`<[@#][!&]?\d+>`)
)

// SetEnabled toggles PII redaction.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled returns true when redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text redacts emails and phone numbers when enabled. Mention tokens are
// preserved verbatim.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}

	mentions := mentionRe.FindAllString(in, -1)
	out := mentionRe.ReplaceAllString(in, "\x00m\x00")

	out = emailRe.ReplaceAllString(out, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")

	for _, m := range mentions {
		out = strings.Replace(out, "\x00m\x00", m, 1)
	}
	return out
}
