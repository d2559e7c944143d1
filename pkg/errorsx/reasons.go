package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// Turn-level outcomes.
	ReasonParticipantAbsent ReasonCode = "participant_absent"
	ReasonNoAudio           ReasonCode = "no_audio"
	ReasonUnintelligible    ReasonCode = "unintelligible"
	ReasonSTTService        ReasonCode = "stt_service"
	ReasonNoDialogueReply   ReasonCode = "dialogue_no_reply"
	ReasonDialogueService   ReasonCode = "dialogue_service"
	ReasonSynthesisFailed   ReasonCode = "synthesis_failed"
	ReasonPlaybackBusy      ReasonCode = "playback_busy"
	ReasonVoiceConnLost     ReasonCode = "voice_connection_lost"

	// Control-surface rejections.
	ReasonAlreadyActive      ReasonCode = "already_active"
	ReasonConversationActive ReasonCode = "conversation_active"
	ReasonSessionNotFound    ReasonCode = "session_not_found"

	// Provider-level plumbing.
	ReasonCaptureStart     ReasonCode = "capture_start"
	ReasonDialogueConnect  ReasonCode = "dialogue_connect"
	ReasonDialogueSend     ReasonCode = "dialogue_send"
	ReasonSynthesisConnect ReasonCode = "synthesis_connect"
	ReasonRateLimit        ReasonCode = "rate_limit"
)

// SoftFailure reports whether a reason is recoverable by re-listening
// rather than stopping the conversation loop.
func SoftFailure(reason ReasonCode) bool {
	switch reason {
	case ReasonNoAudio, ReasonUnintelligible:
		return true
	default:
		return false
	}
}
