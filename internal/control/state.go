// Package control owns the authoritative PWM value and conversation history
// for a session. Commit is a pure function: all mutation of device state is
// funneled through it.
package control

import "time"

// PWM bounds. The device interprets the control value as an 8-bit intensity.
const (
	PWMMin = 0
	PWMMax = 255
)

// Classification tags how an utterance was categorized by the resolver.
// Device self-noise and background noise both commit as no-ops, but keeping
// them apart matters for observability.
type Classification string

const (
	ClassCommand         Classification = "command"
	ClassNoIntent        Classification = "no_intent"
	ClassDeviceNoise     Classification = "device_noise"
	ClassBackgroundNoise Classification = "background_noise"
	ClassNoSpeech        Classification = "no_speech"
)

// Outcome is the resolver's verdict for one utterance. Produced once, never
// mutated.
type Outcome struct {
	Transcription    string
	Response         string
	IntentDetected   bool
	Confidence       float64
	SuggestedPWM     *int
	DetectedLanguage string
	Classification   Classification
}

// Turn is one committed exchange. Immutable once appended.
type Turn struct {
	User           string
	Reply          string
	PWM            int
	IntentDetected bool
	Classification Classification
	At             time.Time
}

// State is the per-session conversation state. Exactly one live State exists
// per active session and it changes only through Commit or Reset.
type State struct {
	SessionID string
	PWM       int
	Turns     []Turn
}

// NewState starts a session at rest (PWM 0).
func NewState(sessionID string) State {
	return State{SessionID: sessionID, PWM: PWMMin}
}

// Clamp bounds a suggested value to the legal PWM range.
func Clamp(v int) int {
	if v < PWMMin {
		return PWMMin
	}
	if v > PWMMax {
		return PWMMax
	}
	return v
}

// Commit applies a resolver outcome to the prior state and returns the new
// state plus the appended turn. It performs no I/O and is deterministic given
// its inputs except for the turn timestamp.
//
// Policy: without a detected intent, or below minConfidence, the PWM is
// unchanged but a turn is still appended so the operator sees the reply. A
// sufficiently confident intent commits the clamped suggested value. Commit
// never sees silence-only utterances; the assembler filters those earlier.
func Commit(o Outcome, prior State, minConfidence float64) (State, Turn) {
	pwm := prior.PWM
	applied := o.IntentDetected && o.Confidence >= minConfidence && o.SuggestedPWM != nil
	if applied {
		pwm = Clamp(*o.SuggestedPWM)
	}

	class := o.Classification
	if class == "" {
		if applied {
			class = ClassCommand
		} else {
			class = ClassNoIntent
		}
	}
	if !applied && class == ClassCommand {
		// a rejected command is recorded as no-intent, not as a command
		class = ClassNoIntent
	}

	turn := Turn{
		User:           o.Transcription,
		Reply:          o.Response,
		PWM:            pwm,
		IntentDetected: applied,
		Classification: class,
		At:             time.Now(),
	}

	next := State{
		SessionID: prior.SessionID,
		PWM:       pwm,
		Turns:     make([]Turn, len(prior.Turns), len(prior.Turns)+1),
	}
	copy(next.Turns, prior.Turns)
	next.Turns = append(next.Turns, turn)
	return next, turn
}

// Reset returns the state to rest, preserving history.
func Reset(prior State) State {
	next := prior
	next.PWM = PWMMin
	return next
}

// RecentTurns returns at most n of the latest turns, oldest first. Used to
// bound the history window sent to the resolver.
func (s State) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// TrimHistory drops all but the latest n turns in place.
func (s *State) TrimHistory(n int) {
	if n >= 0 && len(s.Turns) > n {
		kept := make([]Turn, n)
		copy(kept, s.Turns[len(s.Turns)-n:])
		s.Turns = kept
	}
}

// NoSpeech is the canned outcome for a silence-only utterance; it never
// reaches Commit and never appends a turn.
func NoSpeech() Outcome {
	return Outcome{
		Response:       "no speech detected",
		Classification: ClassNoSpeech,
	}
}
