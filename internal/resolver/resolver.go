// Package resolver defines the narrow contract to the external speech+intent
// capability and its client implementations. The inference itself is opaque,
// possibly slow and possibly failing; callers must pass a bounded context.
package resolver

import (
	"context"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/control"
)

// Request carries one utterance plus the conversational context the backend
// needs to ground its decision.
type Request struct {
	// Audio is raw PCM16LE mono at SampleRate.
	Audio      []byte `json:"audio"`
	SampleRate int    `json:"sample_rate"`
	// LanguageCode is optional; empty means auto-detect.
	LanguageCode string        `json:"language_code,omitempty"`
	CurrentPWM   int           `json:"current_pwm"`
	History      []HistoryTurn `json:"conversation_history,omitempty"`
}

// HistoryTurn is the wire form of a committed turn.
type HistoryTurn struct {
	User  string `json:"user"`
	Reply string `json:"reply"`
	PWM   int    `json:"pwm"`
}

// Response is the resolver's verdict. NewPWM is nil when the backend made no
// suggestion.
type Response struct {
	Success          bool    `json:"success"`
	Transcription    string  `json:"transcription"`
	Response         string  `json:"response"`
	IntentDetected   bool    `json:"intent_detected"`
	Confidence       float64 `json:"confidence"`
	NewPWM           *int    `json:"new_pwm_value,omitempty"`
	DetectedLanguage string  `json:"detected_language,omitempty"`
	Classification   string  `json:"classification,omitempty"`
	Error            string  `json:"error,omitempty"`
}

// Resolver is the external capability boundary.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (Response, error)
}

// HistoryFromTurns converts committed turns into the wire form.
func HistoryFromTurns(turns []control.Turn) []HistoryTurn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]HistoryTurn, len(turns))
	for i, t := range turns {
		out[i] = HistoryTurn{User: t.User, Reply: t.Reply, PWM: t.PWM}
	}
	return out
}

// Outcome maps a successful response into the control-layer outcome.
func (r Response) Outcome() control.Outcome {
	return control.Outcome{
		Transcription:    r.Transcription,
		Response:         r.Response,
		IntentDetected:   r.IntentDetected,
		Confidence:       r.Confidence,
		SuggestedPWM:     r.NewPWM,
		DetectedLanguage: r.DetectedLanguage,
		Classification:   control.Classification(r.Classification),
	}
}
