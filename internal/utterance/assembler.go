// Package utterance buffers voiced frames into complete utterances bounded by
// a trailing-silence timeout and a maximum duration.
package utterance

import (
	"time"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/audio"
)

// Kind discriminates assembler events.
type Kind int

const (
	// Continuing means the frame was absorbed and no utterance is ready.
	Continuing Kind = iota
	// Completed carries a finished utterance.
	Completed
	// TimedOutEmpty is emitted by Flush when nothing voiced was buffered.
	TimedOutEmpty
)

// Event is the outcome of feeding one frame (or flushing).
type Event struct {
	Kind      Kind
	Utterance *Utterance
}

// Utterance is a contiguous run of voiced frames plus the silence that
// bridged or trailed them. It exists only until hand-off to the resolver.
type Utterance struct {
	Samples      []int16
	FirstSeq     uint32
	LastSeq      uint32
	VoicedFrames int
}

// PCM16LE renders the utterance audio as little-endian bytes.
func (u *Utterance) PCM16LE() []byte { return audio.EncodePCM16LE(u.Samples) }

// Duration reports the utterance span at the pipeline sample rate.
func (u *Utterance) Duration() time.Duration {
	return time.Duration(len(u.Samples)) * time.Second / audio.SampleRate
}

// Config bounds assembly.
type Config struct {
	// SilenceTimeout is how much trailing silence confirms end-of-utterance.
	SilenceTimeout time.Duration
	// MaxDuration force-completes an utterance to keep a stuck-open VAD from
	// buffering without bound.
	MaxDuration time.Duration
}

// DefaultConfig keeps the conservative inactivity window used in production:
// long enough not to cut the operator mid-sentence.
func DefaultConfig() Config {
	return Config{
		SilenceTimeout: 700 * time.Millisecond,
		MaxDuration:    10 * time.Second,
	}
}

type state int

const (
	stateIdle state = iota
	stateAccumulating
	stateTrailing
)

// Assembler is the utterance state machine. Not safe for concurrent use; the
// session coordinator serializes access.
type Assembler struct {
	cfg Config

	st              state
	buf             []int16
	firstSeq        uint32
	lastSeq         uint32
	voicedFrames    int
	trailingSamples int
}

// New creates an idle assembler.
func New(cfg Config) *Assembler {
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = DefaultConfig().SilenceTimeout
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultConfig().MaxDuration
	}
	return &Assembler{cfg: cfg}
}

func durToSamples(d time.Duration) int {
	return int(d * audio.SampleRate / time.Second)
}

// Feed advances the state machine with one classified frame.
func (a *Assembler) Feed(frame audio.Frame, voiced bool) Event {
	switch a.st {
	case stateIdle:
		if !voiced {
			return Event{Kind: Continuing}
		}
		a.st = stateAccumulating
		a.firstSeq = frame.Seq
		a.append(frame, voiced)
		return Event{Kind: Continuing}

	case stateAccumulating:
		a.append(frame, voiced)
		if voiced {
			if len(a.buf) >= durToSamples(a.cfg.MaxDuration) {
				return a.complete()
			}
			return Event{Kind: Continuing}
		}
		// speech often trails off; keep the frame and wait for confirmation
		a.st = stateTrailing
		a.trailingSamples = len(frame.Samples)
		return Event{Kind: Continuing}

	default: // stateTrailing
		a.append(frame, voiced)
		if voiced {
			// false end-of-speech, resume accumulating
			a.st = stateAccumulating
			a.trailingSamples = 0
			if len(a.buf) >= durToSamples(a.cfg.MaxDuration) {
				return a.complete()
			}
			return Event{Kind: Continuing}
		}
		a.trailingSamples += len(frame.Samples)
		if a.trailingSamples >= durToSamples(a.cfg.SilenceTimeout) {
			return a.complete()
		}
		return Event{Kind: Continuing}
	}
}

// Flush completes any in-progress utterance immediately; an utterance without
// voiced content is discarded.
func (a *Assembler) Flush() Event {
	if a.st == stateIdle || a.voicedFrames == 0 {
		a.reset()
		return Event{Kind: TimedOutEmpty}
	}
	return a.complete()
}

// Active reports whether an utterance is being assembled.
func (a *Assembler) Active() bool { return a.st != stateIdle }

func (a *Assembler) append(frame audio.Frame, voiced bool) {
	a.buf = append(a.buf, frame.Samples...)
	a.lastSeq = frame.Seq
	if voiced {
		a.voicedFrames++
	}
}

func (a *Assembler) complete() Event {
	u := &Utterance{
		Samples:      a.buf,
		FirstSeq:     a.firstSeq,
		LastSeq:      a.lastSeq,
		VoicedFrames: a.voicedFrames,
	}
	a.reset()
	return Event{Kind: Completed, Utterance: u}
}

func (a *Assembler) reset() {
	a.st = stateIdle
	a.buf = nil
	a.firstSeq = 0
	a.lastSeq = 0
	a.voicedFrames = 0
	a.trailingSamples = 0
}
