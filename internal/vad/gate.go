// Package vad classifies audio frames as voiced or silent from signal energy.
package vad

import "github.com/LennoxSears/dulaan-backend-sub001/internal/audio"

// Config holds the energy-gate tuning knobs. The source deployments disagree
// on exact values, so everything is configurable.
type Config struct {
	// Margin is the multiplicative factor over the noise-floor baseline a
	// frame's RMS must exceed to count as voiced.
	Margin float64
	// Decay is the exponential decay applied to the baseline on silent frames.
	Decay float64
	// FloorRMS is an absolute minimum energy below which a frame is never
	// voiced, regardless of how quiet the baseline has become.
	FloorRMS float64
	// WarmupFrames frames are classified unvoiced while the baseline settles,
	// to avoid false triggers on startup noise.
	WarmupFrames int
}

// DefaultConfig matches a 16kHz mono stream with ~100ms frames.
func DefaultConfig() Config {
	return Config{
		Margin:       2.5,
		Decay:        0.95,
		FloorRMS:     250.0,
		WarmupFrames: 10,
	}
}

// Baseline is the gate's only retained state: the decayed noise floor and how
// many frames fed it. Exposing it keeps classification pure per frame.
type Baseline struct {
	Energy float64
	Frames int
}

// Classify decides whether a frame is voiced given the running baseline, and
// returns the updated baseline. Pure given (frame, baseline).
func Classify(cfg Config, frame audio.Frame, b Baseline) (bool, Baseline) {
	rms := audio.RMS(frame.Samples)

	if b.Frames < cfg.WarmupFrames {
		// seed the floor with a running average during warmup
		if b.Frames == 0 {
			b.Energy = rms
		} else {
			b.Energy = (b.Energy*float64(b.Frames) + rms) / float64(b.Frames+1)
		}
		b.Frames++
		return false, b
	}

	threshold := b.Energy * cfg.Margin
	if threshold < cfg.FloorRMS {
		threshold = cfg.FloorRMS
	}
	voiced := rms >= threshold
	if !voiced {
		// track the noise floor only when the operator is not speaking,
		// otherwise speech energy would raise the floor and mask itself
		b.Energy = b.Energy*cfg.Decay + rms*(1-cfg.Decay)
	}
	b.Frames++
	return voiced, b
}

// Gate wraps Classify with its baseline for callers that process one stream.
type Gate struct {
	cfg Config
	b   Baseline
}

// NewGate creates a gate with a cold baseline.
func NewGate(cfg Config) *Gate {
	if cfg.Margin <= 1 {
		cfg.Margin = DefaultConfig().Margin
	}
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		cfg.Decay = DefaultConfig().Decay
	}
	return &Gate{cfg: cfg}
}

// Classify runs the frame through the gate and advances the baseline.
func (g *Gate) Classify(frame audio.Frame) bool {
	voiced, b := Classify(g.cfg, frame, g.b)
	g.b = b
	return voiced
}

// Baseline returns the current noise-floor state.
func (g *Gate) Baseline() Baseline { return g.b }

// Restore replaces the baseline, e.g. when resuming a persisted session.
func (g *Gate) Restore(b Baseline) { g.b = b }
