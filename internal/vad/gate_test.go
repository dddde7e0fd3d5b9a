package vad

import (
	"math"
	"testing"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/audio"
)

func sineFrame(seq uint32, amp float64, durMs int) audio.Frame {
	n := audio.SampleRate * durMs / 1000
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(amp * math.Sin(2*math.Pi*220*float64(i)/float64(audio.SampleRate)))
	}
	return audio.Frame{Seq: seq, Samples: samples}
}

func silentFrame(seq uint32, durMs int) audio.Frame {
	return audio.Frame{Seq: seq, Samples: make([]int16, audio.SampleRate*durMs/1000)}
}

func TestGate_WarmupIsUnvoiced(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarmupFrames = 5
	g := NewGate(cfg)
	// even loud frames stay unvoiced until the baseline settles
	for i := uint32(0); i < 5; i++ {
		if g.Classify(sineFrame(i, 8000, 100)) {
			t.Fatalf("frame %d voiced during warmup", i)
		}
	}
}

func TestGate_VoicedAboveQuietBaseline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarmupFrames = 3
	g := NewGate(cfg)
	for i := uint32(0); i < 3; i++ {
		g.Classify(sineFrame(i, 50, 100)) // room noise
	}
	if !g.Classify(sineFrame(3, 8000, 100)) {
		t.Fatalf("expected loud frame voiced after quiet warmup")
	}
	if g.Classify(silentFrame(4, 100)) {
		t.Fatalf("expected silent frame unvoiced")
	}
}

func TestGate_FloorBlocksFaintSpeech(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarmupFrames = 1
	cfg.FloorRMS = 250
	g := NewGate(cfg)
	g.Classify(silentFrame(0, 100))
	// RMS of a 100-amplitude sine is ~70, under the absolute floor
	if g.Classify(sineFrame(1, 100, 100)) {
		t.Fatalf("expected sub-floor energy unvoiced")
	}
}

func TestClassify_PureGivenBaseline(t *testing.T) {
	cfg := DefaultConfig()
	b := Baseline{Energy: 100, Frames: cfg.WarmupFrames}
	frame := sineFrame(0, 8000, 100)

	v1, b1 := Classify(cfg, frame, b)
	v2, b2 := Classify(cfg, frame, b)
	if v1 != v2 || b1 != b2 {
		t.Fatalf("classification not pure: (%v,%+v) vs (%v,%+v)", v1, b1, v2, b2)
	}
	if !v1 {
		t.Fatalf("expected voiced for loud frame over quiet baseline")
	}
}

func TestGate_BaselineTracksNoiseFloorOnSilence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarmupFrames = 1
	g := NewGate(cfg)
	g.Classify(sineFrame(0, 400, 100))
	before := g.Baseline().Energy
	for i := uint32(1); i <= 20; i++ {
		g.Classify(silentFrame(i, 100))
	}
	if after := g.Baseline().Energy; after >= before {
		t.Fatalf("baseline should decay toward silence: before=%v after=%v", before, after)
	}
}
