package audio

import (
	"math"
	"testing"
)

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Fatalf("rms(nil) = %v", got)
	}
	if got := RMS(make([]int16, 160)); got != 0 {
		t.Fatalf("rms(silence) = %v", got)
	}
	// constant-amplitude signal: RMS equals the amplitude
	dc := make([]int16, 160)
	for i := range dc {
		dc[i] = 1000
	}
	if got := RMS(dc); got != 1000 {
		t.Fatalf("rms(dc 1000) = %v", got)
	}
	// sine RMS is amp/sqrt(2)
	sine := make([]int16, SampleRate)
	for i := range sine {
		sine[i] = int16(8000 * math.Sin(2*math.Pi*100*float64(i)/SampleRate))
	}
	got := RMS(sine)
	want := 8000 / math.Sqrt2
	if math.Abs(got-want) > want*0.02 {
		t.Fatalf("rms(sine) = %v, want ~%v", got, want)
	}
}

func TestPCMRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 1234}
	out := DecodePCM16LE(EncodePCM16LE(in))
	if len(out) != len(in) {
		t.Fatalf("len = %d", len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("sample %d: %d != %d", i, in[i], out[i])
		}
	}
	// trailing odd byte ignored
	if got := DecodePCM16LE([]byte{1, 0, 7}); len(got) != 1 || got[0] != 1 {
		t.Fatalf("odd buffer decode = %v", got)
	}
}

func TestWAVWrapAndStrip(t *testing.T) {
	pcm := EncodePCM16LE([]int16{10, -10, 20, -20})
	wav := WrapWAV(pcm, SampleRate)
	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav len = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad header: %q %q", wav[0:4], wav[8:12])
	}
	got := StripWAV(wav)
	if string(got) != string(pcm) {
		t.Fatalf("strip did not return the data chunk")
	}
	// headerless buffers pass through
	if got := StripWAV(pcm); string(got) != string(pcm) {
		t.Fatalf("raw pcm mangled by strip")
	}
}

func TestFrameDuration(t *testing.T) {
	f := Frame{Samples: make([]int16, SampleRate/10)}
	if f.Duration().Milliseconds() != 100 {
		t.Fatalf("duration = %v", f.Duration())
	}
}
