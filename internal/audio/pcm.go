package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// SampleRate is the pipeline-wide input rate: 16kHz mono PCM16LE.
const SampleRate = 16000

// Frame is one inbound slice of mono PCM samples with its per-session
// sequence index. Frames are immutable once produced.
type Frame struct {
	Seq     uint32
	Samples []int16
}

// Duration reports the wall-clock span covered by the frame's samples.
func (f Frame) Duration() time.Duration {
	return time.Duration(len(f.Samples)) * time.Second / SampleRate
}

// DecodePCM16LE converts little-endian 16-bit PCM bytes into samples.
// A trailing odd byte is ignored.
func DecodePCM16LE(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}
	return out
}

// EncodePCM16LE converts samples back into little-endian 16-bit PCM bytes.
func EncodePCM16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:(i+1)*2], uint16(s))
	}
	return out
}

// RMS computes the root-mean-square energy of the samples.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}
