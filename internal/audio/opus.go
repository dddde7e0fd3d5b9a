package audio

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

// OpusDecoder decodes opus packets from a browser or embedded encoder into
// 16kHz mono PCM16 samples ready for the pipeline.
type OpusDecoder struct {
	dec *opus.Decoder
	buf []int16
}

// NewOpusDecoder creates a decoder at the pipeline sample rate.
func NewOpusDecoder() (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(SampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("opus decoder: %w", err)
	}
	// 120ms is the longest legal opus frame
	return &OpusDecoder{dec: dec, buf: make([]int16, SampleRate*120/1000)}, nil
}

// Decode converts one opus packet into PCM samples. The returned slice is
// owned by the caller.
func (d *OpusDecoder) Decode(packet []byte) ([]int16, error) {
	if len(packet) == 0 {
		return nil, nil
	}
	n, err := d.dec.Decode(packet, d.buf)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	out := make([]int16, n)
	copy(out, d.buf[:n])
	return out, nil
}
