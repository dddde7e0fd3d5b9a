package audio

import "encoding/binary"

// WrapWAV prefixes raw PCM16LE mono bytes with a minimal RIFF/WAVE header so
// the buffer can be handed to services that refuse headerless PCM.
func WrapWAV(pcm []byte, sampleRate int) []byte {
	const (
		headerLen     = 44
		bitsPerSample = 16
		channels      = 1
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	out := make([]byte, headerLen+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:24], channels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[headerLen:], pcm)
	return out
}

// StripWAV removes a RIFF/WAVE header if present, returning the raw PCM data
// chunk. Buffers without a header are returned unchanged.
func StripWAV(b []byte) []byte {
	if len(b) < 44 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return b
	}
	// scan chunks for "data"; headers written by other tools may carry extras
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		off += 8
		if id == "data" {
			if off+size > len(b) {
				size = len(b) - off
			}
			return b[off : off+size]
		}
		off += size
	}
	return b
}
