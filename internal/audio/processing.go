// Package audio implements the post-processing pipeline that normalizes
// divergent provider outputs into a single mono 16-bit PCM WAV contract:
// peak normalization, ratio-based resampling, fade envelopes, loop
// crossfades, and the WAV codec itself.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// PCM encoding parameters. The service emits mono 16-bit little-endian WAV
// regardless of what a backend produced.
const (
	bitsPerSample  = 16
	bytesPerSample = bitsPerSample / 8
	numChannels    = 1
	pcmFormat      = 1

	fmtChunkSize   = 16
	riffHeaderSize = 36

	maxInt16 = 32767
	minInt16 = -32768
)

// Static errors.
var (
	ErrNoSamples         = errors.New("no samples to encode")
	ErrInvalidRate       = errors.New("sample rate must be positive")
	ErrNotWAV            = errors.New("data is not a RIFF/WAVE container")
	ErrUnsupportedFormat = errors.New("unsupported WAV format")
	ErrMissingDataChunk  = errors.New("WAV container has no data chunk")
)

// Normalize scales samples so the peak absolute value equals peak. A silent
// buffer is returned unchanged. The input slice is modified in place and
// returned for convenience.
func Normalize(samples []float64, peak float64) []float64 {
	maxAbs := Peak(samples)
	if maxAbs == 0 {
		return samples
	}

	scale := peak / maxAbs
	for i := range samples {
		samples[i] *= scale
	}

	return samples
}

// Peak returns the maximum absolute sample value.
func Peak(samples []float64) float64 {
	maxAbs := 0.0

	for _, s := range samples {
		abs := math.Abs(s)
		if abs > maxAbs {
			maxAbs = abs
		}
	}

	return maxAbs
}

// Resample converts samples from one rate to another using linear
// interpolation. Callers only invoke it when the rates differ; it handles
// the equal-rate case as a copy-free no-op anyway.
func Resample(samples []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("%w: from %d to %d", ErrInvalidRate, fromRate, toRate)
	}

	if fromRate == toRate || len(samples) == 0 {
		return samples, nil
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(math.Floor(float64(len(samples)) * float64(toRate) / float64(fromRate)))

	if outLen < 1 {
		outLen = 1
	}

	out := make([]float64, outLen)
	last := len(samples) - 1

	for i := range out {
		pos := float64(i) * ratio
		left := int(pos)

		if left >= last {
			out[i] = samples[last]

			continue
		}

		frac := pos - float64(left)
		out[i] = samples[left]*(1-frac) + samples[left+1]*frac
	}

	return out, nil
}

// FadeEnvelope applies a linear fade-in over the first fadeLen samples and a
// linear fade-out over the last fadeLen samples, in place. Fades longer than
// half the buffer are clamped.
func FadeEnvelope(samples []float64, fadeLen int) []float64 {
	if fadeLen <= 0 || len(samples) == 0 {
		return samples
	}

	if fadeLen > len(samples)/2 {
		fadeLen = len(samples) / 2
	}

	for i := range fadeLen {
		gain := float64(i) / float64(fadeLen)
		samples[i] *= gain
		samples[len(samples)-1-i] *= gain
	}

	return samples
}

// LoopCrossfade blends the tail of the buffer toward its head so playback
// can wrap around without an audible seam. The last fadeLen samples are
// dropped and the new tail is mixed toward the opening samples. Buffers too
// short to fade are returned as is.
func LoopCrossfade(samples []float64, fadeLen int) []float64 {
	if fadeLen <= 0 || len(samples) <= 2*fadeLen {
		return samples
	}

	head := make([]float64, fadeLen)
	copy(head, samples[:fadeLen])

	out := samples[:len(samples)-fadeLen]

	for i := range fadeLen {
		mix := float64(i) / float64(fadeLen)
		idx := len(out) - fadeLen + i
		out[idx] = out[idx]*(1-mix) + head[i]*mix
	}

	return out
}

// EncodeWAV produces a complete, self-contained little-endian 16-bit PCM
// mono WAV container for the given samples. Samples outside [-1, 1] are
// clipped at quantization.
func EncodeWAV(samples []float64, rate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	if rate <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRate, rate)
	}

	dataSize := len(samples) * bytesPerSample

	var buf bytes.Buffer

	buf.Grow(riffHeaderSize + 8 + dataSize)
	buf.WriteString("RIFF")
	writeUint32(&buf, uint32(riffHeaderSize+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeUint32(&buf, fmtChunkSize)
	writeUint16(&buf, pcmFormat)
	writeUint16(&buf, numChannels)
	writeUint32(&buf, uint32(rate))
	writeUint32(&buf, uint32(rate*numChannels*bytesPerSample))
	writeUint16(&buf, numChannels*bytesPerSample)
	writeUint16(&buf, bitsPerSample)

	buf.WriteString("data")
	writeUint32(&buf, uint32(dataSize))

	for _, s := range samples {
		writeUint16(&buf, uint16(quantize(s)))
	}

	return buf.Bytes(), nil
}

// DecodeWAV parses a 16-bit PCM WAV container and returns mono float64
// samples plus the header sample rate. Stereo content is downmixed by
// averaging channels.
func DecodeWAV(data []byte) ([]float64, int, error) {
	if len(data) < riffHeaderSize+8 ||
		string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, ErrNotWAV
	}

	var (
		rate     int
		channels int
		haveFmt  bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < fmtChunkSize {
				return nil, 0, ErrUnsupportedFormat
			}

			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			rate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits := int(binary.LittleEndian.Uint16(data[body+14 : body+16]))

			if format != pcmFormat || bits != bitsPerSample || channels < 1 {
				return nil, 0, fmt.Errorf(
					"%w: format %d, %d channels, %d bits",
					ErrUnsupportedFormat, format, channels, bits,
				)
			}

			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, 0, ErrUnsupportedFormat
			}

			return decodePCMFrames(data[body:body+chunkSize], channels), rate, nil
		}

		// Chunks are word-aligned.
		offset = body + chunkSize + chunkSize%2
	}

	return nil, 0, ErrMissingDataChunk
}

func decodePCMFrames(pcm []byte, channels int) []float64 {
	frameSize := channels * bytesPerSample
	frameCount := len(pcm) / frameSize
	samples := make([]float64, frameCount)

	for i := range frameCount {
		sum := 0.0

		for ch := range channels {
			off := i*frameSize + ch*bytesPerSample
			v := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
			sum += float64(v) / float64(maxInt16+1)
		}

		samples[i] = sum / float64(channels)
	}

	return samples
}

func quantize(sample float64) int16 {
	scaled := math.Round(sample * maxInt16)

	if scaled > maxInt16 {
		return maxInt16
	}

	if scaled < minInt16 {
		return minInt16
	}

	return int16(scaled)
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte

	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte

	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
