package audio

import (
	"encoding/binary"
	"fmt"
)

const wavHeaderSize = 44

// EncodeWAV wraps interleaved 16-bit PCM samples in a minimal single-chunk
// RIFF/WAVE container. Pure function: the output is byte-reproducible from
// (samples, channels, sampleRate) alone.
func EncodeWAV(samples []int16, channels, sampleRate int) ([]byte, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("encode wav: invalid channel count %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("encode wav: invalid sample rate %d", sampleRate)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("encode wav: %d samples not divisible by %d channels", len(samples), channels)
	}

	dataSize := len(samples) * 2
	blockAlign := channels * BitDepth / 8
	byteRate := sampleRate * blockAlign

	buf := make([]byte, wavHeaderSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt sub-chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // linear PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], BitDepth)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+i*2:], uint16(s))
	}
	return buf, nil
}

// DecodeWAV parses a minimal PCM WAV buffer produced by EncodeWAV (or any
// standard encoder emitting 16-bit linear PCM with a leading fmt chunk).
// Returns the samples plus the declared channel count and sample rate.
func DecodeWAV(data []byte) (samples []int16, channels, sampleRate int, err error) {
	if len(data) < wavHeaderSize {
		return nil, 0, 0, fmt.Errorf("decode wav: %d bytes is too short", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("decode wav: missing RIFF/WAVE magic")
	}
	if string(data[12:16]) != "fmt " {
		return nil, 0, 0, fmt.Errorf("decode wav: fmt chunk not first")
	}
	if format := binary.LittleEndian.Uint16(data[20:22]); format != 1 {
		return nil, 0, 0, fmt.Errorf("decode wav: not linear PCM (format %d)", format)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != BitDepth {
		return nil, 0, 0, fmt.Errorf("decode wav: %d bits per sample, want %d", bits, BitDepth)
	}
	channels = int(binary.LittleEndian.Uint16(data[22:24]))
	sampleRate = int(binary.LittleEndian.Uint32(data[24:28]))
	if string(data[36:40]) != "data" {
		return nil, 0, 0, fmt.Errorf("decode wav: data chunk not found")
	}
	dataSize := int(binary.LittleEndian.Uint32(data[40:44]))
	if dataSize > len(data)-wavHeaderSize {
		dataSize = len(data) - wavHeaderSize
	}
	samples = BytesToSamples(data[wavHeaderSize : wavHeaderSize+dataSize])
	return samples, channels, sampleRate, nil
}
