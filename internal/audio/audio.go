// Package audio holds the PCM ground truth for the export engine: every
// sample that moves through the pipeline is interleaved stereo int16 at
// 48kHz. Decoding, mixing, routing, and container encoding all speak this
// one format.
package audio

import "time"

const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// SamplesPerTick returns the number of interleaved samples that cover one
// render tick at the given frame rate.
func SamplesPerTick(fps int) int {
	if fps <= 0 {
		return FrameSamples
	}
	return SampleRate * Channels / fps
}

// DurationOf returns the playback length in seconds of an interleaved buffer.
func DurationOf(samples []int16) float64 {
	return float64(len(samples)) / float64(SampleRate*Channels)
}
