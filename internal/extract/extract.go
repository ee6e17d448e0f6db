// Package extract pulls a standalone PCM audio track out of a playable
// asset. Two strategies are tried in order: a direct byte-level decode that
// is near-instant but fails when the transport forbids raw access, and a
// realtime capture that always works at the cost of wall-clock time equal to
// the clip duration.
package extract

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/huiying1212/ai-rehearsal-coach/internal/audio"
	"github.com/huiying1212/ai-rehearsal-coach/internal/media"
)

// Options configures extraction.
type Options struct {
	FFmpeg string
}

// Strategy is one candidate extraction path. Strategies are data so new
// candidates slot into the list without touching control flow.
type Strategy struct {
	Name string
	Run  func(ctx context.Context, opts Options, asset *media.Asset) ([]int16, error)
}

// Strategies is the ordered fallback chain; the first success wins.
var Strategies = []Strategy{
	{Name: "direct-decode", Run: directDecode},
	{Name: "realtime-capture", Run: realtimeCapture},
}

// PCM extracts the asset's audio track as interleaved stereo 48kHz samples.
func PCM(ctx context.Context, opts Options, asset *media.Asset) ([]int16, error) {
	var firstErr error
	for i, s := range Strategies {
		samples, err := s.Run(ctx, opts, asset)
		if err == nil {
			return samples, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if i < len(Strategies)-1 {
			log.Printf("Extract %s via %s failed, falling back: %v", asset.Source, s.Name, err)
		}
	}
	return nil, fmt.Errorf("extract %s: %w", asset.Source, firstErr)
}

// WAV extracts the asset's audio track as a WAV byte buffer.
func WAV(ctx context.Context, opts Options, asset *media.Asset) ([]byte, error) {
	samples, err := PCM(ctx, opts, asset)
	if err != nil {
		return nil, err
	}
	return audio.EncodeWAV(samples, audio.Channels, audio.SampleRate)
}

// directDecode fetches the asset's raw bytes and decodes them in one pass.
func directDecode(ctx context.Context, opts Options, asset *media.Asset) ([]int16, error) {
	data, err := media.Fetch(ctx, asset.Source)
	if err != nil {
		return nil, err
	}
	return audio.DecodeBytes(opts.FFmpeg, data)
}

// eofLatch wraps a source and remembers when it hit end of stream, since the
// routing graph itself reports exhausted sources as silence.
type eofLatch struct {
	src  audio.Source
	done bool
}

func (l *eofLatch) ReadPCM(buf []int16) (int, error) {
	n, err := l.src.ReadPCM(buf)
	if err == io.EOF {
		l.done = true
	}
	return n, err
}

// realtimeCapture plays a disposable decode of the asset start-to-finish
// through an isolated routing graph, collecting the mixed output. The
// original playback handle is never wired here: wiring is one-shot per
// element, and the original must stay usable for normal playback.
func realtimeCapture(ctx context.Context, opts Options, asset *media.Asset) ([]int16, error) {
	clone, err := audio.NewStreamDecoder(opts.FFmpeg, asset.Source, true)
	if err != nil {
		return nil, err
	}
	defer clone.Close()

	latch := &eofLatch{src: clone}
	graph := audio.NewGraph()
	port := audio.NewPort(latch)
	if err := graph.Connect(port); err != nil {
		return nil, err
	}
	defer graph.Disconnect(port)

	deadline := captureDeadline(asset)
	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()

	var captured []int16
	start := time.Now()
	for !latch.done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		captured = append(captured, graph.ReadFrame(audio.FrameSamples)...)
		if time.Since(start) > deadline {
			return nil, fmt.Errorf("realtime capture of %s exceeded %s", asset.Source, deadline)
		}
	}
	return captured, nil
}

// captureDeadline allows the clip's duration plus generous startup slack.
func captureDeadline(asset *media.Asset) time.Duration {
	d := 30 * time.Second
	if asset.Loaded() {
		if secs, err := asset.Duration(); err == nil {
			d = time.Duration(secs*float64(time.Second)) + 10*time.Second
		}
	}
	return d
}
