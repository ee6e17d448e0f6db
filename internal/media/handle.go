package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"

	"github.com/huiying1212/ai-rehearsal-coach/internal/audio"
)

// AudioHandle is the playback element for a decoded audio asset. It feeds
// PCM into a routing graph through its one-shot port and tracks its own
// playback clock as samples are consumed.
type AudioHandle struct {
	asset   *Asset
	samples []int16
	pos     int
	port    *audio.Port
}

// NewAudioHandle wraps decoded PCM in a playback handle.
func NewAudioHandle(asset *Asset, samples []int16) *AudioHandle {
	h := &AudioHandle{asset: asset, samples: samples}
	h.port = audio.NewPort(h)
	return h
}

// ReadPCM implements audio.Source. Returns io.EOF once the buffer is
// exhausted, which doubles as the element's end-of-playback notification.
func (h *AudioHandle) ReadPCM(buf []int16) (int, error) {
	if h.pos >= len(h.samples) {
		return 0, io.EOF
	}
	n := copy(buf, h.samples[h.pos:])
	h.pos += n
	return n, nil
}

// Position returns the playback position in seconds.
func (h *AudioHandle) Position() float64 {
	return audio.DurationOf(h.samples[:h.pos])
}

// Duration returns the element's duration: the metadata-resolved value when
// available, else the decoded sample count.
func (h *AudioHandle) Duration() float64 {
	if h.asset.Loaded() {
		if d, err := h.asset.Duration(); err == nil && d > 0 {
			return d
		}
	}
	return audio.DurationOf(h.samples)
}

// Ended reports whether playback has consumed every sample.
func (h *AudioHandle) Ended() bool {
	return h.pos >= len(h.samples)
}

// Rewind resets the playback clock to zero.
func (h *AudioHandle) Rewind() {
	h.pos = 0
}

// Port returns the handle's routing-graph connection point.
func (h *AudioHandle) Port() *audio.Port {
	return h.port
}

// PCM exposes the decoded samples, used when re-encoding for normalization.
func (h *AudioHandle) PCM() []int16 {
	return h.samples
}

// Close releases the decode buffer.
func (h *AudioHandle) Close() error {
	h.samples = nil
	h.pos = 0
	return nil
}

// VideoHandle is the playback element for a video asset. Frames are pulled
// from a raw-RGBA ffmpeg decode pipe at the engine's frame rate; the frame
// count is the element's playback clock. A playback handle is never wired
// into an audio graph: wiring permanently reroutes an element's audio, so
// audio extraction always runs a disposable decode of the same source.
type VideoHandle struct {
	asset  *Asset
	ffmpeg string
	fps    int
	width  int
	height int

	cmd    *exec.Cmd
	stdout io.ReadCloser
	frames int
	ended  bool
	muted  bool
}

// NewVideoHandle creates a stopped video playback element. The asset must be
// loaded so the frame dimensions are known.
func NewVideoHandle(asset *Asset, ffmpeg string, fps int) (*VideoHandle, error) {
	w, h := asset.Bounds()
	if w <= 0 || h <= 0 {
		return nil, &AssetLoadError{Source: asset.Source, Err: fmt.Errorf("no video dimensions resolved")}
	}
	return &VideoHandle{asset: asset, ffmpeg: ffmpeg, fps: fps, width: w, height: h}, nil
}

// Rewind (re)starts the decode from time zero.
func (v *VideoHandle) Rewind(ctx context.Context) error {
	v.stop()

	binary := v.ffmpeg
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary,
		"-hide_banner", "-loglevel", "error",
		"-i", v.asset.Source,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-r", fmt.Sprint(v.fps),
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("video decode stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return &AssetLoadError{Source: v.asset.Source, Err: err}
	}
	v.cmd = cmd
	v.stdout = stdout
	v.frames = 0
	v.ended = false
	return nil
}

// NextFrame returns the next decoded frame. io.EOF marks the element's
// end-of-playback; after that the last state is sticky.
func (v *VideoHandle) NextFrame() (*image.RGBA, error) {
	if v.ended {
		return nil, io.EOF
	}
	if v.stdout == nil {
		return nil, fmt.Errorf("video %s: NextFrame before Rewind", v.asset.Source)
	}
	buf := make([]byte, v.width*v.height*4)
	if _, err := io.ReadFull(v.stdout, buf); err != nil {
		v.ended = true
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("video %s frame read: %w", v.asset.Source, err)
	}
	v.frames++
	return &image.RGBA{
		Pix:    buf,
		Stride: v.width * 4,
		Rect:   image.Rect(0, 0, v.width, v.height),
	}, nil
}

// Position returns the playback position in seconds, derived from the frame
// clock.
func (v *VideoHandle) Position() float64 {
	return float64(v.frames) / float64(v.fps)
}

// Duration returns the metadata-resolved duration.
func (v *VideoHandle) Duration() float64 {
	d, err := v.asset.Duration()
	if err != nil {
		return 0
	}
	return d
}

// Ended reports whether the decode stream is exhausted.
func (v *VideoHandle) Ended() bool {
	return v.ended
}

// SetMuted silences the element's own audio track during playback. The
// composite always plays exactly one audible source, so a video whose audio
// is not the chosen effective audio stays muted.
func (v *VideoHandle) SetMuted(muted bool) {
	v.muted = muted
}

// Muted reports the element's mute state.
func (v *VideoHandle) Muted() bool {
	return v.muted
}

// Close releases the decode process.
func (v *VideoHandle) Close() error {
	v.stop()
	return nil
}

func (v *VideoHandle) stop() {
	if v.stdout != nil {
		v.stdout.Close()
		v.stdout = nil
	}
	if v.cmd != nil {
		if v.cmd.Process != nil {
			v.cmd.Process.Kill()
		}
		v.cmd.Wait()
		v.cmd = nil
	}
}
