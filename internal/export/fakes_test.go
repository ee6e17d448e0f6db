package export

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/huiying1212/ai-rehearsal-coach/internal/audio"
	"github.com/huiying1212/ai-rehearsal-coach/internal/capture"
	"github.com/huiying1212/ai-rehearsal-coach/internal/media"
)

// fakeAudio is an in-memory AudioElement holding a fixed block of samples.
type fakeAudio struct {
	samples []int16
	pos     int
	port    *audio.Port
}

func newFakeAudio(seconds float64, fill int16) *fakeAudio {
	n := int(seconds * float64(audio.SampleRate) * audio.Channels)
	n -= n % audio.Channels
	f := &fakeAudio{samples: make([]int16, n)}
	for i := range f.samples {
		f.samples[i] = fill
	}
	f.port = audio.NewPort(f)
	return f
}

func (f *fakeAudio) ReadPCM(buf []int16) (int, error) {
	if f.pos >= len(f.samples) {
		return 0, io.EOF
	}
	n := copy(buf, f.samples[f.pos:])
	f.pos += n
	return n, nil
}

func (f *fakeAudio) Rewind()           { f.pos = 0 }
func (f *fakeAudio) Position() float64 { return audio.DurationOf(f.samples[:f.pos]) }
func (f *fakeAudio) Duration() float64 { return audio.DurationOf(f.samples) }
func (f *fakeAudio) Ended() bool       { return f.pos >= len(f.samples) }
func (f *fakeAudio) Port() *audio.Port { return f.port }
func (f *fakeAudio) PCM() []int16      { return f.samples }
func (f *fakeAudio) Close() error      { return nil }

// fakeVideo is an in-memory VideoElement serving a fixed number of frames.
type fakeVideo struct {
	total  int
	fps    int
	dur    float64 // reported duration override; zero means total/fps
	frames int
	ended  bool
	muted  bool
	img    *image.RGBA
}

func newFakeVideo(seconds float64, fps int) *fakeVideo {
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return &fakeVideo{total: int(seconds * float64(fps)), fps: fps, img: img}
}

func (v *fakeVideo) Rewind(context.Context) error {
	v.frames = 0
	v.ended = false
	return nil
}

func (v *fakeVideo) NextFrame() (*image.RGBA, error) {
	if v.frames >= v.total {
		v.ended = true
		return nil, io.EOF
	}
	v.frames++
	return v.img, nil
}

func (v *fakeVideo) Position() float64 { return float64(v.frames) / float64(v.fps) }

func (v *fakeVideo) Duration() float64 {
	if v.dur > 0 {
		return v.dur
	}
	return float64(v.total) / float64(v.fps)
}
func (v *fakeVideo) Ended() bool       { return v.ended }
func (v *fakeVideo) SetMuted(m bool)   { v.muted = m }
func (v *fakeVideo) Close() error      { return nil }

// fakeLoader serves elements from duration tables keyed by asset source.
// Sources it does not know but that point at WAV files on disk (the
// normalization pass writes those) are decoded directly.
type fakeLoader struct {
	fps        int
	audioDurs  map[string]float64
	videoDurs  map[string]float64
	fill       int16
	loadCalls  int
	audioFails map[string]bool
}

func (l *fakeLoader) LoadAudio(_ context.Context, asset *media.Asset) (AudioElement, error) {
	l.loadCalls++
	if l.audioFails[asset.Source] {
		return nil, fmt.Errorf("decode %s: forced failure", asset.Source)
	}
	if d, ok := l.audioDurs[asset.Source]; ok {
		return newFakeAudio(d, l.fill), nil
	}
	if strings.HasSuffix(asset.Source, ".wav") {
		data, err := os.ReadFile(asset.Source)
		if err != nil {
			return nil, err
		}
		samples, _, _, err := audio.DecodeWAV(data)
		if err != nil {
			return nil, err
		}
		f := &fakeAudio{samples: samples}
		f.port = audio.NewPort(f)
		return f, nil
	}
	return nil, fmt.Errorf("unknown audio source %s", asset.Source)
}

func (l *fakeLoader) LoadVideo(_ context.Context, asset *media.Asset) (VideoElement, error) {
	d, ok := l.videoDurs[asset.Source]
	if !ok {
		return nil, fmt.Errorf("unknown video source %s", asset.Source)
	}
	return newFakeVideo(d, l.fps), nil
}

func (l *fakeLoader) LoadImage(context.Context, string) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 32, 18)), nil
}

// fakeResolver answers metadata from a duration table.
type fakeResolver struct {
	durations map[string]float64
}

func (r fakeResolver) Resolve(_ context.Context, source string) (media.Info, error) {
	d, ok := r.durations[source]
	if !ok {
		return media.Info{}, fmt.Errorf("unknown source %s", source)
	}
	info := media.Info{Duration: d, HasAudio: true}
	if strings.Contains(source, "video") {
		info.HasVideo = true
		info.Width = 16
		info.Height = 9
	}
	return info, nil
}

// fakeSink records everything the render loop pushes.
type fakeSink struct {
	mu          sync.Mutex
	codec       capture.Codec
	started     bool
	finalized   bool
	aborted     bool
	videoFrames int
	audioTicks  [][]int16
}

func (s *fakeSink) Start(context.Context) error {
	s.started = true
	return nil
}

func (s *fakeSink) WriteVideo(*image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoFrames++
	return nil
}

func (s *fakeSink) WriteAudio(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioTicks = append(s.audioTicks, append([]int16(nil), samples...))
	return nil
}

func (s *fakeSink) Finalize() (capture.Output, error) {
	s.finalized = true
	return capture.Output{Data: []byte("recording"), Codec: s.codec}, nil
}

func (s *fakeSink) Abort() { s.aborted = true }

func (s *fakeSink) capturedSeconds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, tick := range s.audioTicks {
		total += len(tick)
	}
	return float64(total) / float64(audio.SampleRate*audio.Channels)
}

// yesProber accepts every codec; noProber rejects every codec.
type yesProber struct{}

func (yesProber) Supports(context.Context, capture.Codec) bool { return true }

type noProber struct{}

func (noProber) Supports(context.Context, capture.Codec) bool { return false }

// fakeConverter answers with canned bytes or a canned error.
type fakeConverter struct {
	out   []byte
	err   error
	calls int
}

func (c *fakeConverter) Convert(_ context.Context, _ []byte) ([]byte, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.out, nil
}
