package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/huiying1212/ai-rehearsal-coach/internal/audio"
)

type stubResolver struct {
	info  Info
	err   error
	calls int
}

func (r *stubResolver) Resolve(_ context.Context, _ string) (Info, error) {
	r.calls++
	return r.info, r.err
}

func TestAssetLoadResolvesOnce(t *testing.T) {
	r := &stubResolver{info: Info{Duration: 3.5, HasAudio: true}}
	a := NewAsset("clip.wav", KindAudio)

	if a.Loaded() {
		t.Fatal("fresh asset reports loaded")
	}
	if _, err := a.Duration(); err == nil {
		t.Fatal("duration readable before load")
	}

	if err := a.Load(context.Background(), r); err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, err := a.Duration()
	if err != nil || d != 3.5 {
		t.Errorf("Duration() = %v, %v", d, err)
	}

	// The first resolved duration sticks; a reload must not probe again.
	r.info.Duration = 9.9
	if err := a.Load(context.Background(), r); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if r.calls != 1 {
		t.Errorf("resolver called %d times, want 1", r.calls)
	}
	if d, _ := a.Duration(); d != 3.5 {
		t.Errorf("Duration() after reload = %v, want the first value", d)
	}
}

func TestAssetLoadFailure(t *testing.T) {
	r := &stubResolver{err: errors.New("no such file")}
	a := NewAsset("gone.wav", KindAudio)

	err := a.Load(context.Background(), r)
	var lerr *AssetLoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("error = %v, want *AssetLoadError", err)
	}
	if a.Loaded() {
		t.Error("failed load left the asset loaded")
	}
}

func TestNewLoadedAssetSkipsProbe(t *testing.T) {
	a := NewLoadedAsset("norm.wav", KindAudio, 2.25)
	if !a.Loaded() {
		t.Fatal("pre-loaded asset not loaded")
	}
	if d, err := a.Duration(); err != nil || d != 2.25 {
		t.Errorf("Duration() = %v, %v", d, err)
	}
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"streams": [
			{"codec_type": "video", "width": 640, "height": 360, "duration": "4.96"},
			{"codec_type": "audio", "duration": "5.00"}
		],
		"format": {"duration": "5.01"}
	}`)
	info, err := parseProbe(out)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if info.Duration != 5.01 {
		t.Errorf("Duration = %v, want the format value 5.01", info.Duration)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("streams not detected: %+v", info)
	}
	if info.Width != 640 || info.Height != 360 {
		t.Errorf("dimensions = %dx%d", info.Width, info.Height)
	}
}

func TestParseProbeStreamDurationFallback(t *testing.T) {
	out := []byte(`{"streams": [{"codec_type": "audio", "duration": "2.5"}], "format": {}}`)
	info, err := parseProbe(out)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if info.Duration != 2.5 {
		t.Errorf("Duration = %v, want the stream value 2.5", info.Duration)
	}
}

func TestParseProbeGarbage(t *testing.T) {
	if _, err := parseProbe([]byte("not json")); err == nil {
		t.Error("garbage accepted")
	}
}

func TestFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.bin")
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := Fetch(context.Background(), path)
	if err != nil || string(data) != "payload" {
		t.Errorf("Fetch = %q, %v", data, err)
	}
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "remote-bytes")
	}))
	defer srv.Close()

	data, err := Fetch(context.Background(), srv.URL+"/clip.wav")
	if err != nil || string(data) != "remote-bytes" {
		t.Errorf("Fetch = %q, %v", data, err)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.URL+"/missing.wav"); err == nil {
		t.Error("404 response accepted")
	}
}

func TestAudioHandlePlayback(t *testing.T) {
	samples := make([]int16, audio.SampleRate*audio.Channels) // 1s
	for i := range samples {
		samples[i] = 7
	}
	h := NewAudioHandle(NewLoadedAsset("a.wav", KindAudio, 1.0), samples)

	if h.Ended() {
		t.Fatal("fresh handle already ended")
	}
	if d := h.Duration(); d != 1.0 {
		t.Errorf("Duration = %v", d)
	}

	buf := make([]int16, audio.FrameSamples)
	n, err := h.ReadPCM(buf)
	if err != nil || n != audio.FrameSamples {
		t.Fatalf("ReadPCM = %d, %v", n, err)
	}
	if got := h.Position(); got != audio.FrameDuration.Seconds() {
		t.Errorf("Position = %v, want %v", got, audio.FrameDuration.Seconds())
	}

	// Drain the rest; then the handle reports ended and EOF.
	for {
		if _, err := h.ReadPCM(buf); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("ReadPCM: %v", err)
		}
	}
	if !h.Ended() {
		t.Error("drained handle not ended")
	}

	h.Rewind()
	if h.Ended() || h.Position() != 0 {
		t.Error("Rewind did not reset the clock")
	}
}

func TestAudioHandleDurationPrefersMetadata(t *testing.T) {
	// Metadata says 2s even though only 1s of samples decoded; the resolved
	// value wins so the completion backstop stays on the probed clock.
	samples := make([]int16, audio.SampleRate*audio.Channels)
	h := NewAudioHandle(NewLoadedAsset("a.wav", KindAudio, 2.0), samples)
	if d := h.Duration(); d != 2.0 {
		t.Errorf("Duration = %v, want metadata 2.0", d)
	}

	unprobed := NewAudioHandle(NewAsset("b.wav", KindAudio), samples)
	if d := unprobed.Duration(); d != 1.0 {
		t.Errorf("Duration without metadata = %v, want sample count 1.0", d)
	}
}

func TestVideoHandleRequiresDimensions(t *testing.T) {
	a := NewLoadedAsset("a.mp4", KindVideo, 2.0) // no width/height resolved
	_, err := NewVideoHandle(a, "ffmpeg", 30)
	var lerr *AssetLoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("error = %v, want *AssetLoadError", err)
	}
}

func TestVideoHandleNextFrameBeforeRewind(t *testing.T) {
	a := NewAsset("a.mp4", KindVideo)
	if err := a.Load(context.Background(), &stubResolver{info: Info{Duration: 2, Width: 16, Height: 9, HasVideo: true}}); err != nil {
		t.Fatal(err)
	}
	h, err := NewVideoHandle(a, "ffmpeg", 30)
	if err != nil {
		t.Fatalf("NewVideoHandle: %v", err)
	}
	if _, err := h.NextFrame(); err == nil {
		t.Error("NextFrame before Rewind should fail")
	}
}
