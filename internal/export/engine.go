package export

import (
	"context"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/huiying1212/ai-rehearsal-coach/internal/audio"
	"github.com/huiying1212/ai-rehearsal-coach/internal/capture"
	"github.com/huiying1212/ai-rehearsal-coach/internal/config"
	"github.com/huiying1212/ai-rehearsal-coach/internal/media"
	"github.com/huiying1212/ai-rehearsal-coach/internal/normalize"
)

// Converter normalizes a WAV clip into the target voice. The production
// implementation is the normalize service client.
type Converter interface {
	Convert(ctx context.Context, wav []byte) ([]byte, error)
}

// divergenceTolerance is how far a normalized clip's duration may drift from
// the original before the drift is flagged. The clip is used either way.
const divergenceTolerance = 0.5

// Job is one export request: the rehearsal's segments in playback order plus
// the backdrop image shown whenever no gesture clip is on screen.
type Job struct {
	Segments []*Segment
	Backdrop string
}

// Options assembles an Engine. Zero-value fields fall back to the production
// implementations built from Config.
type Options struct {
	Config     config.Config
	Resolver   media.Resolver
	Candidates []capture.Codec
	Prober     capture.Prober
	NewSink    func(capture.SinkConfig, capture.Codec) (capture.Sink, error)
	Loader     Loader
	Converter  Converter
	Progress   ProgressFunc
}

// Engine runs export jobs. One engine serves one job at a time; a second
// Export while one is running fails immediately.
type Engine struct {
	cfg        config.Config
	resolver   media.Resolver
	candidates []capture.Codec
	prober     capture.Prober
	newSink    func(capture.SinkConfig, capture.Codec) (capture.Sink, error)
	loader     Loader
	converter  Converter
	progress   ProgressFunc

	busy atomic.Bool
}

// New builds an engine, filling unset options with ffmpeg-backed defaults.
// Normalization is enabled only when a converter is available: either one
// supplied explicitly or the service client when the config names a URL.
func New(opts Options) *Engine {
	e := &Engine{
		cfg:        opts.Config,
		resolver:   opts.Resolver,
		candidates: opts.Candidates,
		prober:     opts.Prober,
		newSink:    opts.NewSink,
		loader:     opts.Loader,
		converter:  opts.Converter,
		progress:   opts.Progress,
	}
	if e.resolver == nil {
		e.resolver = media.FFprobeResolver{Binary: e.cfg.FFprobeBin}
	}
	if e.candidates == nil {
		e.candidates = capture.CandidatesByName(e.cfg.CodecPreference)
	}
	if e.prober == nil {
		e.prober = &capture.FFmpegProber{Binary: e.cfg.FFmpegBin}
	}
	if e.newSink == nil {
		e.newSink = capture.NewSink
	}
	if e.loader == nil {
		e.loader = mediaLoader{cfg: e.cfg}
	}
	if e.converter == nil {
		rvc := normalize.Config{
			BaseURL:   e.cfg.RVCURL,
			Model:     e.cfg.RVCModel,
			F0Method:  e.cfg.RVCF0Method,
			IndexRate: e.cfg.RVCIndexRate,
		}
		if rvc.Enabled() {
			e.converter = normalize.NewClient(rvc)
		}
	}
	return e
}

// Export runs one job start to finish and returns the recording. Any fatal
// error discards the run; the caller gets either a complete recording or an
// error, never a truncated file. Cancellation takes effect between segments,
// never in the middle of one.
func (e *Engine) Export(ctx context.Context, job Job) (capture.Output, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return capture.Output{}, &Error{Stage: StagePreparing, Err: fmt.Errorf("an export is already running")}
	}
	defer e.busy.Store(false)

	if err := e.cfg.Validate(); err != nil {
		return capture.Output{}, &Error{Stage: StagePreparing, Err: err}
	}

	total := len(job.Segments)
	if total == 0 {
		return capture.Output{}, &Error{Stage: StagePreparing, Err: fmt.Errorf("no segments to export")}
	}

	workDir, err := e.makeWorkDir()
	if err != nil {
		return capture.Output{}, &Error{Stage: StagePreparing, Err: err}
	}
	defer os.RemoveAll(workDir)

	e.emit(StagePreparing, 0, 0, total)
	codec, err := capture.Negotiate(ctx, e.candidates, e.prober)
	if err != nil {
		return capture.Output{}, &Error{Stage: StagePreparing, Err: err}
	}
	log.Printf("Export %s: %d segments, codec %s", filepath.Base(workDir), total, codec.Name)

	e.emit(StageLoading, 5, 0, total)
	backdrop, err := e.loadAssets(ctx, job)
	if err != nil {
		return capture.Output{}, err
	}

	if e.converter != nil {
		e.emit(StageNormalizing, 15, 0, total)
		e.normalizeAll(ctx, workDir, job.Segments)
	}

	// The audible source per segment is picked exactly once, before playback
	// begins, and never revisited mid-run.
	effective := make([]*media.Asset, total)
	for i, seg := range job.Segments {
		effective[i] = seg.EffectiveAudio()
	}

	sink, err := e.newSink(capture.SinkConfig{
		FFmpeg:  e.cfg.FFmpegBin,
		Width:   e.cfg.Width,
		Height:  e.cfg.Height,
		FPS:     e.cfg.FPS,
		WorkDir: workDir,
	}, codec)
	if err != nil {
		return capture.Output{}, &Error{Stage: StageCompositing, Err: err}
	}
	if err := sink.Start(ctx); err != nil {
		return capture.Output{}, &Error{Stage: StageCompositing, Err: err}
	}

	graph := audio.NewGraph()
	comp := newCompositor(e.cfg.Width, e.cfg.Height, backdrop)
	samplesPerTick := audio.SamplesPerTick(e.cfg.FPS)
	ticker := time.NewTicker(time.Second / time.Duration(e.cfg.FPS))
	defer ticker.Stop()

	for i, seg := range job.Segments {
		select {
		case <-ctx.Done():
			sink.Abort()
			return capture.Output{}, &Error{Stage: StageCompositing, Segment: i + 1, Err: ctx.Err()}
		default:
		}

		if err := e.renderSegment(ctx, sink, graph, comp, ticker, samplesPerTick, codec, effective[i], seg); err != nil {
			sink.Abort()
			return capture.Output{}, &Error{Stage: StageCompositing, Segment: i + 1, Err: err}
		}
		e.emit(StageCompositing, 25+65*(i+1)/total, i+1, total)
	}

	e.emit(StageFinalizing, 95, total, total)
	out, err := sink.Finalize()
	if err != nil {
		return capture.Output{}, &Error{Stage: StageFinalizing, Err: err}
	}
	e.emit(StageComplete, 100, total, total)
	log.Printf("Export %s: finished, %d bytes of %s", filepath.Base(workDir), len(out.Data), codec.Name)
	return out, nil
}

// loadAssets resolves metadata for every segment's media and decodes the
// backdrop image. Any failure here is fatal for the run.
func (e *Engine) loadAssets(ctx context.Context, job Job) (image.Image, error) {
	for i, seg := range job.Segments {
		if seg.Gesture == "" {
			seg.Gesture = GestureNone
		}
		if seg.Audio == nil {
			return nil, &Error{Stage: StageLoading, Segment: i + 1, Err: fmt.Errorf("segment %q has no speech audio", seg.ID)}
		}
		if err := seg.Audio.Load(ctx, e.resolver); err != nil {
			return nil, &Error{Stage: StageLoading, Segment: i + 1, Err: err}
		}
		if seg.Video != nil {
			if err := seg.Video.Load(ctx, e.resolver); err != nil {
				return nil, &Error{Stage: StageLoading, Segment: i + 1, Err: err}
			}
		}
	}

	if job.Backdrop == "" {
		return nil, nil
	}
	backdrop, err := e.loader.LoadImage(ctx, job.Backdrop)
	if err != nil {
		return nil, &Error{Stage: StageLoading, Err: err}
	}
	return backdrop, nil
}

// renderSegment plays one segment through the synchronizer and pushes every
// composited frame and audio tick into the sink.
func (e *Engine) renderSegment(ctx context.Context, sink capture.Sink, graph *audio.Graph, comp *compositor, ticker *time.Ticker, samplesPerTick int, codec capture.Codec, audioAsset *media.Asset, seg *Segment) error {
	audioEl, err := e.loader.LoadAudio(ctx, audioAsset)
	if err != nil {
		return err
	}

	var videoEl VideoElement
	if seg.HasVisual() {
		videoEl, err = e.loader.LoadVideo(ctx, seg.Video)
		if err != nil {
			audioEl.Close()
			return err
		}
	}

	sync := newSynchronizer(audioEl, videoEl, graph)
	if err := sync.Prime(ctx); err != nil {
		audioEl.Close()
		if videoEl != nil {
			videoEl.Close()
		}
		return err
	}
	sync.Play()
	log.Printf("Segment %q: audio %.2fs, gesture %s", seg.ID, audioEl.Duration(), seg.Gesture)

	for {
		<-ticker.C
		frame, pcm, done, err := sync.Step(samplesPerTick)
		if err != nil {
			sync.Finish()
			return err
		}

		if !codec.AudioOnly() {
			var src image.Image
			if frame != nil {
				src = frame
			}
			if err := sink.WriteVideo(comp.Render(src)); err != nil {
				sync.Finish()
				return err
			}
		}
		if err := sink.WriteAudio(pcm); err != nil {
			sync.Finish()
			return err
		}
		if done {
			break
		}
	}
	sync.Finish()
	return nil
}

// normalizeAll runs the voice conversion pass over every segment. Failures
// are per-segment and recoverable: the segment keeps its original audio and
// the run carries on.
func (e *Engine) normalizeAll(ctx context.Context, workDir string, segments []*Segment) {
	converted := 0
	for i, seg := range segments {
		if err := e.normalizeSegment(ctx, workDir, i, seg); err != nil {
			log.Printf("Normalize segment %q: %v (keeping original audio)", seg.ID, err)
			continue
		}
		converted++
	}
	log.Printf("Normalization: %d/%d segments converted", converted, len(segments))
}

func (e *Engine) normalizeSegment(ctx context.Context, workDir string, idx int, seg *Segment) error {
	el, err := e.loader.LoadAudio(ctx, seg.Audio)
	if err != nil {
		return err
	}
	defer el.Close()

	wav, err := audio.EncodeWAV(el.PCM(), audio.Channels, audio.SampleRate)
	if err != nil {
		return err
	}
	origDur := el.Duration()

	out, err := e.converter.Convert(ctx, wav)
	if err != nil {
		return err
	}

	path := filepath.Join(workDir, fmt.Sprintf("normalized-%03d.wav", idx+1))
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return err
	}

	dur, err := e.convertedDuration(ctx, path, out)
	if err != nil {
		return err
	}
	if math.Abs(dur-origDur) > divergenceTolerance {
		log.Printf("Normalize segment %q: duration drifted %.2fs -> %.2fs", seg.ID, origDur, dur)
	}

	seg.NormalizedAudio = media.NewLoadedAsset(path, media.KindAudio, dur)
	return nil
}

// convertedDuration measures a converted clip. The service answers with WAV
// in practice; anything else goes through the metadata resolver.
func (e *Engine) convertedDuration(ctx context.Context, path string, data []byte) (float64, error) {
	if samples, channels, rate, err := audio.DecodeWAV(data); err == nil {
		return float64(len(samples)) / float64(channels*rate), nil
	}
	info, err := e.resolver.Resolve(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

func (e *Engine) makeWorkDir() (string, error) {
	base := e.cfg.WorkDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "export-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("work dir: %w", err)
	}
	return dir, nil
}
