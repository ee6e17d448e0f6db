package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/huiying1212/ai-rehearsal-coach/internal/audio"
)

// ffmpegSink muxes the composite in real time through one ffmpeg process:
// raw RGBA frames on stdin, s16le PCM over a FIFO as the second input.
type ffmpegSink struct {
	cfg   SinkConfig
	codec Codec

	outPath  string
	fifoPath string
	cmd      *exec.Cmd
	videoIn  io.WriteCloser
	audioIn  *os.File
	stderr   bytes.Buffer
	started  bool
}

func newFFmpegSink(cfg SinkConfig, codec Codec) (*ffmpegSink, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FPS <= 0 {
		return nil, fmt.Errorf("capture sink: invalid geometry %dx%d@%d", cfg.Width, cfg.Height, cfg.FPS)
	}
	return &ffmpegSink{
		cfg:      cfg,
		codec:    codec,
		outPath:  filepath.Join(cfg.WorkDir, "capture"+codec.Ext),
		fifoPath: filepath.Join(cfg.WorkDir, "audio.pcm"),
	}, nil
}

func (s *ffmpegSink) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.WorkDir, 0o755); err != nil {
		return &Error{Op: "workdir", Err: err}
	}
	if err := unix.Mkfifo(s.fifoPath, 0o600); err != nil {
		return &Error{Op: "mkfifo", Err: err}
	}

	binary := s.cfg.FFmpeg
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		"-framerate", fmt.Sprint(s.cfg.FPS),
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", fmt.Sprint(audio.SampleRate),
		"-ac", fmt.Sprint(audio.Channels),
		"-i", s.fifoPath,
	}
	args = append(args, s.codec.encoderArgs()...)
	args = append(args, "-y", s.outPath)

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &s.stderr
	videoIn, err := cmd.StdinPipe()
	if err != nil {
		return &Error{Op: "stdin pipe", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &Error{Op: "start ffmpeg", Err: err}
	}
	s.cmd = cmd
	s.videoIn = videoIn

	// Opening the FIFO for writing blocks until ffmpeg opens the read side,
	// so give up if the process dies before it gets there.
	fifoCh := make(chan *os.File, 1)
	errCh := make(chan error, 1)
	go func() {
		f, err := os.OpenFile(s.fifoPath, os.O_WRONLY, 0)
		if err != nil {
			errCh <- err
			return
		}
		fifoCh <- f
	}()
	select {
	case f := <-fifoCh:
		s.audioIn = f
	case err := <-errCh:
		s.Abort()
		return &Error{Op: "open audio fifo", Err: err}
	case <-time.After(15 * time.Second):
		s.Abort()
		return &Error{Op: "open audio fifo", Err: fmt.Errorf("timed out; ffmpeg said: %s", s.stderr.String())}
	case <-ctx.Done():
		s.Abort()
		return ctx.Err()
	}
	s.started = true
	return nil
}

func (s *ffmpegSink) WriteVideo(frame *image.RGBA) error {
	if !s.started {
		return &Error{Op: "write video", Err: fmt.Errorf("sink not started")}
	}
	if _, err := s.videoIn.Write(frame.Pix); err != nil {
		return &Error{Op: "write video", Err: fmt.Errorf("%w (ffmpeg: %s)", err, s.stderr.String())}
	}
	return nil
}

func (s *ffmpegSink) WriteAudio(samples []int16) error {
	if !s.started {
		return &Error{Op: "write audio", Err: fmt.Errorf("sink not started")}
	}
	if _, err := s.audioIn.Write(audio.SamplesToBytes(samples)); err != nil {
		return &Error{Op: "write audio", Err: fmt.Errorf("%w (ffmpeg: %s)", err, s.stderr.String())}
	}
	return nil
}

func (s *ffmpegSink) Finalize() (Output, error) {
	if !s.started {
		return Output{}, &Error{Op: "finalize", Err: fmt.Errorf("sink not started")}
	}
	s.videoIn.Close()
	s.audioIn.Close()
	if err := s.cmd.Wait(); err != nil {
		return Output{}, &Error{Op: "finalize", Err: fmt.Errorf("%w (ffmpeg: %s)", err, s.stderr.String())}
	}
	data, err := os.ReadFile(s.outPath)
	if err != nil {
		return Output{}, &Error{Op: "finalize", Err: err}
	}
	return Output{Data: data, Codec: s.codec}, nil
}

func (s *ffmpegSink) Abort() {
	if s.videoIn != nil {
		s.videoIn.Close()
	}
	if s.audioIn != nil {
		s.audioIn.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	os.Remove(s.outPath)
	os.Remove(s.fifoPath)
}

// encoderArgs returns the ffmpeg encoder flags for the codec pair. The VP9
// settings favor realtime throughput over compression, matching the live
// nature of the capture.
func (c Codec) encoderArgs() []string {
	switch c.VideoEncoder {
	case "libvpx-vp9":
		return []string{
			"-c:v", "libvpx-vp9",
			"-deadline", "realtime",
			"-cpu-used", "8",
			"-b:v", "2M",
			"-c:a", c.AudioEncoder,
			"-b:a", "128k",
		}
	case "libx264":
		return []string{
			"-c:v", "libx264",
			"-preset", "veryfast",
			"-pix_fmt", "yuv420p",
			"-c:a", c.AudioEncoder,
			"-b:a", "192k",
			"-movflags", "+faststart",
		}
	default:
		return []string{"-c:v", c.VideoEncoder, "-c:a", c.AudioEncoder}
	}
}
