package capture

import (
	"context"
	"image"
)

// Output is the finished recording: one binary blob tagged with the codec it
// was captured in.
type Output struct {
	Data  []byte
	Codec Codec
}

// Sink is a realtime recording destination. The render loop pushes one video
// frame and one slice of mixed PCM per tick; Finalize assembles the output
// blob exactly once.
type Sink interface {
	Start(ctx context.Context) error
	WriteVideo(frame *image.RGBA) error
	WriteAudio(samples []int16) error
	Finalize() (Output, error)
	Abort()
}

// SinkConfig carries the geometry and tooling shared by all sinks.
type SinkConfig struct {
	FFmpeg  string
	Width   int
	Height  int
	FPS     int
	WorkDir string // scratch space owned by the export run
}

// NewSink builds the sink matching the negotiated codec.
func NewSink(cfg SinkConfig, codec Codec) (Sink, error) {
	if codec.InProcess {
		return newOggSink(codec)
	}
	return newFFmpegSink(cfg, codec)
}
