package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/huiying1212/ai-rehearsal-coach/internal/config"
	"github.com/huiying1212/ai-rehearsal-coach/internal/extract"
	"github.com/huiying1212/ai-rehearsal-coach/internal/media"
)

// Loader turns resolved assets into playback elements. The default loader
// decodes through ffmpeg; tests install in-memory implementations.
type Loader interface {
	LoadAudio(ctx context.Context, asset *media.Asset) (AudioElement, error)
	LoadVideo(ctx context.Context, asset *media.Asset) (VideoElement, error)
	LoadImage(ctx context.Context, source string) (image.Image, error)
}

type mediaLoader struct {
	cfg config.Config
}

func (l mediaLoader) LoadAudio(ctx context.Context, asset *media.Asset) (AudioElement, error) {
	pcm, err := extract.PCM(ctx, extract.Options{FFmpeg: l.cfg.FFmpegBin}, asset)
	if err != nil {
		return nil, err
	}
	return media.NewAudioHandle(asset, pcm), nil
}

func (l mediaLoader) LoadVideo(ctx context.Context, asset *media.Asset) (VideoElement, error) {
	return media.NewVideoHandle(asset, l.cfg.FFmpegBin, l.cfg.FPS)
}

func (l mediaLoader) LoadImage(ctx context.Context, source string) (image.Image, error) {
	data, err := media.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode backdrop %s: %w", source, err)
	}
	return img, nil
}
