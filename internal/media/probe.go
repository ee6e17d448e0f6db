package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Info is the metadata an asset needs before playback: duration plus video
// dimensions when a video stream is present.
type Info struct {
	Duration float64
	Width    int
	Height   int
	HasVideo bool
	HasAudio bool
}

// Resolver resolves asset metadata. The production implementation shells out
// to ffprobe; tests substitute their own.
type Resolver interface {
	Resolve(ctx context.Context, source string) (Info, error)
}

// FFprobeResolver resolves metadata with the ffprobe binary.
type FFprobeResolver struct {
	Binary string // defaults to "ffprobe"
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Resolve runs ffprobe against the source and parses its JSON output.
func (r FFprobeResolver) Resolve(ctx context.Context, source string) (Info, error) {
	binary := r.Binary
	if binary == "" {
		binary = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		source,
	)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", source, err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (Info, error) {
	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Info{}, fmt.Errorf("ffprobe parse: %w", err)
	}

	info := Info{Duration: parseSeconds(parsed.Format.Duration)}
	for _, s := range parsed.Streams {
		switch strings.ToLower(s.CodecType) {
		case "video":
			info.HasVideo = true
			if s.Width > 0 {
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			info.HasAudio = true
		}
		// Some containers only carry duration on the stream.
		if info.Duration == 0 {
			info.Duration = parseSeconds(s.Duration)
		}
	}
	return info, nil
}

func parseSeconds(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
