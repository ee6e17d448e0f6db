// Package media models the playable assets of an export run: references to
// generated audio, video, and image content plus the playback handles that
// drive them through the engine's frame loop.
package media

import (
	"context"
	"fmt"
)

// Kind distinguishes the asset classes the export engine understands.
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// AssetLoadError reports that an asset's source could not be opened or its
// metadata could not be resolved. Fatal for the export that hit it.
type AssetLoadError struct {
	Source string
	Err    error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("asset load %s: %v", e.Source, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

// Asset references playable content by source (a local path or an http(s)
// URL). Its duration is undefined until Load has resolved the metadata;
// reading it earlier is an error, never a zero.
type Asset struct {
	Source string
	Kind   Kind

	loaded   bool
	duration float64
	width    int
	height   int
}

// NewAsset creates an unloaded asset reference.
func NewAsset(source string, kind Kind) *Asset {
	return &Asset{Source: source, Kind: kind}
}

// NewLoadedAsset creates an asset whose duration is already known, e.g. a
// WAV buffer the engine itself just wrote. Skips the metadata probe.
func NewLoadedAsset(source string, kind Kind, duration float64) *Asset {
	return &Asset{Source: source, Kind: kind, loaded: true, duration: duration}
}

// Load resolves the asset's metadata through the resolver. Calling Load on
// an already-loaded asset is a no-op: the first resolved duration sticks.
func (a *Asset) Load(ctx context.Context, r Resolver) error {
	if a.loaded {
		return nil
	}
	info, err := r.Resolve(ctx, a.Source)
	if err != nil {
		return &AssetLoadError{Source: a.Source, Err: err}
	}
	if info.Duration < 0 {
		return &AssetLoadError{Source: a.Source, Err: fmt.Errorf("negative duration %f", info.Duration)}
	}
	a.duration = info.Duration
	a.width = info.Width
	a.height = info.Height
	a.loaded = true
	return nil
}

// Loaded reports whether metadata has been resolved.
func (a *Asset) Loaded() bool {
	return a != nil && a.loaded
}

// Duration returns the resolved duration in seconds. It must not be called
// before Load succeeds.
func (a *Asset) Duration() (float64, error) {
	if !a.loaded {
		return 0, fmt.Errorf("duration of %s read before metadata loaded", a.Source)
	}
	return a.duration, nil
}

// Bounds returns the resolved video dimensions, or zeros for pure audio.
func (a *Asset) Bounds() (width, height int) {
	return a.width, a.height
}
