// Package export drives the rehearsal export pipeline: it reconciles the
// durations of each segment's generated media, plays the segments through a
// dual-clock synchronizer, composites every frame onto the output surface,
// and records the live composite into one output file.
package export

import (
	"github.com/huiying1212/ai-rehearsal-coach/internal/media"
)

// Gesture tags which character animation, if any, a segment was generated
// with. GestureNone means the segment renders the static backdrop only.
type Gesture string

// GestureNone marks a segment without character animation.
const GestureNone Gesture = "none"

// Segment is one linear unit of the rehearsal: one line of speech plus an
// optional matching gesture clip. Segments arrive fully formed; authoring is
// someone else's problem.
type Segment struct {
	ID      string
	Text    string
	Gesture Gesture

	// Audio is the synthesized speech clip, required for export eligibility.
	Audio *media.Asset
	// Video is the optional gesture clip.
	Video *media.Asset
	// NormalizedAudio is set only when the voice normalization pass ran and
	// succeeded for this segment.
	NormalizedAudio *media.Asset
}

// ExportEligible reports whether the segment can be exported: its speech
// audio must be present with metadata resolved.
func (s *Segment) ExportEligible() bool {
	return s.Audio != nil && s.Audio.Loaded()
}

// HasVisual reports whether the segment contributes a video asset to the
// composite: the clip must be present and loaded, and the gesture tag must
// not be the no-gesture tag.
func (s *Segment) HasVisual() bool {
	return s.Video != nil && s.Video.Loaded() && s.Gesture != GestureNone
}

// EffectiveAudio returns the audio asset this export should play for the
// segment: the normalized clip when normalization succeeded, else the
// original speech clip.
func (s *Segment) EffectiveAudio() *media.Asset {
	if s.NormalizedAudio != nil && s.NormalizedAudio.Loaded() {
		return s.NormalizedAudio
	}
	return s.Audio
}
