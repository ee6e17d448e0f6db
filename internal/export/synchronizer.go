package export

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/huiying1212/ai-rehearsal-coach/internal/audio"
)

// AudioElement is a playable audio clip with its own clock. The concrete
// implementation is media.AudioHandle; tests substitute in-memory fakes.
type AudioElement interface {
	Rewind()
	Position() float64
	Duration() float64
	Ended() bool
	Port() *audio.Port
	PCM() []int16
	Close() error
}

// VideoElement is a playable video clip pulled one frame per render tick.
// The concrete implementation is media.VideoHandle.
type VideoElement interface {
	Rewind(ctx context.Context) error
	NextFrame() (*image.RGBA, error)
	Position() float64
	Duration() float64
	Ended() bool
	SetMuted(bool)
	Close() error
}

// State is the synchronizer's playback phase for one segment.
type State int

const (
	StateIdle State = iota
	StatePriming
	StatePlaying
	StateCompleting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePriming:
		return "priming"
	case StatePlaying:
		return "playing"
	case StateCompleting:
		return "completing"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// completionTolerance is the position backstop for tracks whose end event
// never arrives. A track counts as finished once its clock is within this
// many seconds of its duration.
const completionTolerance = 0.05

// synchronizer plays one segment's audio and optional video in lockstep and
// decides when the segment is over. Each track completes independently, by
// end-of-stream or by the position backstop, and the segment ends only when
// both have: the effective segment duration is the longer track, and neither
// is ever cut short.
type synchronizer struct {
	audio AudioElement
	video VideoElement // nil for backdrop-only segments
	graph *audio.Graph

	state     State
	audioDone bool
	videoDone bool
}

func newSynchronizer(a AudioElement, v VideoElement, g *audio.Graph) *synchronizer {
	return &synchronizer{audio: a, video: v, graph: g, state: StateIdle}
}

// Prime rewinds both tracks, mutes the video's own soundtrack, and wires the
// audio track into the mix. The port wiring may fail with a ProgrammingError
// if the element was already routed elsewhere.
func (s *synchronizer) Prime(ctx context.Context) error {
	s.state = StatePriming
	s.audio.Rewind()
	if s.video != nil {
		if err := s.video.Rewind(ctx); err != nil {
			return err
		}
		s.video.SetMuted(true)
	} else {
		s.videoDone = true
	}
	return s.graph.Connect(s.audio.Port())
}

// Play starts the segment clock.
func (s *synchronizer) Play() {
	s.state = StatePlaying
}

// Step advances playback by one render tick: it pulls the next video frame
// when one is due, mixes n audio samples, and re-evaluates both completion
// latches. The returned frame is nil when the segment has no live video this
// tick; done turns true exactly once, when both tracks have completed.
func (s *synchronizer) Step(n int) (frame *image.RGBA, pcm []int16, done bool, err error) {
	if s.video != nil && !s.videoDone {
		f, ferr := s.video.NextFrame()
		switch {
		case ferr == io.EOF:
			s.videoDone = true
		case ferr != nil:
			return nil, nil, false, ferr
		default:
			frame = f
		}
	}

	pcm = s.graph.ReadFrame(n)

	if !s.audioDone && (s.audio.Ended() || s.audio.Position()+completionTolerance >= s.audio.Duration()) {
		s.audioDone = true
	}
	if !s.videoDone && (s.video.Ended() || s.video.Position()+completionTolerance >= s.video.Duration()) {
		s.videoDone = true
	}

	switch {
	case s.audioDone && s.videoDone:
		s.state = StateDone
	case s.audioDone || s.videoDone:
		s.state = StateCompleting
	}
	return frame, pcm, s.state == StateDone, nil
}

// Finish pauses the segment and restores element state: the audio track
// leaves the mix and the video's soundtrack is unmuted before the elements
// are released.
func (s *synchronizer) Finish() {
	s.graph.Disconnect(s.audio.Port())
	s.audio.Close()
	if s.video != nil {
		s.video.SetMuted(false)
		s.video.Close()
	}
}
