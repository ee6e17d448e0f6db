// Package capture negotiates an output container/codec and records the live
// composite into a single output file. Candidates are data, tried in order,
// with the first supported one winning; the in-process ogg/opus writer sits
// last so negotiation can always succeed with the default list.
package capture

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
)

// Codec is one container/codec candidate for the capture session.
type Codec struct {
	Name         string // human-readable pair name
	Container    string
	Ext          string // canonical file extension, with dot
	MimeType     string
	VideoEncoder string // ffmpeg encoder name; empty means audio-only
	AudioEncoder string
	InProcess    bool // encoded in-process, no external muxer needed
}

// AudioOnly reports whether the codec discards the video composite.
func (c Codec) AudioOnly() bool {
	return c.VideoEncoder == ""
}

// DefaultCandidates is the preference order for negotiation: a widely
// compatible single-file pair first, alternates after, and a guaranteed
// in-process fallback last.
var DefaultCandidates = []Codec{
	{
		Name:         "vp9+opus",
		Container:    "webm",
		Ext:          ".webm",
		MimeType:     "video/webm",
		VideoEncoder: "libvpx-vp9",
		AudioEncoder: "libopus",
	},
	{
		Name:         "h264+aac",
		Container:    "mp4",
		Ext:          ".mp4",
		MimeType:     "video/mp4",
		VideoEncoder: "libx264",
		AudioEncoder: "aac",
	},
	{
		Name:      "opus",
		Container: "ogg",
		Ext:       ".ogg",
		MimeType:  "audio/ogg",
		InProcess: true,
	},
}

// CandidatesByName maps a preference order of candidate names onto the
// default list. Unknown names are logged and skipped; an empty or fully
// unknown preference yields the default order.
func CandidatesByName(names []string) []Codec {
	if len(names) == 0 {
		return DefaultCandidates
	}
	var out []Codec
	for _, name := range names {
		found := false
		for _, c := range DefaultCandidates {
			if c.Name == name {
				out = append(out, c)
				found = true
				break
			}
		}
		if !found {
			log.Printf("Capture: unknown codec preference %q ignored", name)
		}
	}
	if len(out) == 0 {
		return DefaultCandidates
	}
	return out
}

// NegotiationError reports that no candidate in the preference list is
// supported. Fatal: raised before any segment is primed.
type NegotiationError struct {
	Tried []string
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("no supported capture codec (tried %s)", strings.Join(e.Tried, ", "))
}

// Error reports a failure of the recording sink mid-session. Fatal: any
// partially captured output is discarded rather than emitted corrupt.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Prober answers whether a codec candidate can actually be used on this
// host.
type Prober interface {
	Supports(ctx context.Context, c Codec) bool
}

// Negotiate walks the candidate list in order and returns the first
// supported codec.
func Negotiate(ctx context.Context, candidates []Codec, p Prober) (Codec, error) {
	tried := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if p.Supports(ctx, c) {
			log.Printf("Capture codec negotiated: %s/%s", c.Container, c.Name)
			return c, nil
		}
		tried = append(tried, c.Container+"/"+c.Name)
	}
	return Codec{}, &NegotiationError{Tried: tried}
}

// FFmpegProber probes ffmpeg's encoder table and answers support queries
// from it. A successful probe is cached; a failed probe is retried on the
// next query, so a transient exec failure does not disable every ffmpeg
// codec for the process lifetime. In-process codecs are always supported.
type FFmpegProber struct {
	Binary string

	mu       sync.Mutex
	probed   bool
	encoders string
}

// Supports implements Prober.
func (p *FFmpegProber) Supports(ctx context.Context, c Codec) bool {
	if c.InProcess {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.probed {
		binary := p.Binary
		if binary == "" {
			binary = "ffmpeg"
		}
		out, err := exec.CommandContext(ctx, binary, "-hide_banner", "-encoders").Output()
		if err != nil {
			log.Printf("Capture: ffmpeg encoder probe failed, skipping %s: %v", c.Name, err)
			return false
		}
		p.encoders = string(out)
		p.probed = true
	}
	for _, enc := range []string{c.VideoEncoder, c.AudioEncoder} {
		if enc != "" && !strings.Contains(p.encoders, " "+enc+" ") {
			return false
		}
	}
	return true
}
