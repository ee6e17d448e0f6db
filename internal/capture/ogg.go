package capture

import (
	"bytes"
	"context"
	"image"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"gopkg.in/hraban/opus.v2"

	"github.com/huiying1212/ai-rehearsal-coach/internal/audio"
)

// oggSink is the guaranteed fallback: an in-process audio-only recording,
// opus frames in an ogg container, no external tools involved. Video frames
// are accepted and discarded.
type oggSink struct {
	codec  Codec
	buf    bytes.Buffer
	writer *oggwriter.OggWriter
	enc    *opus.Encoder

	pending   []int16
	opusBuf   []byte
	seq       uint16
	timestamp uint32
}

func newOggSink(codec Codec) (*oggSink, error) {
	s := &oggSink{codec: codec, opusBuf: make([]byte, 4000)}

	writer, err := oggwriter.NewWith(&s.buf, audio.SampleRate, audio.Channels)
	if err != nil {
		return nil, &Error{Op: "ogg writer", Err: err}
	}
	s.writer = writer

	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		return nil, &Error{Op: "opus encoder", Err: err}
	}
	if err := enc.SetBitrate(128000); err != nil {
		return nil, &Error{Op: "opus bitrate", Err: err}
	}
	s.enc = enc
	return s, nil
}

func (s *oggSink) Start(ctx context.Context) error { return nil }

func (s *oggSink) WriteVideo(frame *image.RGBA) error { return nil }

// WriteAudio buffers incoming PCM and encodes it in 20ms opus frames; the
// render tick size rarely lines up with the opus frame size.
func (s *oggSink) WriteAudio(samples []int16) error {
	s.pending = append(s.pending, samples...)
	for len(s.pending) >= audio.FrameSamples {
		if err := s.encodeFrame(s.pending[:audio.FrameSamples]); err != nil {
			return err
		}
		s.pending = s.pending[audio.FrameSamples:]
	}
	return nil
}

func (s *oggSink) encodeFrame(frame []int16) error {
	n, err := s.enc.Encode(frame, s.opusBuf)
	if err != nil {
		return &Error{Op: "opus encode", Err: err}
	}
	s.seq++
	s.timestamp += audio.FrameSize
	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    111,
			SequenceNumber: s.seq,
			Timestamp:      s.timestamp,
			SSRC:           1,
		},
		Payload: append([]byte(nil), s.opusBuf[:n]...),
	}
	if err := s.writer.WriteRTP(packet); err != nil {
		return &Error{Op: "ogg write", Err: err}
	}
	return nil
}

// Finalize pads the tail to a whole opus frame, closes the container, and
// returns the blob.
func (s *oggSink) Finalize() (Output, error) {
	if len(s.pending) > 0 {
		tail := make([]int16, audio.FrameSamples)
		copy(tail, s.pending)
		s.pending = nil
		if err := s.encodeFrame(tail); err != nil {
			return Output{}, err
		}
	}
	if err := s.writer.Close(); err != nil {
		return Output{}, &Error{Op: "ogg close", Err: err}
	}
	return Output{Data: s.buf.Bytes(), Codec: s.codec}, nil
}

func (s *oggSink) Abort() {
	s.writer.Close()
	s.buf.Reset()
}
