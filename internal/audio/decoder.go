package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
)

// DecodeFile runs FFmpeg to decode an audio file (or the audio track of a
// video file) to raw PCM int16 samples. Returns interleaved stereo samples
// at 48kHz.
func DecodeFile(ffmpeg, path string) ([]int16, error) {
	cmd := exec.Command(binaryOr(ffmpeg),
		"-i", path,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}
	return BytesToSamples(out), nil
}

// DecodeBytes decodes an in-memory encoded audio or video buffer to PCM by
// piping it through FFmpeg. This is the fast extraction path: no playback,
// no wall-clock cost.
func DecodeBytes(ffmpeg string, data []byte) ([]int16, error) {
	cmd := exec.Command(binaryOr(ffmpeg),
		"-i", "pipe:0",
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "error",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(data)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode buffer: %w", err)
	}
	return BytesToSamples(out), nil
}

// StreamDecoder decodes a source to PCM in real time. With realtime set,
// FFmpeg paces its reads at the clip's native rate (-re), which is the slow
// extraction path: it always works, but costs wall-clock time equal to the
// clip duration.
type StreamDecoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
}

// NewStreamDecoder starts an FFmpeg process decoding source to s16le PCM on
// its stdout. Close must be called to release the process.
func NewStreamDecoder(ffmpeg, source string, realtime bool) (*StreamDecoder, error) {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if realtime {
		args = append(args, "-re")
	}
	args = append(args,
		"-i", source,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "48000",
		"-ac", "2",
		"pipe:1",
	)

	cmd := exec.Command(binaryOr(ffmpeg), args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	d := &StreamDecoder{cmd: cmd, stdout: stdout}
	cmd.Stderr = &d.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}
	return d, nil
}

// ReadPCM fills buf with decoded samples, returning the count filled.
// Returns io.EOF once the stream is exhausted.
func (d *StreamDecoder) ReadPCM(buf []int16) (int, error) {
	raw := make([]byte, len(buf)*2)
	n, err := io.ReadFull(d.stdout, raw)
	if n%2 != 0 {
		n--
	}
	for i := 0; i < n/2; i++ {
		buf[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if err != nil && err != io.EOF {
		return n / 2, fmt.Errorf("ffmpeg stream read: %w (stderr: %s)", err, d.stderr.String())
	}
	if n/2 > 0 {
		return n / 2, nil
	}
	return 0, err
}

// Close terminates the decode process.
func (d *StreamDecoder) Close() error {
	d.stdout.Close()
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	return d.cmd.Wait()
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// BytesToSamples converts little-endian bytes to int16 samples, discarding
// a trailing odd byte.
func BytesToSamples(data []byte) []int16 {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return samples
}

func binaryOr(ffmpeg string) string {
	if ffmpeg == "" {
		return "ffmpeg"
	}
	return ffmpeg
}
