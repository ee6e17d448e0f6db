// Package normalize talks to an external voice-conversion service that
// re-synthesizes a speech clip in a single target timbre. Only the
// request/response contract lives here; conversion failures are recoverable
// per segment, so callers keep the original audio and move on.
package normalize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// Config identifies the conversion endpoint and its tuning parameters.
type Config struct {
	BaseURL   string
	Model     string
	F0Method  string  // optional pitch-extraction method, e.g. "rmvpe"
	IndexRate float64 // optional retrieval-blend ratio in [0, 1]
}

// Enabled reports whether a conversion endpoint is configured.
func (c Config) Enabled() bool {
	return c.BaseURL != ""
}

// Error reports a failed conversion request. Recoverable: the export
// continues with the segment's original audio.
type Error struct {
	Status int
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("voice normalization: %v", e.Err)
	}
	return fmt.Sprintf("voice normalization: status %d: %s", e.Status, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Client submits audio to the conversion service.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a conversion client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Convert submits a WAV buffer and returns the converted audio bytes.
func (c *Client) Convert(ctx context.Context, wav []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("audio", "segment.wav")
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("create form file: %w", err)}
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, &Error{Err: fmt.Errorf("write audio part: %w", err)}
	}
	if err := mw.WriteField("model", c.cfg.Model); err != nil {
		return nil, &Error{Err: fmt.Errorf("write model field: %w", err)}
	}
	if c.cfg.F0Method != "" {
		if err := mw.WriteField("f0_method", c.cfg.F0Method); err != nil {
			return nil, &Error{Err: fmt.Errorf("write f0_method field: %w", err)}
		}
	}
	if c.cfg.IndexRate > 0 {
		if err := mw.WriteField("index_rate", strconv.FormatFloat(c.cfg.IndexRate, 'f', -1, 64)); err != nil {
			return nil, &Error{Err: fmt.Errorf("write index_rate field: %w", err)}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, &Error{Err: fmt.Errorf("close multipart: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/convert", &body)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{Status: resp.StatusCode, Reason: string(bytes.TrimSpace(reason))}
	}

	converted, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("read converted audio: %w", err)}
	}
	if len(converted) == 0 {
		return nil, &Error{Status: resp.StatusCode, Reason: "empty response body"}
	}
	return converted, nil
}
