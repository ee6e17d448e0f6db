package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/huiying1212/ai-rehearsal-coach/internal/media"
)

type manifestSegment struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Gesture string `json:"gesture"`
	Audio   string `json:"audio"`
	Video   string `json:"video"`
}

type manifest struct {
	Backdrop string            `json:"backdrop"`
	Segments []manifestSegment `json:"segments"`
}

// LoadManifest reads a JSON job description from disk. Segments without an id
// get a generated one; a missing or "none" gesture means backdrop-only.
func LoadManifest(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Job{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Segments) == 0 {
		return Job{}, fmt.Errorf("manifest %s has no segments", path)
	}

	job := Job{Backdrop: m.Backdrop}
	for i, ms := range m.Segments {
		if ms.Audio == "" {
			return Job{}, fmt.Errorf("manifest %s: segment %d has no audio source", path, i+1)
		}
		seg := &Segment{
			ID:      ms.ID,
			Text:    ms.Text,
			Gesture: Gesture(ms.Gesture),
			Audio:   media.NewAsset(ms.Audio, media.KindAudio),
		}
		if seg.ID == "" {
			seg.ID = uuid.NewString()
		}
		if seg.Gesture == "" {
			seg.Gesture = GestureNone
		}
		if ms.Video != "" {
			seg.Video = media.NewAsset(ms.Video, media.KindVideo)
		}
		job.Segments = append(job.Segments, seg)
	}
	return job, nil
}
