package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var fetchClient = &http.Client{Timeout: 60 * time.Second}

// Fetch reads an asset's raw bytes. Local paths are read directly; http(s)
// sources are downloaded. This is the fast-path transport: it fails for
// sources that do not allow byte-level access, in which case callers fall
// back to realtime capture.
func Fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		resp, err := fetchClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", source, resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	return data, nil
}
