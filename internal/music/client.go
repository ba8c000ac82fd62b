package music

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client calls the music provider API: library listing and per-track
// audio analysis. The provider speaks seconds; everything is converted to
// milliseconds at this boundary so the rest of the system never sees
// provider units.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// SavedTracks lists the user's saved tracks from the provider library.
func (c *Client) SavedTracks(ctx context.Context, limit int) ([]TrackInfo, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	var resp struct {
		Items []struct {
			Track struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Artists []struct {
					Name string `json:"name"`
				} `json:"artists"`
				Album struct {
					Images []struct {
						URL string `json:"url"`
					} `json:"images"`
				} `json:"album"`
				DurationMs float64 `json:"duration_ms"`
			} `json:"track"`
		} `json:"items"`
	}
	if err := c.get(ctx, fmt.Sprintf("/v1/me/tracks?limit=%d", limit), &resp); err != nil {
		return nil, fmt.Errorf("list saved tracks: %w", err)
	}

	tracks := make([]TrackInfo, 0, len(resp.Items))
	for _, item := range resp.Items {
		t := TrackInfo{
			ID:         item.Track.ID,
			Title:      item.Track.Name,
			DurationMs: item.Track.DurationMs,
		}
		for i, a := range item.Track.Artists {
			if i > 0 {
				t.Artist += ", "
			}
			t.Artist += a.Name
		}
		if len(item.Track.Album.Images) > 0 {
			t.AlbumArt = item.Track.Album.Images[0].URL
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// TrackAnalysis fetches the provider's audio analysis for one track and
// converts it into the millisecond beat contract.
func (c *Client) TrackAnalysis(ctx context.Context, trackID string) (*Analysis, error) {
	if trackID == "" {
		return nil, fmt.Errorf("track id required")
	}

	var resp struct {
		Track struct {
			Tempo float64 `json:"tempo"`
		} `json:"track"`
		Beats []struct {
			Start      float64 `json:"start"`
			Duration   float64 `json:"duration"`
			Confidence float64 `json:"confidence"`
		} `json:"beats"`
		Sections []struct {
			Start    float64 `json:"start"`
			Duration float64 `json:"duration"`
			Loudness float64 `json:"loudness"`
			Tempo    float64 `json:"tempo"`
		} `json:"sections"`
	}
	if err := c.get(ctx, "/v1/audio-analysis/"+url.PathEscape(trackID), &resp); err != nil {
		return nil, fmt.Errorf("track analysis %s: %w", trackID, err)
	}

	a := &Analysis{Tempo: resp.Track.Tempo}
	a.Beats = make([]Beat, len(resp.Beats))
	for i, b := range resp.Beats {
		a.Beats[i] = Beat{
			StartMs:    b.Start * 1000,
			DurationMs: b.Duration * 1000,
			Confidence: b.Confidence,
		}
	}
	for _, s := range resp.Sections {
		a.Sections = append(a.Sections, Section{
			StartMs:    s.Start * 1000,
			DurationMs: s.Duration * 1000,
			Loudness:   s.Loudness,
			Tempo:      s.Tempo,
		})
	}
	return a, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("provider api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider api status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
