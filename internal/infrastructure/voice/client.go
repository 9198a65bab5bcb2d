package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/vanities/techslop/internal/config"
	"github.com/vanities/techslop/internal/domain"
	"github.com/vanities/techslop/internal/ports"
)

// Client talks to an external text-to-speech service. The service is an
// opaque collaborator: one request with the script text, one audio
// payload back.
type Client struct {
	endpoint string
	apiKey   string
	voiceID  string
	http     *http.Client
}

var _ ports.VoiceSynthesizer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.VoiceConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		voiceID:  cfg.VoiceID,
		http:     &http.Client{Timeout: 120 * time.Second},
	}
}

// Synthesize sends the full script text and writes the returned audio to
// outDir, returning the file path.
func (c *Client) Synthesize(ctx context.Context, script domain.Script, outDir string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("voice client misconfigured")
	}

	payload, err := json.Marshal(map[string]any{
		"text":  script.FullText,
		"voice": c.voiceID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal voice payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("voice service error: %s", resp.Status)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	audioPath := filepath.Join(outDir, "voice.mp3")
	out, err := os.Create(audioPath)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return audioPath, nil
}
