// Package inference provides HTTP clients for the detection and
// segmentation model servers. Responses are validated at this boundary so
// the pipeline only ever sees well-formed results.
package inference

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"
)

const defaultRequestTimeout = 60 * time.Second

type Client struct {
	httpClient *http.Client
	detectURL  string
	segmentURL string
}

type ClientConfig struct {
	DetectURL  string
	SegmentURL string
	Timeout    time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		detectURL:  cfg.DetectURL,
		segmentURL: cfg.SegmentURL,
	}
}

type detectResponse struct {
	Detections []struct {
		Class      string  `json:"class"`
		Confidence float64 `json:"confidence"`
		Box        [4]int  `json:"box"`
	} `json:"detections"`
}

type segmentResponse struct {
	Segments []struct {
		Class       string   `json:"class"`
		Confidence  float64  `json:"confidence"`
		AreaPercent float64  `json:"area_percent"`
		Polygon     [][2]int `json:"polygon"`
	} `json:"segments"`
}

func (c *Client) postFrame(ctx context.Context, url string, frame *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference server returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
