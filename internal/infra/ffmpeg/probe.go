package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/port"
)

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		NbReadFrames string `json:"nb_read_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads the metadata of the first video stream. Frames are counted by
// decoding, so the count is exact.
func Probe(ctx context.Context, path string) (*port.VideoMeta, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=width,height,r_frame_rate,nb_read_frames",
		"-show_entries", "format=duration",
		"-print_format", "json",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probed probeOutput
	if err := json.Unmarshal(output, &probed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(probed.Streams) == 0 {
		return nil, fmt.Errorf("no video stream in %s", path)
	}

	stream := probed.Streams[0]
	fps, err := parseFrameRate(stream.RFrameRate)
	if err != nil {
		return nil, fmt.Errorf("parse frame rate %q: %w", stream.RFrameRate, err)
	}

	frames, _ := strconv.Atoi(stream.NbReadFrames)
	duration, _ := strconv.ParseFloat(probed.Format.Duration, 64)

	return &port.VideoMeta{
		Width:      stream.Width,
		Height:     stream.Height,
		FPS:        fps,
		FrameCount: frames,
		Duration:   duration,
	}, nil
}

// parseFrameRate parses ffprobe's rational frame rate, e.g. "30000/1001".
func parseFrameRate(rate string) (float64, error) {
	num, den, found := strings.Cut(rate, "/")
	if !found {
		return strconv.ParseFloat(rate, 64)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("zero denominator")
	}
	return n / d, nil
}
