package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/port"
)

var segmentationClasses = map[string]struct{}{
	"ambulance":      {},
	"boat":           {},
	"building":       {},
	"fire":           {},
	"fire_and_smoke": {},
	"person":         {},
	"road":           {},
}

// Segment posts the frame to the segmentation server and validates the
// result. Per-class areas are accumulated across instances of the same
// class.
func (c *Client) Segment(ctx context.Context, frame *image.RGBA) (*port.Segmentation, error) {
	body, err := c.postFrame(ctx, c.segmentURL, frame)
	if err != nil {
		return nil, err
	}

	var resp segmentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode segmentation response: %w", err)
	}

	seg := &port.Segmentation{Areas: map[string]float64{}}
	var confSum float64
	for i, s := range resp.Segments {
		if _, known := segmentationClasses[s.Class]; !known {
			return nil, fmt.Errorf("segment %d: unknown class %q", i, s.Class)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			return nil, fmt.Errorf("segment %d: confidence %.3f out of range", i, s.Confidence)
		}
		if s.AreaPercent < 0 || s.AreaPercent > 100 {
			return nil, fmt.Errorf("segment %d: area %.2f%% out of range", i, s.AreaPercent)
		}

		polygon := make([]image.Point, len(s.Polygon))
		for j, p := range s.Polygon {
			polygon[j] = image.Point{X: p[0], Y: p[1]}
		}
		seg.Masks = append(seg.Masks, port.Mask{
			Class:       s.Class,
			Confidence:  s.Confidence,
			AreaPercent: s.AreaPercent,
			Polygon:     polygon,
		})
		seg.Areas[s.Class] += s.AreaPercent
		seg.TotalAreaPercent += s.AreaPercent
		confSum += s.Confidence
	}
	if len(resp.Segments) > 0 {
		seg.AvgConfidence = confSum / float64(len(resp.Segments))
	}
	return seg, nil
}
