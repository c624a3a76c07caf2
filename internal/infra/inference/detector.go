package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/port"
)

var detectionClasses = map[string]struct{}{
	"ambulance":      {},
	"boat":           {},
	"fire":           {},
	"forest":         {},
	"injured_people": {},
	"landslide":      {},
	"person":         {},
	"tent":           {},
}

// Detect posts the frame to the detection server and validates the result
// against the model's class set and value ranges.
func (c *Client) Detect(ctx context.Context, frame *image.RGBA) (*port.Detection, error) {
	body, err := c.postFrame(ctx, c.detectURL, frame)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode detection response: %w", err)
	}

	det := &port.Detection{Counts: map[string]int{}}
	var confSum float64
	for i, d := range resp.Detections {
		if _, known := detectionClasses[d.Class]; !known {
			return nil, fmt.Errorf("detection %d: unknown class %q", i, d.Class)
		}
		if d.Confidence < 0 || d.Confidence > 1 {
			return nil, fmt.Errorf("detection %d: confidence %.3f out of range", i, d.Confidence)
		}
		if d.Box[2] < d.Box[0] || d.Box[3] < d.Box[1] {
			return nil, fmt.Errorf("detection %d: degenerate box %v", i, d.Box)
		}

		det.Boxes = append(det.Boxes, port.Box{
			X1: d.Box[0], Y1: d.Box[1], X2: d.Box[2], Y2: d.Box[3],
			Class:      d.Class,
			Confidence: d.Confidence,
		})
		det.Counts[d.Class]++
		det.Total++
		confSum += d.Confidence
	}
	if det.Total > 0 {
		det.AvgConfidence = confSum / float64(det.Total)
	}
	return det, nil
}
