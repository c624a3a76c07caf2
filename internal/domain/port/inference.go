package port

import (
	"context"
	"image"
)

// Box is one detected object in canonical-frame coordinates.
type Box struct {
	X1, Y1, X2, Y2 int
	Class          string
	Confidence     float64
}

// Detection is the per-frame object-detection result, keyed by class name.
type Detection struct {
	Counts        map[string]int
	Boxes         []Box
	AvgConfidence float64
	Total         int
}

// Mask is one segmented region, described by its outline polygon in
// canonical-frame coordinates.
type Mask struct {
	Class       string
	Confidence  float64
	AreaPercent float64
	Polygon     []image.Point
}

// Segmentation is the per-frame region-segmentation result, keyed by class
// name. Areas are percentages of the frame area in [0, 100].
type Segmentation struct {
	Areas            map[string]float64
	Masks            []Mask
	AvgConfidence    float64
	TotalAreaPercent float64
}

// Detector and Segmenter are the inference capabilities consumed by the
// frame loop. Implementations are injected; a failure or invalid result for
// one frame skips that frame without aborting the job.
type Detector interface {
	Detect(ctx context.Context, frame *image.RGBA) (*Detection, error)
}

type Segmenter interface {
	Segment(ctx context.Context, frame *image.RGBA) (*Segmentation, error)
}
