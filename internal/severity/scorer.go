// Package severity turns per-frame detection and segmentation results into
// a bounded [0,10] disaster-severity score and a categorical risk level,
// and aggregates per-frame scores into whole-video statistics.
package severity

import "math"

// Per-class weights. Classes outside the table contribute with the default
// weight.
var detectionWeights = map[string]float64{
	"fire":           2.0,
	"injured_people": 1.8,
	"landslide":      1.7,
	"ambulance":      1.2,
	"tent":           0.8,
	"boat":           0.6,
	"person":         0.4,
	"forest":         0.2,
}

var segmentationWeights = map[string]float64{
	"fire":           2.5,
	"fire_and_smoke": 2.3,
	"building":       1.5,
	"ambulance":      1.0,
	"road":           0.8,
	"boat":           0.5,
	"person":         0.3,
}

const defaultWeight = 0.5

// detectionDivisor normalizes the summed detection contributions into the
// 0-10 range.
const detectionDivisor = 2.0

const (
	detectionBlend    = 0.4
	segmentationBlend = 0.6
)

const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// DetectionScore scores object-detection counts. Each class contributes
// weight*log2(count+1), giving diminishing returns for repeated objects.
func DetectionScore(counts map[string]int) float64 {
	score := 0.0
	for class, count := range counts {
		if count <= 0 {
			continue
		}
		w, ok := detectionWeights[class]
		if !ok {
			w = defaultWeight
		}
		score += w * math.Log2(float64(count)+1)
	}
	return round2(clamp10(score / detectionDivisor))
}

// SegmentationScore scores affected-area percentages. Each class contributes
// weight*(area/10), so a class covering the whole frame contributes
// weight*10.
func SegmentationScore(areas map[string]float64) float64 {
	score := 0.0
	for class, areaPercent := range areas {
		w, ok := segmentationWeights[class]
		if !ok {
			w = defaultWeight
		}
		score += w * (areaPercent / 10)
	}
	return round2(clamp10(score))
}

// CombinedScore blends the two channels 40/60 in favor of segmentation.
func CombinedScore(counts map[string]int, areas map[string]float64) float64 {
	combined := DetectionScore(counts)*detectionBlend + SegmentationScore(areas)*segmentationBlend
	return round2(clamp10(combined))
}

// RiskLevel buckets a severity score. Tier boundaries are closed on the
// lower bound.
func RiskLevel(score float64) string {
	switch {
	case score >= 7.5:
		return RiskCritical
	case score >= 5.0:
		return RiskHigh
	case score >= 2.5:
		return RiskMedium
	default:
		return RiskLow
	}
}

func clamp10(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
