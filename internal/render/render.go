// Package render draws detection and segmentation annotations onto frames.
// Colors follow the class palette used across the platform's dashboards.
package render

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/Sumamlama369-ai/Disaster-Management-System-Sankalpa/internal/domain/port"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var classColors = map[string]color.RGBA{
	"ambulance":      {R: 255, G: 255, B: 0, A: 255},
	"boat":           {R: 30, G: 144, B: 255, A: 255},
	"building":       {R: 128, G: 128, B: 128, A: 255},
	"fire":           {R: 255, G: 0, B: 0, A: 255},
	"fire_and_smoke": {R: 255, G: 69, B: 0, A: 255},
	"forest":         {R: 0, G: 255, B: 0, A: 255},
	"injured_people": {R: 255, G: 140, B: 0, A: 255},
	"landslide":      {R: 139, G: 69, B: 19, A: 255},
	"person":         {R: 255, G: 0, B: 255, A: 255},
	"road":           {R: 64, G: 64, B: 64, A: 255},
	"tent":           {R: 255, G: 192, B: 203, A: 255},
}

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
	green = color.RGBA{G: 255, A: 255}
)

func classColor(class string) color.RGBA {
	if c, ok := classColors[class]; ok {
		return c
	}
	return white
}

// Detections returns a copy of the frame with bounding boxes, per-box class
// labels and a summary line.
func Detections(frame *image.RGBA, det *port.Detection) *image.RGBA {
	out := clone(frame)

	for _, box := range det.Boxes {
		c := classColor(box.Class)
		rect := clipRect(image.Rect(box.X1, box.Y1, box.X2, box.Y2), out.Bounds())
		drawBorder(out, rect, c, 2)

		label := fmt.Sprintf("%s: %.2f", box.Class, box.Confidence)
		labelW := textWidth(label)
		bg := clipRect(image.Rect(rect.Min.X, rect.Min.Y-16, rect.Min.X+labelW+4, rect.Min.Y), out.Bounds())
		fillRect(out, bg, c)
		drawText(out, label, rect.Min.X+2, rect.Min.Y-4, black)
	}

	summary := fmt.Sprintf("Objects: %d | Conf: %.2f", det.Total, det.AvgConfidence)
	drawText(out, summary, 10, 24, green)
	return out
}

// Segmentation returns a copy of the frame with translucent region
// overlays, a per-class legend and the total affected area.
func Segmentation(frame *image.RGBA, seg *port.Segmentation) *image.RGBA {
	out := clone(frame)
	const alpha = 0.5

	for _, mask := range seg.Masks {
		fillPolygon(out, mask.Polygon, classColor(mask.Class), alpha)
	}

	// Legend: one swatch per class with a nonzero area, in stable order.
	classes := make([]string, 0, len(seg.Areas))
	for class, area := range seg.Areas {
		if area > 0 {
			classes = append(classes, class)
		}
	}
	sort.Strings(classes)

	y := 24
	for _, class := range classes {
		c := classColor(class)
		fillRect(out, clipRect(image.Rect(10, y-12, 30, y), out.Bounds()), c)
		drawText(out, fmt.Sprintf("%s: %.1f%%", class, seg.Areas[class]), 35, y, white)
		y += 20
	}

	total := fmt.Sprintf("Total Affected: %.1f%%", seg.TotalAreaPercent)
	drawText(out, total, 10, out.Bounds().Dy()-10, green)
	return out
}

func clone(frame *image.RGBA) *image.RGBA {
	out := image.NewRGBA(frame.Bounds())
	copy(out.Pix, frame.Pix)
	return out
}

func clipRect(r, bounds image.Rectangle) image.Rectangle {
	return r.Intersect(bounds)
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func drawBorder(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	fillRect(img, clipRect(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness), img.Bounds()), c)
	fillRect(img, clipRect(image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y), img.Bounds()), c)
	fillRect(img, clipRect(image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y), img.Bounds()), c)
	fillRect(img, clipRect(image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y), img.Bounds()), c)
}

func drawText(img *image.RGBA, text string, x, y int, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func textWidth(text string) int {
	return font.MeasureString(basicfont.Face7x13, text).Ceil()
}

// fillPolygon scanline-fills the polygon, alpha-blending the color over the
// existing pixels.
func fillPolygon(img *image.RGBA, polygon []image.Point, c color.RGBA, alpha float64) {
	if len(polygon) < 3 {
		return
	}

	minY, maxY := polygon[0].Y, polygon[0].Y
	for _, p := range polygon {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	bounds := img.Bounds()
	if minY < bounds.Min.Y {
		minY = bounds.Min.Y
	}
	if maxY > bounds.Max.Y-1 {
		maxY = bounds.Max.Y - 1
	}

	for y := minY; y <= maxY; y++ {
		var xs []int
		j := len(polygon) - 1
		for i := 0; i < len(polygon); i++ {
			a, b := polygon[i], polygon[j]
			if (a.Y <= y && b.Y > y) || (b.Y <= y && a.Y > y) {
				x := a.X + (y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
				xs = append(xs, x)
			}
			j = i
		}
		sort.Ints(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x1, x2 := xs[i], xs[i+1]
			if x1 < bounds.Min.X {
				x1 = bounds.Min.X
			}
			if x2 > bounds.Max.X-1 {
				x2 = bounds.Max.X - 1
			}
			for x := x1; x <= x2; x++ {
				blendPixel(img, x, y, c, alpha)
			}
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, c color.RGBA, alpha float64) {
	existing := img.RGBAAt(x, y)
	img.SetRGBA(x, y, color.RGBA{
		R: uint8(float64(existing.R)*(1-alpha) + float64(c.R)*alpha),
		G: uint8(float64(existing.G)*(1-alpha) + float64(c.G)*alpha),
		B: uint8(float64(existing.B)*(1-alpha) + float64(c.B)*alpha),
		A: 255,
	})
}
