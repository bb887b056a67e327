// Package layout word-wraps fact text and rasterizes it, outlined and centered,
// onto a transparent canvas that is later composited over the video.
package layout

import (
	"image"
	"strings"
)

// Measurer reports the rendered pixel width of a single line of text.
type Measurer interface {
	Measure(s string) int
}

// MeasureFunc adapts a plain function to Measurer.
type MeasureFunc func(s string) int

func (f MeasureFunc) Measure(s string) int { return f(s) }

// RenderLine is one output line together with its rendered width.
type RenderLine struct {
	Text  string
	Width int
}

// WrapText greedily wraps each paragraph to maxWidth. Paragraphs are split on
// "\n" first, so a single joined text behaves like one paragraph per line.
// Before a word is appended, the line-with-word is measured; if it is wider
// than maxWidth and the line already has a word, the line is closed and the
// word starts the next one. A word wider than maxWidth on its own is kept
// whole on its own line.
func WrapText(paragraphs []string, m Measurer, maxWidth int) []RenderLine {
	var lines []RenderLine

	for _, p := range paragraphs {
		for _, para := range strings.Split(p, "\n") {
			words := strings.Fields(para)
			if len(words) == 0 {
				continue
			}

			current := words[0]
			for _, word := range words[1:] {
				candidate := current + " " + word
				if m.Measure(candidate) > maxWidth {
					lines = append(lines, RenderLine{Text: current, Width: m.Measure(current)})
					current = word
					continue
				}
				current = candidate
			}
			lines = append(lines, RenderLine{Text: current, Width: m.Measure(current)})
		}
	}

	return lines
}

// LinePositions returns the top-left corner of each line: the block is
// vertically centered on the canvas and each line horizontally centered.
func LinePositions(lines []RenderLine, spec OverlaySpec) []image.Point {
	total := len(lines) * spec.LineHeight
	yStart := floorDiv(spec.Height-total, 2)

	points := make([]image.Point, len(lines))
	for i, line := range lines {
		points[i] = image.Point{
			X: floorDiv(spec.Width-line.Width, 2),
			Y: yStart + i*spec.LineHeight,
		}
	}
	return points
}

// floorDiv rounds toward negative infinity so an overflowing block or line is
// offset the same way on both sides.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
