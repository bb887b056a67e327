package layout

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// OverlaySpec describes the overlay canvas and text styling.
type OverlaySpec struct {
	Width            int
	Height           int
	FontSize         float64 // pixels per em (72 DPI, so points == pixels)
	MaxTextWidth     int
	LineHeight       int
	OutlineThickness int
	FillColor        color.RGBA
	OutlineColor     color.RGBA
}

// DefaultSpec is the portrait 1080x1920 overlay: 64px text wrapped at 950px,
// 90px line pitch, 4px black outline around white glyphs.
func DefaultSpec() OverlaySpec {
	return OverlaySpec{
		Width:            1080,
		Height:           1920,
		FontSize:         64,
		MaxTextWidth:     950,
		LineHeight:       90,
		OutlineThickness: 4,
		FillColor:        color.RGBA{R: 255, G: 255, B: 255, A: 255},
		OutlineColor:     color.RGBA{R: 0, G: 0, B: 0, A: 255},
	}
}

// LayoutError reports font data the engine cannot work with.
type LayoutError struct {
	Op  string
	Err error
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout %s: %v", e.Op, e.Err)
}

func (e *LayoutError) Unwrap() error { return e.Err }

type fontFace struct {
	font *sfnt.Font
	face font.Face
	buf  sfnt.Buffer
}

func (f *fontFace) hasGlyph(r rune) bool {
	idx, err := f.font.GlyphIndex(&f.buf, r)
	return err == nil && idx != 0
}

// run is a stretch of text drawn with a single face.
type run struct {
	face *fontFace
	text string
}

// Engine wraps and renders overlay text. Glyphs are looked up in the faces in
// order; a rune no face covers is replaced with U+FFFD (or '?' when that is
// missing too) instead of failing the job. Engine is safe for concurrent use.
type Engine struct {
	spec        OverlaySpec
	faces       []*fontFace
	replacement rune
	ascent      int

	mu sync.Mutex
}

// New builds an engine from one or more TrueType/OpenType fonts, primary first.
func New(spec OverlaySpec, fonts ...[]byte) (*Engine, error) {
	if len(fonts) == 0 {
		return nil, &LayoutError{Op: "load font", Err: fmt.Errorf("no font data")}
	}
	if spec.FontSize <= 0 {
		return nil, &LayoutError{Op: "load font", Err: fmt.Errorf("font size must be positive, got %v", spec.FontSize)}
	}

	e := &Engine{spec: spec}
	for i, data := range fonts {
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, &LayoutError{Op: "parse font", Err: fmt.Errorf("font %d: %w", i, err)}
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    spec.FontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, &LayoutError{Op: "create face", Err: fmt.Errorf("font %d: %w", i, err)}
		}
		e.faces = append(e.faces, &fontFace{font: f, face: face})
	}

	e.ascent = e.faces[0].face.Metrics().Ascent.Ceil()
	e.replacement = '?'
	for _, candidate := range []rune{'\uFFFD', '?'} {
		if e.covered(candidate) {
			e.replacement = candidate
			break
		}
	}

	return e, nil
}

// Open loads the primary font from path and adds the embedded Go Bold face as
// a secondary face for Latin text the primary lacks. When the primary cannot
// be read and allowFallback is set, the Go Bold face is used alone.
func Open(spec OverlaySpec, path string, allowFallback bool) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !allowFallback {
			return nil, &LayoutError{Op: "read font", Err: err}
		}
		log.Warn().Err(err).Str("font_path", path).Msg("[Layout] font unreadable, using embedded Go Bold")
		return New(spec, gobold.TTF)
	}
	return New(spec, data, gobold.TTF)
}

// Spec returns the overlay spec the engine renders with.
func (e *Engine) Spec() OverlaySpec { return e.spec }

func (e *Engine) covered(r rune) bool {
	for _, f := range e.faces {
		if f.hasGlyph(r) {
			return true
		}
	}
	return false
}

// Sanitize replaces every rune that no face can draw. It returns the
// substituted text and the number of runes replaced.
func (e *Engine) Sanitize(s string) (string, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sanitize(s)
}

func (e *Engine) sanitize(s string) (string, int) {
	var b strings.Builder
	replaced := 0
	for _, r := range s {
		if unicode.IsSpace(r) || e.covered(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(e.replacement)
		replaced++
	}
	return b.String(), replaced
}

// runs splits s into stretches drawable by one face each.
func (e *Engine) runs(s string) []run {
	var out []run
	var cur *fontFace
	var b strings.Builder

	for _, r := range s {
		face := e.faces[0]
		if !unicode.IsSpace(r) {
			for _, f := range e.faces {
				if f.hasGlyph(r) {
					face = f
					break
				}
			}
		} else if cur != nil {
			face = cur
		}

		if cur != nil && face != cur {
			out = append(out, run{face: cur, text: b.String()})
			b.Reset()
		}
		cur = face
		b.WriteRune(r)
	}
	if cur != nil && b.Len() > 0 {
		out = append(out, run{face: cur, text: b.String()})
	}
	return out
}

// Measure returns the advance width of s in pixels.
func (e *Engine) Measure(s string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.measure(s)
}

func (e *Engine) measure(s string) int {
	var width fixed.Int26_6
	for _, r := range e.runs(s) {
		width += font.MeasureString(r.face.face, r.text)
	}
	return width.Ceil()
}

// Wrap sanitizes and wraps the paragraphs to the spec's max text width.
func (e *Engine) Wrap(paragraphs []string) []RenderLine {
	e.mu.Lock()
	defer e.mu.Unlock()

	clean := make([]string, len(paragraphs))
	total := 0
	for i, p := range paragraphs {
		var n int
		clean[i], n = e.sanitize(p)
		total += n
	}
	if total > 0 {
		log.Warn().Int("replaced", total).Str("replacement", string(e.replacement)).
			Msg("[Layout] font has no glyph for some characters, substituted")
	}

	return WrapText(clean, MeasureFunc(e.measure), e.spec.MaxTextWidth)
}

// Render draws the lines onto a new transparent canvas: every line is stamped
// in the outline color at each offset of the (2t+1)x(2t+1) neighborhood, then
// drawn once in the fill color on top.
func (e *Engine) Render(lines []RenderLine) *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, e.spec.Width, e.spec.Height))
	outline := image.NewUniform(e.spec.OutlineColor)
	fill := image.NewUniform(e.spec.FillColor)
	t := e.spec.OutlineThickness

	for i, pos := range LinePositions(lines, e.spec) {
		runs := e.runs(lines[i].Text)
		baseline := pos.Y + e.ascent

		for dx := -t; dx <= t; dx++ {
			for dy := -t; dy <= t; dy++ {
				drawRuns(img, outline, runs, pos.X+dx, baseline+dy)
			}
		}
		drawRuns(img, fill, runs, pos.X, baseline)
	}

	return img
}

func drawRuns(dst *image.RGBA, src image.Image, runs []run, x, baseline int) {
	dot := fixed.P(x, baseline)
	for _, r := range runs {
		d := &font.Drawer{Dst: dst, Src: src, Face: r.face.face, Dot: dot}
		d.DrawString(r.text)
		dot = d.Dot
	}
}

// RenderToFile wraps, renders and writes the overlay as PNG to path.
func (e *Engine) RenderToFile(path string, paragraphs []string) ([]RenderLine, error) {
	lines := e.Wrap(paragraphs)
	img := e.Render(lines)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay file: %w", err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to encode overlay png: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close overlay file: %w", err)
	}

	return lines, nil
}
