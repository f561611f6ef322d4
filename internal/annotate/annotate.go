// Package annotate draws the pose overlay onto camera frames.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f32"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"fall-monitor/internal/posture"
)

// DefaultQuality is the JPEG quality of annotated frames.
const DefaultQuality = 80

var (
	colorNormal  = color.RGBA{0, 255, 0, 255}
	colorWarning = color.RGBA{255, 165, 0, 255}
	colorDanger  = color.RGBA{255, 0, 0, 255}
	colorJoint   = color.RGBA{255, 255, 255, 255}
	colorBone    = color.RGBA{0, 200, 255, 255}
	colorBanner  = color.RGBA{0, 0, 0, 160}
)

// bones are the skeleton connections drawn between visible landmarks.
var bones = [][2]string{
	{posture.LeftShoulder, posture.RightShoulder},
	{posture.LeftShoulder, posture.LeftElbow},
	{posture.LeftElbow, posture.LeftWrist},
	{posture.RightShoulder, posture.RightElbow},
	{posture.RightElbow, posture.RightWrist},
	{posture.LeftShoulder, posture.LeftHip},
	{posture.RightShoulder, posture.RightHip},
	{posture.LeftHip, posture.RightHip},
	{posture.LeftHip, posture.LeftKnee},
	{posture.LeftKnee, posture.LeftAnkle},
	{posture.RightHip, posture.RightKnee},
	{posture.RightKnee, posture.RightAnkle},
}

// Annotator renders overlays and re-encodes the frame.
type Annotator struct {
	Quality int
}

// New returns an annotator using DefaultQuality.
func New() *Annotator {
	return &Annotator{Quality: DefaultQuality}
}

// StatusColor maps a classification to its overlay color.
func StatusColor(c posture.Classification) color.RGBA {
	switch c {
	case posture.Danger:
		return colorDanger
	case posture.Warning:
		return colorWarning
	default:
		return colorNormal
	}
}

// Annotate decodes frame, draws the skeleton, torso line and labels, and
// returns the re-encoded JPEG. m is nil when the frame had no measurement.
func (a *Annotator) Annotate(frame []byte, set posture.LandmarkSet, m *posture.Measurement, st posture.Status) ([]byte, error) {
	src, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("annotate: decode: %w", err)
	}
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)

	lines := newStrokes(img.Bounds())
	a.drawSkeleton(img, lines, set)

	if m != nil {
		c := StatusColor(st.Classification)
		lines.add(toPixel(img.Bounds(), m.ShoulderMid), toPixel(img.Bounds(), m.HipMid), 4)
		lines.paint(img, c)
		a.label(img, 10, 30, fmt.Sprintf("Angle: %.1f", m.Angle), c)
		a.label(img, 10, 55, fmt.Sprintf("Head: %.2f", st.HeadRatio), c)
	} else {
		a.banner(img, "Searching...")
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: a.quality()}); err != nil {
		return nil, fmt.Errorf("annotate: encode: %w", err)
	}
	return out.Bytes(), nil
}

func (a *Annotator) quality() int {
	if a.Quality <= 0 || a.Quality > 100 {
		return DefaultQuality
	}
	return a.Quality
}

func (a *Annotator) drawSkeleton(img *image.RGBA, lines *strokes, set posture.LandmarkSet) {
	visible := func(name string) (f32.Vec2, bool) {
		lm, ok := set[name]
		if !ok || lm.Visibility <= posture.MinVisibility {
			return f32.Vec2{}, false
		}
		return toPixel(img.Bounds(), lm.Point()), true
	}
	for _, bone := range bones {
		p, ok1 := visible(bone[0])
		q, ok2 := visible(bone[1])
		if ok1 && ok2 {
			lines.add(p, q, 2)
		}
	}
	lines.paint(img, colorBone)

	for name := range set {
		if v, ok := visible(name); ok {
			x, y := int(v[0]), int(v[1])
			fillRect(img, image.Rect(x-2, y-2, x+3, y+3), colorJoint)
		}
	}
}

func (a *Annotator) label(img *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{Dst: img, Src: image.NewUniform(c), Face: basicfont.Face7x13}
	// Drawn twice with a one pixel offset for a heavier stroke.
	for _, dx := range []int{0, 1} {
		d.Dot = fixed.P(x+dx, y)
		d.DrawString(s)
	}
}

func (a *Annotator) banner(img *image.RGBA, s string) {
	w := font.MeasureString(basicfont.Face7x13, s).Ceil()
	r := image.Rect(0, 0, w+20, 24)
	draw.Draw(img, r, image.NewUniform(colorBanner), image.Point{}, draw.Over)
	a.label(img, 10, 17, s, colorWarning)
}

// toPixel converts normalized coordinates to pixel coordinates. Coordinates
// are clamped to the frame; pose models report points slightly outside it and
// a malformed message may carry anything.
func toPixel(b image.Rectangle, p posture.Point) f32.Vec2 {
	return f32.Vec2{
		float32(clamp01(p.X) * float64(b.Dx())),
		float32(clamp01(p.Y) * float64(b.Dy())),
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

// strokes collects line segments as filled quads and paints them in one
// rasterizer pass.
type strokes struct {
	z    *vector.Rasterizer
	w, h float32
	n    int
}

func newStrokes(b image.Rectangle) *strokes {
	return &strokes{z: vector.NewRasterizer(b.Dx(), b.Dy()), w: float32(b.Dx()), h: float32(b.Dy())}
}

// add appends the segment p-q with the given width. Every quad is wound the
// same way so overlapping segments do not cancel. Points should come from
// toPixel; the rasterizer clips what falls outside the frame.
func (s *strokes) add(p, q f32.Vec2, width float32) {
	dx, dy := q[0]-p[0], q[1]-p[1]
	l := float32(math.Hypot(float64(dx), float64(dy)))
	half := width / 2
	if l == 0 {
		// A point: widen along x so it still shows as a dot.
		dx, dy, l = 1, 0, 1
		p[0] -= half
		q[0] += half
	}
	nx, ny := -dy/l*half, dx/l*half

	s.z.MoveTo(p[0]+nx, p[1]+ny)
	s.z.LineTo(q[0]+nx, q[1]+ny)
	s.z.LineTo(q[0]-nx, q[1]-ny)
	s.z.LineTo(p[0]-nx, p[1]-ny)
	s.z.ClosePath()
	s.n++
}

// paint composites the collected segments in c onto dst and resets.
func (s *strokes) paint(dst *image.RGBA, c color.Color) {
	if s.n > 0 {
		s.z.DrawOp = draw.Over
		s.z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
	}
	s.z.Reset(int(s.w), int(s.h))
	s.n = 0
}
