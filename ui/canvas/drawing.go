package canvas

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"snaplabel/internal/annotation"
	"snaplabel/pkg/colorutil"
	"snaplabel/pkg/geometry"
)

// penWidth is the outline width in widget units.
const penWidth = 2.0

// Render draws a scene into a w x h pixel buffer. k is the number of device
// pixels per widget unit; the scene's mapping and preview are in widget
// units.
func Render(scene annotation.Scene, w, h int, k float64) *image.RGBA {
	output := image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	draw.Draw(output, output.Bounds(), image.NewUniform(colorutil.Black), image.Point{}, draw.Src)
	if scene.Image == nil || w <= 0 || h <= 0 {
		return output
	}
	if k <= 0 {
		k = 1
	}

	m := scene.Mapping
	if k != 1 {
		m = m.Scaled(k)
	}
	region := pixelRect(m.Region).Intersect(output.Bounds())
	if region.Empty() {
		return output
	}
	draw.ApproxBiLinear.Scale(output, pixelRect(m.Region), scene.Image, scene.Image.Bounds(), draw.Src, nil)

	p := &painter{out: output, clip: region}
	pen := int(math.Max(1, math.Round(penWidth*k)))

	for i, a := range scene.Annotations {
		col := colorutil.Fallback
		if !a.Provisional() {
			if c, ok := scene.ColorFor(a.Class); ok {
				col = c
			}
		}
		edge, width := col, pen
		if i == scene.Selected {
			edge = colorutil.Highlight
			width = 2 * pen
		}
		p.shape(toWidget(a.Shape, m), edge, width, false)

		if sq, ok := a.Shape.(annotation.CenterSquare); ok {
			r := m.RectToWidget(sq.Rect)
			c := r.Center()
			p.dot(c, 3*k, colorutil.CenterDot)
			if a.Class != "" {
				adv := font.MeasureString(basicfont.Face7x13, a.Class).Round()
				p.text(a.Class, int(math.Round(c.X))-adv/2, int(r.Y-4*k), col)
			}
		}
	}

	if scene.Preview != nil {
		pv := scaleShape(scene.Preview, k)
		p.shape(pv, colorutil.Preview, pen, true)
		p.dot(pv.Bounds().Center(), 3*k, colorutil.PreviewDot)
	}
	return output
}

// pixelRect converts a widget-space rectangle to whole pixels.
func pixelRect(r geometry.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)), int(math.Round(r.Y+r.Height)),
	)
}

// toWidget maps an image-space shape into widget space.
func toWidget(s annotation.Shape, m annotation.Mapping) annotation.Shape {
	switch s := s.(type) {
	case annotation.Rectangle:
		return annotation.Rectangle{Rect: m.RectToWidget(s.Rect)}
	case annotation.CenterSquare:
		return annotation.CenterSquare{Rect: m.RectToWidget(s.Rect)}
	case annotation.Circle:
		return annotation.Circle{Center: m.ToWidget(s.Center), Radius: s.Radius * m.Scale}
	case annotation.Line:
		return annotation.Line{Start: m.ToWidget(s.Start), End: m.ToWidget(s.End)}
	}
	return s
}

// scaleShape multiplies a widget-space shape by k to reach device pixels.
func scaleShape(s annotation.Shape, k float64) annotation.Shape {
	if k == 1 {
		return s
	}
	scale := func(r geometry.Rect) geometry.Rect {
		return geometry.NewRect(r.X*k, r.Y*k, r.Width*k, r.Height*k)
	}
	switch s := s.(type) {
	case annotation.Rectangle:
		return annotation.Rectangle{Rect: scale(s.Rect)}
	case annotation.CenterSquare:
		return annotation.CenterSquare{Rect: scale(s.Rect)}
	case annotation.Circle:
		return annotation.Circle{Center: s.Center.Scale(k), Radius: s.Radius * k}
	case annotation.Line:
		return annotation.Line{Start: s.Start.Scale(k), End: s.End.Scale(k)}
	}
	return s
}

// painter draws clipped primitives onto an RGBA buffer.
type painter struct {
	out  *image.RGBA
	clip image.Rectangle
}

func (p *painter) set(x, y int, col color.RGBA) {
	if image.Pt(x, y).In(p.clip) {
		p.out.SetRGBA(x, y, col)
	}
}

// onDash reports whether pixel (x, y) is drawn in a dashed outline.
func onDash(x, y int) bool {
	return ((x+y)%8+8)%8 < 4
}

func (p *painter) shape(s annotation.Shape, col color.RGBA, width int, dashed bool) {
	switch s := s.(type) {
	case annotation.Rectangle:
		p.rect(s.Rect, col, width, dashed)
	case annotation.CenterSquare:
		p.rect(s.Rect, col, width, dashed)
	case annotation.Circle:
		p.circle(s.Center, s.Radius, col, width, dashed)
	case annotation.Line:
		p.line(s.Start, s.End, col, width, dashed)
	}
}

func (p *painter) rect(r geometry.Rect, col color.RGBA, width int, dashed bool) {
	tl, br := r.TopLeft(), r.BottomRight()
	tr := geometry.NewPoint2D(br.X, tl.Y)
	bl := geometry.NewPoint2D(tl.X, br.Y)
	p.line(tl, tr, col, width, dashed)
	p.line(tr, br, col, width, dashed)
	p.line(br, bl, col, width, dashed)
	p.line(bl, tl, col, width, dashed)
}

// line draws a line between two points using Bresenham's algorithm with a
// square brush of the given width.
func (p *painter) line(a, b geometry.Point2D, col color.RGBA, width int, dashed bool) {
	x1, y1 := int(math.Round(a.X)), int(math.Round(a.Y))
	x2, y2 := int(math.Round(b.X)), int(math.Round(b.Y))

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	lo := -(width - 1) / 2
	hi := width / 2
	err := dx - dy

	for {
		if !dashed || onDash(x1, y1) {
			for t := lo; t <= hi; t++ {
				for s := lo; s <= hi; s++ {
					p.set(x1+s, y1+t, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// circle draws a ring of the given width just inside radius r.
func (p *painter) circle(c geometry.Point2D, r float64, col color.RGBA, width int, dashed bool) {
	outer := r + float64(width)/2
	inner := math.Max(0, r-float64(width)/2)
	outer2, inner2 := outer*outer, inner*inner

	minX, maxX := int(math.Floor(c.X-outer)), int(math.Ceil(c.X+outer))
	minY, maxY := int(math.Floor(c.Y-outer)), int(math.Ceil(c.Y+outer))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx := float64(x) + 0.5 - c.X
			dy := float64(y) + 0.5 - c.Y
			d2 := dx*dx + dy*dy
			if d2 > outer2 || d2 < inner2 {
				continue
			}
			if dashed && !onDash(x, y) {
				continue
			}
			p.set(x, y, col)
		}
	}
}

// dot draws a filled disc.
func (p *painter) dot(c geometry.Point2D, r float64, col color.RGBA) {
	r2 := r * r
	for y := int(math.Floor(c.Y - r)); y <= int(math.Ceil(c.Y+r)); y++ {
		for x := int(math.Floor(c.X - r)); x <= int(math.Ceil(c.X+r)); x++ {
			dx := float64(x) - c.X
			dy := float64(y) - c.Y
			if dx*dx+dy*dy <= r2 {
				p.set(x, y, col)
			}
		}
	}
}

// text draws label with its baseline at (x, y).
func (p *painter) text(label string, x, y int, col color.RGBA) {
	dst, ok := p.out.SubImage(p.clip).(*image.RGBA)
	if !ok {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}
