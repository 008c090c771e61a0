// Package colorutil provides shared color utilities for the annotation canvas.
package colorutil

import (
	"image/color"
)

// Common overlay colors used throughout the application.
var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Cyan   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Blue   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Gray   = color.RGBA{R: 100, G: 100, B: 100, A: 255}
)

// Semantic aliases for annotation rendering.
var (
	Highlight  = Yellow // selected annotation
	Preview    = Green  // in-progress shape
	PreviewDot = Cyan   // centre-square hover dot
	CenterDot  = Blue   // centre-square centre marker
	Fallback   = Gray   // provisional (unlabelled) annotation
)

// Palette is the ordered set of class colors. Classes take colors in
// first-seen order and wrap around once the palette is exhausted.
var Palette = []color.RGBA{
	{R: 255, G: 0, B: 0, A: 255},     // red
	{R: 0, G: 255, B: 0, A: 255},     // green
	{R: 0, G: 0, B: 255, A: 255},     // blue
	{R: 255, G: 165, B: 0, A: 255},   // orange
	{R: 128, G: 0, B: 128, A: 255},   // purple
	{R: 0, G: 255, B: 255, A: 255},   // cyan
	{R: 255, G: 255, B: 0, A: 255},   // yellow
	{R: 255, G: 192, B: 203, A: 255}, // pink
	{R: 0, G: 128, B: 0, A: 255},     // dark green
	{R: 0, G: 0, B: 128, A: 255},     // dark blue
	{R: 139, G: 69, B: 19, A: 255},   // brown
	{R: 255, G: 99, B: 71, A: 255},   // tomato
	{R: 70, G: 130, B: 180, A: 255},  // steel blue
	{R: 218, G: 112, B: 214, A: 255}, // orchid
	{R: 100, G: 100, B: 100, A: 255}, // gray
}

// PaletteColor returns the palette entry for index i, wrapping around.
func PaletteColor(i int) color.RGBA {
	n := len(Palette)
	return Palette[((i%n)+n)%n]
}
