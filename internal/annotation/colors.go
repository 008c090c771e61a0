package annotation

import (
	"image/color"

	"snaplabel/pkg/colorutil"
)

// ClassColors assigns palette colors to class labels in first-seen order.
type ClassColors struct {
	assigned map[string]color.RGBA
	order    []string
}

// NewClassColors creates an empty assignment.
func NewClassColors() *ClassColors {
	return &ClassColors{assigned: make(map[string]color.RGBA)}
}

// EnsureColor returns the color for label, assigning the next palette entry
// on first use. Provisional (empty) labels always get the fallback color and
// never consume a palette slot.
func (c *ClassColors) EnsureColor(label string) color.RGBA {
	if label == "" {
		return colorutil.Fallback
	}
	if col, ok := c.assigned[label]; ok {
		return col
	}
	col := colorutil.PaletteColor(len(c.order))
	c.assigned[label] = col
	c.order = append(c.order, label)
	return col
}

// Color returns the assigned color without assigning. Unknown labels get
// the fallback color.
func (c *ClassColors) Color(label string) color.RGBA {
	if col, ok := c.assigned[label]; ok {
		return col
	}
	return colorutil.Fallback
}

// Labels returns the labels in assignment order.
func (c *ClassColors) Labels() []string {
	return append([]string(nil), c.order...)
}

// snapshot returns a copy of the assignment map.
func (c *ClassColors) snapshot() map[string]color.RGBA {
	out := make(map[string]color.RGBA, len(c.assigned))
	for k, v := range c.assigned {
		out[k] = v
	}
	return out
}
