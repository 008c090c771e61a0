package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// SnapLabelTheme tints the default theme for long labelling sessions.
type SnapLabelTheme struct{}

var _ fyne.Theme = (*SnapLabelTheme)(nil)

func (t *SnapLabelTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x00, G: 0x96, B: 0xC7, A: 0xFF} // matches the cyan preview dot
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xFF, G: 0xFF, B: 0x00, A: 0x60} // selected-annotation yellow
	case theme.ColorNameFocus:
		return color.NRGBA{R: 0x00, G: 0x96, B: 0xC7, A: 0x80}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *SnapLabelTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *SnapLabelTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *SnapLabelTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameSeparatorThickness:
		return 2
	default:
		return theme.DefaultTheme().Size(name)
	}
}
