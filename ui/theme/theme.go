// Package theme provides the application's fyne theme.
package theme

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// CalibratorTheme is a dark theme with a blue accent, keeping the chrome
// muted next to the video.
type CalibratorTheme struct{}

var _ fyne.Theme = (*CalibratorTheme)(nil)

func (t *CalibratorTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x00, G: 0x78, B: 0xD7, A: 0xFF}
	case theme.ColorNameBackground:
		return color.NRGBA{R: 0x2B, G: 0x2B, B: 0x2B, A: 0xFF}
	case theme.ColorNameInputBackground:
		return color.NRGBA{R: 0x3D, G: 0x3D, B: 0x3D, A: 0xFF}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0x00, G: 0x78, B: 0xD7, A: 0x80}
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (t *CalibratorTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *CalibratorTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *CalibratorTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 13
	case theme.SizeNameScrollBar:
		return 12
	default:
		return theme.DefaultTheme().Size(name)
	}
}
