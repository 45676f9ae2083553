package render

import "strings"

// Palette holds the colors used to draw a room list.
type Palette struct {
	Name      string
	Text      string
	TextMuted string
	Border    string
	Accent    string
	Focus     string
	Highlight string
	Notify    string
	Unread    string
}

var paletteOrder = []string{"default", "high-contrast"}

var palettes = map[string]Palette{
	"default": {
		Name:      "default",
		Text:      "#E6EDF3",
		TextMuted: "#8B9AAE",
		Border:    "#223043",
		Accent:    "#5B8DEF",
		Focus:     "#7AA2F7",
		Highlight: "#F85149",
		Notify:    "#D29922",
		Unread:    "#E6EDF3",
	},
	"high-contrast": {
		Name:      "high-contrast",
		Text:      "#FFFFFF",
		TextMuted: "#C0C0C0",
		Border:    "#FFFFFF",
		Accent:    "#00A2FF",
		Focus:     "#FFD400",
		Highlight: "#FF4040",
		Notify:    "#FFB000",
		Unread:    "#FFFFFF",
	},
}

// ResolvePalette returns the named palette, falling back to default.
func ResolvePalette(name string) Palette {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if palette, ok := palettes[trimmed]; ok {
		return palette
	}
	return palettes["default"]
}

// CyclePalette returns the palette delta steps away from current.
func CyclePalette(current string, delta int) Palette {
	current = strings.ToLower(strings.TrimSpace(current))
	idx := 0
	for i, candidate := range paletteOrder {
		if candidate == current {
			idx = i
			break
		}
	}
	idx += delta
	for idx < 0 {
		idx += len(paletteOrder)
	}
	idx %= len(paletteOrder)
	return ResolvePalette(paletteOrder[idx])
}
