// Package render draws published room list snapshots with lipgloss.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/roomlist/internal/algorithm"
	"github.com/tOgg1/roomlist/internal/models"
	"github.com/tOgg1/roomlist/internal/roomlist"
)

const (
	defaultWidth = 60
	minWidth     = 20
)

// Options controls how a snapshot is drawn.
type Options struct {
	// Width is the maximum line width. Zero uses a default.
	Width int

	// Palette selects colors.
	Palette Palette

	// ShowCounts renders unread counters next to room names.
	ShowCounts bool

	// ShowEmpty keeps headers of empty buckets.
	ShowEmpty bool

	// Focused is the room drawn with the focus marker.
	Focused string

	// Configs annotates each header with its sort configuration.
	Configs map[models.Tag]models.SortConfig

	// Importance derives the marker shown before each room.
	Importance algorithm.ImportanceFunc
}

type styles struct {
	header    lipgloss.Style
	meta      lipgloss.Style
	text      lipgloss.Style
	muted     lipgloss.Style
	focus     lipgloss.Style
	highlight lipgloss.Style
	notify    lipgloss.Style
	unread    lipgloss.Style
}

func newStyles(p Palette) styles {
	return styles{
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Bold(true),
		meta:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.TextMuted)),
		text:      lipgloss.NewStyle().Foreground(lipgloss.Color(p.Text)),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.TextMuted)),
		focus:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.Focus)).Bold(true),
		highlight: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Highlight)).Bold(true),
		notify:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Notify)),
		unread:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Unread)).Bold(true),
	}
}

// Snapshot renders every bucket of snap in display order.
func Snapshot(snap *roomlist.Snapshot, opts Options) string {
	if snap == nil {
		return ""
	}
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	width = max(width, minWidth)
	if opts.Palette.Name == "" {
		opts.Palette = ResolvePalette("")
	}
	importance := opts.Importance
	if importance == nil {
		importance = algorithm.DefaultImportance
	}
	st := newStyles(opts.Palette)
	line := lipgloss.NewStyle().MaxWidth(width)

	var sections []string
	for _, tag := range snap.Tags {
		rooms := snap.List(tag)
		if len(rooms) == 0 && !opts.ShowEmpty {
			continue
		}

		header := st.header.Render(fmt.Sprintf("%s (%d)", tag.DisplayName(), len(rooms)))
		if cfg, ok := opts.Configs[tag]; ok {
			header += " " + st.meta.Render(strings.ToLower(cfg.String()))
		}
		lines := []string{line.Render(header)}

		for _, room := range rooms {
			lines = append(lines, line.Render(renderRoom(st, room, opts, importance(room), room.ID == snap.Sticky)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if len(sections) == 0 {
		return st.muted.Render("No rooms")
	}
	return strings.Join(sections, "\n\n")
}

func renderRoom(st styles, room *models.Room, opts Options, cat algorithm.Category, sticky bool) string {
	cursor := "  "
	if room.ID == opts.Focused {
		cursor = st.focus.Render("> ")
	}

	name := strings.TrimSpace(room.Name)
	if name == "" {
		name = room.ID
	}

	var nameStyle lipgloss.Style
	marker := " "
	switch cat {
	case algorithm.CategoryRed:
		nameStyle, marker = st.highlight, st.highlight.Render("!")
	case algorithm.CategoryGrey:
		nameStyle, marker = st.notify, st.notify.Render("*")
	case algorithm.CategoryBold:
		nameStyle = st.unread
	default:
		nameStyle = st.text
	}

	out := cursor + marker + " " + nameStyle.Render(name)
	if opts.ShowCounts {
		if counts := formatCounts(room.Notifications); counts != "" {
			out += " " + st.muted.Render(counts)
		}
	}
	if sticky {
		out += " " + st.muted.Render("(pinned)")
	}
	return out
}

func formatCounts(n models.Notifications) string {
	switch {
	case n.Highlights > 0:
		return fmt.Sprintf("[%d!]", n.Highlights)
	case n.Notifying > 0:
		return fmt.Sprintf("[%d]", n.Notifying)
	case n.Unread > 0:
		return fmt.Sprintf("[%d]", n.Unread)
	default:
		return ""
	}
}
