// Package tui is the interactive room list viewer.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/roomlist/internal/events"
	"github.com/tOgg1/roomlist/internal/filters"
	"github.com/tOgg1/roomlist/internal/models"
	"github.com/tOgg1/roomlist/internal/render"
	"github.com/tOgg1/roomlist/internal/roomlist"
)

const (
	defaultStatusTTL = 4 * time.Second
	minWindowWidth   = 40
)

var sortCycle = []models.SortAlgorithm{models.SortAlphabetic, models.SortRecent, models.SortManual}

// Config controls the viewer.
type Config struct {
	Theme      string
	ShowCounts bool
}

// Run starts the viewer and blocks until the user quits.
func Run(ctx context.Context, store *roomlist.Store, cfg Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, err := store.Watch(ctx, events.Filter{})
	if err != nil {
		return err
	}
	m := newModel(ctx, store, updates, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

type uiMode int

const (
	modeMain uiMode = iota
	modeSearch
	modeHelp
)

type listsChangedMsg struct{}

type statusMsg struct {
	text string
	err  bool
}

type model struct {
	ctx     context.Context
	store   *roomlist.Store
	updates <-chan *models.Event

	palette    render.Palette
	showCounts bool
	width      int
	height     int

	mode      uiMode
	snap      *roomlist.Snapshot
	focused   string
	query     string
	search    *filters.NameFilter
	status    string
	statusErr bool
	statusAt  time.Time
	quitting  bool
}

func newModel(ctx context.Context, store *roomlist.Store, updates <-chan *models.Event, cfg Config) model {
	return model{
		ctx:        ctx,
		store:      store,
		updates:    updates,
		palette:    render.ResolvePalette(cfg.Theme),
		showCounts: cfg.ShowCounts,
		snap:       store.Lists(),
		mode:       modeMain,
	}
}

func (m model) Init() tea.Cmd {
	return m.waitCmd()
}

// waitCmd blocks until the store publishes again.
func (m model) waitCmd() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return listsChangedMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case listsChangedMsg:
		m.snap = m.store.Lists()
		if m.focused != "" && !m.visible(m.focused) {
			m.focused = ""
		}
		return m, m.waitCmd()
	case statusMsg:
		m.setStatus(msg.text, msg.err)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearchMode(msg)
		case modeHelp:
			return m.updateHelpMode(msg)
		default:
			return m.updateMainMode(msg)
		}
	}
	return m, nil
}

func (m model) updateMainMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.mode = modeHelp
		return m, nil
	case "j", "down":
		m.moveFocus(1)
		return m, nil
	case "k", "up":
		m.moveFocus(-1)
		return m, nil
	case "esc":
		m.focused = ""
		m.store.SetStickyRoom("")
		return m, nil
	case "/":
		m.mode = modeSearch
		return m, nil
	case "s":
		return m, m.cycleSortCmd()
	case "i":
		return m, m.toggleImportanceCmd()
	case "t":
		m.palette = render.CyclePalette(m.palette.Name, 1)
		return m, nil
	case "c":
		m.showCounts = !m.showCounts
		return m, nil
	}
	return m, nil
}

func (m model) updateSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeMain
		m.query = ""
		return m, m.applySearchCmd()
	case "enter":
		m.mode = modeMain
		return m, nil
	case "backspace", "ctrl+h", "delete":
		if m.query == "" {
			return m, nil
		}
		m.query = removeLastRune(m.query)
		return m, m.applySearchCmd()
	case "space":
		m.query += " "
		return m, m.applySearchCmd()
	default:
		if len(msg.Runes) > 0 {
			m.query += string(msg.Runes)
			return m, m.applySearchCmd()
		}
		return m, nil
	}
}

func (m model) updateHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "?":
		m.mode = modeMain
	}
	return m, nil
}

// applySearchCmd swaps the runtime search filter. It runs synchronously so
// the filter pointer in the model always matches the installed one.
func (m *model) applySearchCmd() tea.Cmd {
	previous := m.search
	m.search = nil
	if strings.TrimSpace(m.query) != "" {
		m.search = filters.NewNameFilter(m.query)
	}
	store, ctx, next := m.store, m.ctx, m.search

	if previous != nil {
		if err := store.RemoveFilter(ctx, previous); err != nil {
			return statusCmd(err.Error(), true)
		}
	}
	if next != nil {
		if err := store.AddFilter(ctx, next); err != nil {
			return statusCmd(err.Error(), true)
		}
	}
	return nil
}

func (m model) focusedTag() (models.Tag, bool) {
	if m.snap == nil {
		return "", false
	}
	for _, tag := range m.snap.Tags {
		for _, room := range m.snap.List(tag) {
			if room.ID == m.focused {
				return tag, true
			}
		}
	}
	if len(m.snap.Tags) > 0 && m.focused == "" {
		for _, tag := range m.snap.Tags {
			if len(m.snap.List(tag)) > 0 {
				return tag, true
			}
		}
	}
	return "", false
}

func (m model) cycleSortCmd() tea.Cmd {
	tag, ok := m.focusedTag()
	if !ok {
		return statusCmd("no bucket focused", true)
	}
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		current := store.TagSorting(tag)
		next := sortCycle[0]
		for i, alg := range sortCycle {
			if alg == current {
				next = sortCycle[(i+1)%len(sortCycle)]
				break
			}
		}
		if err := store.SetTagSorting(ctx, tag, next); err != nil {
			return statusMsg{text: err.Error(), err: true}
		}
		return statusMsg{text: fmt.Sprintf("%s sorted %s", tag.DisplayName(), strings.ToLower(string(next)))}
	}
}

func (m model) toggleImportanceCmd() tea.Cmd {
	tag, ok := m.focusedTag()
	if !ok {
		return statusCmd("no bucket focused", true)
	}
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		next := models.OrderingImportance
		if store.ListOrder(tag) == models.OrderingImportance {
			next = models.OrderingNatural
		}
		if err := store.SetListOrder(ctx, tag, next); err != nil {
			return statusMsg{text: err.Error(), err: true}
		}
		return statusMsg{text: fmt.Sprintf("%s ordering %s", tag.DisplayName(), strings.ToLower(string(next)))}
	}
}

// moveFocus steps through the flattened lists and pins the focused room so
// it keeps its place while the lists change around it.
func (m *model) moveFocus(delta int) {
	order := m.flatIDs()
	if len(order) == 0 {
		return
	}
	idx := -1
	for i, id := range order {
		if id == m.focused {
			idx = i
			break
		}
	}
	switch {
	case idx < 0 && delta > 0:
		idx = 0
	case idx < 0:
		idx = len(order) - 1
	default:
		idx = min(max(idx+delta, 0), len(order)-1)
	}
	m.focused = order[idx]
	m.store.SetStickyRoom(m.focused)
}

func (m model) flatIDs() []string {
	if m.snap == nil {
		return nil
	}
	var out []string
	for _, tag := range m.snap.Tags {
		for _, room := range m.snap.List(tag) {
			out = append(out, room.ID)
		}
	}
	return out
}

func (m model) visible(id string) bool {
	for _, candidate := range m.flatIDs() {
		if candidate == id {
			return true
		}
	}
	return false
}

func (m *model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
	m.statusAt = time.Now()
}

func statusCmd(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, err: isErr} }
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	width := max(m.width, minWindowWidth)
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.TextMuted))
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Accent)).Bold(true)

	version := uint64(0)
	if m.snap != nil {
		version = m.snap.Version
	}
	parts := []string{
		accent.Render("Rooms") + " " + muted.Render(fmt.Sprintf("v%d", version)),
	}

	if m.mode == modeHelp {
		parts = append(parts, renderHelp(muted))
		return strings.Join(parts, "\n")
	}

	parts = append(parts, render.Snapshot(m.snap, render.Options{
		Width:      width,
		Palette:    m.palette,
		ShowCounts: m.showCounts,
		Focused:    m.focused,
		Configs:    m.store.Configs(),
	}))

	if m.mode == modeSearch || m.query != "" {
		cursor := ""
		if m.mode == modeSearch {
			cursor = "_"
		}
		parts = append(parts, accent.Render("/")+m.query+cursor)
	}
	if m.status != "" && time.Since(m.statusAt) < defaultStatusTTL {
		style := muted
		if m.statusErr {
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Highlight)).Bold(true)
		}
		parts = append(parts, style.Render(m.status))
	}
	parts = append(parts, muted.Render("j/k move  / search  s sort  i importance  t theme  ? help  q quit"))
	return strings.Join(parts, "\n")
}

func renderHelp(style lipgloss.Style) string {
	lines := []string{
		"j/k, up/down  move focus; the focused room stays in place",
		"esc           release focus",
		"/             search by name, enter to keep, esc to clear",
		"s             cycle the focused bucket's sort algorithm",
		"i             toggle importance ordering for the focused bucket",
		"c             toggle unread counters",
		"t             cycle theme",
		"q             quit",
	}
	return style.Render(strings.Join(lines, "\n"))
}

func removeLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}
