// Package tui is the terminal browser for the classification cache: recurring
// failures ranked by frequency on the left, the selected group's detail,
// histogram and builds on the right.
package tui

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"buildtriage/src/ranking"
	"buildtriage/src/store"
)

// Status is the loading state of the browser.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusError
)

// loadedMsg carries a freshly read cache document.
type loadedMsg struct {
	doc *store.Document
}

// loadErrMsg reports a failed cache read.
type loadErrMsg struct {
	err error
}

// MainModel is the Bubble Tea model of the browser.
type MainModel struct {
	store  store.Store
	clock  clock.Clock
	styles *StyleConfig

	header         Header
	listView       View
	detailViewport viewport.Model
	progress       ProgressModel

	items         []Item
	tier          int
	searchQuery   string
	searchMode    bool
	detailFocused bool

	status Status
	err    error
	ready  bool
	width  int
	height int
}

// Option configures a MainModel.
type Option func(*MainModel)

// WithClock sets the clock used for relative times and histograms.
func WithClock(c clock.Clock) Option {
	return func(m *MainModel) { m.clock = c }
}

// WithStyles replaces the default palette.
func WithStyles(s *StyleConfig) Option {
	return func(m *MainModel) { m.styles = s }
}

// New creates a browser over st. The document is read when the program starts.
func New(st store.Store, opts ...Option) MainModel {
	m := MainModel{
		store:    st,
		clock:    clock.New(),
		styles:   DefaultStyles(),
		progress: NewProgressModel(),
		status:   StatusLoading,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.header = NewHeaderWithStyles("Loading cache", nil, m.styles)
	m.listView = NewView(m.styles)
	m.detailViewport = viewport.New(0, 0)
	m.progress, _ = m.progress.Update(ProgressMsg{Stage: "Loading cache"})
	return m
}

// Start runs the browser in the alternate screen until the user quits.
func Start(st store.Store, opts ...Option) error {
	_, err := tea.NewProgram(New(st, opts...), tea.WithAltScreen()).Run()
	return err
}

// Init starts the spinner and the first load.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(SpinnerTick(), m.load())
}

func (m MainModel) load() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		doc, err := st.Load(context.Background())
		if err != nil {
			return loadErrMsg{err: err}
		}
		return loadedMsg{doc: doc}
	}
}

// setDocument replaces the items with the document's failure groups.
func (m *MainModel) setDocument(doc *store.Document) {
	now := m.clock.Now()
	groups := ranking.GroupFailures(doc, 0, now)

	m.items = make([]Item, len(groups))
	for i, g := range groups {
		m.items[i] = Item{Group: g, Rank: i + 1}
	}

	var categories []string
	for _, cc := range ranking.CategoryCounts(groups) {
		categories = append(categories, string(cc.Category))
	}
	m.header.SetCategories(categories)

	status := fmt.Sprintf("%d builds, %d failures", len(doc.Builds), len(groups))
	if !doc.Timestamp.IsZero() {
		status += ", updated " + humanize.RelTime(doc.Timestamp, now, "ago", "from now")
	}
	m.header.SetStatus(status)

	m.status = StatusReady
	m.err = nil
	m.progress, _ = m.progress.Update(ProgressMsg{Stage: stageComplete})
	m.applyFilter()
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case loadedMsg:
		m.setDocument(msg.doc)
		if m.ready {
			m.resizeComponents()
		}
		return m, nil

	case loadErrMsg:
		m.status = StatusError
		m.err = msg.err
		m.header.SetStatus("Cache unavailable")
		return m, nil

	case ProgressMsg, SpinnerTickMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m MainModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.searchMode {
		switch msg.Type {
		case tea.KeyEnter:
			m.searchMode = false
		case tea.KeyEsc:
			m.searchMode = false
			m.searchQuery = ""
		case tea.KeyBackspace:
			if r := []rune(m.searchQuery); len(r) > 0 {
				m.searchQuery = string(r[:len(r)-1])
			}
		case tea.KeyRunes, tea.KeySpace:
			m.searchQuery += string(msg.Runes)
		default:
			return m, nil
		}
		m.header.SetSearch(m.searchQuery, m.searchMode)
		m.applyFilter()
		return m, nil
	}

	if m.detailFocused {
		switch key {
		case "q":
			return m, tea.Quit
		case "esc", "enter":
			m.detailFocused = false
			return m, nil
		}
		var cmd tea.Cmd
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "r":
		m.status = StatusLoading
		m.progress, _ = m.progress.Update(ProgressMsg{Stage: "Reloading cache"})
		return m, tea.Batch(SpinnerTick(), m.load())
	}

	if m.status != StatusReady {
		return m, nil
	}

	switch key {
	case "/":
		m.searchMode = true
		m.header.SetSearch(m.searchQuery, true)
		return m, nil
	case "tab":
		m.header.CycleFilter()
		m.applyFilter()
		return m, nil
	case "0", "1", "2":
		m.tier = int(key[0] - '0')
		m.header.SetTier(tierLabels[m.tier])
		m.applyFilter()
		return m, nil
	case "enter":
		if m.listView.Len() > 0 {
			m.detailFocused = true
		}
		return m, nil
	}

	before, _ := m.listView.GetSelectedItem()
	var cmd tea.Cmd
	m.listView, cmd = m.listView.Update(msg)
	if after, ok := m.listView.GetSelectedItem(); ok && after.Group != before.Group {
		m.refreshDetail()
	}
	return m, cmd
}
