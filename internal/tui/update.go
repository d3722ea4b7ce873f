package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/honeywatch/internal/model"
)

// maxEventRows caps the unfiltered events panel.
const maxEventRows = 500

type tickDataLoadedMsg struct {
	snapshot  *model.Snapshot
	lastError string // first RPC error encountered during this tick
}

type searchResultsMsg struct {
	term    string
	results []model.EventRecord
	err     string
}

// Update handles messages
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.searchInput.Width = max(10, msg.Width-10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case TickMsg:
		if m.paused || m.tickInFlight {
			return m, m.tickCmd()
		}
		m.tickInFlight = true
		return m, tea.Batch(m.fetchTickDataCmd(false), m.tickCmd())

	case tickDataLoadedMsg:
		m.tickInFlight = false
		m.applyTickData(msg)
		// Keep search results in step with the snapshot they were taken from.
		if m.searchTerm != "" && !m.searchPending {
			m.searchPending = true
			return m, m.searchCmd(m.searchTerm)
		}
		return m, nil

	case searchResultsMsg:
		if msg.term != m.searchTerm {
			return m, nil
		}
		m.searchPending = false
		if msg.err != "" {
			m.lastError = msg.err
			return m, nil
		}
		m.searchResults = msg.results
		return m, nil
	}

	if m.searchActive {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *DashboardModel) applyTickData(msg tickDataLoadedMsg) {
	m.lastError = msg.lastError
	if msg.snapshot == nil {
		return
	}
	m.snapshot = msg.snapshot
	m.lastUpdated = msg.snapshot.RefreshedAt
}

// fetchTickDataCmd loads the current snapshot, asking the service for an
// out-of-band refresh first when refresh is set.
func (m *DashboardModel) fetchTickDataCmd(refresh bool) tea.Cmd {
	store := m.store
	if store == nil {
		return func() tea.Msg { return tickDataLoadedMsg{} }
	}

	return func() tea.Msg {
		msg := tickDataLoadedMsg{}
		collectErr := func(err error) {
			if err != nil && msg.lastError == "" {
				msg.lastError = err.Error()
			}
		}

		if refresh {
			collectErr(store.Refresh())
		}
		snap, err := store.Snapshot()
		collectErr(err)
		msg.snapshot = snap
		return msg
	}
}

func (m *DashboardModel) searchCmd(term string) tea.Cmd {
	store := m.store
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		results, err := store.Search(term)
		msg := searchResultsMsg{term: term, results: results}
		if err != nil {
			msg.err = err.Error()
		}
		return msg
	}
}

func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	if key.Matches(msg, k.ForceQuit) {
		return m, tea.Quit
	}
	if m.searchActive {
		return m.handleSearchInput(msg)
	}

	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit

	case key.Matches(msg, k.Escape):
		m.clearSearch()

	case key.Matches(msg, k.Search):
		m.searchActive = true
		m.searchInput.SetValue(m.searchTerm)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()

	case key.Matches(msg, k.Refresh):
		if m.tickInFlight {
			return m, nil
		}
		m.tickInFlight = true
		return m, m.fetchTickDataCmd(true)

	case key.Matches(msg, k.Pause):
		m.paused = !m.paused

	case key.Matches(msg, k.IntervalUp):
		m.currentIntervalIdx = (m.currentIntervalIdx + 1) % len(m.availableIntervals)
		m.updateInterval = m.availableIntervals[m.currentIntervalIdx]

	case key.Matches(msg, k.IntervalDown):
		m.currentIntervalIdx = (m.currentIntervalIdx - 1 + len(m.availableIntervals)) % len(m.availableIntervals)
		m.updateInterval = m.availableIntervals[m.currentIntervalIdx]

	case key.Matches(msg, k.NextSection):
		m.activeSection = (m.activeSection + 1) % sectionCount

	case key.Matches(msg, k.PrevSection):
		m.activeSection = (m.activeSection - 1 + sectionCount) % sectionCount

	case key.Matches(msg, k.Up):
		m.moveScroll(-1)

	case key.Matches(msg, k.Down):
		m.moveScroll(1)
	}
	return m, nil
}

func (m *DashboardModel) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searchActive = false
		m.searchInput.Blur()
		return m, nil

	case tea.KeyEnter:
		m.searchActive = false
		m.searchInput.Blur()
		term := strings.TrimSpace(m.searchInput.Value())
		if term == "" {
			m.clearSearch()
			return m, nil
		}
		m.searchTerm = term
		m.searchResults = nil
		m.searchPending = true
		m.activeSection = SectionEvents
		m.scroll[SectionEvents] = 0
		return m, m.searchCmd(term)
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m *DashboardModel) clearSearch() {
	m.searchTerm = ""
	m.searchResults = nil
	m.searchPending = false
	m.searchInput.SetValue("")
	m.scroll[SectionEvents] = 0
}

func (m *DashboardModel) moveScroll(delta int) {
	n := m.scroll[m.activeSection] + delta
	if n < 0 {
		n = 0
	}
	if limit := m.sectionRows(m.activeSection); n > limit-1 {
		n = max(0, limit-1)
	}
	m.scroll[m.activeSection] = n
}

// sectionRows is the number of scrollable rows a section currently holds.
func (m *DashboardModel) sectionRows(s Section) int {
	switch s {
	case SectionTopIPs:
		if m.snapshot != nil {
			return len(m.snapshot.Breakdowns.TopIPs)
		}
	case SectionGeo:
		if m.snapshot != nil {
			return len(m.snapshot.GeoClusters)
		}
	case SectionEvents:
		return len(m.events())
	}
	return 0
}

// events is what the events panel lists: search results while a search is
// set, otherwise the snapshot's records newest first.
func (m *DashboardModel) events() []model.EventRecord {
	if m.searchTerm != "" {
		return m.searchResults
	}
	if m.snapshot == nil {
		return nil
	}
	recs := m.snapshot.Records
	out := make([]model.EventRecord, 0, min(len(recs), maxEventRows))
	for i := len(recs) - 1; i >= 0 && len(out) < maxEventRows; i-- {
		out = append(out, recs[i])
	}
	return out
}
