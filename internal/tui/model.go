package tui

import (
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/honeywatch/internal/model"
	"github.com/tinytelemetry/honeywatch/internal/severity"
)

// Section identifies a focusable dashboard panel.
type Section int

const (
	SectionCategories Section = iota
	SectionTimeline
	SectionTopIPs
	SectionGeo
	SectionEvents
	sectionCount
)

func (s Section) String() string {
	switch s {
	case SectionCategories:
		return "Attack Categories"
	case SectionTimeline:
		return "Events per Hour"
	case SectionTopIPs:
		return "Top Attacking IPs"
	case SectionGeo:
		return "Origins"
	case SectionEvents:
		return "Events"
	default:
		return "?"
	}
}

// TickMsg drives the periodic refresh.
type TickMsg time.Time

// DashboardModel is the live dashboard over a model.ViewQuerier.
type DashboardModel struct {
	store   model.ViewQuerier
	catalog *severity.Catalog
	keys    KeyMap
	help    help.Model

	width  int
	height int

	updateInterval     time.Duration
	availableIntervals []time.Duration
	currentIntervalIdx int
	tickInFlight       bool
	paused             bool

	snapshot    *model.Snapshot
	lastError   string
	lastUpdated time.Time

	activeSection Section
	scroll        map[Section]int

	searchInput   textinput.Model
	searchActive  bool
	searchTerm    string
	searchResults []model.EventRecord
	searchPending bool
}

// NewDashboardModel creates a dashboard polling store every updateInterval.
func NewDashboardModel(store model.ViewQuerier, catalog *severity.Catalog, updateInterval time.Duration) *DashboardModel {
	if catalog == nil {
		catalog = severity.DefaultCatalog()
	}
	if updateInterval <= 0 {
		updateInterval = model.DefaultUpdateInterval
	}

	availableIntervals := []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		5 * time.Second,
		10 * time.Second,
		30 * time.Second,
		1 * time.Minute,
	}
	idx := slices.Index(availableIntervals, updateInterval)
	if idx < 0 {
		availableIntervals = append(availableIntervals, updateInterval)
		slices.Sort(availableIntervals)
		idx = slices.Index(availableIntervals, updateInterval)
	}

	ti := textinput.New()
	ti.Placeholder = "ip, path or tag"
	ti.Prompt = "/ "
	ti.CharLimit = 256

	return &DashboardModel{
		store:              store,
		catalog:            catalog,
		keys:               DefaultKeyMap(),
		help:               help.New(),
		updateInterval:     updateInterval,
		availableIntervals: availableIntervals,
		currentIntervalIdx: idx,
		scroll:             make(map[Section]int),
		searchInput:        ti,
	}
}

// Init fetches immediately and starts the tick loop.
func (m *DashboardModel) Init() tea.Cmd {
	m.tickInFlight = true
	return tea.Batch(m.fetchTickDataCmd(false), m.tickCmd())
}

func (m *DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.updateInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// DashboardPage adapts DashboardModel to the Page interface.
type DashboardPage struct {
	Model *DashboardModel
}

// NewDashboardPage wraps a DashboardModel as a Page.
func NewDashboardPage(m *DashboardModel) *DashboardPage {
	return &DashboardPage{Model: m}
}

func (p *DashboardPage) ID() string { return PageDashboard }

func (p *DashboardPage) Init() tea.Cmd {
	return p.Model.Init()
}

func (p *DashboardPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if km, ok := msg.(tea.KeyMsg); ok && !p.Model.searchActive && key.Matches(km, p.Model.keys.Help) {
		return nil, &PageNav{PageID: PageHelp}
	}
	_, cmd := p.Model.Update(msg)
	return cmd, nil
}

func (p *DashboardPage) View(width, height int) string {
	p.Model.width = width
	p.Model.height = height
	return p.Model.View()
}
