package tui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/honeywatch/internal/aggregate"
	"github.com/tinytelemetry/honeywatch/internal/filter"
	"github.com/tinytelemetry/honeywatch/internal/model"
)

type countingStore struct {
	mu sync.Mutex

	snapshot    *model.Snapshot
	snapshotErr error

	snapshotCalls int
	refreshCalls  int
	searchCalls   int
	lastQuery     string
}

var _ model.ViewQuerier = (*countingStore)(nil)

func (s *countingStore) Snapshot() (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotCalls++
	if s.snapshotErr != nil {
		return nil, s.snapshotErr
	}
	return s.snapshot, nil
}

func (s *countingStore) Logs() ([]model.EventRecord, error)         { return s.snapshot.Records, nil }
func (s *countingStore) Stats() (model.Stats, error)                { return s.snapshot.Stats, nil }
func (s *countingStore) TimeSeries() ([]model.TimeBucket, error)    { return s.snapshot.TimeSeries, nil }
func (s *countingStore) GeoClusters() ([]model.GeoCluster, error)   { return s.snapshot.GeoClusters, nil }
func (s *countingStore) Breakdowns() (model.Breakdowns, error)      { return s.snapshot.Breakdowns, nil }
func (s *countingStore) TopIPs(int) ([]model.DimensionCount, error) { return nil, nil }

func (s *countingStore) Search(query string) ([]model.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchCalls++
	s.lastQuery = query
	return filter.Apply(s.snapshot.Records, query), nil
}

func (s *countingStore) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	return nil
}

func sampleSnapshot() *model.Snapshot {
	records := []model.EventRecord{
		{Time: "2024-05-01T14:02:11Z", IP: "203.0.113.5", Path: "/login", Tags: []string{"Bruteforce"}, Lat: 52.52, Lon: 13.40, Country: "Germany"},
		{Time: "2024-05-01T14:09:40Z", IP: "203.0.113.5", Path: "/login", Tags: []string{"Bruteforce"}, Lat: 52.52, Lon: 13.40, Country: "Germany"},
		{Time: "2024-05-01T15:30:00Z", IP: "198.51.100.7", Path: "/item?id=1' OR 1=1", Tags: []string{"SQLi"}},
	}
	return aggregate.Build(records, 1, time.Date(2024, 5, 1, 16, 0, 0, 0, time.UTC))
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// load runs one fetch synchronously, as the tea runtime would.
func load(t *testing.T, m *DashboardModel, refresh bool) {
	t.Helper()
	msg := m.fetchTickDataCmd(refresh)()
	m.Update(msg)
}

func TestTick_FetchesWhenIdle(t *testing.T) {
	t.Parallel()

	store := &countingStore{snapshot: sampleSnapshot()}
	m := NewDashboardModel(store, nil, time.Second)

	_, cmd := m.Update(TickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick returned no command")
	}
	if !m.tickInFlight {
		t.Fatal("expected fetch to be in flight after tick")
	}

	load(t, m, false)
	if m.tickInFlight {
		t.Fatal("in-flight flag not cleared after data loaded")
	}
	if m.snapshot == nil || m.snapshot.Stats.Total != 3 {
		t.Fatalf("snapshot not applied: %+v", m.snapshot)
	}
}

func TestTick_SkipsWhileInFlightOrPaused(t *testing.T) {
	t.Parallel()

	store := &countingStore{snapshot: sampleSnapshot()}
	m := NewDashboardModel(store, nil, time.Second)

	m.tickInFlight = true
	m.Update(TickMsg(time.Now()))
	if !m.tickInFlight {
		t.Fatal("in-flight tick was reset by a skipped tick")
	}

	m.tickInFlight = false
	m.Update(runeKey("p"))
	if !m.paused {
		t.Fatal("p should pause live updates")
	}
	m.Update(TickMsg(time.Now()))
	if m.tickInFlight {
		t.Fatal("paused dashboard started a fetch")
	}
	if store.snapshotCalls != 0 {
		t.Fatalf("snapshot calls = %d, want 0", store.snapshotCalls)
	}
}

func TestFetch_ErrorKeepsPreviousSnapshot(t *testing.T) {
	t.Parallel()

	store := &countingStore{snapshot: sampleSnapshot()}
	m := NewDashboardModel(store, nil, time.Second)
	load(t, m, false)

	store.snapshotErr = errors.New("store unavailable")
	load(t, m, false)

	if m.snapshot == nil || m.snapshot.Stats.Total != 3 {
		t.Fatal("previous snapshot dropped after a failed fetch")
	}
	if !strings.Contains(m.lastError, "store unavailable") {
		t.Fatalf("lastError = %q", m.lastError)
	}

	store.snapshotErr = nil
	load(t, m, false)
	if m.lastError != "" {
		t.Fatalf("lastError not cleared after recovery: %q", m.lastError)
	}
}

func TestRefreshKey_RequestsOutOfBandRefresh(t *testing.T) {
	t.Parallel()

	store := &countingStore{snapshot: sampleSnapshot()}
	m := NewDashboardModel(store, nil, time.Second)

	_, cmd := m.Update(runeKey("r"))
	if cmd == nil {
		t.Fatal("refresh key returned no command")
	}
	m.Update(cmd())

	if store.refreshCalls != 1 {
		t.Fatalf("refresh calls = %d, want 1", store.refreshCalls)
	}
	if m.snapshot == nil {
		t.Fatal("snapshot not loaded after refresh")
	}

	// A second press while a fetch is pending is ignored.
	m.tickInFlight = true
	if _, cmd := m.Update(runeKey("r")); cmd != nil {
		t.Fatal("refresh issued while a fetch was in flight")
	}
}

func TestSearch_EnterRunsQuery(t *testing.T) {
	t.Parallel()

	store := &countingStore{snapshot: sampleSnapshot()}
	m := NewDashboardModel(store, nil, time.Second)
	load(t, m, false)

	m.Update(runeKey("/"))
	if !m.searchActive {
		t.Fatal("search input not active")
	}
	// Keys are typed into the input, not treated as commands.
	m.Update(runeKey("q"))
	if !m.searchActive {
		t.Fatal("typing q closed the search input")
	}

	m.searchInput.SetValue(" bruteforce ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter returned no search command")
	}
	m.Update(cmd())

	if store.lastQuery != "bruteforce" {
		t.Fatalf("query = %q, want trimmed term", store.lastQuery)
	}
	if got := len(m.events()); got != 2 {
		t.Fatalf("events = %d, want 2 matches", got)
	}
	if m.activeSection != SectionEvents {
		t.Fatalf("active section = %v, want events", m.activeSection)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.searchTerm != "" || len(m.events()) != 3 {
		t.Fatalf("esc did not clear the search: term=%q events=%d", m.searchTerm, len(m.events()))
	}
}

func TestSearch_StaleResultsIgnored(t *testing.T) {
	t.Parallel()

	m := NewDashboardModel(&countingStore{snapshot: sampleSnapshot()}, nil, time.Second)
	m.searchTerm = "sqli"
	m.searchPending = true

	m.Update(searchResultsMsg{term: "login", results: []model.EventRecord{{IP: "x"}}})
	if m.searchResults != nil || !m.searchPending {
		t.Fatal("results for an old term were applied")
	}
}

func TestEvents_NewestFirst(t *testing.T) {
	t.Parallel()

	m := NewDashboardModel(&countingStore{snapshot: sampleSnapshot()}, nil, time.Second)
	load(t, m, false)

	events := m.events()
	if events[0].IP != "198.51.100.7" {
		t.Fatalf("first event = %+v, want newest record", events[0])
	}
}

func TestIntervalKeysCycle(t *testing.T) {
	t.Parallel()

	m := NewDashboardModel(&countingStore{}, nil, 2*time.Second)
	m.Update(runeKey("u"))
	if m.updateInterval != 5*time.Second {
		t.Fatalf("interval = %v, want 5s", m.updateInterval)
	}
	m.Update(runeKey("U"))
	m.Update(runeKey("U"))
	if m.updateInterval != time.Second {
		t.Fatalf("interval = %v, want 1s", m.updateInterval)
	}

	custom := NewDashboardModel(&countingStore{}, nil, 3*time.Second)
	if custom.availableIntervals[custom.currentIntervalIdx] != 3*time.Second {
		t.Fatal("custom interval not inserted into the cycle")
	}
}

func TestView_RendersPanels(t *testing.T) {
	t.Parallel()

	m := NewDashboardModel(&countingStore{snapshot: sampleSnapshot()}, nil, time.Second)
	m.width, m.height = 140, 45
	if got := m.View(); !strings.Contains(got, "Waiting") {
		t.Fatalf("expected waiting message before first snapshot, got:\n%s", got)
	}

	load(t, m, false)
	out := m.View()
	for _, want := range []string{"Attack Categories", "Events per Hour", "Top Attacking IPs", "Origins", "203.0.113.5", "Germany", "Bruteforce"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestCategoryRows_OrderAndSeverity(t *testing.T) {
	t.Parallel()

	snap := sampleSnapshot()
	rows := categoryRows(snap.Stats, NewDashboardModel(nil, nil, 0).catalog)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].name != "Bruteforce" || rows[0].count != 2 || rows[0].severity != "HIGH" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].name != "SQLi" || rows[1].severity != "CRITICAL" {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}

func TestCategoryRows_TiesGoToMoreSevere(t *testing.T) {
	t.Parallel()

	stats := model.Stats{Total: 6, ByCategory: map[string]int64{"Scanner": 2, "Low-Risk": 2, "SQLi": 2}}
	rows := categoryRows(stats, NewDashboardModel(nil, nil, 0).catalog)
	var got []string
	for _, r := range rows {
		got = append(got, r.name)
	}
	if strings.Join(got, ",") != "SQLi,Scanner,Low-Risk" {
		t.Errorf("order = %v, want SQLi, Scanner, Low-Risk", got)
	}
}

func TestFormatEvent_ShowsRiskSeverity(t *testing.T) {
	t.Parallel()

	m := NewDashboardModel(nil, nil, 0)
	tests := []struct {
		score float64
		want  string
	}{
		{9.5, " 9.5 CRITICAL"},
		{7, " 7.0 HIGH"},
		{4.2, " 4.2 MEDIUM"},
		{1, " 1.0 LOW"},
	}
	for _, tt := range tests {
		line := m.formatEvent(model.EventRecord{IP: "198.51.100.7", Path: "/wp-login.php", RiskScore: tt.score}, 20)
		if !strings.Contains(line, tt.want) {
			t.Errorf("score %v: line %q missing %q", tt.score, line, tt.want)
		}
	}

	line := m.formatEvent(model.EventRecord{IP: "198.51.100.7", Path: "/"}, 20)
	if strings.Contains(line, "LOW") {
		t.Errorf("unscored record should not show a tier: %q", line)
	}
}

func TestWindow_ClampsScroll(t *testing.T) {
	t.Parallel()

	m := NewDashboardModel(nil, nil, 0)
	m.scroll[SectionGeo] = 50
	got := m.window(SectionGeo, []string{"a", "b", "c", "d"}, 2, "empty")
	if got != "c\nd" {
		t.Fatalf("window = %q, want last two lines", got)
	}
}

func TestApp_HelpPageNavigation(t *testing.T) {
	t.Parallel()

	m := NewDashboardModel(&countingStore{snapshot: sampleSnapshot()}, nil, time.Second)
	app := NewApp(NewDashboardPage(m), NewHelpPage(DefaultKeyMap()))

	app.Update(runeKey("?"))
	if app.ActivePage() != PageHelp {
		t.Fatalf("active page = %q, want help", app.ActivePage())
	}

	// Data keeps flowing to the dashboard while help is shown.
	app.Update(m.fetchTickDataCmd(false)())
	if m.snapshot == nil {
		t.Fatal("dashboard missed data loaded while help was open")
	}

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if app.ActivePage() != PageDashboard {
		t.Fatalf("active page = %q, want dashboard", app.ActivePage())
	}
}
