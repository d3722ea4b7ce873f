package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/honeywatch/internal/model"
	"github.com/tinytelemetry/honeywatch/internal/severity"
)

const (
	chartRowHeight = 12
	listRowHeight  = 10
	minEventsRows  = 5
)

// View renders the dashboard.
func (m *DashboardModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Loading..."
	}

	status := m.renderStatusBar()
	footer := helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))

	if m.snapshot == nil {
		body := mutedStyle.Render("Waiting for the first snapshot...")
		if m.lastError != "" {
			body = errorStyle.Render("Service unavailable: ") + m.lastError
		}
		gap := max(0, m.height-3)
		return lipgloss.JoinVertical(lipgloss.Left, status, lipgloss.PlaceVertical(gap, lipgloss.Center, lipgloss.PlaceHorizontal(m.width, lipgloss.Center, body)), footer)
	}

	leftW := m.width / 2
	rightW := m.width - leftW

	chartsRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderCategories(leftW, chartRowHeight),
		m.renderTimelinePanel(rightW, chartRowHeight),
	)
	listsRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderTopIPs(leftW, listRowHeight),
		m.renderGeo(rightW, listRowHeight),
	)
	eventsH := max(minEventsRows, m.height-chartRowHeight-listRowHeight-2)
	events := m.renderEvents(m.width, eventsH)

	return lipgloss.JoinVertical(lipgloss.Left, status, chartsRow, listsRow, events, footer)
}

func (m *DashboardModel) renderStatusBar() string {
	parts := []string{"honeywatch"}
	if m.snapshot != nil {
		parts = append(parts,
			fmt.Sprintf("%d events", m.snapshot.Stats.Total),
			"updated "+m.lastUpdated.Local().Format("15:04:05"),
		)
	}
	parts = append(parts, "every "+formatDuration(m.updateInterval))
	if m.paused {
		parts = append(parts, "PAUSED")
	}
	line := statusBarStyle.Width(m.width).Render(strings.Join(parts, " │ "))
	if m.lastError != "" && m.snapshot != nil {
		line = lipgloss.JoinVertical(lipgloss.Left, line, staleStyle.Render("stale: "+truncate(m.lastError, m.width-8)))
	}
	return line
}

// panel wraps body in a bordered section of the given outer size.
func (m *DashboardModel) panel(s Section, header, body string, width, height int) string {
	style := sectionStyle
	if m.activeSection == s {
		style = activeSectionStyle
	}
	title := chartTitleStyle.Render(header)
	return style.Width(max(width-2, 1)).Height(max(height-2, 1)).Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

func (m *DashboardModel) renderCategories(width, height int) string {
	rows := categoryRows(m.snapshot.Stats, m.catalog)
	body := renderCategoryBars(rows, width-4, height-3)
	return m.panel(SectionCategories, SectionCategories.String(), body, width, height)
}

func (m *DashboardModel) renderTimelinePanel(width, height int) string {
	body := renderTimeline(m.snapshot.TimeSeries, width-4, height-3)
	return m.panel(SectionTimeline, SectionTimeline.String(), body, width, height)
}

func (m *DashboardModel) renderTopIPs(width, height int) string {
	ips := m.snapshot.Breakdowns.TopIPs
	lines := make([]string, 0, len(ips))
	for i, ip := range ips {
		lines = append(lines, fmt.Sprintf("%3d. %-*s %6d", i+1, max(width-18, 8), truncate(ip.Value, max(width-18, 8)), ip.Count))
	}
	return m.panel(SectionTopIPs, SectionTopIPs.String(), m.window(SectionTopIPs, lines, height-3, "No source addresses"), width, height)
}

func (m *DashboardModel) renderGeo(width, height int) string {
	clusters := m.snapshot.GeoClusters
	lines := make([]string, 0, len(clusters))
	nameW := max(width-32, 6)
	for _, c := range clusters {
		lines = append(lines, fmt.Sprintf("%-*s %8.3f %9.3f %6d", nameW, truncate(c.Country, nameW), c.Lat, c.Lon, c.Count))
	}
	header := fmt.Sprintf("%s (%d locations)", SectionGeo, len(clusters))
	return m.panel(SectionGeo, header, m.window(SectionGeo, lines, height-3, "No located events"), width, height)
}

func (m *DashboardModel) renderEvents(width, height int) string {
	events := m.events()
	header := SectionEvents.String()
	switch {
	case m.searchActive:
		header = m.searchInput.View()
	case m.searchTerm != "":
		header = fmt.Sprintf("Search %q: %d matches (esc to clear)", m.searchTerm, len(events))
		if m.searchPending && events == nil {
			header = fmt.Sprintf("Searching %q...", m.searchTerm)
		}
	}

	pathW := max(width-79, 10)
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, m.formatEvent(e, pathW))
	}
	empty := "No events"
	if m.searchTerm != "" {
		empty = "No matching events"
	}
	return m.panel(SectionEvents, header, m.window(SectionEvents, lines, height-3, empty), width, height)
}

func (m *DashboardModel) formatEvent(e model.EventRecord, pathW int) string {
	ts := e.Time
	if ts == "" {
		ts = "-"
	}
	cat := e.Category()
	catStyle := lipgloss.NewStyle().Foreground(severityColor(m.catalog.Severity(cat)))
	return fmt.Sprintf("%-19s %-15s %s %-*s %s",
		truncate(ts, 19),
		truncate(e.IP, 15),
		riskCell(e.RiskScore),
		pathW, truncate(e.Path, pathW),
		catStyle.Render(truncate(strings.Join(e.Tags, ","), 24)),
	)
}

// riskCell renders the producer risk score with its severity tier.
// Records without a score show a dash.
func riskCell(score float64) string {
	if score == 0 {
		return fmt.Sprintf("%-12s", "-")
	}
	label := severity.FromRiskScore(score)
	text := fmt.Sprintf("%4.1f %-8s", score, label)
	return lipgloss.NewStyle().Foreground(severityColor(label)).Render(text)
}

// window returns the visible slice of lines for a scrollable section.
func (m *DashboardModel) window(s Section, lines []string, height int, empty string) string {
	if len(lines) == 0 {
		return helpStyle.Render(empty)
	}
	height = max(height, 1)
	off := min(m.scroll[s], max(len(lines)-height, 0))
	end := min(off+height, len(lines))
	return strings.Join(lines[off:end], "\n")
}

func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 1 {
		return fmt.Sprintf("%dms", int(secs*1000))
	}
	if secs < 60 {
		return fmt.Sprintf("%gs", secs)
	}
	return fmt.Sprintf("%gm", secs/60)
}
