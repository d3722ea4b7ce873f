package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/honeywatch/internal/model"
	"github.com/tinytelemetry/honeywatch/internal/severity"
)

type categoryRow struct {
	name     string
	count    int64
	severity string
}

// categoryRows orders categories by count, most frequent first; ties go to
// the more severe category.
func categoryRows(stats model.Stats, catalog *severity.Catalog) []categoryRow {
	rows := make([]categoryRow, 0, len(stats.ByCategory))
	for name, n := range stats.ByCategory {
		rows = append(rows, categoryRow{name: name, count: n, severity: catalog.Severity(name)})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		if ri, rj := severity.Rank(rows[i].severity), severity.Rank(rows[j].severity); ri != rj {
			return ri > rj
		}
		return rows[i].name < rows[j].name
	})
	return rows
}

// renderCategoryBars draws one proportional bar per category.
func renderCategoryBars(rows []categoryRow, width, height int) string {
	if len(rows) == 0 {
		return helpStyle.Render("No events yet")
	}

	nameWidth := 0
	for _, r := range rows {
		nameWidth = max(nameWidth, lipgloss.Width(r.name))
	}
	nameWidth = min(nameWidth, 18)

	peak := rows[0].count
	countWidth := len(fmt.Sprint(peak))
	barWidth := max(1, width-nameWidth-countWidth-14)

	lines := make([]string, 0, min(len(rows), height))
	for _, r := range rows {
		if len(lines) == height {
			break
		}
		n := int(float64(barWidth) * float64(r.count) / float64(peak))
		if n == 0 && r.count > 0 {
			n = 1
		}
		color := severityColor(r.severity)
		bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", n))
		label := lipgloss.NewStyle().Foreground(color).Width(9).Render(r.severity)
		lines = append(lines, fmt.Sprintf("%-*s %s %*d %s", nameWidth, truncate(r.name, nameWidth), label, countWidth, r.count, bar))
	}
	return strings.Join(lines, "\n")
}

// renderTimeline draws the hourly event counts as a bar chart, newest
// buckets on the right.
func renderTimeline(buckets []model.TimeBucket, width, height int) string {
	if len(buckets) == 0 {
		return helpStyle.Render("No timestamped events")
	}

	chartWidth := max(width, 10)
	chartHeight := max(height-1, 2)
	maxBars := max(chartWidth/2, 1)

	start := 0
	if len(buckets) > maxBars {
		start = len(buckets) - maxBars
	}
	visible := buckets[start:]

	bc := barchart.New(chartWidth, chartHeight,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	barStyle := lipgloss.NewStyle().Foreground(ColorBlue).Background(ColorBlue)
	for _, b := range visible {
		bc.Push(barchart.BarData{
			Values: []barchart.BarValue{{Name: b.Key, Value: float64(b.Count), Style: barStyle}},
		})
	}
	bc.Draw()

	first, last := visible[0].Key, visible[len(visible)-1].Key
	axis := first
	if gap := chartWidth - len(first) - len(last); gap > 0 && first != last {
		axis = first + strings.Repeat(" ", gap) + last
	}
	return lipgloss.JoinVertical(lipgloss.Left, bc.View(), helpStyle.Render(axis))
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
