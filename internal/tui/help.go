package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpPage lists every key binding.
type HelpPage struct {
	keys KeyMap
	help help.Model
}

// NewHelpPage creates the key reference page.
func NewHelpPage(keys KeyMap) *HelpPage {
	h := help.New()
	h.ShowAll = true
	return &HelpPage{keys: keys, help: h}
}

func (p *HelpPage) ID() string    { return PageHelp }
func (p *HelpPage) Init() tea.Cmd { return nil }

func (p *HelpPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, nil
	}
	switch {
	case key.Matches(km, p.keys.ForceQuit):
		return tea.Quit, nil
	case key.Matches(km, p.keys.Escape), key.Matches(km, p.keys.Help), key.Matches(km, p.keys.Quit):
		return nil, &PageNav{PageID: PageDashboard}
	}
	return nil, nil
}

func (p *HelpPage) View(width, height int) string {
	p.help.Width = width
	content := lipgloss.JoinVertical(lipgloss.Left,
		chartTitleStyle.Render("honeywatch keys"),
		"",
		p.help.FullHelpView(p.keys.FullHelp()),
		"",
		helpStyle.Render("esc to return"),
	)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, activeSectionStyle.Render(content))
}
