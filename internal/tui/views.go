package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"github.com/coxlong/zap/internal/config"
)

// viewItem is a list entry for a view that can be opened from the TUI.
type viewItem struct {
	keys string
	hk   config.Hotkey
}

func (i viewItem) Title() string {
	if i.hk.Title != "" {
		return i.hk.View + " · " + i.hk.Title
	}
	return i.hk.View
}

func (i viewItem) Description() string {
	if i.keys == "" {
		return "(no hotkey)"
	}
	return i.keys
}

func (i viewItem) FilterValue() string { return i.hk.View }

// viewItems lists the bound views plus the pool's default view.
func viewItems(cfg *config.Config) []list.Item {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	var items []list.Item
	seen := make(map[string]bool)
	for _, keys := range cfg.HotkeyNames() {
		hk := cfg.Hotkeys[keys]
		items = append(items, viewItem{keys: keys, hk: hk})
		seen[hk.View] = true
	}
	if v := cfg.Pool.DefaultView; v != "" && !seen[v] {
		items = append(items, viewItem{hk: config.Hotkey{View: v}})
	}
	return items
}

func newViewList(cfg *config.Config) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("15")).
		BorderForeground(lipgloss.Color("62"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("250")).
		BorderForeground(lipgloss.Color("62"))

	l := list.New(viewItems(cfg), delegate, 0, 0)
	l.Title = "Views"
	l.Styles.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)
	return l
}
