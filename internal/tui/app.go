package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/coxlong/zap/internal/config"
	"github.com/coxlong/zap/internal/ipc"
	"github.com/coxlong/zap/internal/pool"
)

const refreshInterval = time.Second

type (
	tickMsg   time.Time
	statusMsg struct {
		data *ipc.StatusData
		err  error
	}
	openedMsg struct {
		view string
		data *ipc.OpenWindowData
		err  error
	}
	releasedMsg struct {
		id  uint32
		err error
	}
)

// model is the root bubbletea model for the live pool view.
type model struct {
	daemon Daemon
	views  list.Model

	status    *ipc.StatusData
	statusErr error
	// opened holds windows opened from this view, most recent last.
	opened []uint32
	notice string

	width  int
	height int
}

func newModel(daemon Daemon, cfg *config.Config) model {
	return model{
		daemon: daemon,
		views:  newViewList(cfg),
	}
}

func (m model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		data, err := m.daemon.GetStatus()
		return statusMsg{data: data, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) openView(hk config.Hotkey) tea.Cmd {
	return func() tea.Msg {
		opts := pool.OpenWindowOptions{Config: pool.WindowConfig{
			View:   hk.View,
			Title:  hk.Title,
			Width:  hk.Width,
			Height: hk.Height,
		}}
		data, err := m.daemon.OpenWindow(opts, false)
		return openedMsg{view: hk.View, data: data, err: err}
	}
}

func (m model) release(id uint32) tea.Cmd {
	return func() tea.Msg {
		return releasedMsg{id: id, err: m.daemon.ReleaseWindow(id)}
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), tick())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.views.SetSize(listWidth(m.width), max(m.height-2, 1))
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), tick())

	case statusMsg:
		m.status, m.statusErr = msg.data, msg.err
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("open %s failed: %v", msg.view, msg.err)
			return m, nil
		}
		m.opened = append(m.opened, msg.data.WindowID)
		m.notice = fmt.Sprintf("opened %s in window %d", msg.view, msg.data.WindowID)
		return m, m.fetchStatus()

	case releasedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("release %d failed: %v", msg.id, msg.err)
			return m, nil
		}
		m.notice = fmt.Sprintf("released window %d", msg.id)
		return m, m.fetchStatus()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.fetchStatus()
		case "enter", "o":
			if item, ok := m.views.SelectedItem().(viewItem); ok {
				return m, m.openView(item.hk)
			}
			return m, nil
		case "x":
			if len(m.opened) == 0 {
				m.notice = "nothing opened from here"
				return m, nil
			}
			id := m.opened[len(m.opened)-1]
			m.opened = m.opened[:len(m.opened)-1]
			return m, m.release(id)
		}
	}

	var cmd tea.Cmd
	m.views, cmd = m.views.Update(msg)
	return m, cmd
}

func listWidth(width int) int {
	return max(width*2/5, 20)
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.status, m.statusErr, m.width)
	helpBar := renderHelpBar(m.notice, m.width)
	contentHeight := max(m.height-lipgloss.Height(statusBar)-lipgloss.Height(helpBar), 1)

	left := lipgloss.NewStyle().
		Width(listWidth(m.width)).
		Height(contentHeight).
		Render(m.views.View())
	right := lipgloss.NewStyle().
		Width(max(m.width-listWidth(m.width), 10)).
		Height(contentHeight).
		Padding(0, 2).
		Render(renderPool(m.status))

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		helpBar,
	)
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).MarginBottom(1)
)

func renderStatusBar(status *ipc.StatusData, err error, width int) string {
	var text string
	switch {
	case err != nil || status == nil:
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		text = dot + " daemon not running"
	case !status.PoolInitialized:
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render("●")
		text = dot + " daemon connected, pool not initialized"
	default:
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		up := (time.Duration(status.UptimeSeconds) * time.Second).String()
		text = strings.Join([]string{dot + " daemon connected", "up " + up,
			fmt.Sprintf("min_idle %d  max_total %d  ttl %ds", status.MinIdle, status.MaxTotal, status.TTLSeconds)}, "  ")
	}
	return lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1).
		Render(text)
}

func renderPool(status *ipc.StatusData) string {
	if status == nil || status.Pool == nil {
		return headStyle.Render("Pool") + "\n" + labelStyle.Render("no data")
	}
	st := status.Pool
	rows := []struct {
		label string
		value string
	}{
		{"windows", fmt.Sprint(st.PoolSize)},
		{"active", fmt.Sprint(st.ActiveCount)},
		{"idle", fmt.Sprint(st.IdleCount)},
		{"created", fmt.Sprint(st.TotalCreated)},
		{"reused", fmt.Sprint(st.TotalReused)},
		{"destroyed", fmt.Sprint(st.TotalDestroyed)},
		{"reuse ratio", reuseRatio(*st)},
	}
	lines := []string{headStyle.Render("Pool")}
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r.label)+valueStyle.Render(r.value))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// reuseRatio is the share of acquisitions served from the idle queue.
func reuseRatio(st pool.State) string {
	total := st.TotalCreated + st.TotalReused
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", float64(st.TotalReused)*100/float64(total))
}

func renderHelpBar(notice string, width int) string {
	help := "↑/↓: select  enter: open view  x: release last opened  r: refresh  q: quit"
	if notice != "" {
		help = notice + "  │  " + help
	}
	return lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1).
		Render(help)
}
