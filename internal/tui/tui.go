package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/coxlong/zap/internal/config"
	"github.com/coxlong/zap/internal/ipc"
	"github.com/coxlong/zap/internal/pool"
)

// Daemon is the IPC surface the live view polls and drives.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	OpenWindow(opts pool.OpenWindowOptions, wait bool) (*ipc.OpenWindowData, error)
	ReleaseWindow(windowID uint32) error
}

var _ Daemon = (*ipc.Client)(nil)

// Run starts the live pool view. cfg supplies the views offered for opening
// and may be nil.
func Run(daemon Daemon, cfg *config.Config) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("top requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	p := tea.NewProgram(newModel(daemon, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
