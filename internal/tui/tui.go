// Package tui implements the interactive dashell console: a live view of
// display areas and tasks with controls, and a settings editor.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/dashell/internal/ipc"
	"github.com/1broseidon/dashell/internal/platform"
)

// Daemon is the subset of the IPC client the console uses.
type Daemon interface {
	Ping() error
	GetStatus() (*ipc.StatusData, error)
	Show(name string) error
	Hide(name string) error
	SetSurfaces(p ipc.SetSurfacesPayload) error
	SetBounds(name string, bounds platform.Rect) error
	LaunchTask(p ipc.LaunchTaskPayload) (*ipc.TaskData, error)
	CloseTask(taskID int) error
	Reload() error
}

var _ Daemon = (*ipc.Client)(nil)

// Run starts the console and blocks until the user quits.
func Run(configPath string, daemon Daemon) error {
	if err := requireTTY(); err != nil {
		return err
	}
	_, err := tea.NewProgram(newModel(configPath, daemon), tea.WithAltScreen()).Run()
	return err
}

func requireTTY() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	return nil
}
