package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/dashell/internal/config"
	"github.com/1broseidon/dashell/internal/ipc"
)

// pollInterval is how often the daemon status is refreshed.
const pollInterval = 500 * time.Millisecond

type pollMsg struct{}

func pollLater() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

// model is the root bubbletea model for the TUI.
type model struct {
	configPath string
	result     *config.LoadResult
	loadErr    error
	daemon     Daemon

	activeTab Tab

	surfacesTab SurfacesTab
	tasksTab    TasksTab
	settingsTab SettingsTab

	originalConfig *config.Config
	saveOverlay    SaveOverlay

	// nil while the daemon is unreachable
	status *ipc.StatusData

	width  int
	height int
}

func newModel(configPath string, daemon Daemon) model {
	m := model{
		configPath: configPath,
		daemon:     daemon,
		activeTab:  TabSurfaces,
	}
	m.loadConfig()

	var cfg *config.Config
	if m.result != nil {
		cfg = m.result.Config
		m.originalConfig = cloneConfig(cfg)
	}
	m.surfacesTab = NewSurfacesTab(daemon)
	m.tasksTab = NewTasksTab(daemon)
	m.settingsTab = NewSettingsTab(cfg, m.loadErr)
	m.refreshDaemonStatus()
	return m
}

func (m *model) loadConfig() {
	var res *config.LoadResult
	var err error

	if m.configPath == "" {
		res, err = config.LoadWithSources()
	} else {
		res, err = config.LoadFromPath(m.configPath)
	}
	if err != nil {
		m.loadErr = err
		return
	}
	m.result = res
}

func (m *model) refreshDaemonStatus() tea.Cmd {
	if m.daemon == nil {
		m.status = nil
		return nil
	}
	st, err := m.daemon.GetStatus()
	if err != nil {
		m.status = nil
		return nil
	}
	m.status = st
	return tea.Batch(m.surfacesTab.SetSurfaces(st.Surfaces), m.tasksTab.SetStatus(st))
}

func (m model) capturing() bool {
	switch m.activeTab {
	case TabSurfaces:
		return m.surfacesTab.editing
	case TabTasks:
		return m.tasksTab.launching
	case TabSettings:
		return m.settingsTab.editing
	}
	return false
}

func (m *model) resize(width, height int) {
	m.width = width
	m.height = height
	sub := tea.WindowSizeMsg{Width: m.width, Height: m.contentHeight()}
	m.surfacesTab, _ = m.surfacesTab.Update(sub)
	m.tasksTab, _ = m.tasksTab.Update(sub)
	m.settingsTab, _ = m.settingsTab.Update(sub)
}

// contentHeight returns the height available for tab content.
func (m model) contentHeight() int {
	// status bar (1) + tab bar (2 with margin) + help bar (1)
	return max(m.height-4, 1)
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return pollLater()
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pollMsg:
		cmd := m.refreshDaemonStatus()
		return m, tea.Batch(cmd, pollLater())
	case refreshMsg:
		cmd := m.refreshDaemonStatus()
		return m, cmd
	case clearStatusMsg:
		m.surfacesTab, _ = m.surfacesTab.Update(msg)
		m.tasksTab, _ = m.tasksTab.Update(msg)
		return m, nil
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	}

	// Save overlay captures all input when active
	if m.saveOverlay.Active() {
		if km, ok := msg.(tea.KeyMsg); ok {
			if km.String() == "ctrl+c" {
				return m, tea.Quit
			}
			prevPhase := m.saveOverlay.phase
			m.saveOverlay = m.saveOverlay.Update(km, m.configPath, m.result.Config, m.daemon, m.status != nil)
			if prevPhase == savePreview && m.saveOverlay.SaveSucceeded() {
				m.originalConfig = cloneConfig(m.result.Config)
			}
		}
		return m, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "ctrl+s" {
		if m.result != nil && m.result.Config != nil {
			m.saveOverlay.Show(m.originalConfig, m.result.Config)
		}
		return m, nil
	}

	// A form consumes keys; only ctrl+c escapes to quit.
	if !m.capturing() {
		if km, ok := msg.(tea.KeyMsg); ok {
			switch km.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "tab":
				m.activeTab = (m.activeTab + 1) % tabCount
				return m, nil
			case "shift+tab":
				m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
				return m, nil
			case "1":
				m.activeTab = TabSurfaces
				return m, nil
			case "2":
				m.activeTab = TabTasks
				return m, nil
			case "3":
				m.activeTab = TabSettings
				return m, nil
			}
		}
	} else if km, ok := msg.(tea.KeyMsg); ok && km.String() == "ctrl+c" {
		return m, tea.Quit
	}

	var cmd tea.Cmd
	switch m.activeTab {
	case TabSurfaces:
		m.surfacesTab, cmd = m.surfacesTab.Update(msg)
	case TabTasks:
		m.tasksTab, cmd = m.tasksTab.Update(msg)
	case TabSettings:
		m.settingsTab, cmd = m.settingsTab.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.status, m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	helpBar := renderHelpBar(m.activeTab, m.width)

	usedHeight := lipgloss.Height(statusBar) + lipgloss.Height(tabBar) + lipgloss.Height(helpBar)
	contentHeight := max(m.height-usedHeight, 1)

	var content string
	if m.saveOverlay.Active() {
		content = m.saveOverlay.View(m.width, contentHeight)
	} else {
		switch m.activeTab {
		case TabSurfaces:
			content = m.surfacesTab.View()
		case TabTasks:
			content = m.tasksTab.View()
		case TabSettings:
			content = m.settingsTab.View()
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		tabBar,
		content,
		helpBar,
	)
}
