package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/dashell/internal/config"
)

// SettingsTab shows and edits daemon-wide settings.
type SettingsTab struct {
	cfg     *config.Config
	loadErr error

	width  int
	height int

	editing bool
	form    *huh.Form

	fields *settingsFields
}

// settingsFields holds form-bound values (strings for huh, converted on
// submit).
type settingsFields struct {
	logLevel    string
	backend     string
	durationMS  string
	easing      string
	reconcile   string
	placeholder string
}

// NewSettingsTab creates a SettingsTab from the loaded config.
func NewSettingsTab(cfg *config.Config, loadErr error) SettingsTab {
	return SettingsTab{cfg: cfg, loadErr: loadErr, fields: &settingsFields{}}
}

// Update implements tea.Model.
func (g SettingsTab) Update(msg tea.Msg) (SettingsTab, tea.Cmd) {
	if g.editing {
		return g.updateEditing(msg)
	}
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "e" && g.cfg != nil {
			g.startEditing()
			return g, g.form.Init()
		}
	case tea.WindowSizeMsg:
		g.width = msg.Width
		g.height = msg.Height
	}
	return g, nil
}

func (g SettingsTab) updateEditing(msg tea.Msg) (SettingsTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			g.editing = false
			g.form = nil
			return g, nil
		}
	case tea.WindowSizeMsg:
		g.width = msg.Width
		g.height = msg.Height
	}

	form, cmd := g.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		g.form = f
	}

	if g.form.State == huh.StateCompleted {
		g.applyForm()
		g.editing = false
		g.form = nil
		return g, nil
	}
	return g, cmd
}

func options(values ...string) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(values))
	for _, v := range values {
		opts = append(opts, huh.NewOption(v, v))
	}
	return opts
}

func (g *SettingsTab) startEditing() {
	cfg, f := g.cfg, g.fields
	f.logLevel = cfg.LogLevel
	f.backend = cfg.Backend
	f.durationMS = strconv.Itoa(cfg.Animation.DurationMS)
	f.easing = cfg.Animation.Easing
	f.reconcile = strconv.Itoa(cfg.ReconcileIntervalSeconds)
	f.placeholder = cfg.PlaceholderActivity

	g.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("log_level").
				Title("Log Level").
				Options(options("debug", "info", "warn", "error")...).
				Value(&f.logLevel),
			huh.NewSelect[string]().
				Key("backend").
				Title("Backend").
				Description("Compositor backend (takes effect on restart)").
				Options(options(config.BackendAuto, config.BackendX11, config.BackendMemory)...).
				Value(&f.backend),
			huh.NewInput().
				Key("placeholder_activity").
				Title("Placeholder Activity").
				Description("Activity that marks a display area hidden").
				Value(&f.placeholder),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("duration_ms").
				Title("Animation Duration (ms)").
				Value(&f.durationMS).
				Validate(validateNonNegative),
			huh.NewSelect[string]().
				Key("easing").
				Title("Easing").
				Options(options(config.Easings...)...).
				Value(&f.easing),
			huh.NewInput().
				Key("reconcile_interval_seconds").
				Title("Reconcile Interval (s)").
				Description("Periodic leash resync, 0 disables").
				Value(&f.reconcile).
				Validate(validateNonNegative),
		),
	).WithWidth(max(g.width-4, 40)).WithShowHelp(true).WithShowErrors(true)

	g.editing = true
}

func validateNonNegative(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return fmt.Errorf("must be a number >= 0")
	}
	return nil
}

func (g *SettingsTab) applyForm() {
	if g.cfg == nil {
		return
	}
	f := g.fields
	if f.logLevel != "" {
		g.cfg.LogLevel = f.logLevel
	}
	if f.backend != "" {
		g.cfg.Backend = f.backend
	}
	if p := strings.TrimSpace(f.placeholder); strings.Contains(p, "/") {
		g.cfg.PlaceholderActivity = p
	}
	if v, err := strconv.Atoi(strings.TrimSpace(f.durationMS)); err == nil && v >= 0 {
		g.cfg.Animation.DurationMS = v
	}
	if f.easing != "" {
		g.cfg.Animation.Easing = f.easing
	}
	if v, err := strconv.Atoi(strings.TrimSpace(f.reconcile)); err == nil && v >= 0 {
		g.cfg.ReconcileIntervalSeconds = v
	}
}

// View implements tea.Model.
func (g SettingsTab) View() string {
	if g.editing && g.form != nil {
		header := lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Render("Editing Settings") +
			dimStyle.Render("  (esc to cancel)")
		return lipgloss.NewStyle().
			Width(g.width).
			Height(g.height).
			Padding(1, 2).
			Render(header + "\n\n" + g.form.View())
	}
	return g.viewDisplay()
}

func (g SettingsTab) viewDisplay() string {
	cfg := g.cfg
	if cfg == nil {
		msg := "No config loaded"
		if g.loadErr != nil {
			msg += "\n\n" + g.loadErr.Error()
		}
		return lipgloss.NewStyle().
			Width(g.width).
			Height(g.height).
			Foreground(lipgloss.Color("241")).
			Align(lipgloss.Center, lipgloss.Center).
			Render(msg)
	}

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")).
		Width(24).
		Align(lipgloss.Right).
		PaddingRight(2)
	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Bold(true)
	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}

	reconcile := "disabled"
	if cfg.ReconcileIntervalSeconds > 0 {
		reconcile = fmt.Sprintf("%ds", cfg.ReconcileIntervalSeconds)
	}
	lines := []string{
		"",
		row("Log Level", cfg.LogLevel),
		row("Backend", cfg.Backend),
		row("Display", displayOrDefault(cfg.Display, "(from environment)")),
		row("Placeholder Activity", cfg.PlaceholderActivity),
		row("Reconcile Interval", reconcile),
		"",
		row("Animation", fmt.Sprintf("%dms %s", cfg.Animation.DurationMS, cfg.Animation.Easing)),
		"",
	}
	for _, a := range cfg.DisplayAreas {
		hotkey := ""
		if a.Hotkey != "" {
			hotkey = "  " + a.Hotkey
		}
		lines = append(lines, row("Area "+a.Name, fmt.Sprintf("d%d f%d %s%s", a.DisplayID, a.FeatureID, formatRect(toPlatformRect(a.Bounds)), hotkey)))
	}
	lines = append(lines, "", dimStyle.Render("  Press 'e' to edit settings"))

	return lipgloss.NewStyle().
		Width(g.width).
		Height(g.height).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
}
