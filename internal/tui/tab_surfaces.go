package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/dashell/internal/ipc"
	"github.com/1broseidon/dashell/internal/platform"
)

// surfaceItem implements list.Item for the display-area list.
type surfaceItem struct {
	data ipc.SurfaceData
}

func (i surfaceItem) Title() string {
	prefix := "○ "
	if i.data.Visible {
		prefix = "● "
	}
	return prefix + i.data.Name
}

func (i surfaceItem) Description() string {
	group := i.data.Group
	if group == "" {
		group = "-"
	}
	return fmt.Sprintf("display %d  feature %d  group %s", i.data.DisplayID, i.data.FeatureID, group)
}

func (i surfaceItem) FilterValue() string { return i.data.Name }

// clearStatusMsg clears the tab status line after a delay.
type clearStatusMsg struct{}

// refreshMsg asks the root model to poll the daemon now.
type refreshMsg struct{}

func clearStatusLater() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func refreshNow() tea.Msg { return refreshMsg{} }

type boundsFields struct {
	x, y, width, height string
}

// SurfacesTab lists display areas and drives show, hide, focus and bounds
// changes.
type SurfacesTab struct {
	list   list.Model
	daemon Daemon

	statusText string

	editing  bool
	editName string
	form     *huh.Form
	fields   *boundsFields

	width  int
	height int
}

// NewSurfacesTab creates the surfaces sub-model.
func NewSurfacesTab(daemon Daemon) SurfacesTab {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Display areas"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return SurfacesTab{list: l, daemon: daemon, fields: &boundsFields{}}
}

// SetSurfaces replaces the listed areas, keeping the selection.
func (s *SurfacesTab) SetSurfaces(surfaces []ipc.SurfaceData) tea.Cmd {
	items := make([]list.Item, 0, len(surfaces))
	for _, sd := range surfaces {
		items = append(items, surfaceItem{data: sd})
	}
	return s.list.SetItems(items)
}

func (s SurfacesTab) selected() (ipc.SurfaceData, bool) {
	item, ok := s.list.SelectedItem().(surfaceItem)
	if !ok {
		return ipc.SurfaceData{}, false
	}
	return item.data, true
}

// Update implements tea.Model.
func (s SurfacesTab) Update(msg tea.Msg) (SurfacesTab, tea.Cmd) {
	if s.editing {
		return s.updateEditing(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.list.SetSize(s.listWidth(), max(s.height-2, 1))
		return s, nil

	case clearStatusMsg:
		s.statusText = ""
		return s, nil

	case tea.KeyMsg:
		sd, ok := s.selected()
		switch msg.String() {
		case "enter", " ":
			if ok {
				return s.toggle(sd)
			}
		case "i":
			if ok {
				visible := !sd.Visible
				return s.apply(sd.Name, "instant "+visibilityWord(visible), ipc.SetSurfacesPayload{
					Surfaces: []ipc.SurfaceRequest{{Name: sd.Name, Visible: &visible}},
					Instant:  true,
				})
			}
		case "f":
			if ok {
				return s.apply(sd.Name, "focused", ipc.SetSurfacesPayload{
					Surfaces: []ipc.SurfaceRequest{{Name: sd.Name}},
					Focus:    sd.Name,
				})
			}
		case "b":
			if ok {
				s.startEditing(sd)
				return s, s.form.Init()
			}
		}
	}

	var cmd tea.Cmd
	s.list, cmd = s.list.Update(msg)
	return s, cmd
}

func visibilityWord(visible bool) string {
	if visible {
		return "shown"
	}
	return "hidden"
}

func (s SurfacesTab) toggle(sd ipc.SurfaceData) (SurfacesTab, tea.Cmd) {
	if s.daemon == nil {
		s.statusText = "daemon not connected"
		return s, clearStatusLater()
	}
	var err error
	if sd.Visible {
		err = s.daemon.Hide(sd.Name)
	} else {
		err = s.daemon.Show(sd.Name)
	}
	if err != nil {
		s.statusText = fmt.Sprintf("error: %v", err)
	} else {
		s.statusText = fmt.Sprintf("%s: %s", visibilityWord(!sd.Visible), sd.Name)
	}
	return s, tea.Batch(refreshNow, clearStatusLater())
}

func (s SurfacesTab) apply(name, what string, p ipc.SetSurfacesPayload) (SurfacesTab, tea.Cmd) {
	if s.daemon == nil {
		s.statusText = "daemon not connected"
		return s, clearStatusLater()
	}
	if err := s.daemon.SetSurfaces(p); err != nil {
		s.statusText = fmt.Sprintf("error: %v", err)
	} else {
		s.statusText = fmt.Sprintf("%s: %s", what, name)
	}
	return s, tea.Batch(refreshNow, clearStatusLater())
}

func (s *SurfacesTab) startEditing(sd ipc.SurfaceData) {
	s.editName = sd.Name
	f := s.fields
	f.x = strconv.Itoa(sd.Bounds.X)
	f.y = strconv.Itoa(sd.Bounds.Y)
	f.width = strconv.Itoa(sd.Bounds.Width)
	f.height = strconv.Itoa(sd.Bounds.Height)

	w := max(s.width-4, 40)
	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Key("x").Title("X").Value(&f.x).Validate(validateInt(false)),
			huh.NewInput().Key("y").Title("Y").Value(&f.y).Validate(validateInt(false)),
			huh.NewInput().Key("width").Title("Width").Value(&f.width).Validate(validateInt(true)),
			huh.NewInput().Key("height").Title("Height").Value(&f.height).Validate(validateInt(true)),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)
	s.editing = true
}

func validateInt(positive bool) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		if positive && n <= 0 {
			return fmt.Errorf("must be positive")
		}
		return nil
	}
}

func (s SurfacesTab) updateEditing(msg tea.Msg) (SurfacesTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			s.editing = false
			s.form = nil
			return s, nil
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}
	if s.form.State != huh.StateCompleted {
		return s, cmd
	}

	s.editing = false
	s.form = nil
	bounds, err := s.formBounds()
	if err != nil {
		s.statusText = fmt.Sprintf("error: %v", err)
		return s, clearStatusLater()
	}
	if s.daemon == nil {
		s.statusText = "daemon not connected"
		return s, clearStatusLater()
	}
	if err := s.daemon.SetBounds(s.editName, bounds); err != nil {
		s.statusText = fmt.Sprintf("error: %v", err)
	} else {
		s.statusText = fmt.Sprintf("bounds set: %s %s", s.editName, formatRect(bounds))
	}
	return s, tea.Batch(refreshNow, clearStatusLater())
}

func (s SurfacesTab) formBounds() (platform.Rect, error) {
	var vals [4]int
	for i, raw := range []string{s.fields.x, s.fields.y, s.fields.width, s.fields.height} {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return platform.Rect{}, fmt.Errorf("invalid number %q", raw)
		}
		vals[i] = n
	}
	r := platform.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if r.Empty() {
		return platform.Rect{}, fmt.Errorf("bounds must have a positive size")
	}
	return r, nil
}

func (s SurfacesTab) listWidth() int {
	// Sidebar takes ~40% of width, min 24, max 44
	return min(max(s.width*40/100, 24), 44)
}

// View implements tea.Model.
func (s SurfacesTab) View() string {
	if s.editing && s.form != nil {
		header := lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Render("Bounds of "+s.editName) +
			dimStyle.Render("  (esc to cancel)")
		return lipgloss.NewStyle().
			Width(s.width).
			Height(s.height).
			Padding(1, 2).
			Render(header + "\n\n" + s.form.View())
	}

	sidebar := lipgloss.NewStyle().Width(s.listWidth()).Render(s.list.View())
	detailW := max(s.width-s.listWidth()-2, 10)
	detail := lipgloss.NewStyle().
		Width(detailW).
		PaddingLeft(2).
		Render(s.renderDetail())

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, detail)
	return lipgloss.JoinVertical(lipgloss.Left, body, dimStyle.Render(" "+s.statusText))
}

func (s SurfacesTab) renderDetail() string {
	sd, ok := s.selected()
	if !ok {
		return dimStyle.Render("No display areas")
	}

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")).
		Width(18).
		Align(lipgloss.Right).
		PaddingRight(2)
	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Bold(true)
	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}

	surface := "created"
	if !sd.SurfaceCreated {
		surface = "not created"
	}
	lines := []string{
		row("Name", sd.Name),
		row("ID", sd.ID),
		row("Visible", strconv.FormatBool(sd.Visible)),
		row("Bounds", formatRect(sd.Bounds)),
		row("Display", strconv.Itoa(sd.DisplayID)),
		row("Feature", strconv.Itoa(sd.FeatureID)),
		row("Launch feature", strconv.Itoa(sd.LaunchFeatureID)),
		row("Group", displayOrDefault(sd.Group, "(none)")),
		row("Surface", surface),
	}
	return "\n" + strings.Join(lines, "\n")
}

func displayOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
