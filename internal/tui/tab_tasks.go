package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/dashell/internal/ipc"
)

type taskItem struct {
	data ipc.TaskData
	area string
}

func (i taskItem) Title() string {
	title := fmt.Sprintf("#%d %s", i.data.ID, i.data.Activity)
	if i.data.Placeholder {
		title += " (placeholder)"
	}
	return title
}

func (i taskItem) Description() string {
	return fmt.Sprintf("display %d  area %s", i.data.DisplayID, displayOrDefault(i.area, fmt.Sprint(i.data.FeatureID)))
}

func (i taskItem) FilterValue() string { return i.data.Activity }

type launchFields struct {
	area     string
	activity string
	taskView bool
}

// TasksTab lists running tasks and launches or closes them.
type TasksTab struct {
	list   list.Model
	daemon Daemon
	areas  []string

	statusText string

	launching bool
	form      *huh.Form
	// Form-bound values live on the heap so copies of the tab share them.
	fields *launchFields

	width  int
	height int
}

// NewTasksTab creates the tasks sub-model.
func NewTasksTab(daemon Daemon) TasksTab {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Tasks"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return TasksTab{list: l, daemon: daemon, fields: &launchFields{}}
}

// SetStatus refreshes the task list and the launchable areas.
func (t *TasksTab) SetStatus(st *ipc.StatusData) tea.Cmd {
	byLaunch := make(map[[2]int]string, len(st.Surfaces))
	t.areas = make([]string, 0, len(st.Surfaces))
	for _, sd := range st.Surfaces {
		byLaunch[[2]int{sd.DisplayID, sd.LaunchFeatureID}] = sd.Name
		t.areas = append(t.areas, sd.Name)
	}
	items := make([]list.Item, 0, len(st.Tasks))
	for _, td := range st.Tasks {
		items = append(items, taskItem{data: td, area: byLaunch[[2]int{td.DisplayID, td.FeatureID}]})
	}
	return t.list.SetItems(items)
}

// Update implements tea.Model.
func (t TasksTab) Update(msg tea.Msg) (TasksTab, tea.Cmd) {
	if t.launching {
		return t.updateLaunching(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
		t.list.SetSize(t.width, max(t.height-2, 1))
		return t, nil

	case clearStatusMsg:
		t.statusText = ""
		return t, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "l":
			if len(t.areas) == 0 {
				t.statusText = "no display areas"
				return t, clearStatusLater()
			}
			t.startLaunch()
			return t, t.form.Init()
		case "x":
			if item, ok := t.list.SelectedItem().(taskItem); ok {
				return t.closeTask(item.data)
			}
		}
	}

	var cmd tea.Cmd
	t.list, cmd = t.list.Update(msg)
	return t, cmd
}

func (t TasksTab) closeTask(td ipc.TaskData) (TasksTab, tea.Cmd) {
	if t.daemon == nil {
		t.statusText = "daemon not connected"
		return t, clearStatusLater()
	}
	if err := t.daemon.CloseTask(td.ID); err != nil {
		t.statusText = fmt.Sprintf("error: %v", err)
	} else {
		t.statusText = fmt.Sprintf("closed task #%d", td.ID)
	}
	return t, tea.Batch(refreshNow, clearStatusLater())
}

func (t *TasksTab) startLaunch() {
	opts := make([]huh.Option[string], 0, len(t.areas))
	for _, name := range t.areas {
		opts = append(opts, huh.NewOption(name, name))
	}
	f := t.fields
	if f.area == "" {
		f.area = t.areas[0]
	}
	f.taskView = false

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("area").
				Title("Display Area").
				Description("Area the task is launched into").
				Options(opts...).
				Value(&f.area),
			huh.NewInput().
				Key("activity").
				Title("Activity").
				Description("Component name as package/class").
				Value(&f.activity).
				Validate(func(v string) error {
					if pkg, class, ok := strings.Cut(strings.TrimSpace(v), "/"); !ok || pkg == "" || class == "" {
						return fmt.Errorf("expected package/class")
					}
					return nil
				}),
			huh.NewConfirm().
				Key("task_view").
				Title("Embed in a task view?").
				Value(&f.taskView),
		),
	).WithWidth(max(t.width-4, 40)).WithShowHelp(true).WithShowErrors(true)
	t.launching = true
}

func (t TasksTab) updateLaunching(msg tea.Msg) (TasksTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			t.launching = false
			t.form = nil
			return t, nil
		}
	case tea.WindowSizeMsg:
		t.width = msg.Width
		t.height = msg.Height
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}
	if t.form.State != huh.StateCompleted {
		return t, cmd
	}

	t.launching = false
	t.form = nil
	if t.daemon == nil {
		t.statusText = "daemon not connected"
		return t, clearStatusLater()
	}
	task, err := t.daemon.LaunchTask(ipc.LaunchTaskPayload{
		Area:     t.fields.area,
		Activity: strings.TrimSpace(t.fields.activity),
		TaskView: t.fields.taskView,
	})
	if err != nil {
		t.statusText = fmt.Sprintf("error: %v", err)
	} else {
		t.statusText = fmt.Sprintf("launched task #%d in %s", task.ID, t.fields.area)
	}
	return t, tea.Batch(refreshNow, clearStatusLater())
}

// View implements tea.Model.
func (t TasksTab) View() string {
	if t.launching && t.form != nil {
		header := lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Render("Launch Task") +
			dimStyle.Render("  (esc to cancel)")
		return lipgloss.NewStyle().
			Width(t.width).
			Height(t.height).
			Padding(1, 2).
			Render(header + "\n\n" + t.form.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, t.list.View(), dimStyle.Render(" "+t.statusText))
}
