package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/1broseidon/dashell/internal/ipc"
)

// Control actions offered by the quick control prompt.
const (
	ActionShow    = "show"
	ActionHide    = "hide"
	ActionToggle  = "toggle"
	ActionInstant = "instant-toggle"
)

// Control runs a one-shot prompt that picks a display area and an action,
// then applies it. It returns the action description.
func Control(daemon Daemon) (string, error) {
	if err := requireTTY(); err != nil {
		return "", err
	}
	status, err := daemon.GetStatus()
	if err != nil {
		return "", err
	}
	if len(status.Surfaces) == 0 {
		return "", errors.New("daemon has no display areas")
	}

	areas := make([]huh.Option[string], 0, len(status.Surfaces))
	for _, sd := range status.Surfaces {
		label := sd.Name
		if sd.Visible {
			label += " (visible)"
		}
		areas = append(areas, huh.NewOption(label, sd.Name))
	}

	var name string
	action := ActionToggle
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Display Area").
				Options(areas...).
				Value(&name),
			huh.NewSelect[string]().
				Title("Action").
				Options(options(ActionToggle, ActionShow, ActionHide, ActionInstant)...).
				Value(&action),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return ApplyAction(daemon, status, name, action)
}

// ApplyAction applies a control action to the named area using the given
// status snapshot to resolve toggles.
func ApplyAction(daemon Daemon, status *ipc.StatusData, name, action string) (string, error) {
	var current *ipc.SurfaceData
	for i := range status.Surfaces {
		if status.Surfaces[i].Name == name {
			current = &status.Surfaces[i]
			break
		}
	}
	if current == nil {
		return "", fmt.Errorf("unknown display area %q", name)
	}

	switch action {
	case ActionShow:
		return "shown " + name, daemon.Show(name)
	case ActionHide:
		return "hidden " + name, daemon.Hide(name)
	case ActionToggle:
		if current.Visible {
			return "hidden " + name, daemon.Hide(name)
		}
		return "shown " + name, daemon.Show(name)
	case ActionInstant:
		visible := !current.Visible
		err := daemon.SetSurfaces(ipc.SetSurfacesPayload{
			Surfaces: []ipc.SurfaceRequest{{Name: name, Visible: &visible}},
			Instant:  true,
		})
		return visibilityWord(visible) + " " + name + " instantly", err
	default:
		return "", fmt.Errorf("unknown action %q", action)
	}
}
