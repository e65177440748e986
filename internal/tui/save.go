package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/dashell/internal/config"
)

type savePhase int

const (
	saveHidden savePhase = iota
	savePreview
	saveResult
)

type diffKind int

const (
	diffRemoved diffKind = iota + 1
	diffAdded
)

// diffLine is one "path: value" setting that was removed or added.
type diffLine struct {
	kind diffKind
	text string
}

// SaveOverlay previews changed settings and writes them on confirmation.
type SaveOverlay struct {
	phase    savePhase
	changes  []diffLine
	offset   int
	err      error
	reloaded bool
}

// Active reports whether the overlay is visible.
func (s SaveOverlay) Active() bool {
	return s.phase != saveHidden
}

// SaveSucceeded reports whether the last save completed without error.
func (s SaveOverlay) SaveSucceeded() bool {
	return s.phase == saveResult && s.err == nil
}

// Show opens the preview of what changed between original and current.
func (s *SaveOverlay) Show(original, current *config.Config) {
	*s = SaveOverlay{changes: computeDiffLines(original, current)}
	if len(s.changes) == 0 {
		s.phase = saveResult
		s.err = fmt.Errorf("no changes to save")
		return
	}
	s.phase = savePreview
}

// Update handles a key while the overlay is active. A confirmed save
// writes cfg to path and asks a connected daemon to reload.
func (s SaveOverlay) Update(msg tea.Msg, path string, cfg *config.Config, daemon Daemon, connected bool) SaveOverlay {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s
	}
	if s.phase == saveResult {
		s.phase = saveHidden
		return s
	}

	switch km.String() {
	case "esc", "n":
		s.phase = saveHidden
	case "enter", "y":
		s.phase = saveResult
		if s.err = cfg.Save(path); s.err != nil {
			return s
		}
		if connected && daemon != nil {
			s.reloaded = daemon.Reload() == nil
		}
	case "up", "k":
		s.offset = max(s.offset-1, 0)
	case "down", "j":
		s.offset = min(s.offset+1, max(len(s.changes)-1, 0))
	}
	return s
}

// View renders the overlay centered in a width x height area.
func (s SaveOverlay) View(width, height int) string {
	var body string
	boxW := min(max(width-8, 30), 80)
	switch s.phase {
	case savePreview:
		body = s.previewBody(boxW, max(height-10, 3))
	case saveResult:
		boxW = min(boxW, 60)
		body = s.resultBody()
	default:
		return ""
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(boxW).
		Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (s SaveOverlay) previewBody(boxW, rows int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).
		Render(fmt.Sprintf("Save %d changed setting(s)?", countChanged(s.changes)))

	start := min(s.offset, max(len(s.changes)-rows, 0))
	end := min(start+rows, len(s.changes))
	textW := max(boxW-8, 8)

	out := make([]string, 0, end-start)
	for _, c := range s.changes[start:end] {
		text := c.text
		if len(text) > textW {
			text = text[:textW-1] + "…"
		}
		if c.kind == diffAdded {
			out = append(out, addedStyle.Render("+ "+text))
		} else {
			out = append(out, removedStyle.Render("- "+text))
		}
	}
	if end < len(s.changes) {
		out = append(out, dimStyle.Render(fmt.Sprintf("  (%d more)", len(s.changes)-end)))
	}

	return title + "\n\n" + strings.Join(out, "\n") + "\n\n" +
		dimStyle.Render("enter: save  esc: cancel  j/k: scroll")
}

func (s SaveOverlay) resultBody() string {
	var msg string
	if s.err != nil {
		msg = removedStyle.Bold(true).Render("Error: " + s.err.Error())
	} else {
		msg = addedStyle.Bold(true).Render("Config saved")
		if s.reloaded {
			msg += "\n" + addedStyle.Render("Daemon reloaded (areas apply on restart)")
		}
	}
	return msg + "\n\n" + dimStyle.Render("press any key to dismiss")
}

func countChanged(lines []diffLine) int {
	paths := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		path, _, _ := strings.Cut(l.text, ": ")
		paths[path] = struct{}{}
	}
	return len(paths)
}

// computeDiffLines compares two configs setting by setting. A changed value
// yields its removed line followed by its added line.
func computeDiffLines(original, current *config.Config) []diffLine {
	before, beforeOrder := flattenConfig(original)
	after, afterOrder := flattenConfig(current)
	if before == nil || after == nil {
		return nil
	}

	var lines []diffLine
	for _, path := range beforeOrder {
		old := before[path]
		v, ok := after[path]
		if ok && v == old {
			continue
		}
		lines = append(lines, diffLine{kind: diffRemoved, text: path + ": " + old})
		if ok {
			lines = append(lines, diffLine{kind: diffAdded, text: path + ": " + v})
		}
	}
	for _, path := range afterOrder {
		if _, ok := before[path]; !ok {
			lines = append(lines, diffLine{kind: diffAdded, text: path + ": " + after[path]})
		}
	}
	return lines
}

// flattenConfig maps every scalar setting to a dotted path. Display areas
// and displays are keyed by name so reordering them is not a change.
func flattenConfig(cfg *config.Config) (map[string]string, []string) {
	if cfg == nil {
		return nil, nil
	}
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, nil
	}
	values := make(map[string]string)
	var order []string
	var walk func(n *yaml.Node, path string)
	walk = func(n *yaml.Node, path string) {
		switch n.Kind {
		case yaml.DocumentNode:
			for _, c := range n.Content {
				walk(c, path)
			}
		case yaml.MappingNode:
			for i := 0; i+1 < len(n.Content); i += 2 {
				key := n.Content[i].Value
				if path != "" {
					key = path + "." + key
				}
				walk(n.Content[i+1], key)
			}
		case yaml.SequenceNode:
			for i, item := range n.Content {
				walk(item, path+"["+elementKey(item, i)+"]")
			}
		default:
			if _, seen := values[path]; !seen {
				order = append(order, path)
			}
			values[path] = n.Value
		}
	}
	walk(&doc, "")
	return values, order
}

func elementKey(n *yaml.Node, index int) string {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == "name" && n.Content[i+1].Value != "" {
				return n.Content[i+1].Value
			}
		}
	}
	return strconv.Itoa(index)
}

// cloneConfig deep-copies cfg through YAML.
func cloneConfig(cfg *config.Config) *config.Config {
	if cfg == nil {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil
	}
	var clone config.Config
	if err := yaml.Unmarshal(data, &clone); err != nil {
		return nil
	}
	return &clone
}
