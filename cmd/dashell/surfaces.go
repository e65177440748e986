package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/1broseidon/dashell/internal/ipc"
	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/tui"
)

func formatRect(r platform.Rect) string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// parseRect parses "X Y W H" arguments into bounds with a positive size.
func parseRect(args []string) (platform.Rect, error) {
	if len(args) != 4 {
		return platform.Rect{}, fmt.Errorf("expected X Y WIDTH HEIGHT, got %d values", len(args))
	}
	var vals [4]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return platform.Rect{}, fmt.Errorf("invalid number %q", a)
		}
		vals[i] = n
	}
	r := platform.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if r.Empty() {
		return platform.Rect{}, fmt.Errorf("bounds must have a positive size")
	}
	return r, nil
}

func runVisibility(action string, args []string) int {
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dashell %s [--instant] <area>\n", action)
		fmt.Fprintln(os.Stderr, "")
		switch action {
		case "show":
			fmt.Fprintln(os.Stderr, "Animate a display area on screen. Visible areas of the same group are hidden.")
		case "hide":
			fmt.Fprintln(os.Stderr, "Animate a display area off screen.")
		default:
			fmt.Fprintln(os.Stderr, "Show a hidden display area or hide a visible one.")
		}
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	instant := fs.Bool("instant", false, "Apply without animation")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "%s requires <area>\n", action)
		fs.Usage()
		return 2
	}
	name := fs.Arg(0)

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *instant {
		if err := instantVisibility(client, status, name, action); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	msg, err := tui.ApplyAction(client, status, name, action)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(msg)
	return 0
}

// instantVisibility applies show, hide or toggle as an instant transaction.
func instantVisibility(client *ipc.Client, status *ipc.StatusData, name, action string) error {
	var current *ipc.SurfaceData
	for i := range status.Surfaces {
		if status.Surfaces[i].Name == name {
			current = &status.Surfaces[i]
			break
		}
	}
	if current == nil {
		return fmt.Errorf("unknown display area %q", name)
	}
	visible := action == "show" || (action == "toggle" && !current.Visible)
	return client.SetSurfaces(ipc.SetSurfacesPayload{
		Surfaces: []ipc.SurfaceRequest{{Name: name, Visible: &visible}},
		Instant:  true,
	})
}

func runSet(args []string) int {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dashell set [--visible=true|false] [--bounds \"X Y W H\"] [--focus] [--instant] <area>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Request a new state for one display area in a single transaction.")
		fmt.Fprintln(os.Stderr, "Unset flags keep the committed value.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	visible := fs.String("visible", "", "Requested visibility (true or false)")
	bounds := fs.String("bounds", "", "Requested bounds as \"X Y W H\"")
	focus := fs.Bool("focus", false, "Raise the area's surface to the top")
	instant := fs.Bool("instant", false, "Apply without animation")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "set requires <area>")
		fs.Usage()
		return 2
	}

	payload, err := buildSetPayload(fs.Arg(0), *visible, *bounds, *focus, *instant)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := ipc.NewClient().SetSurfaces(payload); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func buildSetPayload(name, visible, bounds string, focus, instant bool) (ipc.SetSurfacesPayload, error) {
	req := ipc.SurfaceRequest{Name: name}
	if visible != "" {
		v, err := strconv.ParseBool(visible)
		if err != nil {
			return ipc.SetSurfacesPayload{}, fmt.Errorf("invalid --visible %q", visible)
		}
		req.Visible = &v
	}
	if bounds != "" {
		r, err := parseRect(strings.Fields(bounds))
		if err != nil {
			return ipc.SetSurfacesPayload{}, fmt.Errorf("invalid --bounds: %w", err)
		}
		req.Bounds = &r
	}
	p := ipc.SetSurfacesPayload{Surfaces: []ipc.SurfaceRequest{req}, Instant: instant}
	if focus {
		p.Focus = name
	}
	return p, nil
}

func runBounds(args []string) int {
	fs := flag.NewFlagSet("bounds", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dashell bounds <area> X Y WIDTH HEIGHT")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Animate a display area to new bounds. The bounds become the area's home.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 5 {
		fmt.Fprintln(os.Stderr, "bounds requires <area> X Y WIDTH HEIGHT")
		fs.Usage()
		return 2
	}
	r, err := parseRect(fs.Args()[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := ipc.NewClient().SetBounds(fs.Arg(0), r); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runInsets(args []string) int {
	fs := flag.NewFlagSet("insets", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dashell insets <area> INDEX TYPE [X Y WIDTH HEIGHT]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Contribute an insets frame to a display area. Without a frame the")
		fmt.Fprintln(os.Stderr, "frame previously added at INDEX and TYPE is removed.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 3 && fs.NArg() != 7 {
		fmt.Fprintln(os.Stderr, "insets requires <area> INDEX TYPE [X Y WIDTH HEIGHT]")
		fs.Usage()
		return 2
	}
	index, err1 := strconv.Atoi(fs.Arg(1))
	typ, err2 := strconv.Atoi(fs.Arg(2))
	if err1 != nil || err2 != nil || index < 0 || typ < 0 {
		fmt.Fprintln(os.Stderr, "INDEX and TYPE must be non-negative integers")
		return 2
	}
	var frame *platform.Rect
	if fs.NArg() == 7 {
		r, err := parseRect(fs.Args()[3:])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		frame = &r
	}
	if err := ipc.NewClient().SetInsets(fs.Arg(0), index, typ, frame); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// parseRegion parses groups of "X Y W H" arguments.
func parseRegion(args []string) ([]platform.Rect, error) {
	if len(args)%4 != 0 {
		return nil, fmt.Errorf("expected groups of X Y WIDTH HEIGHT, got %d values", len(args))
	}
	var region []platform.Rect
	for i := 0; i < len(args); i += 4 {
		r, err := parseRect(args[i : i+4])
		if err != nil {
			return nil, err
		}
		region = append(region, r)
	}
	return region, nil
}

func runObscure(args []string) int {
	fs := flag.NewFlagSet("obscure", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dashell obscure <area> [X Y WIDTH HEIGHT]...")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Replace the region of a display area that ignores touch. No rectangles")
		fmt.Fprintln(os.Stderr, "clears it.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "obscure requires <area>")
		fs.Usage()
		return 2
	}
	region, err := parseRegion(fs.Args()[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := ipc.NewClient().SetObscuredTouch(fs.Arg(0), region); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
