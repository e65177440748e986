package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/1broseidon/dashell/internal/ipc"
	"github.com/1broseidon/dashell/internal/tui"
)

func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/dashell/config.yaml)")

	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: dashell tui [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Interactive console for display areas, tasks and settings.")
		fmt.Fprintln(os.Stderr, "Settings can be edited offline when the daemon is not running.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  1/2/3, Tab  Switch tabs")
		fmt.Fprintln(os.Stderr, "  Enter       Show or hide the selected area")
		fmt.Fprintln(os.Stderr, "  i           Toggle the selected area without animation")
		fmt.Fprintln(os.Stderr, "  f           Focus the selected area")
		fmt.Fprintln(os.Stderr, "  b           Edit the selected area's bounds")
		fmt.Fprintln(os.Stderr, "  l / x       Launch / close a task (Tasks tab)")
		fmt.Fprintln(os.Stderr, "  e           Edit settings (Settings tab)")
		fmt.Fprintln(os.Stderr, "  Ctrl+S      Save settings and reload the daemon")
		fmt.Fprintln(os.Stderr, "  q, Ctrl+C   Quit")
		return 0
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := tui.Run(*path, ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runControl(args []string) int {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stdout, "Usage: dashell control")
		fmt.Fprintln(os.Stdout, "")
		fmt.Fprintln(os.Stdout, "Pick a display area and an action from a prompt.")
		return 0
	}
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "control takes no arguments")
		return 2
	}

	msg, err := tui.Control(ipc.NewClient())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(msg)
	return 0
}
