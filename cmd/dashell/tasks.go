package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/1broseidon/dashell/internal/ipc"
)

func runLaunch(args []string) int {
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dashell launch --area NAME [--task-view] <package/class>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start a task on the area's launch root. Launching into a hidden area shows it.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	area := fs.String("area", "", "Display area to launch into (required)")
	taskView := fs.Bool("task-view", false, "Embed the task in a task view")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 || *area == "" {
		fmt.Fprintln(os.Stderr, "launch requires --area and <package/class>")
		fs.Usage()
		return 2
	}

	task, err := ipc.NewClient().LaunchTask(ipc.LaunchTaskPayload{
		Area:     *area,
		Activity: fs.Arg(0),
		TaskView: *taskView,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("task_id: %d\n", task.ID)
	return 0
}

func runClose(args []string) int {
	fs := flag.NewFlagSet("close", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dashell close <task-id>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Close a running task. Use 'dashell status' to list task ids.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "close requires <task-id>")
		fs.Usage()
		return 2
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "invalid task id %q\n", fs.Arg(0))
		return 2
	}

	if err := ipc.NewClient().CloseTask(id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runResize(args []string) int {
	fs := flag.NewFlagSet("resize", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dashell resize [--display N] WIDTH HEIGHT")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Change a display's size. Visible areas are scaled in one transition.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	display := fs.Int("display", 0, "Display id")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "resize requires WIDTH HEIGHT")
		fs.Usage()
		return 2
	}
	w, errW := strconv.Atoi(fs.Arg(0))
	h, errH := strconv.Atoi(fs.Arg(1))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		fmt.Fprintln(os.Stderr, "WIDTH and HEIGHT must be positive numbers")
		return 2
	}

	if err := ipc.NewClient().ResizeDisplay(*display, w, h); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
