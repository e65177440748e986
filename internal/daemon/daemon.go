// Package daemon wires configuration, the compositor backend, the in-process
// window manager host and the display-area coordinator into the dashell
// daemon, and serves it over IPC.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/1broseidon/dashell/internal/animation"
	"github.com/1broseidon/dashell/internal/config"
	"github.com/1broseidon/dashell/internal/daview"
	"github.com/1broseidon/dashell/internal/hotkeys"
	"github.com/1broseidon/dashell/internal/ipc"
	"github.com/1broseidon/dashell/internal/mainthread"
	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/shell"
	"github.com/1broseidon/dashell/internal/wm"
	"github.com/charmbracelet/log"
)

// ErrUnknownArea is returned for display-area names missing from the
// configuration.
var ErrUnknownArea = errors.New("unknown display area")

// Options configures a Daemon.
type Options struct {
	Config *config.Config
	// ConfigPath is re-read on reload. Empty means the default location.
	ConfigPath string
	// Backend overrides the backend selected by the configuration.
	Backend platform.Backend
	// SocketPath overrides the runtime IPC socket path.
	SocketPath string
	// Console, when set, receives level changes on reload.
	Console *log.Logger
	Logger  *slog.Logger
}

type area struct {
	cfg  config.AreaConfig
	view *daview.View
}

// Daemon owns one coordinator and everything it drives.
type Daemon struct {
	cfgPath     string
	socketPath  string
	backend     platform.Backend
	console     *log.Logger
	logger      *slog.Logger
	placeholder wm.ComponentName

	loop        *mainthread.Loop
	host        *shell.Host
	transitions *daview.Transitions
	anim        *animation.Handler

	mu    sync.Mutex
	cfg   *config.Config
	areas map[string]*area
	order []string
}

var _ ipc.Controller = (*Daemon)(nil)

// New builds the daemon. Nothing runs until Run.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	placeholder, err := wm.ParseComponentName(cfg.PlaceholderActivity)
	if err != nil {
		return nil, err
	}
	easing, err := animation.EasingByName(cfg.Animation.Easing)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backend := opts.Backend
	if backend == nil {
		if backend, err = openBackend(cfg, logger); err != nil {
			return nil, err
		}
	}

	d := &Daemon{
		cfgPath:     opts.ConfigPath,
		socketPath:  opts.SocketPath,
		backend:     backend,
		console:     opts.Console,
		logger:      logger,
		placeholder: placeholder,
		loop:        mainthread.NewLoop(logger),
		cfg:         cfg,
		areas:       make(map[string]*area),
	}

	d.host, err = shell.New(shell.Options{
		Backend:     backend,
		Executor:    d.loop,
		Placeholder: placeholder,
		Logger:      logger.With("component", "shell"),
	})
	if err != nil {
		return nil, err
	}
	d.transitions, err = daview.New(daview.Options{
		Host:        d.host,
		Executor:    d.loop,
		Backend:     backend,
		TaskViews:   d.host,
		Placeholder: placeholder,
		Logger:      logger.With("component", "daview"),
	})
	if err != nil {
		return nil, err
	}
	d.anim = animation.New(animation.Config{
		Backend:  backend,
		Duration: cfg.Animation.Duration(),
		Easing:   easing,
		State:    d.transitions.Committed,
		Logger:   logger.With("component", "animation"),
	})
	d.transitions.SetAnimationHandler(d.anim)

	for _, ac := range cfg.DisplayAreas {
		if err := d.addArea(ac); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func openBackend(cfg *config.Config, logger *slog.Logger) (platform.Backend, error) {
	if cfg.Display != "" {
		os.Setenv("DISPLAY", cfg.Display)
	}
	if cfg.XAuthority != "" {
		os.Setenv("XAUTHORITY", cfg.XAuthority)
	}

	switch cfg.Backend {
	case config.BackendX11:
		return openX11Backend()
	case config.BackendAuto:
		if os.Getenv("DISPLAY") != "" {
			backend, err := openX11Backend()
			if err == nil {
				return backend, nil
			}
			logger.Warn("x11 unavailable, using the memory backend", "error", err)
		}
	}
	return memoryBackend(cfg), nil
}

func memoryBackend(cfg *config.Config) *platform.MemoryBackend {
	displays := make([]platform.Display, 0, len(cfg.Displays))
	for _, dc := range cfg.Displays {
		bounds := platform.Rect{Width: dc.Width, Height: dc.Height}
		displays = append(displays, platform.Display{ID: dc.ID, Name: dc.Name, Bounds: bounds, Usable: bounds})
	}
	return platform.NewMemoryBackend(displays...)
}

func toRect(r config.Rect) platform.Rect {
	return platform.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func (d *Daemon) addArea(ac config.AreaConfig) error {
	bounds := toRect(ac.Bounds)
	if _, err := d.host.AddDisplayArea(shell.AreaSpec{
		DisplayID:       ac.DisplayID,
		FeatureID:       ac.FeatureID,
		LaunchFeatureID: ac.GetLaunchFeatureID(),
		Bounds:          bounds,
	}); err != nil {
		return fmt.Errorf("display area %s: %w", ac.Name, err)
	}

	view, err := daview.NewView(daview.ViewConfig{
		Name:            ac.Name,
		DisplayID:       ac.DisplayID,
		FeatureID:       ac.FeatureID,
		LaunchFeatureID: ac.GetLaunchFeatureID(),
		CornerRadius:    ac.CornerRadius,
		SyncSurfaceToWm: ac.GetSyncSurfaceToWM(),
	}, daview.ViewDeps{
		Organizer: d.host,
		Backend:   d.backend,
		Applier:   d.transitions,
		Logger:    d.logger.With("view", ac.Name),
	})
	if err != nil {
		return fmt.Errorf("display area %s: %w", ac.Name, err)
	}
	surface, err := d.backend.CreateSurface(platform.NoSurface, bounds)
	if err != nil {
		return fmt.Errorf("display area %s: create surface: %w", ac.Name, err)
	}

	d.transitions.Add(view)
	d.anim.Register(animation.Area{View: view, Group: ac.Group, Home: bounds})
	view.SurfaceCreated(surface, bounds)

	d.areas[ac.Name] = &area{cfg: ac, view: view}
	d.order = append(d.order, ac.Name)
	return nil
}

// Run starts the coordinator, IPC, the reconciler and hotkeys, and blocks
// until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		d.loop.Run(ctx)
	}()

	d.showInitial()

	var server *ipc.Server
	if d.socketPath != "" {
		server = ipc.NewServerAt(d.socketPath, d, d.logger.With("component", "ipc"))
	} else {
		var err error
		if server, err = ipc.NewServer(d, d.logger.With("component", "ipc")); err != nil {
			return err
		}
	}
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	d.mu.Lock()
	interval := d.cfg.ReconcileInterval()
	d.mu.Unlock()
	if interval > 0 {
		r := NewReconciler(ReconcilerConfig{Interval: interval, Logger: d.logger.With("component", "reconciler")}, d.transitions)
		go r.Run(ctx)
	}

	d.startHotkeys()

	d.logger.Info("dashell daemon started", "areas", len(d.order))
	<-ctx.Done()

	if q, ok := d.backend.(interface{ Quit() }); ok {
		q.Quit()
	}
	d.anim.Close()
	<-loopDone
	if c, ok := d.backend.(interface{ Disconnect() }); ok {
		c.Disconnect()
	}
	d.logger.Info("dashell daemon stopped")
	return nil
}

// showInitial brings areas configured as visible on screen.
func (d *Daemon) showInitial() {
	tx := daview.Transaction{States: make(map[daview.ID]daview.State)}
	for _, name := range d.order {
		a := d.areas[name]
		if a.cfg.Visible {
			tx.States[a.view.ID()] = daview.State{Visible: true, Bounds: toRect(a.cfg.Bounds)}
		}
	}
	if len(tx.States) > 0 {
		d.transitions.StartTransaction(tx)
	}
}

func (d *Daemon) startHotkeys() {
	var bound []*area
	for _, name := range d.order {
		if a := d.areas[name]; a.cfg.Hotkey != "" {
			bound = append(bound, a)
		}
	}
	if len(bound) == 0 {
		return
	}

	h, err := hotkeys.NewHandler(d.backend, d, d.logger.With("component", "hotkeys"))
	if errors.Is(err, hotkeys.ErrUnsupportedBackend) {
		d.logger.Info("hotkeys disabled", "reason", err)
		return
	}
	if err != nil {
		d.logger.Warn("failed to set up hotkeys", "error", err)
		return
	}
	for _, a := range bound {
		if err := h.RegisterArea(a.cfg.Name, a.cfg.Hotkey); err != nil {
			d.logger.Warn("failed to register hotkey", "area", a.cfg.Name, "error", err)
			continue
		}
		d.logger.Info("hotkey registered", "area", a.cfg.Name, "keys", a.cfg.Hotkey)
	}
	if el, ok := d.backend.(interface{ EventLoop() }); ok {
		go el.EventLoop()
	}
}

func (d *Daemon) area(name string) (*area, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.areas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArea, name)
	}
	return a, nil
}

// target returns the state id is headed for once pending transitions finish.
func (d *Daemon) target(ctx context.Context, id daview.ID) (daview.State, error) {
	ch := make(chan daview.State, 1)
	if err := mainthread.Call(ctx, d.loop, func() {
		st, _ := d.transitions.Target(id)
		ch <- st
	}); err != nil {
		return daview.State{}, err
	}
	return <-ch, nil
}

// Status implements ipc.Controller.
func (d *Daemon) Status(ctx context.Context) (ipc.StatusData, error) {
	st, err := d.transitions.Status(ctx)
	if err != nil {
		return ipc.StatusData{}, err
	}
	out := ipc.StatusData{
		Pending:             st.Pending,
		InFlight:            st.InFlight,
		HasAnimationHandler: st.HasAnimationHandler,
	}

	d.mu.Lock()
	byID := make(map[daview.ID]*area, len(d.areas))
	for _, a := range d.areas {
		byID[a.view.ID()] = a
	}
	d.mu.Unlock()

	for _, s := range st.Surfaces {
		sd := ipc.SurfaceData{
			Name:            s.Name,
			ID:              s.ID.String(),
			DisplayID:       s.DisplayID,
			FeatureID:       s.FeatureID,
			LaunchFeatureID: s.LaunchFeatureID,
			Visible:         s.Visible,
			Bounds:          s.Bounds,
			SurfaceCreated:  s.SurfaceCreated,
		}
		if a, ok := byID[s.ID]; ok {
			sd.Group = a.cfg.Group
			sd.CornerRadius = a.view.CornerRadius()
			for _, in := range a.view.Insets() {
				sd.Insets = append(sd.Insets, ipc.InsetsData{Index: in.Index, Type: in.Type, Frame: in.Frame})
			}
			sd.ObscuredTouch = a.view.ObscuredTouchRegion()
		}
		out.Surfaces = append(out.Surfaces, sd)
	}
	for _, t := range d.host.RunningTasks() {
		out.Tasks = append(out.Tasks, taskData(t, d.placeholder))
	}
	return out, nil
}

func taskData(t wm.TaskInfo, placeholder wm.ComponentName) ipc.TaskData {
	return ipc.TaskData{
		ID:          t.ID,
		DisplayID:   t.DisplayID,
		FeatureID:   t.DisplayAreaFeatureID,
		Activity:    t.TopActivity.String(),
		Placeholder: t.TopActivity == placeholder,
	}
}

// SetSurfaces implements ipc.Controller. Unset fields keep the value the
// area is already headed for; showing an area without bounds uses its home
// bounds. Nothing changes unless every entry is valid.
func (d *Daemon) SetSurfaces(ctx context.Context, req ipc.SetSurfacesPayload) error {
	type entry struct {
		id      daview.ID
		state   daview.State
		newHome bool
	}
	entries := make([]entry, 0, len(req.Surfaces))
	for _, sr := range req.Surfaces {
		a, err := d.area(sr.Name)
		if err != nil {
			return err
		}
		if sr.Bounds != nil && sr.Bounds.Empty() {
			return fmt.Errorf("%s: bounds must have a positive size", sr.Name)
		}
		e := entry{id: a.view.ID()}
		if e.state, err = d.target(ctx, e.id); err != nil {
			return err
		}
		if sr.Visible != nil {
			e.state.Visible = *sr.Visible
		}
		if sr.Bounds != nil {
			e.state.Bounds = *sr.Bounds
			e.newHome = true
		}
		entries = append(entries, e)
	}
	var focus daview.ID
	if req.Focus != "" {
		a, err := d.area(req.Focus)
		if err != nil {
			return err
		}
		focus = a.view.ID()
	}

	tx := daview.Transaction{
		States:       make(map[daview.ID]daview.State, len(entries)),
		Focus:        focus,
		Instant:      req.Instant,
		AfterPending: true,
	}
	for _, e := range entries {
		if e.newHome {
			d.anim.SetHome(e.id, e.state.Bounds)
		}
		if e.state.Bounds.Empty() {
			e.state.Bounds, _ = d.anim.Home(e.id)
		}
		tx.States[e.id] = e.state
	}
	d.transitions.StartTransaction(tx)
	return nil
}

// Show implements ipc.Controller. Showing hides the other areas of the
// same group.
func (d *Daemon) Show(_ context.Context, name string, visible bool) error {
	a, err := d.area(name)
	if err != nil {
		return err
	}
	tx, ok := d.anim.ShowTransaction(a.view.ID(), visible)
	if !ok {
		return fmt.Errorf("%w: %q has no animation home", ErrUnknownArea, name)
	}
	tx.AfterPending = true
	d.transitions.StartTransaction(tx)
	return nil
}

// Toggle implements hotkeys.Toggler. It flips the state the area is headed
// for, so a second press during an animation reverses it.
func (d *Daemon) Toggle(name string) error {
	a, err := d.area(name)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), ipc.DefaultRequestTimeout)
	defer cancel()
	st, err := d.target(ctx, a.view.ID())
	if err != nil {
		return err
	}
	return d.Show(ctx, name, !st.Visible)
}

// SetBounds implements ipc.Controller.
func (d *Daemon) SetBounds(ctx context.Context, req ipc.SetBoundsPayload) error {
	bounds := req.Bounds
	return d.SetSurfaces(ctx, ipc.SetSurfacesPayload{
		Surfaces: []ipc.SurfaceRequest{{Name: req.Name, Bounds: &bounds}},
	})
}

// LaunchTask implements ipc.Controller.
func (d *Daemon) LaunchTask(ctx context.Context, req ipc.LaunchTaskPayload) (ipc.TaskData, error) {
	a, err := d.area(req.Area)
	if err != nil {
		return ipc.TaskData{}, err
	}
	activity, err := wm.ParseComponentName(req.Activity)
	if err != nil {
		return ipc.TaskData{}, err
	}
	task, err := d.host.LaunchTask(ctx, shell.LaunchRequest{
		DisplayID:       a.cfg.DisplayID,
		LaunchFeatureID: a.cfg.GetLaunchFeatureID(),
		Activity:        activity,
		TaskView:        req.TaskView,
	})
	if err != nil {
		return ipc.TaskData{}, err
	}
	return taskData(task, d.placeholder), nil
}

// CloseTask implements ipc.Controller.
func (d *Daemon) CloseTask(ctx context.Context, taskID int) error {
	return d.host.CloseTask(ctx, taskID)
}

// ResizeDisplay implements ipc.Controller. The display keeps its origin.
func (d *Daemon) ResizeDisplay(ctx context.Context, req ipc.ResizeDisplayPayload) error {
	displays, err := d.backend.Displays()
	if err != nil {
		return err
	}
	for _, disp := range displays {
		if disp.ID == req.DisplayID {
			bounds := platform.Rect{X: disp.Bounds.X, Y: disp.Bounds.Y, Width: req.Width, Height: req.Height}
			return d.host.ChangeDisplaySize(ctx, req.DisplayID, bounds)
		}
	}
	return fmt.Errorf("display %d not found", req.DisplayID)
}

// SetInsets implements ipc.Controller.
func (d *Daemon) SetInsets(_ context.Context, req ipc.SetInsetsPayload) error {
	a, err := d.area(req.Name)
	if err != nil {
		return err
	}
	if req.Frame != nil {
		if req.Frame.Empty() {
			return fmt.Errorf("%s: insets frame must have a positive size", req.Name)
		}
		a.view.AddInsets(req.Index, req.Type, *req.Frame)
		return nil
	}
	for _, in := range a.view.Insets() {
		if in.Index == req.Index && in.Type == req.Type {
			a.view.RemoveInsets(req.Index, req.Type)
			return nil
		}
	}
	return fmt.Errorf("%s: no insets at index %d type %d", req.Name, req.Index, req.Type)
}

// SetObscuredTouch implements ipc.Controller.
func (d *Daemon) SetObscuredTouch(_ context.Context, req ipc.SetObscuredTouchPayload) error {
	a, err := d.area(req.Name)
	if err != nil {
		return err
	}
	a.view.SetObscuredTouchRegion(req.Region)
	return nil
}

// Reload implements ipc.Controller. Only the log level and animation
// timing are applied live; display areas need a restart.
func (d *Daemon) Reload() error {
	var (
		res *config.LoadResult
		err error
	)
	if d.cfgPath != "" {
		res, err = config.LoadFromPath(d.cfgPath)
	} else {
		res, err = config.LoadWithSources()
	}
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	cfg := res.Config
	easing, err := animation.EasingByName(cfg.Animation.Easing)
	if err != nil {
		return err
	}

	d.anim.SetTiming(cfg.Animation.Duration(), easing)
	if d.console != nil {
		d.console.SetLevel(ParseLevel(cfg.LogLevel))
	}

	d.mu.Lock()
	d.cfg.LogLevel = cfg.LogLevel
	d.cfg.Animation = cfg.Animation
	d.mu.Unlock()

	d.logger.Info("config reloaded", "log_level", cfg.LogLevel, "animation_ms", cfg.Animation.DurationMS, "easing", cfg.Animation.Easing)
	return nil
}
