package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"statusbar/internal/archive"
	"statusbar/internal/config"
	"statusbar/internal/console"
	"statusbar/internal/eventbus"
	"statusbar/internal/runtime/supervisor"
	"statusbar/internal/status"
	"statusbar/internal/storage"
	logx "statusbar/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	sink   *console.Sink
	status *status.Log
	store  storage.Store
	arch   *archive.Archiver
	detach func()

	out io.Writer
}

type Option func(*options)

type options struct {
	out    io.Writer
	logOut io.Writer
	clock  status.Clock
}

// WithOutput sets where the status line is rendered (default stdout).
func WithOutput(w io.Writer) Option { return func(o *options) { o.out = w } }

// WithLogWriter sets the console log writer (default stdout).
func WithLogWriter(w io.Writer) Option { return func(o *options) { o.logOut = w } }

// WithClock replaces the status clock.
func WithClock(c status.Clock) Option { return func(o *options) { o.clock = c } }

func New(cfgPath string, opts ...Option) (*App, error) {
	o := options{out: os.Stdout, logOut: logx.Stdout()}
	for _, fn := range opts {
		fn(&o)
	}

	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.NewWithWriter(mapLogConfig(cfg), o.logOut)
	cfgm.SetLogger(log.Component("config"))

	statusOpts, err := config.StatusOptions(cfg)
	if err != nil {
		return nil, err
	}
	sink := console.New(console.Config{RatePerSec: cfg.Logging.RatePerSec}, log.Component("status"))
	statusOpts.Sink = sink
	statusOpts.Clock = o.clock
	statusOpts.Logger = log.Component("status")
	st := status.New(statusOpts)

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		s, err := storage.Open(sc, log)
		if err != nil {
			return nil, err
		}
		store = s
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	var arch *archive.Archiver
	if cfg.Archive != nil && cfg.Archive.Enabled {
		sched, err := archive.ParseSchedule(cfg.Archive.Schedule)
		if err != nil {
			closeStore(store)
			return nil, fmt.Errorf("archive.schedule: %w", err)
		}
		arch, err = archive.New(st, store, archive.Options{Schedule: sched, Logger: log})
		if err != nil {
			closeStore(store)
			return nil, err
		}
	}

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log.Component("app"),
		logs:    logSvc,
		bus:     eventbus.New(),
		sink:    sink,
		status:  st,
		store:   store,
		arch:    arch,
		out:     o.out,
	}, nil
}

func closeStore(s storage.Store) {
	if s != nil {
		_ = s.Close()
	}
}

func (a *App) Status() *status.Log                { return a.status }
func (a *App) Bus() eventbus.Bus                  { return a.bus }
func (a *App) Archiver() *archive.Archiver        { return a.arch }
func (a *App) Config() *config.Config             { return a.cfgm.Get() }
func (a *App) Logger() logx.Logger                { return a.log }
func (a *App) Supervisor() *supervisor.Supervisor { return a.sup }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Start wires the status log onto the bus and starts the renderer, the
// config watcher and the archiver.
func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.Component("supervisor")))

	events, unsub := a.bus.Subscribe(64)
	a.detach = eventbus.Attach(a.status, a.bus)
	a.sup.Go0("render", func(ctx context.Context) {
		defer unsub()
		render(ctx, events, a.out)
	})

	updates := a.cfgm.Subscribe(1)
	a.sup.Go0("config.apply", func(ctx context.Context) {
		defer a.cfgm.Unsubscribe(updates)
		a.applyLoop(ctx, updates)
	})
	a.sup.GoRestart("config.watch", 250*time.Millisecond, 5*time.Second, a.cfgm.Watch)

	if a.arch != nil {
		if err := a.arch.Start(); err != nil {
			return err
		}
	}

	vis, ok := a.status.CurrentVisible()
	fmt.Fprintln(a.out, RenderLine(vis, ok))
	a.log.Info("app started", logx.String("config", a.cfgPath), logx.Int("history_capacity", a.status.Capacity()))
	return nil
}

func (a *App) applyLoop(ctx context.Context, updates <-chan *config.Config) {
	cur := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-updates:
			if !ok {
				return
			}
			changed, attrs := config.SummarizeConfigChange(cur, next)
			cur = next
			if len(changed) == 0 {
				continue
			}
			a.logs.Apply(mapLogConfig(next))
			a.sink.Apply(console.Config{RatePerSec: next.Logging.RatePerSec})
			attrs = append(attrs, logx.Strs("changed", changed))
			a.log.Info("config reloaded", attrs...)
			if config.RestartRequired(changed) {
				a.log.Warn("config change needs a restart to take effect", logx.Strs("changed", changed))
			}
		}
	}
}

// Stop detaches subscribers, runs the final archive pass and releases the
// store and log files.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if a.detach != nil {
		a.detach()
	}
	if a.arch != nil {
		if err := a.arch.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("archive: %w", err))
		}
	}
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.status.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	a.log.Info("app stopped", logx.Int("dropped_console_lines", int(a.sink.Dropped())))
	if err := a.logs.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
