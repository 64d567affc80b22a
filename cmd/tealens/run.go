package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jask/tealens/internal/config"
	"github.com/jask/tealens/internal/debugsrv"
	"github.com/jask/tealens/internal/lifecycle"
	"github.com/jask/tealens/internal/metrics"
	"github.com/jask/tealens/internal/prefs"
	"github.com/jask/tealens/internal/route"
	"github.com/jask/tealens/internal/snapshot"
	"github.com/jask/tealens/internal/store"
	"github.com/jask/tealens/internal/todo"
	"github.com/jask/tealens/internal/tui"
	"github.com/jask/tealens/internal/view"
)

func loadConfig() (*config.Loader, config.Config, error) {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	return loader, cfg, nil
}

// openLog sends slog output to the log file; the terminal belongs to the UI.
func openLog(cfg config.LogConfig) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	log := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return log, func() { _ = f.Close() }, nil
}

// opener returns the snapshot backend for cfg, or nil when storage is off.
// File backends deliver changes made by other processes through dispatch.
func opener(cfg config.StorageConfig, dispatch prefs.Dispatch, log *slog.Logger) snapshot.Opener {
	switch cfg.Driver {
	case "sqlite":
		return func() (snapshot.Backend, error) {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, err
			}
			return snapshot.OpenSQL(cfg.Path, cfg.Key)
		}
	case "file":
		return func() (snapshot.Backend, error) {
			return prefs.Open(cfg.Path, prefs.WithDispatch(dispatch), prefs.WithLogger(log))
		}
	}
	return nil
}

func runApp(cmd *cobra.Command, _ []string) error {
	loader, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if routeFlag != "" {
		cfg.Route.Initial = routeFlag
	}
	if debugAddr != "" {
		cfg.Debug.Addr = debugAddr
	}
	log, closeLog, err := openLog(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(log)

	theme, err := tui.ThemeByName(cfg.App.Theme)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	screen := tui.NewScreen(theme)
	prog := tui.NewProgram(screen, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	loc := route.NewLocation(cfg.Route.Initial)

	optionsFor := func(c config.Config) todo.Options {
		return todo.Options{
			Version:  c.App.Version,
			Storage:  opener(c.Storage, prog.Post, log),
			Location: loc,
			LogState: c.App.LogState,
			Logger:   log,
			Metrics:  m,
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	srv := debugsrv.New(prog.Do, reg, log)
	if cfg.Debug.Addr != "" {
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Debug.Addr); err != nil {
				log.Error("debug server", slog.Any("err", err))
			}
		}()
	}

	st := store.New(todo.Init, store.WithLoopHandler[todo.State](func(err error) {
		log.Error("state did not settle", slog.Any("err", err))
		screen.SetStatus(err.Error())
	}))
	var mgr *lifecycle.Manager[todo.State, view.Node]
	startErr := make(chan error, 1)
	go func() {
		var err error
		doErr := prog.Do(ctx, func() {
			mgr, err = lifecycle.Start[todo.State, view.Node](st, screen, todo.MakeApp(optionsFor(cfg)),
				lifecycle.WithLogger[todo.State](log),
				lifecycle.WithMetrics[todo.State](m),
				lifecycle.WithErrorHandler[todo.State](func(err error) { screen.SetStatus(err.Error()) }),
				lifecycle.WithDebugHook(debugsrv.Hook(srv, todo.Init)),
			)
		})
		if err == nil {
			err = doErr
		}
		startErr <- err
		if err != nil {
			prog.Quit()
		}
	}()

	if _, err := os.Stat(loader.Path()); err == nil {
		loader.Watch(func(c config.Config, err error) {
			prog.Post(func() {
				if err != nil {
					log.Warn("config change ignored", slog.Any("err", err))
					screen.SetStatus(err.Error())
					return
				}
				if mgr == nil {
					return
				}
				if err := mgr.Swap(todo.MakeApp(optionsFor(c))); err != nil {
					screen.SetStatus(err.Error())
					return
				}
				screen.SetStatus("")
			})
		})
	}

	runErr := prog.Run()
	cancel()
	if mgr != nil {
		mgr.Stop()
	}
	select {
	case err := <-startErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("start app: %w", err)
		}
	default:
	}
	return runErr
}
