package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotetl/internal/server"
	"github.com/desertthunder/spotetl/internal/shared"
	"github.com/desertthunder/spotetl/internal/storage"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP trigger service until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) (err error) {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	if cmd.IsSet("port") {
		r.config.Server.Port = int(cmd.Int("port"))
	}

	p, err := r.openPipeline(ctx, true)
	if err != nil {
		return err
	}
	defer closeWith(&err, p)

	router := server.NewTriggerRouter(r.stages(p, cmd.String("strategy")), p.metrics.Handler(), r.logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, r.config.Server.Addr(), router, r.logger)
}

// stages builds the trigger functions. Each request gets a fresh ingester or transformer so a credential or
// configuration problem fails that request rather than the whole service.
func (r *Runner) stages(p *pipeline, strategy string) map[string]server.StageFunc {
	return map[string]server.StageFunc{
		"ingest": func(ctx context.Context) (any, error) {
			ingester, err := r.newIngester(p)
			if err != nil {
				return nil, err
			}
			return ingester.Run(ctx, nil)
		},
		"transform": func(ctx context.Context) (any, error) {
			transformer, err := r.newTransformer(p, strategy)
			if err != nil {
				return nil, err
			}
			return transformer.Run(ctx, nil)
		},
	}
}

// Watch runs a transformation whenever raw documents land in the local staging directory.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) (err error) {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	p, err := r.openPipeline(ctx, false)
	if err != nil {
		return err
	}
	defer closeWith(&err, p)

	local, ok := p.store.(*storage.LocalStore)
	if !ok {
		return fmt.Errorf("%w: watch requires the local storage backend, got %s", shared.ErrInvalidConfig, p.store.Name())
	}

	transformer, err := r.newTransformer(p, cmd.String("strategy"))
	if err != nil {
		return err
	}

	dir := local.Path(r.config.Layout.StagingPrefix)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer closeWith(&err, watcher)

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	settle := r.config.Watch.SettleDuration()
	if cmd.IsSet("settle") {
		settle = cmd.Duration("settle")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("watching staging directory", "dir", dir, "settle", settle)
	r.writePlain("%s %s\n", styles.Title("Watching"), dir)

	run := func(ctx context.Context) {
		result, err := transformer.Run(ctx, nil)
		if err != nil {
			r.logger.Error("transformation failed", "error", err)
			r.writePlain("%s %v\n", styles.Err("✗"), err)
			return
		}
		r.printTransform(result)
		r.pushMetrics(ctx, p)
	}

	return watchLoop(ctx, watcher.Events, watcher.Errors, r.config.Layout.RawSuffix, settle, run, r.logger)
}

// watchLoop calls run once events for files ending in suffix have stopped arriving for settle.
//
// Events that arrive while run is executing schedule another run. The loop ends when ctx is done or either
// channel is closed.
func watchLoop(
	ctx context.Context, events <-chan fsnotify.Event, errs <-chan error,
	suffix string, settle time.Duration, run func(context.Context), logger *log.Logger,
) error {
	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, suffix) {
				continue
			}
			logger.Debug("staged object changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(settle)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		case <-timer.C:
			run(ctx)
		}
	}
}
