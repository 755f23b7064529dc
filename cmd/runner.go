package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotetl/internal/metrics"
	"github.com/desertthunder/spotetl/internal/repositories"
	"github.com/desertthunder/spotetl/internal/services"
	"github.com/desertthunder/spotetl/internal/shared"
	"github.com/desertthunder/spotetl/internal/storage"
	"github.com/desertthunder/spotetl/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	store      storage.Store
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	lookupEnv  func(string) (string, bool)
	now        tasks.Clock
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Catalog and Store replace the services built from configuration when set.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	Store      storage.Store
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	LookupEnv  func(string) (string, bool)
	Now        tasks.Clock
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		lookupEnv:  opts.LookupEnv,
		now:        opts.Now,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		ingestCommand, transformCommand, serveCommand, watchCommand, setupCommand, runsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the file named by the command's --config flag, falling back to defaults when it does not exist,
// then overlays the environment and applies the log level.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		path = r.configPath
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return err
			}
			r.config = config
			r.configPath = path
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
	}

	r.config.ApplyEnv(r.lookupEnv)
	r.logger.SetLevel(shared.ParseLogLevel(r.config.Log.Level))
	return nil
}

// pipeline bundles what both stages share for one command invocation.
type pipeline struct {
	store   storage.Store
	db      *sql.DB
	runs    tasks.RunStore
	metrics *metrics.Recorder

	// ownsStore is set when the store was opened here rather than injected through [RunnerOpts].
	ownsStore bool
}

// Close releases the run ledger and, when the pipeline opened it, the object store.
func (p *pipeline) Close() error {
	var err error
	if p.db != nil {
		closeWith(&err, p.db)
	}
	if c, ok := p.store.(io.Closer); ok && p.ownsStore {
		closeWith(&err, c)
	}
	return err
}

// openPipeline validates the configuration and opens the object store, the run ledger (when configured) and a
// metrics registry.
func (r *Runner) openPipeline(ctx context.Context, withRuntime bool) (*pipeline, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	p := &pipeline{store: r.store, metrics: metrics.NewRecorder(withRuntime)}
	if p.store == nil {
		store, err := storage.Open(ctx, r.config.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		p.store, p.ownsStore = store, true
	}

	db, err := shared.OpenLedger(r.config.Database)
	if err != nil {
		if cerr := p.Close(); cerr != nil {
			r.logger.Warn("failed to close storage", "error", cerr)
		}
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}
	if db != nil {
		p.db = db
		p.runs = repositories.NewRunRepository(db)
	}

	r.logger.Debug("pipeline ready", "store", p.store.Name(), "ledger", db != nil)
	return p, nil
}

func (r *Runner) newCatalog() (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	c := r.config.Catalog
	return services.NewSpotifyService(services.SpotifyOpts{
		ClientID:          r.config.Credentials.Spotify.ClientID,
		ClientSecret:      r.config.Credentials.Spotify.ClientSecret,
		BaseURL:           c.BaseURL,
		TokenURL:          c.TokenURL,
		PageLimit:         c.PageLimit,
		RequestsPerSecond: c.RequestsPerSecond,
		HTTPClient:        r.httpClient,
	})
}

func (r *Runner) newIngester(p *pipeline) (*tasks.Ingester, error) {
	playlistID, err := services.ParsePlaylistID(r.config.Catalog.PlaylistURL)
	if err != nil {
		return nil, err
	}

	catalog, err := r.newCatalog()
	if err != nil {
		return nil, err
	}

	return tasks.NewIngester(tasks.IngesterOpts{
		Catalog:    catalog,
		Store:      p.store,
		Layout:     r.config.Layout,
		PlaylistID: playlistID,
		ListUser:   r.config.Catalog.ListUser,
		Runs:       p.runs,
		Metrics:    p.metrics,
		Logger:     shared.WithLogger(r.logger, "stage", "ingest"),
		Now:        r.now,
	})
}

// newTransformer builds a [tasks.Transformer]; an empty strategy uses the configured one.
func (r *Runner) newTransformer(p *pipeline, strategy string) (*tasks.Transformer, error) {
	if strategy == "" {
		strategy = r.config.Transform.MergeStrategy
	}

	merge, err := tasks.ParseMergeStrategy(strategy)
	if err != nil {
		return nil, err
	}

	return tasks.NewTransformer(tasks.TransformerOpts{
		Store:    p.store,
		Layout:   r.config.Layout,
		Strategy: merge,
		Runs:     p.runs,
		Metrics:  p.metrics,
		Logger:   shared.WithLogger(r.logger, "stage", "transform"),
		Now:      r.now,
	})
}

// pushMetrics sends the pipeline's metrics to the configured Pushgateway. Failures are logged, not returned.
func (r *Runner) pushMetrics(ctx context.Context, p *pipeline) {
	url := r.config.Metrics.PushgatewayURL
	if url == "" {
		return
	}
	if err := p.metrics.Push(ctx, url, r.config.Metrics.Job); err != nil {
		r.logger.Warn("failed to push metrics", "url", url, "error", err)
		return
	}
	r.logger.Debug("metrics pushed", "url", url, "job", r.config.Metrics.Job)
}

// follow prints progress updates until the returned channel is closed. wait blocks until the last update is written.
func (r *Runner) follow() (progress chan tasks.ProgressUpdate, wait func()) {
	progress = make(chan tasks.ProgressUpdate, 50)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			switch update.Phase {
			case tasks.Authenticate, tasks.FetchTracks, tasks.ListStaged:
				r.writePlain("%s\n", update.Message)
			case tasks.ListPlaylists:
				r.writePlain("%s\n", styles.Help(update.Message))
			default:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	return progress, func() {
		close(progress)
		wg.Wait()
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// closeWith closes c and joins its error into err.
func closeWith(err *error, c io.Closer) {
	if cerr := c.Close(); cerr != nil {
		*err = errors.Join(*err, cerr)
	}
}
