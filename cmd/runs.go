package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotetl/internal/models"
	"github.com/desertthunder/spotetl/internal/repositories"
	"github.com/desertthunder/spotetl/internal/shared"
	"github.com/urfave/cli/v3"
)

// runView is the JSON shape of a ledger entry.
type runView struct {
	ID             string     `json:"id"`
	Sequence       int        `json:"sequence"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	ObjectsRead    int        `json:"objects_read"`
	ObjectsWritten int        `json:"objects_written"`
	AlbumRows      int        `json:"album_rows"`
	ArtistRows     int        `json:"artist_rows"`
	SongRows       int        `json:"song_rows"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Objects        []objView  `json:"objects,omitempty"`
}

type objView struct {
	Action string `json:"action"`
	Key    string `json:"key"`
}

func newRunView(run *models.Run) runView {
	c := run.Counts()
	return runView{
		ID:             run.ID(),
		Sequence:       run.Sequence(),
		Kind:           string(run.Kind()),
		Status:         string(run.Status()),
		ObjectsRead:    c.ObjectsRead,
		ObjectsWritten: c.ObjectsWritten,
		AlbumRows:      c.AlbumRows,
		ArtistRows:     c.ArtistRows,
		SongRows:       c.SongRows,
		Error:          run.ErrorMessage(),
		StartedAt:      run.StartedAt(),
		CompletedAt:    run.CompletedAt(),
	}
}

// openRuns opens the ledger for read commands.
func (r *Runner) openRuns(cmd *cli.Command) (*repositories.RunRepository, func() error, error) {
	if err := r.loadConfig(cmd); err != nil {
		return nil, nil, err
	}

	db, err := shared.OpenLedger(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run ledger: %w", err)
	}
	if db == nil {
		return nil, nil, fmt.Errorf("%w: database.path is empty, the run ledger is disabled", shared.ErrMissingConfig)
	}

	return repositories.NewRunRepository(db), db.Close, nil
}

// RunsList prints recent runs, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	repo, closeDB, err := r.openRuns(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	runs, err := repo.List(map[string]any{
		"kind":   cmd.String("kind"),
		"status": cmd.String("status"),
		"limit":  int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		r.writePlain("%s\n", styles.Help("No runs recorded"))
		return nil
	}

	r.writePlain("%s\n", styles.Title(fmt.Sprintf("%-5s %-10s %-10s %-20s %s", "SEQ", "KIND", "STATUS", "STARTED", "ROWS")))
	for _, run := range runs {
		c := run.Counts()
		r.writePlain("%-5d %-10s %-10s %-20s songs=%d albums=%d artists=%d\n",
			run.Sequence(), run.Kind(), run.Status(), run.StartedAt().Local().Format(time.DateTime),
			c.SongRows, c.AlbumRows, c.ArtistRows)
	}
	return nil
}

// RunsShow prints one run and the objects it touched.
func (r *Runner) RunsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	repo, closeDB, err := r.openRuns(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	run, err := repo.Get(id)
	if err != nil {
		return err
	}

	objects, err := repo.Objects(id)
	if err != nil {
		return err
	}

	view := newRunView(run)
	for _, o := range objects {
		view.Objects = append(view.Objects, objView{Action: string(o.Action), Key: o.Key})
	}

	if cmd.Bool("json") {
		return r.writeJSON(view, cmd.Bool("pretty"))
	}

	r.writePlain("%s %s\n", styles.Title(fmt.Sprintf("%s #%d", view.Kind, view.Sequence)), styles.Status(view.Status))
	r.writePlain("ID:       %s\n", view.ID)
	r.writePlain("Started:  %s\n", view.StartedAt.Local().Format(time.DateTime))
	if d := run.Duration(); d > 0 {
		r.writePlain("Duration: %s\n", d.Round(time.Millisecond))
	}
	r.writePlain("Rows:     songs=%d albums=%d artists=%d\n", view.SongRows, view.AlbumRows, view.ArtistRows)
	if view.Error != "" {
		r.writePlain("Error:    %s\n", styles.Err(view.Error))
	}
	for _, o := range view.Objects {
		r.writePlain("   %-8s %s\n", o.Action, o.Key)
	}
	return nil
}
