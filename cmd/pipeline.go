package main

import (
	"context"

	"github.com/desertthunder/spotetl/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Ingest fetches the configured playlist and stages the raw document.
func (r *Runner) Ingest(ctx context.Context, cmd *cli.Command) (err error) {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	p, err := r.openPipeline(ctx, false)
	if err != nil {
		return err
	}
	defer closeWith(&err, p)
	defer r.pushMetrics(ctx, p)

	ingester, err := r.newIngester(p)
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")

	var result *tasks.IngestResult
	if asJSON {
		result, err = ingester.Run(ctx, nil)
	} else {
		r.writePlain("%s\n\n", styles.Title("Ingesting playlist"))
		progress, wait := r.follow()
		result, err = ingester.Run(ctx, progress)
		wait()
	}

	if err != nil {
		r.logger.Error("ingestion failed", "error", err)
		return err
	}

	if asJSON {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.printIngest(result)
	return nil
}

// Transform flattens every staged raw document into CSV datasets and archives the raw objects.
func (r *Runner) Transform(ctx context.Context, cmd *cli.Command) (err error) {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	p, err := r.openPipeline(ctx, false)
	if err != nil {
		return err
	}
	defer closeWith(&err, p)
	defer r.pushMetrics(ctx, p)

	transformer, err := r.newTransformer(p, cmd.String("strategy"))
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")

	var result *tasks.TransformResult
	if asJSON {
		result, err = transformer.Run(ctx, nil)
	} else {
		r.writePlain("%s\n\n", styles.Title("Transforming staged documents"))
		progress, wait := r.follow()
		result, err = transformer.Run(ctx, progress)
		wait()
	}

	if err != nil {
		r.logger.Error("transformation failed", "error", err)
		return err
	}

	if asJSON {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.printTransform(result)
	return nil
}

func (r *Runner) printIngest(result *tasks.IngestResult) {
	r.writePlainln("%s", styles.OK("Ingestion complete"))
	r.writePlain("Staged:  %s\n", result.Key)
	r.writePlain("Items:   %d\n", result.Items)
	r.writePlain("Size:    %d bytes\n", result.Bytes)
	if result.RunID != "" {
		r.writePlain("%s\n", styles.Help("run "+result.RunID))
	}
}

func (r *Runner) printTransform(result *tasks.TransformResult) {
	if result.Empty() {
		r.writePlainln("%s", styles.Warn("Nothing staged, no datasets written"))
		return
	}

	r.writePlainln("%s", styles.OK("Transformation complete"))
	r.writePlain("Consumed: %d raw objects\n", len(result.Consumed))
	r.writePlain("Songs:    %d rows → %s\n", result.Songs, result.SongsKey)
	r.writePlain("Albums:   %d rows → %s\n", result.Albums, result.AlbumsKey)
	r.writePlain("Artists:  %d rows → %s\n", result.Artists, result.ArtistsKey)
	if result.RunID != "" {
		r.writePlain("%s\n", styles.Help("run "+result.RunID))
	}
}
