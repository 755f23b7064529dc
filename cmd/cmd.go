// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func strategyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "strategy",
		Usage: "How rows from several staged documents combine: accumulate or last (default from config)",
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output the result as JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// ingestCommand fetches the configured playlist into the staging area
func ingestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "ingest",
		Usage:  "Fetch the configured playlist and stage its raw JSON",
		Flags:  append([]cli.Flag{configFlag()}, outputFlags()...),
		Action: r.Ingest,
	}
}

// transformCommand flattens staged documents into CSV datasets
func transformCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "transform",
		Usage:  "Flatten staged raw documents into song, album and artist CSVs and archive them",
		Flags:  append([]cli.Flag{configFlag(), strategyFlag()}, outputFlags()...),
		Action: r.Transform,
	}
}

// serveCommand runs the HTTP trigger service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP trigger service (POST /ingest, POST /transform, GET /metrics)",
		Flags: []cli.Flag{
			configFlag(),
			strategyFlag(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (default from config)",
			},
		},
		Action: r.Serve,
	}
}

// watchCommand transforms whenever raw documents land in the local staging directory
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Transform automatically when raw documents are staged (local backend only)",
		Flags: []cli.Flag{
			configFlag(),
			strategyFlag(),
			&cli.DurationFlag{
				Name:  "settle",
				Usage: "Quiet period after the last staged write before transforming (default from config)",
			},
		},
		Action: r.Watch,
	}
}

// setupCommand handles configuration and database initialization
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the configuration file or initialize the run ledger",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Create the run ledger database and apply migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "path",
						Usage: "Database file (default from config)",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// runsCommand inspects the run ledger
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect recorded ingestion and transformation runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs, newest first",
				Flags: append([]cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only runs of this kind (ingest or transform)",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only runs with this status (running, succeeded or failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
				}, outputFlags()...),
				Action: r.RunsList,
			},
			{
				Name:      "show",
				Usage:     "Show one run and the objects it read, wrote and archived",
				ArgsUsage: "<run-id>",
				Flags:     append([]cli.Flag{configFlag()}, outputFlags()...),
				Action:    r.RunsShow,
			},
		},
	}
}
