// submodule cmd contains command definitions
package main

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify2apple/internal/applemusic"
	"github.com/desertthunder/spotify2apple/internal/formatter"
	"github.com/desertthunder/spotify2apple/internal/shared"
	"github.com/urfave/cli/v3"
)

// app returns the root command with global flags and every registered subcommand.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "s2a",
		Usage:   "Query the Apple Music catalog with a signed developer token",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(r.logger, log.DebugLevel)
			}
			return ctx, r.loadConfig(cmd.String("config"))
		},
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, tokenCommand, catalogCommand, cacheCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// setupCommand handles setup operations for the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create config.toml if missing, initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// tokenCommand prints a freshly minted developer token
func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint and print a developer token",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output token and expiry as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Token,
	}
}

func storefrontFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "storefront",
		Aliases: []string{"s"},
		Usage:   "Storefront (country code); defaults to apple_music.storefront",
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "save",
			Usage: "Save API response locally",
		},
	}
}

// catalogCommand handles catalog lookups
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Apple Music catalog lookups",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Fetch a single resource by type and id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "type"},
					&cli.StringArg{Name: "id"},
				},
				Flags:  append([]cli.Flag{storefrontFlag()}, outputFlags()...),
				Action: r.CatalogGet,
			},
			{
				Name:  "related",
				Usage: "Fetch a relationship of a resource",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "type"},
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "relationship"},
				},
				Flags:  append([]cli.Flag{storefrontFlag()}, outputFlags()...),
				Action: r.CatalogRelated,
			},
			{
				Name:  "list",
				Usage: "Fetch several resources of one type by id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "type"},
				},
				Flags: append([]cli.Flag{
					storefrontFlag(),
					&cli.StringSliceFlag{
						Name:     "ids",
						Usage:    "Comma separated resource ids",
						Required: true,
					},
				}, outputFlags()...),
				Action: r.CatalogList,
			},
			{
				Name:  "filter",
				Usage: "Fetch resources matching a filter such as isrc",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "type"},
				},
				Flags: append([]cli.Flag{
					storefrontFlag(),
					&cli.StringFlag{
						Name:  "filter",
						Usage: "Filter name",
						Value: "isrc",
					},
					&cli.StringSliceFlag{
						Name:     "value",
						Usage:    "Comma separated filter values",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "ids",
						Usage: "Additional resource ids",
					},
				}, outputFlags()...),
				Action: r.CatalogFilter,
			},
			{
				Name:  "search",
				Usage: "Search the catalog",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "term"},
				},
				Flags: []cli.Flag{
					storefrontFlag(),
					&cli.StringSliceFlag{
						Name:  "types",
						Usage: "Resource types to search",
						Value: []string{"songs"},
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum results per type",
						Value: applemusic.DefaultSearchLimit,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Result offset for paging",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (text, markdown, csv, json)",
						Value:   formatter.FormatText,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the rendered results to a file",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Cache song results in the local database",
					},
				},
				Action: r.CatalogSearch,
			},
		},
	}
}

// cacheCommand handles the local track cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect cached tracks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "isrc",
						Usage: "Only list tracks with this ISRC",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:  "clear",
				Usage: "Remove a cached track by id",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.CacheClear,
			},
		},
	}
}

// serveCommand runs the local catalog API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve developer tokens and catalog lookups over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host; defaults to server.host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port; defaults to server.port",
			},
		},
		Action: r.Serve,
	}
}
