// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml from the built-in template",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// settingsCommand manages values in the options store.
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Manage stored settings (Last.fm credentials)",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored settings",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include internal keys such as recent_albums",
					},
				},
				Action: r.SettingsList,
			},
			{
				Name:  "get",
				Usage: "Print a stored setting",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
				},
				Action: r.SettingsGet,
			},
			{
				Name:  "set",
				Usage: "Store a setting",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Action: r.SettingsSet,
			},
			{
				Name:  "unset",
				Usage: "Remove a stored setting",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
				},
				Action: r.SettingsUnset,
			},
		},
	}
}

// syncCommand runs sync passes once or on a schedule.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Refresh the recent albums snapshot from Last.fm",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a single sync pass",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the result as JSON",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Do not print progress",
					},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "schedule",
				Usage: "Run sync passes on an interval until interrupted",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Time between passes (default: sync.interval)",
					},
					&cli.BoolFlag{
						Name:  "immediate",
						Usage: "Run a pass before the first tick",
						Value: true,
					},
				},
				Action: r.SyncSchedule,
			},
		},
	}
}

// albumsCommand renders the stored snapshot.
func albumsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "albums",
		Aliases: []string{"ls"},
		Usage:   "Show the stored recent albums",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (html, text, markdown, csv, json)",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "heading",
				Usage: "Widget heading for html output",
			},
			&cli.StringFlag{
				Name:  "export-dir",
				Usage: "Write README.md (and covers) into this directory",
			},
			&cli.BoolFlag{
				Name:  "covers",
				Usage: "Download thumbnails with --export-dir",
			},
			&cli.IntFlag{
				Name:  "cover-size",
				Usage: "Resize downloaded covers to fit this many pixels (JPEG); 0 keeps originals",
			},
		},
		Action: r.Albums,
	}
}

// statusCommand reports recent sync runs.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the last sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of runs to show",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// lastfmCommand issues Last.fm requests directly, for debugging.
func lastfmCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "lastfm",
		Aliases: []string{"fm"},
		Usage:   "Direct Last.fm API calls",
		Commands: []*cli.Command{
			{
				Name:  "recent",
				Usage: "List the user's recent tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user",
						Usage: "Last.fm user (default: stored or configured user)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of tracks",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LastFMRecent,
			},
			{
				Name:  "album",
				Usage: "Look an album up by MBID or by artist and title",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mbid",
						Usage: "MusicBrainz release ID",
					},
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Artist name (default: lastfm.fallback_artist)",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Album title",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LastFMAlbum,
			},
			{
				Name:  "call",
				Usage: "Call any API method and print the raw response",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "method"},
				},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "param",
						Aliases: []string{"p"},
						Usage:   "Request parameter as key=value (repeatable)",
					},
				},
				Action: r.LastFMCall,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for browsing the snapshot.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse the recent albums and trigger syncs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI runs",
				Value: "./tmp/fmx-tui.log",
			},
		},
		Action: r.TUI,
	}
}
