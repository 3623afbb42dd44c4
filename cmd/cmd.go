// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/stash/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default configuration file to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize with Spotify and inspect tokens",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Run the authorization code flow and print the tokens",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "show",
						Usage: "Print tokens unmasked",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "refresh",
				Usage: "Exchange a refresh token for a new access token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "refresh-token",
						Usage: "Refresh token to use (default: credentials.spotify.refresh_token)",
					},
					&cli.BoolFlag{
						Name:  "show",
						Usage: "Print tokens unmasked",
					},
				},
				Action: r.AuthRefresh,
			},
		},
	}
}

// tracksCommand lists saved tracks
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "Export your saved tracks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: " + strings.Join(formatter.Formats, ", "),
				Value:   formatter.FormatJSON,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: stdout)",
			},
		},
		Action: r.Tracks,
	}
}

// playlistsCommand lists the user's playlists
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.Playlists,
	}
}

// copyCommand copies saved tracks into a playlist
func copyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "copy",
		Usage: "Copy saved tracks into one of your playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Target playlist ID (prompted for when omitted)",
			},
			&cli.StringFlag{
				Name:  "since",
				Usage: "Only tracks saved on or after this date (YYYY-MM-DD or RFC 3339)",
			},
			&cli.BoolFlag{
				Name:  "skip-local",
				Usage: "Leave out local files",
			},
			&cli.BoolFlag{
				Name:  "dedupe",
				Usage: "Drop tracks that repeat an ISRC or URI",
			},
			&cli.IntFlag{
				Name:  "max",
				Usage: "Copy at most this many tracks (0 for all)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show what would be copied without writing",
			},
		},
		Action: r.Copy,
	}
}

// historyCommand lists recorded copy runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded copy runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only runs with this status (running, succeeded, failed, dry_run)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.History,
	}
}
