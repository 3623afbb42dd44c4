package main

import (
	"context"

	"github.com/desertthunder/stash/internal/auth"
	"github.com/desertthunder/stash/internal/formatter"
	"github.com/desertthunder/stash/internal/services"
	"github.com/urfave/cli/v3"
)

// spotify authenticates and returns a service bound to the resulting access token, along with the tokens.
func (r *Runner) spotify(ctx context.Context) (*services.SpotifyService, *auth.TokenSet, error) {
	tokens, err := r.authenticate(ctx)
	if err != nil {
		return nil, nil, err
	}

	client, err := services.NewClient(services.ClientOpts{
		BaseURL:           r.config.Credentials.Spotify.APIURL,
		HTTPClient:        r.client(),
		Token:             tokens.OAuth2(),
		Logger:            r.logger,
		RequestsPerSecond: r.config.HTTP.RequestsPerSecond,
		Retry:             r.config.HTTP.Retry(),
	})
	if err != nil {
		return nil, nil, err
	}

	return services.NewSpotifyService(client, r.config.HTTP.PageSize, r.config.HTTP.ChunkSize, r.logger), tokens, nil
}

// Tracks exports every saved track in the requested format.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	output := cmd.String("output")

	// Reject an unknown format before sending the user through the browser.
	if _, err := formatter.Export(format, nil); err != nil {
		return err
	}

	svc, _, err := r.spotify(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("fetching saved tracks")
	tracks, err := svc.SavedTracks(ctx)
	if err != nil {
		return err
	}

	if err := formatter.WriteExport(r.output, format, tracks, output); err != nil {
		return err
	}
	if output != "" {
		r.logger.Info("tracks exported", "file", output, "count", len(tracks), "format", format)
	}
	return nil
}

// Playlists lists the user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	svc, _, err := r.spotify(ctx)
	if err != nil {
		return err
	}

	playlists, err := svc.Playlists(ctx)
	if err != nil {
		return err
	}

	if !cmd.Bool("json") {
		r.writePlain("Found %d playlists:\n\n", len(playlists))
	}
	return formatter.WritePlaylists(r.output, playlists, cmd.Bool("json"))
}
