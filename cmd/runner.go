package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stash/internal/auth"
	"github.com/desertthunder/stash/internal/shared"
	"github.com/desertthunder/stash/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	preloaded  bool
	httpClient *http.Client
	logger     *log.Logger
	ownLogger  bool
	output     io.Writer
	prompts    io.Writer
	opener     auth.Opener
	prompter   *ui.Prompter
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config is used as given: the config file and environment are not read.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer // Command results
	Prompts    io.Writer // Authorize URL, prompts and progress; writes are serialized
	Input      io.Reader
	Opener     auth.Opener
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	preloaded := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	ownLogger := opts.Logger == nil
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Prompts == nil {
		opts.Prompts = os.Stderr
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Opener == nil {
		opts.Opener = shared.OpenBrowser
	}

	prompts := &syncWriter{w: opts.Prompts}
	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		preloaded:  preloaded,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		ownLogger:  ownLogger,
		output:     opts.Output,
		prompts:    prompts,
		opener:     opts.Opener,
		prompter:   ui.NewPrompter(opts.Input, prompts),
	}
}

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "stash",
		Usage:   "Copy your Spotify saved tracks into a playlist",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with STASH_* variables",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug output",
			},
		},
		Before:   r.configure,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, tracksCommand, playlistsCommand, copyCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config file, the .env file and the environment before any command runs.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if !r.preloaded {
		r.configPath = cmd.String("config")
		config, err := loadConfig(r.configPath, cmd.String("env-file"), r.logger)
		if err != nil {
			return ctx, err
		}
		r.config = config

		if r.ownLogger {
			r.logger = shared.NewConfiguredLogger(config.Log)
		}
	}

	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// loadConfig reads path when it exists and falls back to the defaults otherwise.
// Environment variables, including those from envFile, override the file.
func loadConfig(path, envFile string, logger *log.Logger) (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
	} else {
		logger.Debug("config file not found, using defaults", "path", path)
	}

	if err := shared.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	config.ApplyEnv()
	return config, nil
}

// client returns the injected HTTP client, or one using the configured timeout.
func (r *Runner) client() *http.Client {
	if r.httpClient != nil {
		return r.httpClient
	}
	return &http.Client{Timeout: r.config.HTTP.Timeout}
}

// syncWriter lets the copy progress printer and the prompter share one terminal.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", ui.Styles.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
