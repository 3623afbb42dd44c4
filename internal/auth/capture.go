package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stash/internal/server"
	"github.com/desertthunder/stash/internal/shared"
)

// Code is an authorization code. It is exchanged once and then discarded.
type Code string

// CaptureStep is one source of an authorization code.
type CaptureStep interface {
	Name() string
	Capture(ctx context.Context) (Code, error)
}

// Capturer tries each step in order and stops at the first that yields a code.
//
// Steps never run concurrently: a step only starts after the previous one has failed.
type Capturer struct {
	steps  []CaptureStep
	logger *log.Logger
}

// NewCapturer creates a fallback chain from steps.
func NewCapturer(logger *log.Logger, steps ...CaptureStep) *Capturer {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Capturer{steps: steps, logger: logger}
}

// Capture walks the chain. When every step fails the returned error joins all of their errors.
func (c *Capturer) Capture(ctx context.Context) (Code, error) {
	if len(c.steps) == 0 {
		return "", fmt.Errorf("%s: %w: no capture steps configured", shared.StageCapture, shared.ErrInvalidConfig)
	}

	var errs []error
	for _, step := range c.steps {
		c.logger.Debug("capture step started", "step", step.Name())

		code, err := step.Capture(ctx)
		if err == nil {
			c.logger.Info("authorization code received", "step", step.Name())
			return code, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", step.Name(), err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			break
		}
		c.logger.Warn("capture step failed", "step", step.Name(), "error", err)
	}

	return "", fmt.Errorf("%s: %w", shared.StageCapture, errors.Join(errs...))
}

// ListenerStep receives the provider's redirect on the host and port of the redirect URI.
//
// The socket is bound by [Listen] so that it is ready before the browser is sent to the provider.
type ListenerStep struct {
	path    string
	timeout time.Duration
	logger  *log.Logger
	ln      net.Listener
	bindErr error
}

// Listen binds the redirect URI's address. A bind failure is kept and reported when the step runs,
// so the chain can move on to the next step.
func Listen(redirectURI string, timeout time.Duration, logger *log.Logger) *ListenerStep {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	s := &ListenerStep{timeout: timeout, logger: logger}

	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		s.bindErr = fmt.Errorf("%w: redirect uri %q is not an absolute URL", shared.ErrBindFailed, redirectURI)
		return s
	}
	if u.Scheme != "http" {
		s.bindErr = fmt.Errorf("%w: cannot serve %s redirects locally", shared.ErrBindFailed, u.Scheme)
		return s
	}

	s.path = u.Path
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "80")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.bindErr = fmt.Errorf("%w: %v", shared.ErrBindFailed, err)
		return s
	}

	s.ln = ln
	logger.Debug("redirect listener bound", "addr", ln.Addr().String())
	return s
}

func (s *ListenerStep) Name() string { return "redirect listener" }

// Addr returns the bound address, or "" when binding failed.
func (s *ListenerStep) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Close releases the socket if the step never ran.
func (s *ListenerStep) Close() error {
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	s.ln = nil
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Capture serves the callback path until the first redirect arrives, the timeout passes or ctx ends.
func (s *ListenerStep) Capture(ctx context.Context) (Code, error) {
	if s.bindErr != nil {
		return "", s.bindErr
	}
	if s.ln == nil {
		return "", fmt.Errorf("%w: listener already closed", shared.ErrConnection)
	}

	handler := server.NewCallbackHandler(s.path)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(s.logger))
	router.Handle(http.MethodGet, handler.Path(), handler)

	ln := s.ln
	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("error shutting down redirect listener", "error", err)
		}
		s.ln = nil
	}()

	var timeout <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case result := <-handler.Result():
		if result.Err != nil {
			return "", result.Err
		}
		return Code(result.Code), nil
	case err := <-serveErr:
		return "", fmt.Errorf("%w: %v", shared.ErrConnection, err)
	case <-timeout:
		return "", fmt.Errorf("%w: %w: no redirect within %s", shared.ErrConnection, shared.ErrTimeout, s.timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// LineReader reads one line of terminal input after showing prompt.
type LineReader interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// ManualStep asks the user to paste the URL their browser was redirected to.
type ManualStep struct {
	reader LineReader
}

// NewManualStep creates a [ManualStep] reading from r.
func NewManualStep(r LineReader) *ManualStep {
	return &ManualStep{reader: r}
}

func (m *ManualStep) Name() string { return "manual entry" }

// Capture prompts once and parses the answer with [ParseRedirect].
func (m *ManualStep) Capture(ctx context.Context) (Code, error) {
	line, err := m.reader.ReadLine(ctx, "Paste the URL you were redirected to:")
	if err != nil {
		return "", err
	}
	return ParseRedirect(line)
}

// ParseRedirect pulls the code out of a pasted redirect. It accepts a full URL, a bare query string
// ("code=...&state=...") or the bare code.
func ParseRedirect(raw string) (Code, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty input", shared.ErrUserInput)
	}

	query, hasQuery := raw, strings.Contains(raw, "=")
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		query, hasQuery = raw[i+1:], true
	}
	if i := strings.IndexByte(query, '#'); i >= 0 {
		query = query[:i]
	}

	if !hasQuery {
		if isBareCode(raw) {
			return Code(raw), nil
		}
		return "", fmt.Errorf("%w: no code parameter in %q", shared.ErrMalformedRedirect, raw)
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrUserInput, err)
	}
	if errParam := values.Get("error"); errParam != "" {
		return "", fmt.Errorf("%w: provider returned %q", shared.ErrAuthFailed, errParam)
	}

	code := values.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: no code parameter in %q", shared.ErrMalformedRedirect, raw)
	}
	return Code(code), nil
}

// isBareCode reports whether s only has characters that appear in provider codes.
func isBareCode(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.', r == '~':
		default:
			return false
		}
	}
	return true
}
