package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/stash/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStep struct {
	name  string
	code  Code
	err   error
	calls int
}

func (s *stubStep) Name() string { return s.name }

func (s *stubStep) Capture(context.Context) (Code, error) {
	s.calls++
	return s.code, s.err
}

type stubReader struct {
	line   string
	err    error
	prompt string
}

func (r *stubReader) ReadLine(_ context.Context, prompt string) (string, error) {
	r.prompt = prompt
	return r.line, r.err
}

func TestCapturer(t *testing.T) {
	ctx := context.Background()

	t.Run("first step wins", func(t *testing.T) {
		listener := &stubStep{name: "listener", code: "abc123"}
		manual := &stubStep{name: "manual", code: "other"}

		code, err := NewCapturer(nil, listener, manual).Capture(ctx)
		require.NoError(t, err)
		assert.Equal(t, Code("abc123"), code)
		assert.Equal(t, 0, manual.calls, "fallback must not run after a successful capture")
	})

	t.Run("falls back on network failure", func(t *testing.T) {
		listener := &stubStep{name: "listener", err: shared.ErrConnection}
		manual := &stubStep{name: "manual", code: "XYZ"}

		code, err := NewCapturer(nil, listener, manual).Capture(ctx)
		require.NoError(t, err)
		assert.Equal(t, Code("XYZ"), code)
		assert.Equal(t, 1, listener.calls)
		assert.Equal(t, 1, manual.calls)
	})

	t.Run("all steps failing joins errors", func(t *testing.T) {
		listener := &stubStep{name: "listener", err: shared.ErrBindFailed}
		manual := &stubStep{name: "manual", err: shared.ErrUserAbandoned}

		_, err := NewCapturer(nil, listener, manual).Capture(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrBindFailed)
		assert.ErrorIs(t, err, shared.ErrUserAbandoned)
		assert.Contains(t, err.Error(), shared.StageCapture)
	})

	t.Run("cancelled context stops the chain", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		listener := &stubStep{name: "listener", err: context.Canceled}
		manual := &stubStep{name: "manual", code: "late"}

		_, err := NewCapturer(nil, listener, manual).Capture(cctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, manual.calls)
	})

	t.Run("no steps", func(t *testing.T) {
		_, err := NewCapturer(nil).Capture(ctx)
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})
}

func TestListenerStep(t *testing.T) {
	t.Run("captures the redirect", func(t *testing.T) {
		step := Listen("http://127.0.0.1:0/auth/callback/spotify", 5*time.Second, nil)
		require.NotEmpty(t, step.Addr())

		addr := step.Addr()
		go func() {
			resp, err := http.Get("http://" + addr + "/auth/callback/spotify?code=abc123&state=ignored")
			if err == nil {
				resp.Body.Close()
			}
		}()

		code, err := step.Capture(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Code("abc123"), code)
		assert.Empty(t, step.Addr(), "listener should be released after capture")
	})

	t.Run("only a GET redirect settles", func(t *testing.T) {
		step := Listen("http://127.0.0.1:0/cb", 5*time.Second, nil)
		addr := step.Addr()
		postStatus := make(chan int, 1)
		go func() {
			resp, err := http.Post("http://"+addr+"/cb?code=posted", "text/plain", nil)
			if err != nil {
				postStatus <- 0
				return
			}
			resp.Body.Close()
			postStatus <- resp.StatusCode

			if resp, err := http.Get("http://" + addr + "/cb?code=abc123"); err == nil {
				resp.Body.Close()
			}
		}()

		code, err := step.Capture(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Code("abc123"), code)
		assert.Equal(t, http.StatusMethodNotAllowed, <-postStatus)
	})

	t.Run("provider error", func(t *testing.T) {
		step := Listen("http://127.0.0.1:0/cb", 5*time.Second, nil)
		addr := step.Addr()
		go func() {
			resp, err := http.Get("http://" + addr + "/cb?error=access_denied")
			if err == nil {
				resp.Body.Close()
			}
		}()

		_, err := step.Capture(context.Background())
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
	})

	t.Run("port in use", func(t *testing.T) {
		held, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer held.Close()

		step := Listen("http://"+held.Addr().String()+"/cb", time.Second, nil)
		_, err = step.Capture(context.Background())
		assert.ErrorIs(t, err, shared.ErrBindFailed)
	})

	t.Run("https redirect cannot be served", func(t *testing.T) {
		step := Listen("https://example.com/cb", time.Second, nil)
		_, err := step.Capture(context.Background())
		assert.ErrorIs(t, err, shared.ErrBindFailed)
	})

	t.Run("timeout", func(t *testing.T) {
		step := Listen("http://127.0.0.1:0/cb", 50*time.Millisecond, nil)
		_, err := step.Capture(context.Background())
		assert.ErrorIs(t, err, shared.ErrConnection)
		assert.ErrorIs(t, err, shared.ErrTimeout)
	})

	t.Run("close before capture", func(t *testing.T) {
		step := Listen("http://127.0.0.1:0/cb", time.Second, nil)
		require.NoError(t, step.Close())
		_, err := step.Capture(context.Background())
		assert.ErrorIs(t, err, shared.ErrConnection)
	})
}

func TestListenerThenManual(t *testing.T) {
	held, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer held.Close()

	listener := Listen("http://"+held.Addr().String()+"/cb", time.Second, nil)
	reader := &stubReader{line: "http://127.0.0.1:8888/cb?code=XYZ&state=s"}

	code, err := NewCapturer(nil, listener, NewManualStep(reader)).Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Code("XYZ"), code)
	assert.NotEmpty(t, reader.prompt)
}

func TestManualStep(t *testing.T) {
	t.Run("reader error", func(t *testing.T) {
		step := NewManualStep(&stubReader{err: shared.ErrUserAbandoned})
		_, err := step.Capture(context.Background())
		assert.ErrorIs(t, err, shared.ErrUserAbandoned)
	})

	t.Run("parses pasted URL", func(t *testing.T) {
		step := NewManualStep(&stubReader{line: "  http://localhost/cb?code=q1  \n"})
		code, err := step.Capture(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Code("q1"), code)
	})
}

func TestParseRedirect(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Code
		wantErr error
	}{
		{name: "full URL", raw: "http://127.0.0.1:8888/auth/callback/spotify?code=abc123&state=x", want: "abc123"},
		{name: "query string", raw: "code=abc123&state=x", want: "abc123"},
		{name: "leading question mark", raw: "?code=abc123", want: "abc123"},
		{name: "bare code", raw: "AQBx-7_z.9~", want: "AQBx-7_z.9~"},
		{name: "fragment ignored", raw: "http://localhost/cb?code=abc#frag", want: "abc"},
		{name: "empty", raw: "   ", wantErr: shared.ErrUserInput},
		{name: "provider error", raw: "http://localhost/cb?error=access_denied", wantErr: shared.ErrAuthFailed},
		{name: "no code", raw: "http://localhost/cb?state=x", wantErr: shared.ErrMalformedRedirect},
		{name: "not a code", raw: "hello world", wantErr: shared.ErrMalformedRedirect},
		{name: "bad escape", raw: "code=%zz", wantErr: shared.ErrUserInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedirect(tt.raw)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
