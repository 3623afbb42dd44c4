package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/stash/internal/services"
	"github.com/desertthunder/stash/internal/shared"
)

// Prompter asks questions on a terminal, one line per answer.
//
// One goroutine owns the input for the Prompter's lifetime, so a ReadLine abandoned through its context
// leaves the pending line for the next call.
type Prompter struct {
	in      *bufio.Reader
	out     io.Writer
	palette *Palette

	start sync.Once
	lines chan lineResult
}

// NewPrompter creates a [Prompter] reading from in and writing prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if out == nil {
		out = io.Discard
	}
	return &Prompter{in: bufio.NewReader(in), out: out, palette: Styles, lines: make(chan lineResult, 1)}
}

type lineResult struct {
	line string
	err  error
}

// read delivers lines until the input fails, then closes the channel.
func (p *Prompter) read() {
	defer close(p.lines)
	for {
		line, err := p.in.ReadString('\n')
		p.lines <- lineResult{line: line, err: err}
		if err != nil {
			return
		}
	}
}

// ReadLine shows prompt and returns the next line without its line ending.
//
// Input closed before any data is [shared.ErrUserAbandoned], and so is every call after the input ended.
// A final line without a newline is still returned.
func (p *Prompter) ReadLine(ctx context.Context, prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprintln(p.out, p.palette.Title(prompt))
	}

	p.start.Do(func() { go p.read() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-p.lines:
		if !ok {
			return "", shared.ErrUserAbandoned
		}
		line := strings.TrimRight(r.line, "\r\n")
		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				if line == "" {
					return "", shared.ErrUserAbandoned
				}
				return line, nil
			}
			return "", fmt.Errorf("failed to read input: %w", r.err)
		}
		return line, nil
	}
}

// SelectPlaylist lists playlists with 1-based numbers and returns the one the user picks.
func (p *Prompter) SelectPlaylist(ctx context.Context, playlists []services.Playlist) (*services.Playlist, error) {
	if len(playlists) == 0 {
		return nil, fmt.Errorf("%w: no playlists to choose from", shared.ErrPlaylistNotFound)
	}

	var list strings.Builder
	for i, pl := range playlists {
		fmt.Fprintf(&list, "%3d. %s %s\n", i+1, pl.Name, p.palette.Help(fmt.Sprintf("(%d tracks)", pl.TrackCount)))
	}
	io.WriteString(p.out, list.String())

	line, err := p.ReadLine(ctx, fmt.Sprintf("Select a playlist [1-%d]:", len(playlists)))
	if err != nil {
		return nil, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", shared.ErrUserInput, line)
	}
	if n < 1 || n > len(playlists) {
		return nil, fmt.Errorf("%w: %d is outside 1-%d", shared.ErrUserInput, n, len(playlists))
	}
	return &playlists[n-1], nil
}
