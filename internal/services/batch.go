package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/stash/internal/shared"
)

// MaxChunkSize is the most ids the playlist write endpoint accepts per request.
const MaxChunkSize = 100

// Chunk splits ids into consecutive slices of at most n. Joining the chunks gives back ids.
func Chunk(ids []string, n int) [][]string {
	if n <= 0 || len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+n-1)/n)
	for start := 0; start < len(ids); start += n {
		end := min(start+n, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// ExpandEndpoint substitutes id into the first "{id}" placeholder of template.
func ExpandEndpoint(template, id string) string {
	return strings.Replace(template, "{id}", id, 1)
}

// WriteAll posts ids to endpoint in chunks of chunkSize, one request at a time.
//
// A failed chunk stops the write; earlier chunks stay applied.
func (c *Client) WriteAll(ctx context.Context, endpoint string, ids []string, chunkSize int) error {
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		return fmt.Errorf("%s: %w: chunk size must be within 1..%d, got %d",
			shared.StageWrite, shared.ErrInvalidArgument, MaxChunkSize, chunkSize)
	}

	chunks := Chunk(ids, chunkSize)
	for i, chunk := range chunks {
		if _, err := c.PostJSON(ctx, shared.StageWrite, endpoint, chunk); err != nil {
			return fmt.Errorf("write chunk %d/%d: %w", i+1, len(chunks), err)
		}
		c.logger.Debug("wrote chunk", "endpoint", endpoint, "chunk", i+1, "of", len(chunks), "size", len(chunk))
	}
	return nil
}
