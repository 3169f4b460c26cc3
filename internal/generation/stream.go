package generation

import (
	"errors"
	"io"
	"strings"

	"github.com/HerbHall/narracode/pkg/llm"
)

// ChunkFunc observes streamed text as it arrives. Returning an error aborts
// the generation.
type ChunkFunc func(chunk string) error

// collect drains stream and returns the in-order concatenation of every
// non-empty chunk, together with the number of malformed chunks skipped.
// Each accepted chunk is passed to onChunk (if non-nil) before the next one
// is received.
func collect(stream llm.Stream, onChunk ChunkFunc) (string, int, error) {
	var (
		sb      strings.Builder
		skipped int
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), skipped, nil
		}
		if llm.IsMalformedChunk(err) {
			skipped++
			continue
		}
		if err != nil {
			return "", skipped, err
		}
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return "", skipped, err
			}
		}
	}
}
