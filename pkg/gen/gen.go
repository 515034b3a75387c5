// Package gen wraps the hosted text-generation backends behind a small
// capability-based interface: a one-shot Generate and a chunked
// GenerateStream. The orchestrator stays agnostic to which backend serves a
// request; backend-specific failure signals are normalized into the Error
// taxonomy in this package.
package gen

import "context"

// Client is a text-generation backend.
type Client interface {
	// Generate produces the complete text for prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream produces the text incrementally. The returned stream is
	// finite and not restartable. Chunk boundaries are backend-defined and
	// carry no meaning; callers must append chunks in order.
	GenerateStream(ctx context.Context, prompt string) (Stream, error)
}

// Stream yields text chunks in generation order. Next returns ErrDone after
// the final chunk of a successful generation, or a terminal *Error.
type Stream interface {
	Next() (string, error)
	Close() error
	CloseWithError(error) error
}

// Collect drains a stream into the full text. On error the chunks consumed
// so far are returned alongside it.
func Collect(s Stream) (string, error) {
	var out []byte
	for {
		chunk, err := s.Next()
		if err != nil {
			if err == ErrDone {
				return string(out), nil
			}
			return string(out), err
		}
		out = append(out, chunk...)
	}
}
