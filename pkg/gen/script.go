package gen

import (
	"context"
	"strings"
	"time"
)

// Take is one scripted generation outcome.
type Take struct {
	// Chunks are streamed in order; Generate returns their concatenation.
	Chunks []string

	// Err, when set, terminates the generation instead of a clean finish.
	// Chunks (if any) are streamed first, then the stream aborts.
	Err error

	// Delay is inserted before each chunk, to exercise interleaving.
	Delay time.Duration
}

// Text returns the concatenated chunk text.
func (t Take) Text() string {
	return strings.Join(t.Chunks, "")
}

// Scripted is a Client that replays configured outcomes. It is safe for
// concurrent use and intended primarily for testing, the same way kv.Memory
// backs tests for the stores.
type Scripted struct {
	// Script picks the outcome for a prompt. Nil defaults to echoing the
	// prompt back as a single chunk.
	Script func(prompt string) Take
}

var _ Client = (*Scripted)(nil)

func (s *Scripted) take(prompt string) Take {
	if s.Script == nil {
		return Take{Chunks: []string{prompt}}
	}
	return s.Script(prompt)
}

func (s *Scripted) Generate(ctx context.Context, prompt string) (string, error) {
	t := s.take(prompt)
	if t.Delay > 0 {
		select {
		case <-time.After(t.Delay):
		case <-ctx.Done():
			return "", Transient(ctx.Err())
		}
	}
	if t.Err != nil {
		return "", t.Err
	}
	if t.Text() == "" {
		return "", Empty()
	}
	return t.Text(), nil
}

func (s *Scripted) GenerateStream(ctx context.Context, prompt string) (Stream, error) {
	t := s.take(prompt)
	pipe := NewPipe(4)
	go func() {
		for _, chunk := range t.Chunks {
			if t.Delay > 0 {
				select {
				case <-time.After(t.Delay):
				case <-ctx.Done():
					pipe.Abort(Transient(ctx.Err()))
					return
				}
			}
			if err := pipe.Send(chunk); err != nil {
				return
			}
		}
		switch {
		case t.Err != nil:
			pipe.Abort(t.Err)
		case t.Text() == "":
			pipe.Abort(Empty())
		default:
			pipe.CloseSend()
		}
	}()
	return pipe, nil
}
