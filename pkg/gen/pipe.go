package gen

import (
	"io"
	"sync"
)

// Pipe is a bounded in-memory Stream fed by a producer goroutine. The driver
// goroutines in this package write backend chunks into a Pipe; a full pipe
// blocks the producer so a slow consumer exerts backpressure instead of
// buffering the whole generation.
//
// Pipe is also the building block for scripted test clients.
type Pipe struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf  []string
	max  int
	term error // non-nil once no more chunks will arrive
	dead bool  // reader closed; producer writes are rejected
}

// NewPipe creates a pipe holding at most n pending chunks.
func NewPipe(n int) *Pipe {
	if n < 1 {
		n = 1
	}
	p := &Pipe{max: n}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Send queues one chunk, blocking while the pipe is full. It fails once the
// reader has closed the stream or the pipe was finished.
func (p *Pipe) Send(chunk string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.buf) >= p.max && p.term == nil && !p.dead {
		p.cond.Wait()
	}
	if p.dead {
		return io.ErrClosedPipe
	}
	if p.term != nil {
		return io.ErrClosedPipe
	}
	p.buf = append(p.buf, chunk)
	p.cond.Broadcast()
	return nil
}

// CloseSend marks a successful end of stream. Buffered chunks remain
// readable; Next returns ErrDone once they are drained.
func (p *Pipe) CloseSend() {
	p.finish(ErrDone, false)
}

// Abort terminates the stream with err. Buffered chunks are dropped: a
// terminal error supersedes any partial text still queued.
func (p *Pipe) Abort(err error) {
	if err == nil {
		err = io.ErrClosedPipe
	}
	p.finish(err, true)
}

func (p *Pipe) finish(err error, drop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.term != nil {
		return
	}
	p.term = err
	if drop {
		p.buf = nil
	}
	p.cond.Broadcast()
}

// Next implements Stream.
func (p *Pipe) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.buf) == 0 && p.term == nil && !p.dead {
		p.cond.Wait()
	}
	if len(p.buf) > 0 && !p.dead {
		chunk := p.buf[0]
		p.buf = p.buf[1:]
		p.cond.Broadcast()
		return chunk, nil
	}
	if p.dead && p.term == nil {
		return "", io.ErrClosedPipe
	}
	return "", p.term
}

// Close implements Stream. It releases the producer; in-flight generation is
// allowed to finish and its output is discarded.
func (p *Pipe) Close() error {
	return p.CloseWithError(nil)
}

// CloseWithError implements Stream.
func (p *Pipe) CloseWithError(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead {
		return nil
	}
	p.dead = true
	if err != nil && p.term == nil {
		p.term = err
	}
	p.buf = nil
	p.cond.Broadcast()
	return nil
}

var _ Stream = (*Pipe)(nil)
