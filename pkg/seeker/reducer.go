// Package seeker is the client side of the council: a state reducer that
// turns the interleaved wire frames into per-sage answer state, and a client
// that speaks the websocket protocol with a synchronous HTTP fallback.
package seeker

import (
	"sync"

	"github.com/sagecouncil/council/pkg/council"
	"github.com/sagecouncil/council/pkg/sage"
)

// Status tracks one answer's lifecycle.
type Status int

const (
	// StatusThinking means the sage was asked but no text has arrived.
	StatusThinking Status = iota
	// StatusStreaming means chunks are arriving.
	StatusStreaming
	// StatusSettled means the answer text is final.
	StatusSettled
)

func (s Status) String() string {
	switch s {
	case StatusThinking:
		return "thinking"
	case StatusStreaming:
		return "streaming"
	case StatusSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Answer is one sage's response as the seeker sees it.
type Answer struct {
	SageID string
	Text   string
	Status Status
}

// Consultation is one question and its fan-out of answers.
type Consultation struct {
	ID       int64
	Question string
	Sages    []string
	Answers  map[string]*Answer
	Done     bool
}

func (c *Consultation) settled() bool {
	for _, id := range c.Sages {
		a := c.Answers[id]
		if a == nil || a.Status != StatusSettled {
			return false
		}
	}
	return true
}

// Reducer folds wire frames into seeker-visible state. Credits are tracked
// optimistically: Begin spends one immediately, and a request that dies
// before producing anything hands it back. All methods are safe for
// concurrent use.
type Reducer struct {
	mu       sync.Mutex
	registry *sage.Registry
	credits  int
	current  *Consultation
	history  []*Consultation
}

// NewReducer builds a reducer with the given starting balance.
func NewReducer(registry *sage.Registry, credits int) *Reducer {
	if registry == nil {
		registry = sage.Default()
	}
	return &Reducer{registry: registry, credits: credits}
}

// Credits returns the optimistic balance.
func (r *Reducer) Credits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.credits
}

// Grant adds credits, e.g. after a confirmed purchase.
func (r *Reducer) Grant(n int) {
	r.mu.Lock()
	r.credits += n
	r.mu.Unlock()
}

// SetCredits replaces the balance with a server-confirmed value.
func (r *Reducer) SetCredits(n int) {
	r.mu.Lock()
	r.credits = n
	r.mu.Unlock()
}

// Begin opens a consultation optimistically: one credit is spent on the
// spot and every selected sage starts in StatusThinking. Any consultation
// still in flight is finalized first as if the connection had dropped.
func (r *Reducer) Begin(id int64, question string, sageIDs []string) *Consultation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && !r.current.Done {
		r.disconnectLocked()
	}
	c := &Consultation{
		ID:       id,
		Question: question,
		Sages:    sageIDs,
		Answers:  make(map[string]*Answer, len(sageIDs)),
	}
	for _, sageID := range sageIDs {
		c.Answers[sageID] = &Answer{SageID: sageID, Status: StatusThinking}
	}
	r.credits--
	r.current = c
	return c
}

// Apply folds one frame into the state and reports whether it was terminal
// for the in-flight consultation. Frames for anything else are ignored; they
// are late arrivals from a request already finalized.
func (r *Reducer) Apply(f council.Frame) (done bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.current
	if c == nil || c.Done || f.MessageID != c.ID {
		return false
	}
	switch f.Type {
	case council.TypeStream:
		a := c.Answers[f.SageID]
		if a == nil || a.Status == StatusSettled {
			return false
		}
		a.Status = StatusStreaming
		a.Text += f.Chunk
	case council.TypeComplete:
		a := c.Answers[f.SageID]
		if a == nil || a.Status == StatusSettled {
			return false
		}
		// The completion text is authoritative; chunks may have gaps.
		a.Text = f.Response
		a.Status = StatusSettled
		if c.settled() {
			r.finishLocked(c)
			return true
		}
	case council.TypeError:
		if f.SageID != "" {
			// Scoped to one sage: settle it with the message and keep
			// the rest of the council going.
			if a := c.Answers[f.SageID]; a != nil && a.Status != StatusSettled {
				a.Text = f.Message
				a.Status = StatusSettled
				if c.settled() {
					r.finishLocked(c)
					return true
				}
			}
			return false
		}
		// Request-level: the submission never happened. Roll the
		// optimistic message and its credit back.
		r.credits++
		r.current = nil
		return true
	}
	return false
}

// Disconnect finalizes the in-flight consultation after the transport died.
// If no sage ever produced text the whole submission rolls back, credit
// included. Otherwise partial answers are kept and the missing sages settle
// on their placeholder.
func (r *Reducer) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectLocked()
}

func (r *Reducer) disconnectLocked() {
	c := r.current
	if c == nil || c.Done {
		return
	}
	any := false
	for _, a := range c.Answers {
		if a.Text != "" {
			any = true
			break
		}
	}
	if !any {
		r.credits++
		r.current = nil
		return
	}
	for _, id := range c.Sages {
		a := c.Answers[id]
		if a.Status == StatusSettled {
			continue
		}
		if a.Text == "" {
			if s := r.registry.Lookup(id); s != nil {
				a.Text = s.Placeholder()
			} else {
				a.Text = "This sage is currently unavailable."
			}
		}
		a.Status = StatusSettled
	}
	r.finishLocked(c)
}

// Complete settles the consultation from a synchronous response map, as
// returned by the HTTP fallback.
func (r *Reducer) Complete(id int64, responses map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.current
	if c == nil || c.Done || c.ID != id {
		return
	}
	for _, sageID := range c.Sages {
		a := c.Answers[sageID]
		if text, ok := responses[sageID]; ok {
			a.Text = text
		} else if a.Text == "" {
			if s := r.registry.Lookup(sageID); s != nil {
				a.Text = s.Placeholder()
			}
		}
		a.Status = StatusSettled
	}
	r.finishLocked(c)
}

// Rollback abandons the in-flight consultation and restores its credit,
// e.g. after the fallback request also failed.
func (r *Reducer) Rollback(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.Done || r.current.ID != id {
		return
	}
	r.credits++
	r.current = nil
}

func (r *Reducer) finishLocked(c *Consultation) {
	c.Done = true
	// Mirror the server's refund rule: a council where every sage came
	// back with its placeholder was never charged.
	if len(c.Sages) > 0 && r.allPlaceholdersLocked(c) {
		r.credits++
	}
	r.history = append(r.history, c)
	if r.current == c {
		r.current = nil
	}
}

func (r *Reducer) allPlaceholdersLocked(c *Consultation) bool {
	for _, id := range c.Sages {
		s := r.registry.Lookup(id)
		a := c.Answers[id]
		if s == nil || a == nil || a.Text != s.Placeholder() {
			return false
		}
	}
	return true
}

// Current returns a snapshot of the in-flight consultation, or nil.
func (r *Reducer) Current() *Consultation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	return r.current.snapshot()
}

// History returns snapshots of the finished consultations, oldest first.
func (r *Reducer) History() []*Consultation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Consultation, len(r.history))
	for i, c := range r.history {
		out[i] = c.snapshot()
	}
	return out
}

func (c *Consultation) snapshot() *Consultation {
	dup := *c
	dup.Answers = make(map[string]*Answer, len(c.Answers))
	for id, a := range c.Answers {
		cp := *a
		dup.Answers[id] = &cp
	}
	return &dup
}
