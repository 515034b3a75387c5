// Package council is the fan-out orchestrator at the heart of the service.
// One request carries a seeker's question to several sages at once; each
// sage's answer is generated independently and streamed back interleaved,
// tagged by sage id. A sage failing never takes its siblings down: the
// seeker sees a fixed placeholder for that sage instead. Credit is reserved
// when a request is accepted and refunded only if every sage failed.
package council

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sagecouncil/council/pkg/sage"
)

// Request-level failures. These are the only errors surfaced to the seeker
// as such; per-sage failures degrade to placeholders instead.
var (
	ErrEmptyContent = errors.New("council: question is empty")
	ErrNoValidSages = errors.New("council: no valid sages selected")

	// ErrAllFailed reports that every resolved sage failed at the backend.
	// The reservation has already been refunded when this is returned.
	ErrAllFailed = errors.New("council: all sages failed to respond")
)

// Request is one submission. Consumed exactly once; a resend is a new
// Request with a new ID.
type Request struct {
	ID        int64
	SessionID string
	Content   string
	SageIDs   []string
}

// NewRequestID returns a time-based request id, unique enough to dedupe
// within a session.
func NewRequestID() int64 {
	return time.Now().UnixMilli()
}

// EventType discriminates orchestrator events.
type EventType int

const (
	// EventStream carries one incremental chunk for a sage.
	EventStream EventType = iota

	// EventComplete carries a sage's authoritative full text. Consumers
	// replace, not append: the payload guards against any gap between
	// streamed chunks and the final text.
	EventComplete

	// EventFailed reports a sage that never became a task, e.g. an unknown
	// id. Task-level backend failures do not produce EventFailed; they
	// complete with the placeholder text.
	EventFailed
)

// Event is one orchestrator emission, tagged by request and sage.
type Event struct {
	RequestID int64
	Type      EventType
	SageID    string
	Chunk     string
	Response  string
	Reason    string
}

// Prompt assembles the full generation instruction for one sage: persona
// preamble, the seeker's question, and the length/safety constraint.
func Prompt(s *sage.Sage, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s.\n", s.Name, s.Title)
	b.WriteString(s.Prompt)
	b.WriteString("\n\nSeeker's question: ")
	b.WriteString(question)
	b.WriteString("\n\nPlease provide wisdom and guidance according to your spiritual tradition and perspective.\n")
	b.WriteString("Keep the response respectful, focused, and within safe content guidelines.\n")
	b.WriteString("Limit the response to 2-3 paragraphs maximum.")
	return b.String()
}
