package council

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sagecouncil/council/pkg/gen"
	"github.com/sagecouncil/council/pkg/ledger"
	"github.com/sagecouncil/council/pkg/sage"
	"github.com/sagecouncil/council/pkg/store"
)

// Orchestrator fans one request out to the selected sages and multiplexes
// their responses onto a single event channel.
type Orchestrator struct {
	Registry *sage.Registry
	Client   gen.Client
	Ledger   *ledger.Ledger

	// Store, when set, receives the finished message record once every
	// sage has settled.
	Store *store.Store

	Logger *slog.Logger
}

// New builds an orchestrator over the default sage registry.
func New(client gen.Client, l *ledger.Ledger, st *store.Store) *Orchestrator {
	return &Orchestrator{
		Registry: sage.Default(),
		Client:   client,
		Ledger:   l,
		Store:    st,
		Logger:   slog.Default(),
	}
}

// validate resolves the request's sages and reserves one credit. Any error
// here is request-level: nothing has been dispatched and, except for the
// reservation it reports, nothing has been charged.
func (o *Orchestrator) validate(ctx context.Context, req *Request) (resolved []*sage.Sage, unknown []string, err error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, nil, ErrEmptyContent
	}
	resolved, unknown = o.Registry.Resolve(req.SageIDs)
	if len(resolved) == 0 {
		return nil, nil, ErrNoValidSages
	}
	if err := o.Ledger.Reserve(ctx, req.SessionID); err != nil {
		return nil, nil, err
	}
	return resolved, unknown, nil
}

// Start validates the request, reserves one credit, and launches generation.
// The returned channel carries interleaved events for all sages and is
// closed once every sage has settled and the credit has been reconciled.
//
// Errors are returned only for request-level failures (empty content, no
// valid sages, unknown session, insufficient credit); in that case nothing
// was charged. After a nil return the request is accepted and any per-sage
// trouble surfaces as placeholder completions on the channel.
func (o *Orchestrator) Start(ctx context.Context, req *Request) (<-chan Event, error) {
	resolved, unknown, err := o.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	events := make(chan Event, 16)
	go o.run(ctx, req, resolved, unknown, events)
	return events, nil
}

func (o *Orchestrator) run(ctx context.Context, req *Request, resolved []*sage.Sage, unknown []string, events chan<- Event) {
	defer close(events)

	emit := func(ev Event) bool {
		ev.RequestID = req.ID
		// Cancellation wins even while the buffer has room.
		select {
		case <-ctx.Done():
			return false
		default:
		}
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for _, id := range unknown {
		emit(Event{Type: EventFailed, SageID: id, Reason: "Sage not found: " + id})
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		responses = make(map[string]string, len(resolved))
		served    int
	)
	for _, s := range resolved {
		wg.Add(1)
		go func(s *sage.Sage) {
			defer wg.Done()
			text, ok := o.generate(ctx, req, s, emit)
			mu.Lock()
			responses[s.ID] = text
			if ok {
				served++
			}
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	// Settlement runs even when the seeker has gone: the credit outcome
	// must not depend on the transport surviving.
	o.settle(context.WithoutCancel(ctx), req, resolved, responses, served)
}

// generate runs one sage's task: stream chunks as they arrive, then emit the
// authoritative completion. Any failure, before or during streaming, settles
// the sage with its placeholder instead.
func (o *Orchestrator) generate(ctx context.Context, req *Request, s *sage.Sage, emit func(Event) bool) (text string, ok bool) {
	log := o.Logger.With("sage", s.ID, "request", req.ID, "session", req.SessionID)

	fail := func(err error) (string, bool) {
		log.Warn("sage failed, sending placeholder", "kind", gen.KindOf(err), "error", err)
		ph := s.Placeholder()
		emit(Event{Type: EventStream, SageID: s.ID, Chunk: ph})
		emit(Event{Type: EventComplete, SageID: s.ID, Response: ph})
		return ph, false
	}

	stream, err := o.Client.GenerateStream(ctx, Prompt(s, req.Content))
	if err != nil {
		return fail(err)
	}
	defer stream.Close()

	// An empty opening chunk tells the seeker the sage has started typing
	// before the first token lands.
	if !emit(Event{Type: EventStream, SageID: s.ID}) {
		return "", false
	}

	start := time.Now()
	var full strings.Builder
	for {
		chunk, err := stream.Next()
		if err == gen.ErrDone {
			break
		}
		if err != nil {
			return fail(err)
		}
		full.WriteString(chunk)
		if !emit(Event{Type: EventStream, SageID: s.ID, Chunk: chunk}) {
			stream.CloseWithError(ctx.Err())
			return "", false
		}
	}
	if full.Len() == 0 {
		return fail(gen.Empty())
	}

	text = full.String()
	log.Debug("sage completed", "chars", len(text), "elapsed", time.Since(start))
	emit(Event{Type: EventComplete, SageID: s.ID, Response: text})
	return text, true
}

// settle reconciles the reservation and persists the finished message.
// Placeholders count as served for billing purposes unless every single
// sage failed, in which case the request produced nothing and the credit
// goes back.
func (o *Orchestrator) settle(ctx context.Context, req *Request, resolved []*sage.Sage, responses map[string]string, served int) {
	log := o.Logger.With("request", req.ID, "session", req.SessionID)
	if served == 0 {
		if err := o.Ledger.Refund(ctx, req.SessionID); err != nil {
			log.Error("refund after total failure", "error", err)
		} else {
			log.Info("all sages failed, credit refunded")
		}
	}
	if o.Store == nil {
		return
	}
	// A consultation abandoned before any sage spoke has neither text nor
	// placeholders; the refund above is the whole outcome, no record kept.
	empty := true
	for _, text := range responses {
		if text != "" {
			empty = false
			break
		}
	}
	if empty {
		log.Info("consultation abandoned before output, nothing persisted")
		return
	}
	ids := make([]string, len(resolved))
	for i, s := range resolved {
		ids[i] = s.ID
	}
	m := &store.Message{
		ID:        req.ID,
		SessionID: req.SessionID,
		Content:   req.Content,
		Sages:     ids,
		Responses: responses,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.Store.PutMessage(ctx, m); err != nil {
		log.Error("persist message", "error", err)
	}
}

// Ask is the synchronous path: it runs the same fan-out but waits for all
// sages and returns only the final responses, keyed by sage id. Credit
// semantics match Start. ErrAllFailed is returned, after the refund, when
// every sage failed; the placeholder map is still returned alongside it.
func (o *Orchestrator) Ask(ctx context.Context, req *Request) (map[string]string, error) {
	resolved, _, err := o.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		responses = make(map[string]string, len(resolved))
		served    int
	)
	for _, s := range resolved {
		wg.Add(1)
		go func(s *sage.Sage) {
			defer wg.Done()
			text, err := o.Client.Generate(ctx, Prompt(s, req.Content))
			ok := err == nil && text != ""
			if !ok {
				o.Logger.Warn("sage failed, sending placeholder",
					"sage", s.ID, "request", req.ID, "kind", gen.KindOf(err), "error", err)
				text = s.Placeholder()
			}
			mu.Lock()
			responses[s.ID] = text
			if ok {
				served++
			}
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	o.settle(context.WithoutCancel(ctx), req, resolved, responses, served)
	if served == 0 {
		return responses, ErrAllFailed
	}
	return responses, nil
}
