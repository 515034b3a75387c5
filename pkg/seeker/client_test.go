package seeker_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sagecouncil/council/pkg/council"
	"github.com/sagecouncil/council/pkg/gateway"
	"github.com/sagecouncil/council/pkg/gen"
	"github.com/sagecouncil/council/pkg/kv"
	"github.com/sagecouncil/council/pkg/ledger"
	"github.com/sagecouncil/council/pkg/seeker"
	"github.com/sagecouncil/council/pkg/store"
)

func newGateway(t *testing.T) http.Handler {
	t.Helper()
	client := &gen.Scripted{Script: func(prompt string) gen.Take {
		if strings.Contains(prompt, "You are Buddha") {
			return gen.Take{Chunks: []string{"Sit. ", "Breathe. ", "Observe."}}
		}
		return gen.Take{Err: gen.Transient(errors.New("unscripted"))}
	}}
	mem := kv.NewMemory()
	t.Cleanup(func() { mem.Close() })
	st := store.New(mem)
	l := ledger.New(st)
	return gateway.New(council.New(client, l, st), st, l).Handler()
}

func TestClientStreamingConsultation(t *testing.T) {
	srv := httptest.NewServer(newGateway(t))
	t.Cleanup(srv.Close)
	ctx := context.Background()

	c := seeker.NewClient(srv.URL)
	t.Cleanup(func() { c.Close() })
	credits, err := c.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if credits != gateway.DefaultInitialCredits {
		t.Fatalf("credits = %d", credits)
	}

	cons, err := c.Ask(ctx, "How do I begin?", []string{"buddha"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !cons.Done {
		t.Fatal("consultation not done")
	}
	if got := cons.Answers["buddha"].Text; got != "Sit. Breathe. Observe." {
		t.Fatalf("answer = %q", got)
	}
	if c.Reducer.Credits() != credits-1 {
		t.Fatalf("local credits = %d, want %d", c.Reducer.Credits(), credits-1)
	}

	// The server agrees on both the balance and the record.
	if again, err := c.Open(ctx); err != nil || again != credits-1 {
		t.Fatalf("server credits = %d (%v), want %d", again, err, credits-1)
	}
	msgs, err := c.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Responses["buddha"] != "Sit. Breathe. Observe." {
		t.Fatalf("history = %+v", msgs)
	}
}

func TestClientFallsBackWithoutWebSocket(t *testing.T) {
	api := newGateway(t)
	// A deployment where the websocket path is not routed: only the JSON
	// API answers.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			http.NotFound(w, r)
			return
		}
		api.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	ctx := context.Background()

	c := seeker.NewClient(srv.URL)
	if _, err := c.Open(ctx); err != nil {
		t.Fatal(err)
	}
	cons, err := c.Ask(ctx, "How do I begin?", []string{"buddha"})
	if err != nil {
		t.Fatalf("Ask via fallback: %v", err)
	}
	if got := cons.Answers["buddha"].Text; got != "Sit. Breathe. Observe." {
		t.Fatalf("answer = %q", got)
	}
	if cons.Answers["buddha"].Status != seeker.StatusSettled {
		t.Fatal("fallback answer not settled")
	}
}

func TestClientRequestErrorRollsBack(t *testing.T) {
	srv := httptest.NewServer(newGateway(t))
	t.Cleanup(srv.Close)
	ctx := context.Background()

	c := seeker.NewClient(srv.URL)
	t.Cleanup(func() { c.Close() })
	credits, err := c.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Ask(ctx, "q", []string{"socrates", "plato"})
	var reqErr *seeker.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Ask = %v, want RequestError", err)
	}
	if c.Reducer.Credits() != credits {
		t.Fatalf("credits = %d, want rollback to %d", c.Reducer.Credits(), credits)
	}
}

func TestClientPurchase(t *testing.T) {
	srv := httptest.NewServer(newGateway(t))
	t.Cleanup(srv.Close)
	ctx := context.Background()

	c := seeker.NewClient(srv.URL)
	credits, err := c.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	after, err := c.Purchase(ctx, 5)
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if after != credits+5 {
		t.Fatalf("credits = %d, want %d", after, credits+5)
	}
	if c.Reducer.Credits() != after {
		t.Fatalf("reducer out of sync: %d", c.Reducer.Credits())
	}
}
