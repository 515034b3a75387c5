package seeker_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/sagecouncil/council/pkg/kv"
	"github.com/sagecouncil/council/pkg/seeker"
)

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	t.Cleanup(func() { mem.Close() })
	cache := seeker.NewCache(mem)

	if _, ok, err := cache.Credits(ctx, "s"); err != nil || ok {
		t.Fatalf("fresh credits = ok=%v err=%v", ok, err)
	}
	if err := cache.SaveCredits(ctx, "s", 7); err != nil {
		t.Fatal(err)
	}
	credits, ok, err := cache.Credits(ctx, "s")
	if err != nil || !ok || credits != 7 {
		t.Fatalf("credits = %d ok=%v err=%v", credits, ok, err)
	}

	for i, q := range []string{"first", "second"} {
		cons := &seeker.Consultation{
			ID:       int64(100 + i),
			Question: q,
			Sages:    []string{"buddha"},
			Answers: map[string]*seeker.Answer{
				"buddha": {SageID: "buddha", Text: "om", Status: seeker.StatusSettled},
			},
			Done: true,
		}
		if err := cache.SaveConsultation(ctx, "s", cons); err != nil {
			t.Fatal(err)
		}
	}

	hist, err := cache.Consultations(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 || hist[0].Question != "first" || hist[1].Question != "second" {
		t.Fatalf("history = %+v", hist)
	}
	if hist[0].Answers["buddha"].Text != "om" {
		t.Fatalf("answers lost: %+v", hist[0].Answers)
	}

	// Other sessions see nothing.
	other, err := cache.Consultations(ctx, "t")
	if err != nil || len(other) != 0 {
		t.Fatalf("foreign session history = %+v (%v)", other, err)
	}
}

func TestClientWritesCache(t *testing.T) {
	srv := httptest.NewServer(newGateway(t))
	t.Cleanup(srv.Close)
	ctx := context.Background()

	mem := kv.NewMemory()
	t.Cleanup(func() { mem.Close() })

	c := seeker.NewClient(srv.URL)
	t.Cleanup(func() { c.Close() })
	c.Cache = seeker.NewCache(mem)
	if _, err := c.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Ask(ctx, "q", []string{"buddha"}); err != nil {
		t.Fatal(err)
	}

	hist, err := c.Cache.Consultations(ctx, c.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 || hist[0].Answers["buddha"].Text != "Sit. Breathe. Observe." {
		t.Fatalf("cached history = %+v", hist)
	}
	credits, ok, err := c.Cache.Credits(ctx, c.SessionID)
	if err != nil || !ok {
		t.Fatal(err)
	}
	if credits != c.Reducer.Credits() {
		t.Fatalf("cached credits = %d, reducer has %d", credits, c.Reducer.Credits())
	}
}
