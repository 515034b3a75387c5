package kv_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/sagecouncil/council/pkg/kv"
)

// newTestStore returns a fresh store. Tests run against Memory; the badger
// test below re-runs the same logic on the real engine.
func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	s := kv.NewMemory()
	t.Cleanup(func() { s.Close() })
	return s
}

func testGetSetDelete(t *testing.T, s kv.Store) {
	ctx := context.Background()
	key := kv.Key{"user", "abc-123"}

	if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get absent = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, key, []byte("one")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil || string(got) != "one" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	if err := s.Set(ctx, key, []byte("two")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, _ = s.Get(ctx, key)
	if string(got) != "two" {
		t.Fatalf("Get after overwrite = %q", got)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, kv.Key{"never", "set"}); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}

func testList(t *testing.T, s kv.Store) {
	ctx := context.Background()
	seed := map[string]kv.Key{
		"a": {"msg", "s1", "001"},
		"b": {"msg", "s1", "002"},
		"c": {"msg", "s2", "001"},
		"d": {"user", "s1"},
	}
	for v, k := range seed {
		if err := s.Set(ctx, k, []byte(v)); err != nil {
			t.Fatalf("Set %v: %v", k, err)
		}
	}

	var got []string
	for e, err := range s.List(ctx, kv.Key{"msg", "s1"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		got = append(got, e.Key.String()+"="+string(e.Value))
	}
	want := []string{"msg/s1/001=a", "msg/s1/002=b"}
	if !slices.Equal(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}

	// Prefix must not match sibling keys sharing a string prefix.
	if err := s.Set(ctx, kv.Key{"msg", "s10", "001"}, []byte("x")); err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, err := range s.List(ctx, kv.Key{"msg", "s1"}) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		n++
	}
	if n != 2 {
		t.Fatalf("List after sibling insert: %d entries, want 2", n)
	}
}

func TestMemory(t *testing.T) {
	t.Run("GetSetDelete", func(t *testing.T) { testGetSetDelete(t, newTestStore(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newTestStore(t)) })
}

func TestBadgerInMemory(t *testing.T) {
	newBadger := func(t *testing.T) kv.Store {
		t.Helper()
		s, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
		if err != nil {
			t.Fatalf("NewBadger: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	}
	t.Run("GetSetDelete", func(t *testing.T) { testGetSetDelete(t, newBadger(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newBadger(t)) })
}
