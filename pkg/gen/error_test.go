package gen

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{Rejected("policy"), KindContentRejected},
		{Empty(), KindEmptyResponse},
		{Transient(errors.New("conn reset")), KindTransient},
		{Malformed("no candidates"), KindMalformed},
		{errors.New("plain"), KindTransient},
		{fmt.Errorf("wrapped: %w", Rejected("policy")), KindContentRejected},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorMessageCarriesKind(t *testing.T) {
	err := Rejected("harassment")
	if got := err.Error(); got != "gen: content_rejected: harassment" {
		t.Fatalf("Error() = %q", got)
	}
	if got := Empty().Error(); got != "gen: empty_response" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestScriptedStream(t *testing.T) {
	c := &Scripted{Script: func(prompt string) Take {
		return Take{Chunks: []string{"one ", "two"}}
	}}
	s, err := c.GenerateStream(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	got, err := Collect(s)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got != "one two" {
		t.Fatalf("Collect = %q", got)
	}
}

func TestScriptedFailureAfterChunks(t *testing.T) {
	c := &Scripted{Script: func(string) Take {
		return Take{Chunks: []string{"par", "tial"}, Err: Transient(errors.New("backend down"))}
	}}
	s, err := c.GenerateStream(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	_, err = Collect(s)
	if KindOf(err) != KindTransient {
		t.Fatalf("Collect err = %v, want transient", err)
	}
}
