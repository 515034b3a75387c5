package gen

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestPipeOrderAndDone(t *testing.T) {
	p := NewPipe(2)
	go func() {
		for _, c := range []string{"a", "b", "c", "d"} {
			if err := p.Send(c); err != nil {
				t.Errorf("Send(%q): %v", c, err)
				return
			}
		}
		p.CloseSend()
	}()

	var got string
	for {
		chunk, err := p.Next()
		if err != nil {
			if !errors.Is(err, ErrDone) {
				t.Fatalf("Next: %v", err)
			}
			break
		}
		got += chunk
	}
	if got != "abcd" {
		t.Fatalf("collected %q, want abcd", got)
	}

	// Terminal state is sticky.
	if _, err := p.Next(); !errors.Is(err, ErrDone) {
		t.Fatalf("Next after done = %v, want ErrDone", err)
	}
}

func TestPipeAbortDropsBuffered(t *testing.T) {
	p := NewPipe(4)
	if err := p.Send("partial"); err != nil {
		t.Fatal(err)
	}
	boom := Rejected("nope")
	p.Abort(boom)

	_, err := p.Next()
	var ge *Error
	if !errors.As(err, &ge) || ge.Kind != KindContentRejected {
		t.Fatalf("Next after abort = %v, want content rejection", err)
	}
}

func TestPipeCloseSendKeepsBuffered(t *testing.T) {
	p := NewPipe(4)
	if err := p.Send("tail"); err != nil {
		t.Fatal(err)
	}
	p.CloseSend()

	chunk, err := p.Next()
	if err != nil || chunk != "tail" {
		t.Fatalf("Next = %q, %v; want buffered chunk", chunk, err)
	}
	if _, err := p.Next(); !errors.Is(err, ErrDone) {
		t.Fatalf("Next = %v, want ErrDone", err)
	}
}

func TestPipeReaderCloseUnblocksSender(t *testing.T) {
	p := NewPipe(1)
	if err := p.Send("x"); err != nil {
		t.Fatal(err)
	}

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- p.Send("y") // blocks: pipe full
	}()

	time.Sleep(10 * time.Millisecond)
	p.Close()

	select {
	case err := <-sendErr:
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("Send after Close = %v, want ErrClosedPipe", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send still blocked after reader Close")
	}
}

func TestPipeSendAfterFinishRejected(t *testing.T) {
	p := NewPipe(2)
	p.CloseSend()
	if err := p.Send("late"); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Send after CloseSend = %v, want ErrClosedPipe", err)
	}
}

func TestCollect(t *testing.T) {
	p := NewPipe(8)
	go func() {
		p.Send("hel")
		p.Send("lo")
		p.CloseSend()
	}()
	got, err := Collect(p)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got != "hello" {
		t.Fatalf("Collect = %q", got)
	}
}
