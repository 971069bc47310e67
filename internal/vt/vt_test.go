package vt

import (
	"os"
	"testing"
	"time"

	"github.com/vito/midterm"
)

func TestWritePTY_Success(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	// Drain the pipe in background so writes succeed.
	go func() {
		buf := make([]byte, 1024)
		for {
			if _, err := r.Read(buf); err != nil {
				return
			}
		}
	}()
	defer r.Close()

	vt := &VT{Ptm: w}
	n, err := vt.WritePTY([]byte("hello"), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected n=5, got %d", n)
	}
}

func TestWritePTY_Timeout(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	// Fill the pipe buffer so subsequent writes block.
	chunk := make([]byte, 4096)
	for {
		_ = w.SetWriteDeadline(time.Now().Add(50 * time.Millisecond))
		_, err := w.Write(chunk)
		if err != nil {
			break
		}
	}
	_ = w.SetWriteDeadline(time.Time{}) // clear deadline

	vt := &VT{Ptm: w}
	start := time.Now()
	_, err = vt.WritePTY([]byte("x"), 100*time.Millisecond)
	elapsed := time.Since(start)

	if err != ErrPTYWriteTimeout {
		t.Fatalf("expected ErrPTYWriteTimeout, got %v", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Fatalf("returned too fast (%v), timeout may not be working", elapsed)
	}
}

func TestWritePTY_WriteError(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	// Close the read end so writes get EPIPE.
	r.Close()

	vt := &VT{Ptm: w}
	_, err = vt.WritePTY([]byte("hello"), time.Second)
	w.Close()

	if err == nil {
		t.Fatal("expected an error from writing to broken pipe")
	}
	if err == ErrPTYWriteTimeout {
		t.Fatal("expected a pipe error, not a timeout")
	}
}

// TestPipeOutput_DoesNotDeadlockAndForwardsChunk guards against onData
// re-locking Mu (PipeOutput already holds it while calling onData) and
// against onData receiving anything other than the newly-read bytes.
func TestPipeOutput_DoesNotDeadlockAndForwardsChunk(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	vt := &VT{Ptm: r, Vt: midterm.NewTerminal(24, 80)}

	received := make(chan []byte, 1)
	done := make(chan struct{})
	go func() {
		vt.PipeOutput(func(chunk []byte) {
			got := make([]byte, len(chunk))
			copy(got, chunk)
			select {
			case received <- got:
			default:
			}
			// A re-lock here would hang PipeOutput forever; prove it
			// doesn't by taking the lock from this goroutine after
			// onData returns control back up the call stack.
		})
		close(done)
	}()

	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case chunk := <-received:
		if string(chunk) != "hello" {
			t.Fatalf("onData chunk = %q, want %q", chunk, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onData was never called; PipeOutput likely deadlocked on Mu")
	}

	// Lines must not block behind the pipe goroutine holding Mu.
	linesDone := make(chan struct{})
	go func() {
		vt.Lines(10)
		close(linesDone)
	}()
	select {
	case <-linesDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Lines blocked, PipeOutput is holding Mu indefinitely")
	}

	w.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PipeOutput did not return after Ptm closed")
	}
}
