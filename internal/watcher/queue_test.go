package watcher

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPumpNeverBlocksSender(t *testing.T) {
	in := make(chan ChangeEvent)
	out := make(chan ChangeEvent)
	go pump(in, out)

	// Nobody reads out yet; sends must still complete.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			in <- ChangeEvent{Kind: GenericUpdate, Path: fmt.Sprintf("f%d", i)}
		}
		close(in)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sender blocked on pump")
	}

	var got []string
	for ev := range out {
		got = append(got, ev.Path)
	}
	require.Len(t, got, 500)
	for i, p := range got {
		assert.Equal(t, fmt.Sprintf("f%d", i), p, "FIFO order")
	}
}

func TestPumpClosesOutWhenEmpty(t *testing.T) {
	in := make(chan ChangeEvent)
	out := make(chan ChangeEvent)
	go pump(in, out)
	close(in)

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("out not closed")
	}
}
