package ws

import (
	"context"
	"log"

	"github.com/livedev/devserver/internal/watcher"
)

// Broadcaster is the single consumer of the watcher's event stream. It encodes
// each change once and fans the bytes out through the hub.
type Broadcaster struct {
	hub     *Hub
	verbose bool
}

func NewBroadcaster(hub *Hub, verbose bool) *Broadcaster {
	return &Broadcaster{hub: hub, verbose: verbose}
}

// Run publishes events until the channel is closed and drained or ctx ends.
func (b *Broadcaster) Run(ctx context.Context, events <-chan watcher.ChangeEvent) {
	log.Println("Broadcaster started")
	defer log.Println("Broadcaster stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.Publish(ev)
		}
	}
}

// Publish sends one change to every connected client and returns the number
// of clients that accepted it.
func (b *Broadcaster) Publish(ev watcher.ChangeEvent) int {
	msg := NewPushMessage(ev)
	data, err := Encode(msg)
	if err != nil {
		log.Printf("broadcast encode error: %v", err)
		return 0
	}

	n := b.hub.Broadcast(data)
	if b.verbose {
		log.Printf("broadcast %s %s to %d clients", msg.Type, msg.Body, n)
	}
	return n
}
