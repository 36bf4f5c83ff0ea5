package watcher

// pump moves events from in to out through an unbounded FIFO buffer so that
// senders on in never wait for the consumer of out. After in is closed the
// buffer is drained into out, then out is closed.
func pump(in <-chan ChangeEvent, out chan<- ChangeEvent) {
	defer close(out)

	var queue []ChangeEvent
	for in != nil || len(queue) > 0 {
		var (
			send chan<- ChangeEvent
			next ChangeEvent
		)
		if len(queue) > 0 {
			send = out
			next = queue[0]
		}

		select {
		case ev, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, ev)
		case send <- next:
			queue[0] = ChangeEvent{}
			queue = queue[1:]
		}
	}
}
