package logger

import (
	"fmt"
	"sync"
)

// logQueueSize mirrors pymock/controller.py LogWSHandler's
// asyncio.Queue(100): a bounded per-client backlog so one slow websocket
// reader can't pin memory.
const logQueueSize = 100

// Sink is one attached log subscriber (a control-plane /ws/logs connection).
// Messages is never closed; Unsubscribe only stops delivery to it. A full
// channel drops the newest message, counts it, and prints pymock's "queue
// full, dropping log message" warning to the console instead of blocking
// the logger.
type Sink struct {
	Messages chan string

	mu      sync.Mutex
	dropped int
}

func newSink() *Sink {
	return &Sink{Messages: make(chan string, logQueueSize)}
}

// Dropped returns how many messages this sink has dropped due to a full
// queue.
func (s *Sink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Sink) push(line string) {
	select {
	case s.Messages <- line:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		// Printed directly rather than via record, which would broadcast
		// back into the hub whose lock the caller holds.
		fmt.Println(warnStyle.Sprint("[WARN] ") + "log websocket queue full, dropping log message")
	}
}

// Hub fans every logged line out to every attached Sink. There is exactly
// one process-wide Hub (wsHub), mirroring pymock's module-level
// clients_getter() callback registered once in setup_controller.
type Hub struct {
	mu    sync.Mutex
	sinks map[*Sink]struct{}
}

var wsHub = &Hub{sinks: map[*Sink]struct{}{}}

// Subscribe registers a new Sink and returns it. Call Unsubscribe when the
// websocket connection closes.
func Subscribe() *Sink {
	s := newSink()
	wsHub.mu.Lock()
	wsHub.sinks[s] = struct{}{}
	wsHub.mu.Unlock()
	return s
}

// Unsubscribe removes a Sink from the fan-out set.
func Unsubscribe(s *Sink) {
	wsHub.mu.Lock()
	delete(wsHub.sinks, s)
	wsHub.mu.Unlock()
}

func (h *Hub) broadcast(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sinks {
		s.push(line)
	}
}
