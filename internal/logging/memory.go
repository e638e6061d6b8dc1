package logging

import "sync"

// MemorySink buffers events in memory so tests can assert on the audit
// stream. The zero value is ready to use.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *MemorySink) Emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *MemorySink) Close() error { return nil }

// Events returns a snapshot copy.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// ByType filters the snapshot to one event type.
func (s *MemorySink) ByType(t EventType) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}
