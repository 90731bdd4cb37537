package eventbus

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf16"

	"encoding/json"
)

// topicCapacity bounds each subscriber's channel; once full, the oldest
// buffered event is dropped to make room for the newest rather than
// blocking the publisher.
const topicCapacity = 64

type topic struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// Bus multiplexes events to per-topic subscribers, keyed by an opaque
// topic key (session id or build id). One publisher per topic is assumed,
// per spec.md §5's "event delivery within one topic is ordered" invariant.
type Bus struct {
	mu     sync.Mutex
	topics map[string]*topic
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{topics: map[string]*topic{}}
}

func (b *Bus) topicFor(key string) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[key]
	if !ok {
		t = &topic{subs: map[int]chan Event{}}
		b.topics[key] = t
	}
	return t
}

// Subscribe returns a channel of events published to key, and an unsubscribe
// function the caller must call when done listening.
func (b *Bus) Subscribe(key string) (<-chan Event, func()) {
	t := b.topicFor(key)
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	ch := make(chan Event, topicCapacity)
	t.subs[id] = ch

	unsubscribe := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if c, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

// Publish delivers ev to every subscriber of key, non-blocking: a full
// subscriber channel has its oldest buffered event dropped to make room.
func (b *Bus) Publish(key string, ev Event) {
	t := b.topicFor(key)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Close tears down a topic, closing every subscriber channel. Subsequent
// Subscribe calls for key start a fresh topic.
func (b *Bus) Close(key string) {
	b.mu.Lock()
	t, ok := b.topics[key]
	if ok {
		delete(b.topics, key)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}

// WriteSSE renders ev as one SSE frame: "event: <kind>\ndata: <json>\n\n".
// The JSON is ASCII-only: every non-ASCII character is written as a \u
// escape (a UTF-16 surrogate pair above U+FFFF).
func WriteSSE(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("eventbus: marshal event: %w", err)
	}
	var ascii strings.Builder
	for _, r := range string(data) {
		switch {
		case r < 0x80:
			ascii.WriteRune(r)
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&ascii, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(&ascii, `\u%04x`, r)
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, ascii.String())
	return err
}

// WriteDone writes the terminal "data: [DONE]\n\n" frame.
func WriteDone(w io.Writer) error {
	_, err := fmt.Fprint(w, "data: [DONE]\n\n")
	return err
}
