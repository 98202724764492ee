package events

import (
	"sync"

	"github.com/google/uuid"
)

// Bus is the publish/subscribe surface the engine depends on.
type Bus interface {
	Publish(topic string, ev Event) Event
	Subscribe(topic string) chan Event
	Unsubscribe(topic string, ch chan Event)
}

// Broker is an in-process pub/sub keyed by topic.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
	seq  map[string]uint64
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan Event]struct{}),
		seq:  make(map[string]uint64),
	}
}

// Subscribe returns a channel that receives events published to topic.
func (b *Broker) Subscribe(topic string) chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan Event]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch from topic and closes it. Calling it twice is safe.
func (b *Broker) Unsubscribe(topic string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[topic][ch]; !ok {
		return
	}
	delete(b.subs[topic], ch)
	close(ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}

// Publish stamps ev with the next sequence number for topic, and a fresh id
// if it has none, then fans it out. The stamped event is returned.
//
// A subscriber whose buffer is full is unsubscribed and its channel closed,
// so it sees the end of the stream instead of a gap in it.
func (b *Broker) Publish(topic string, ev Event) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq[topic]++
	ev.Seq = b.seq[topic]
	for ch := range b.subs[topic] {
		select {
		case ch <- ev:
		default:
			delete(b.subs[topic], ch)
			close(ch)
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	return ev
}

// Subscribers reports how many channels listen on topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
