package news

import (
	"context"
	"log"
	"sync"
)

const subscriberBuffer = 16

// Feed fans out change events to subscribers. Publish never blocks: an event
// that does not fit in a subscriber's buffer is dropped for that subscriber.
type Feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events that is closed once ctx is done.
func (f *Feed) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		close(ch)
		f.mu.Unlock()
	}()

	return ch
}

func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("news: feed subscriber slow, event dropped subscriber=%d op=%s id=%d", id, ev.Op, ev.News.ID)
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
