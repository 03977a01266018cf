package broker

import (
	"context"
	"sync"
)

// LocalBroker fans events out in-process. It is used when no Redis is
// configured, so a single node still gets a working loan feed.
type LocalBroker struct {
	mu     sync.RWMutex
	subs   map[chan LoanEvent]struct{}
	closed bool
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[chan LoanEvent]struct{})}
}

// Publish never blocks; slow subscribers miss events.
func (b *LocalBroker) Publish(_ context.Context, event LoanEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context) (<-chan LoanEvent, error) {
	ch := make(chan LoanEvent, 100)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, nil
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(ch)
	}()

	return ch, nil
}

func (b *LocalBroker) remove(ch chan LoanEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	b.closed = true
	return nil
}
