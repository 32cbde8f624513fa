package queue

import (
	"context"
	"sync"
)

// topicQueue is a thread-safe FIFO of messages for one topic.
//
// The queue is unbounded so publishers never block on slow consumers. The
// signal channel (buffered, size 1) lets consumers wait with select on a
// context.
type topicQueue struct {
	mu       sync.Mutex
	messages []Message
	closed   bool
	signal   chan struct{}
}

func newTopicQueue() *topicQueue {
	return &topicQueue{
		messages: make([]Message, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// enqueue appends a message. Returns false if the queue is closed.
func (q *topicQueue) enqueue(m Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.messages = append(q.messages, m)
	q.notify()
	return true
}

// notify signals availability. Non-blocking: the buffer of 1 coalesces
// multiple signals. Callers hold mu.
func (q *topicQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// tryDequeue removes the front message without blocking.
func (q *topicQueue) tryDequeue() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == 0 {
		return Message{}, false
	}

	m := q.messages[0]
	// Clear the slot so the backing array does not retain message bodies.
	q.messages[0] = Message{}
	if len(q.messages) == 1 {
		q.messages = q.messages[:0]
	} else {
		q.messages = q.messages[1:]
		// Coalesced signals would otherwise leave other consumers asleep.
		if !q.closed {
			q.notify()
		}
	}
	return m, true
}

func (q *topicQueue) wait() <-chan struct{} { return q.signal }

func (q *topicQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

func (q *topicQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// close wakes every waiter by closing the signal channel.
func (q *topicQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// MemoryBroker is an in-process Publisher with competing consumers per
// topic. Messages are lost when the process exits.
type MemoryBroker struct {
	mu     sync.Mutex
	topics map[string]*topicQueue
	closed bool
}

var _ Publisher = (*MemoryBroker)(nil)

// NewMemoryBroker creates an empty broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]*topicQueue)}
}

func (b *MemoryBroker) topic(name string) *topicQueue {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.topics[name]
	if !ok {
		q = newTopicQueue()
		if b.closed {
			q.close()
		}
		b.topics[name] = q
	}
	return q
}

// Publish enqueues messages on their topics.
func (b *MemoryBroker) Publish(ctx context.Context, msgs ...Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, m := range msgs {
		if !b.topic(m.Topic).enqueue(m) {
			return ErrClosed
		}
	}
	return nil
}

// Len returns the number of messages waiting on a topic.
func (b *MemoryBroker) Len(topic string) int {
	return b.topic(topic).len()
}

// Consumer returns a consumer for topic. Consumers of the same topic
// compete for messages.
func (b *MemoryBroker) Consumer(topic string) Consumer {
	return &memoryConsumer{q: b.topic(topic)}
}

// Close closes every topic. Waiting consumers return ErrClosed once their
// topic is drained.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for _, q := range b.topics {
		q.close()
	}
	return nil
}

type memoryConsumer struct {
	q *topicQueue
}

func (c *memoryConsumer) Receive(ctx context.Context) (Message, error) {
	for {
		if m, ok := c.q.tryDequeue(); ok {
			return m, nil
		}
		if c.q.isClosed() {
			return Message{}, ErrClosed
		}
		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-c.q.wait():
		}
	}
}

// Ack is a no-op: a received message has already left the queue.
func (c *memoryConsumer) Ack(context.Context, Message) error { return nil }

func (c *memoryConsumer) Nack(_ context.Context, m Message) error {
	m.Attempt++
	if !c.q.enqueue(m) {
		return ErrClosed
	}
	return nil
}

func (c *memoryConsumer) Close() error { return nil }
