package store

import "sync"

// Listener is notified after every mutation with the resulting state.
// Listeners run in mutation order, outside the conversation's lock, and must
// not mutate the conversation.
type Listener func(Snapshot)

// Conversation holds the transcript, pending flag and draft of one screen.
// The transcript is append-only: entries are never edited or removed.
type Conversation struct {
	mu        sync.Mutex
	messages  []Message
	pending   bool
	draft     string
	listeners map[int]Listener
	nextID    int

	// snapshots not yet handed to listeners, oldest first
	outbox     []Snapshot
	delivering bool
}

func NewConversation() *Conversation {
	return &Conversation{listeners: make(map[int]Listener)}
}

func (c *Conversation) AppendMessage(role Role, text string) {
	c.mutate(func() {
		c.messages = append(c.messages, Message{Role: role, Text: text})
	})
}

func (c *Conversation) SetDraft(text string) {
	c.mutate(func() { c.draft = text })
}

func (c *Conversation) SetPending(pending bool) {
	c.mutate(func() { c.pending = pending })
}

// Update applies fn atomically. Listeners are notified once, and only
// when fn reports that it changed something.
func (c *Conversation) Update(fn func(tx *Tx) bool) {
	c.mu.Lock()
	if !fn(&Tx{c: c}) {
		c.mu.Unlock()
		return
	}
	c.notifyLocked()
}

func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Conversation) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers l and returns a function that removes it.
func (c *Conversation) Subscribe(l Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Conversation) mutate(fn func()) {
	c.mu.Lock()
	fn()
	c.notifyLocked()
}

// notifyLocked queues the new state and releases c.mu. The first goroutine
// to find the outbox idle delivers everything queued, in order; any other
// mutator returns at once.
func (c *Conversation) notifyLocked() {
	c.outbox = append(c.outbox, c.snapshotLocked())
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true

	for len(c.outbox) > 0 {
		snap := c.outbox[0]
		c.outbox = c.outbox[1:]
		listeners := make([]Listener, 0, len(c.listeners))
		for _, l := range c.listeners {
			listeners = append(listeners, l)
		}
		c.mu.Unlock()

		for _, l := range listeners {
			l(snap)
		}

		c.mu.Lock()
	}
	c.outbox = nil
	c.delivering = false
	c.mu.Unlock()
}

func (c *Conversation) snapshotLocked() Snapshot {
	msgs := make([]Message, len(c.messages))
	copy(msgs, c.messages)
	return Snapshot{Messages: msgs, Pending: c.pending, Draft: c.draft}
}

// Tx exposes the conversation's mutations inside Update.
type Tx struct {
	c *Conversation
}

func (tx *Tx) AppendMessage(role Role, text string) {
	tx.c.messages = append(tx.c.messages, Message{Role: role, Text: text})
}

func (tx *Tx) SetDraft(text string) { tx.c.draft = text }

func (tx *Tx) SetPending(pending bool) { tx.c.pending = pending }

func (tx *Tx) Pending() bool { return tx.c.pending }

func (tx *Tx) Draft() string { return tx.c.draft }
