package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationStartsEmpty(t *testing.T) {
	c := NewConversation()
	snap := c.Snapshot()

	assert.Empty(t, snap.Messages)
	assert.False(t, snap.Pending)
	assert.Equal(t, "", snap.Draft)
}

func TestAppendMessageKeepsOrder(t *testing.T) {
	c := NewConversation()
	c.AppendMessage(RoleUser, "first")
	c.AppendMessage(RoleBot, "second")
	c.AppendMessage(RoleUser, "first")

	snap := c.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, Message{Role: RoleUser, Text: "first"}, snap.Messages[0])
	assert.Equal(t, Message{Role: RoleBot, Text: "second"}, snap.Messages[1])
	assert.Equal(t, Message{Role: RoleUser, Text: "first"}, snap.Messages[2])
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewConversation()
	c.AppendMessage(RoleUser, "hello")

	snap := c.Snapshot()
	snap.Messages[0].Text = "changed"

	assert.Equal(t, "hello", c.Snapshot().Messages[0].Text)
}

func TestSetDraftAndPending(t *testing.T) {
	c := NewConversation()
	c.SetDraft("  typing ")
	c.SetPending(true)

	assert.Equal(t, "  typing ", c.Draft())
	assert.True(t, c.Pending())

	c.SetPending(false)
	c.SetDraft("")
	assert.False(t, c.Pending())
	assert.Equal(t, "", c.Draft())
}

func TestSubscribeNotifiesEveryMutation(t *testing.T) {
	c := NewConversation()

	var got []Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) { got = append(got, s) })

	c.SetDraft("hi")
	c.AppendMessage(RoleUser, "hi")
	c.SetPending(true)

	require.Len(t, got, 3)
	assert.Equal(t, "hi", got[0].Draft)
	assert.Len(t, got[1].Messages, 1)
	assert.True(t, got[2].Pending)

	unsubscribe()
	unsubscribe()
	c.SetPending(false)
	assert.Len(t, got, 3)
}

func TestUpdateNotifiesOnce(t *testing.T) {
	c := NewConversation()

	calls := 0
	c.Subscribe(func(Snapshot) { calls++ })

	c.Update(func(tx *Tx) bool {
		tx.AppendMessage(RoleUser, "q")
		tx.SetPending(true)
		assert.True(t, tx.Pending())
		return true
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Pending())

	c.Update(func(tx *Tx) bool { return false })
	assert.Equal(t, 1, calls)
}

func TestConcurrentAppends(t *testing.T) {
	c := NewConversation()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.AppendMessage(RoleUser, "x")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Len())
}

func TestBlockedListenerDoesNotFreezeState(t *testing.T) {
	c := NewConversation()

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var (
		mu     sync.Mutex
		drafts []string
	)
	c.Subscribe(func(s Snapshot) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		mu.Lock()
		drafts = append(drafts, s.Draft)
		mu.Unlock()
	})

	go c.SetDraft("a")
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never ran")
	}

	done := make(chan struct{})
	go func() {
		c.SetDraft("b")
		c.SetDraft("c")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutation blocked behind a stalled listener")
	}
	assert.Equal(t, "c", c.Draft())
	assert.False(t, c.Pending())

	close(release)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(drafts) == 3
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, drafts)
}
