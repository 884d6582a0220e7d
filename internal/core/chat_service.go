package core

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"beelogical.com/chat-portal/internal/auth"
	"beelogical.com/chat-portal/internal/store"
)

const (
	NoResponseText = "No response received."
	ErrorText      = "⚠️ Error: Could not get response."
)

var (
	ErrEmptyQuery      = errors.New("query is empty")
	ErrRequestInFlight = errors.New("a chat request is already in flight")
)

// ChatSession runs the submit/await/append cycle for one Session Screen.
type ChatSession struct {
	identity auth.Identity
	conv     *store.Conversation
	asker    Asker
}

func NewChatSession(identity auth.Identity, conv *store.Conversation, asker Asker) *ChatSession {
	return &ChatSession{
		identity: identity,
		conv:     conv,
		asker:    asker,
	}
}

func (s *ChatSession) Identity() auth.Identity {
	return s.identity
}

func (s *ChatSession) Conversation() *store.Conversation {
	return s.conv
}

// Submit sends the current draft and waits for the exchange to settle.
// Backend failures never surface here; they end up in the transcript.
func (s *ChatSession) Submit(ctx context.Context) error {
	ex, err := s.Dispatch()
	if err != nil {
		return err
	}
	ex.Settle(ex.Call(ctx))
	return nil
}

// SubmitText is Submit for text that has not been written to the draft yet.
func (s *ChatSession) SubmitText(ctx context.Context, text string) error {
	ex, err := s.DispatchText(text)
	if err != nil {
		return err
	}
	ex.Settle(ex.Call(ctx))
	return nil
}

// Dispatch starts an exchange for the current draft: it appends the user
// message verbatim and raises the pending flag in one step. A blank draft or
// an exchange already in flight leaves the conversation untouched.
func (s *ChatSession) Dispatch() (*Exchange, error) {
	return s.dispatch(func(tx *store.Tx) string { return tx.Draft() })
}

// DispatchText is Dispatch with text as the query. The draft is only
// replaced when the exchange actually starts.
func (s *ChatSession) DispatchText(text string) (*Exchange, error) {
	return s.dispatch(func(*store.Tx) string { return text })
}

func (s *ChatSession) dispatch(query func(tx *store.Tx) string) (*Exchange, error) {
	var (
		ex  *Exchange
		err error
	)
	s.conv.Update(func(tx *store.Tx) bool {
		q := query(tx)
		if strings.TrimSpace(q) == "" {
			err = ErrEmptyQuery
			return false
		}
		if tx.Pending() {
			err = ErrRequestInFlight
			return false
		}
		tx.SetDraft(q)
		tx.AppendMessage(store.RoleUser, q)
		tx.SetPending(true)
		ex = &Exchange{session: s, query: q}
		return true
	})
	return ex, err
}

// Reply is the outcome of one backend call.
type Reply struct {
	Answer string
	Err    error
}

// Text is the bot message the reply turns into.
func (r Reply) Text() string {
	switch {
	case r.Err != nil:
		return ErrorText
	case r.Answer == "":
		return NoResponseText
	default:
		return r.Answer
	}
}

// Exchange is one dispatched query awaiting its reply.
type Exchange struct {
	session *ChatSession
	query   string
	once    sync.Once
}

func (e *Exchange) Query() string {
	return e.query
}

// Call performs the backend request. It does not touch the conversation, so
// it may run on any goroutine.
func (e *Exchange) Call(ctx context.Context) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			reply = Reply{Err: errors.Errorf("chat call panicked: %v", r)}
		}
	}()

	answer, err := e.session.asker.Ask(ctx, e.session.identity.UserID, e.query)
	return Reply{Answer: answer, Err: err}
}

// Settle appends the bot message, lowers the pending flag and clears the
// draft. Only the first call has any effect.
func (e *Exchange) Settle(reply Reply) {
	e.once.Do(func() {
		text := reply.Text()
		e.session.conv.Update(func(tx *store.Tx) bool {
			tx.AppendMessage(store.RoleBot, text)
			tx.SetPending(false)
			tx.SetDraft("")
			return true
		})
	})
}
