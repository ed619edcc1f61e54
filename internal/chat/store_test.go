package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grokteam/grokteam/internal/stream"
	"github.com/grokteam/grokteam/internal/testutil"
)

type fakeBackend struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	listErr       error
	lastQuery     string
	listCalls     int
	nextID        int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{conversations: make(map[string]*Conversation)}
}

func (f *fakeBackend) ListConversations(_ context.Context, query string) ([]ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastQuery = query
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []ConversationSummary
	for _, c := range f.conversations {
		out = append(out, ConversationSummary{ID: c.ID, Title: c.Title, MessageCount: len(c.Messages)})
	}
	return out, nil
}

func (f *fakeBackend) GetConversation(_ context.Context, id string) (*Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	return c, nil
}

func (f *fakeBackend) CreateConversation(_ context.Context, title string) (*Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := &Conversation{ID: fmt.Sprintf("c%d", f.nextID), Title: title}
	f.conversations[c.ID] = c
	return c, nil
}

func (f *fakeBackend) DeleteConversation(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.conversations[id]; !ok {
		return errors.New("not found")
	}
	delete(f.conversations, id)
	return nil
}

func newTestStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	n := 0
	return NewStore(backend, testutil.NewTestLogger(t),
		WithClock(func() time.Time { return t0 }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("session-%d", n)
		}),
	)
}

func TestStore_Defaults(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	snap := s.Snapshot()

	assert.Equal(t, StatusReady, snap.Status)
	assert.False(t, snap.Generating())
	assert.Equal(t, map[string]float64{"Grok": 0.7, "Harper": 0.7, "Benjamin": 0.7, "Lucas": 0.7}, snap.Temperatures)
}

func TestStore_FullTurn(t *testing.T) {
	s := newTestStore(t, newFakeBackend())

	sess, err := s.BeginTurn("hello")
	require.NoError(t, err)
	assert.Equal(t, "session-1", sess.ID)
	assert.True(t, s.Snapshot().Generating())

	for _, ev := range []stream.Event{thought("Grok", "A"), thought("Harper", "B"), token("x"), token("y")} {
		s.Apply(sess.ID, ev)
	}
	live := s.Snapshot()
	require.NotNil(t, live.Session)
	assert.Equal(t, "xy", live.Session.Text)
	assert.Len(t, live.Session.Trace, 2)
	assert.Len(t, live.Messages, 1, "assistant message is not appended before done")

	out := s.Apply(sess.ID, stream.Done())
	assert.True(t, out.Done)
	assert.True(t, out.RefreshConversations)

	snap := s.Snapshot()
	assert.False(t, snap.Generating())
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, RoleUser, snap.Messages[0].Role)
	assert.Equal(t, "hello", snap.Messages[0].Content)
	assert.Equal(t, "xy", snap.Messages[1].Content)
	assert.Equal(t, StatusResponseReceived, snap.Status)

	again := s.Apply(sess.ID, stream.Done())
	assert.True(t, again.Ignored)
	assert.Len(t, s.Snapshot().Messages, 2, "second done must not finalize again")
}

func TestStore_BeginTurnRejectsWhileActive(t *testing.T) {
	s := newTestStore(t, newFakeBackend())

	_, err := s.BeginTurn("first")
	require.NoError(t, err)

	_, err = s.BeginTurn("second")
	assert.ErrorIs(t, err, ErrGenerationActive)
	assert.Len(t, s.Snapshot().Messages, 1, "rejected turn must not record its prompt")
}

func TestStore_CancellationPurity(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	sess, err := s.BeginTurn("hello")
	require.NoError(t, err)

	s.Apply(sess.ID, thought("Grok", "planning"))
	require.True(t, s.MarkCancelled(sess.ID, "Stopped by user"))
	assert.False(t, s.MarkCancelled(sess.ID, "again"), "cancel is recorded once")

	s.Apply(sess.ID, token("too late"))
	s.Apply(sess.ID, stream.Done())

	snap := s.Snapshot()
	assert.Len(t, snap.Messages, 1, "only the user message")
	assert.Empty(t, snap.LastError)
	assert.Equal(t, "Stopped by user", snap.Status)
	assert.False(t, snap.Generating())
}

func TestStore_MarkCancelledDefaultReason(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	sess, err := s.BeginTurn("hello")
	require.NoError(t, err)

	require.True(t, s.MarkCancelled(sess.ID, ""))
	assert.Equal(t, StatusStopped, s.Snapshot().Status)
	assert.False(t, s.MarkCancelled("other", "x"))
}

func TestStore_ErrorWithoutText(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	sess, err := s.BeginTurn("hello")
	require.NoError(t, err)

	s.Apply(sess.ID, stream.Error("boom"))
	assert.Equal(t, "boom", s.Snapshot().LastError)
	s.Apply(sess.ID, stream.Done())

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "", snap.Messages[1].Content)
	assert.Equal(t, "boom", snap.Messages[1].Error)
	assert.Equal(t, "boom", snap.LastError)
}

func TestStore_EmptyStreamSuppression(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	sess, err := s.BeginTurn("hello")
	require.NoError(t, err)

	s.Apply(sess.ID, stream.Done())

	snap := s.Snapshot()
	assert.Len(t, snap.Messages, 1)
	assert.Equal(t, StatusNoData, snap.Status)
}

func TestStore_StaleSessionIgnored(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	first, err := s.BeginTurn("one")
	require.NoError(t, err)
	s.Apply(first.ID, stream.Done())

	second, err := s.BeginTurn("two")
	require.NoError(t, err)

	out := s.Apply(first.ID, token("stale"))
	assert.True(t, out.Ignored)
	assert.Empty(t, s.Snapshot().Session.Text)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestStore_ConversationAssignmentFollowsNewView(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	sess, err := s.BeginTurn("hello")
	require.NoError(t, err)

	s.Apply(sess.ID, stream.Event{Type: stream.TypeConversation, ConversationID: "c-9"})
	assert.Equal(t, "c-9", s.ActiveConversationID())

	s.Apply(sess.ID, token("hi"))
	s.Apply(sess.ID, stream.Done())
	assert.Len(t, s.Snapshot().Messages, 2)
}

func TestStore_NavigationDuringGenerationDoesNotMisattribute(t *testing.T) {
	backend := newFakeBackend()
	backend.conversations["other"] = &Conversation{ID: "other", Title: "Other", Messages: []Message{{Role: RoleUser, Content: "old"}}}
	s := newTestStore(t, backend)

	s.SetActiveConversation("c-1")
	sess, err := s.BeginTurn("hello")
	require.NoError(t, err)
	assert.Equal(t, "c-1", sess.ConversationID)

	require.NoError(t, s.LoadConversation(context.Background(), "other"))
	s.Apply(sess.ID, stream.Event{Type: stream.TypeConversation, ConversationID: "c-1"})
	s.Apply(sess.ID, token("answer for c-1"))
	s.Apply(sess.ID, stream.Done())

	snap := s.Snapshot()
	assert.Equal(t, "other", snap.ActiveConversationID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "old", snap.Messages[0].Content)
}

func TestStore_ResetViewDuringFirstTurn(t *testing.T) {
	for _, reset := range []struct {
		name string
		fn   func(*Store)
	}{
		{"new conversation", (*Store).NewConversation},
		{"clear", (*Store).ClearMessages},
	} {
		t.Run(reset.name, func(t *testing.T) {
			s := newTestStore(t, newFakeBackend())

			sess, err := s.BeginTurn("hello")
			require.NoError(t, err)
			assert.Empty(t, sess.ConversationID)

			reset.fn(s)
			s.Apply(sess.ID, stream.Event{Type: stream.TypeConversation, ConversationID: "c-9"})
			s.Apply(sess.ID, token("answer"))
			s.Apply(sess.ID, stream.Done())

			snap := s.Snapshot()
			assert.Empty(t, snap.ActiveConversationID)
			assert.Empty(t, snap.Messages)
			assert.False(t, snap.Generating())
		})
	}
}

func TestStore_ResetViewBeforeConversationAssigned(t *testing.T) {
	s := newTestStore(t, newFakeBackend())

	sess, err := s.BeginTurn("hello")
	require.NoError(t, err)

	s.NewConversation()
	s.Apply(sess.ID, token("answer"))
	s.Apply(sess.ID, stream.Done())

	snap := s.Snapshot()
	assert.Empty(t, snap.ActiveConversationID)
	assert.Empty(t, snap.Messages)
}

func TestStore_FirstTurnFollowsAssignedConversation(t *testing.T) {
	s := newTestStore(t, newFakeBackend())

	sess, err := s.BeginTurn("hello")
	require.NoError(t, err)
	s.Apply(sess.ID, stream.Event{Type: stream.TypeConversation, ConversationID: "c-9"})
	s.Apply(sess.ID, token("answer"))
	s.Apply(sess.ID, stream.Done())

	snap := s.Snapshot()
	assert.Equal(t, "c-9", snap.ActiveConversationID)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "answer", snap.Messages[1].Content)
}

func TestStore_SetAgentTemperature(t *testing.T) {
	s := newTestStore(t, newFakeBackend())

	require.NoError(t, s.SetAgentTemperature("Harper", 1.3))
	require.NoError(t, s.SetAgentTemperature("NewAgent", 0))
	assert.ErrorIs(t, s.SetAgentTemperature("Lucas", 2.5), ErrInvalidTemperature)
	assert.ErrorIs(t, s.SetAgentTemperature("Lucas", -0.1), ErrInvalidTemperature)
	assert.ErrorIs(t, s.SetAgentTemperature("  ", 1), ErrEmptyAgent)

	temps := s.Temperatures()
	assert.Equal(t, 1.3, temps["Harper"])
	assert.Equal(t, 0.0, temps["NewAgent"])
	assert.Equal(t, 0.7, temps["Lucas"])

	temps["Harper"] = 99
	assert.Equal(t, 1.3, s.Temperatures()["Harper"], "returned map is a copy")
}

func TestStore_WithTemperatures(t *testing.T) {
	s := NewStore(newFakeBackend(), testutil.NewTestLogger(t), WithTemperatures(map[string]float64{
		"Grok":  1.1,
		"Bad":   7,
		"Extra": 0.2,
	}))

	temps := s.Temperatures()
	assert.Equal(t, 1.1, temps["Grok"])
	assert.Equal(t, 0.2, temps["Extra"])
	assert.NotContains(t, temps, "Bad")
}

func TestStore_QueueAndRetry(t *testing.T) {
	s := newTestStore(t, newFakeBackend())

	assert.False(t, s.RetryLastAssistant(), "nothing to retry yet")

	sess, err := s.BeginTurn("what is go?")
	require.NoError(t, err)
	s.Apply(sess.ID, token("a language"))
	s.Apply(sess.ID, stream.Done())

	require.True(t, s.RetryLastAssistant())
	snap := s.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "what is go?", snap.QueuedPrompt)
	assert.True(t, snap.QueuedAutoSend)

	prompt, auto := s.ConsumeQueuedPrompt()
	assert.Equal(t, "what is go?", prompt)
	assert.True(t, auto)

	prompt, auto = s.ConsumeQueuedPrompt()
	assert.Empty(t, prompt)
	assert.False(t, auto)

	s.QueuePrompt("edit me", false)
	prompt, auto = s.ConsumeQueuedPrompt()
	assert.Equal(t, "edit me", prompt)
	assert.False(t, auto)
}

func TestStore_RetryRefusedWhileGenerating(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	sess, err := s.BeginTurn("q")
	require.NoError(t, err)
	s.Apply(sess.ID, token("a"))
	s.Apply(sess.ID, stream.Done())

	_, err = s.BeginTurn("q2")
	require.NoError(t, err)
	assert.False(t, s.RetryLastAssistant())
}

func TestStore_ClearMessages(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	s.SetActiveConversation("c-1")
	s.QueuePrompt("draft", false)
	sess, err := s.BeginTurn("hi")
	require.NoError(t, err)
	s.Apply(sess.ID, stream.Done())

	s.ClearMessages()
	snap := s.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.Empty(t, snap.ActiveConversationID)
	assert.Empty(t, snap.QueuedPrompt)
	assert.Equal(t, StatusCleared, snap.Status)
}

func TestStore_NewConversation(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	s.SetActiveConversation("c-1")
	s.AddUserMessage("hi")

	s.NewConversation()
	snap := s.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.Empty(t, snap.ActiveConversationID)
	assert.Equal(t, StatusNewConversation, snap.Status)
}

func TestStore_ConversationCRUD(t *testing.T) {
	backend := newFakeBackend()
	s := newTestStore(t, backend)
	ctx := context.Background()

	require.NoError(t, s.CreateConversation(ctx, ""))
	snap := s.Snapshot()
	assert.Equal(t, "c1", snap.ActiveConversationID)
	assert.Equal(t, StatusNewConversation, snap.Status)
	require.Len(t, snap.Conversations, 1)
	assert.Equal(t, DefaultConversationTitle, snap.Conversations[0].Title)

	require.NoError(t, s.LoadConversations(ctx, "  needle "))
	assert.Equal(t, "needle", backend.lastQuery)

	require.NoError(t, s.DeleteConversation(ctx, "c1"))
	snap = s.Snapshot()
	assert.Empty(t, snap.Conversations)
	assert.Empty(t, snap.ActiveConversationID)

	assert.Error(t, s.DeleteConversation(ctx, "missing"))
	assert.Error(t, s.LoadConversation(ctx, "missing"))
}

func TestStore_LoadConversationsFailureKeepsList(t *testing.T) {
	backend := newFakeBackend()
	backend.conversations["a"] = &Conversation{ID: "a", Title: "A"}
	s := newTestStore(t, backend)

	require.NoError(t, s.LoadConversations(context.Background(), ""))
	backend.listErr = errors.New("backend down")

	err := s.LoadConversations(context.Background(), "")
	require.Error(t, err)
	assert.Len(t, s.Snapshot().Conversations, 1)
}

func TestStore_LoadConversation(t *testing.T) {
	backend := newFakeBackend()
	backend.conversations["a"] = &Conversation{ID: "a", Messages: []Message{
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, Content: "a", Trace: []TraceEntry{{Kind: TraceThought, Content: "t"}}},
	}}
	s := newTestStore(t, backend)
	s.QueuePrompt("stale", true)

	require.NoError(t, s.LoadConversation(context.Background(), "a"))
	snap := s.Snapshot()
	assert.Equal(t, "a", snap.ActiveConversationID)
	assert.Len(t, snap.Messages, 2)
	assert.Equal(t, StatusHistoryLoaded, snap.Status)
	assert.Empty(t, snap.QueuedPrompt)

	snap.Messages[1].Trace[0].Content = "mutated"
	assert.Equal(t, "t", s.Snapshot().Messages[1].Trace[0].Content, "snapshots are deep copies")
}

func TestStore_SubscribeCoalesces(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	ch, cancel := s.Subscribe()

	s.SetActiveConversation("a")
	s.SetActiveConversation("b")
	s.SetActiveConversation("c")

	select {
	case <-ch:
	default:
		t.Fatal("expected a pending notification")
	}
	select {
	case <-ch:
		t.Fatal("notifications should coalesce")
	default:
	}

	cancel()
	s.SetActiveConversation("d")
	select {
	case <-ch:
		t.Fatal("unsubscribed channel must not be signalled")
	default:
	}
}

func TestStore_AddUserMessageAndBeginGeneration(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	s.SetActiveConversation("c-3")

	s.AddUserMessage("hi")
	sess, err := s.BeginGeneration(t0)
	require.NoError(t, err)
	assert.Equal(t, "c-3", sess.ConversationID)
	assert.True(t, sess.Active)

	_, err = s.BeginGeneration(t0)
	assert.ErrorIs(t, err, ErrGenerationActive)
	assert.Len(t, s.Snapshot().Messages, 1)
}
