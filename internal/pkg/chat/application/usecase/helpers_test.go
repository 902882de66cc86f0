package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/infrastructure/logger"
	chat "marketplace-chat/internal/pkg/chat/application/domain"
	"marketplace-chat/internal/pkg/chat/persistence/repository/adapter"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
	useradapter "marketplace-chat/internal/repository/adapter"
)

// clock hands out strictly increasing instants so message order is stable.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	ctx     context.Context
	repo    *adapter.MemoryChatRepository
	users   *useradapter.MemoryUserRepository
	clock   *clock
	alice   string
	bob     string
	mallory string
	convID  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:     context.Background(),
		repo:    adapter.NewMemoryChatRepository(),
		users:   useradapter.NewMemoryUserRepository(),
		clock:   newClock(),
		alice:   uuid.NewString(),
		bob:     uuid.NewString(),
		mallory: uuid.NewString(),
	}
	f.users.PutProfile(chat.Profile{UserID: f.alice, DisplayName: "Alice"}, true)
	f.users.PutProfile(chat.Profile{UserID: f.bob, DisplayName: "Bob"}, true)

	a, b := chat.NormalizePair(f.alice, f.bob)
	conv, _, err := f.repo.CreateConversation(f.ctx, chat.Conversation{
		ID:        uuid.NewString(),
		UserA:     a,
		UserB:     b,
		Status:    chat.ConversationActive,
		CreatedAt: f.clock.Now(),
	})
	require.NoError(t, err)
	f.convID = conv.ID
	return f
}

func (f *fixture) postText(t *testing.T, sender, text string) chat.Message {
	t.Helper()
	agg := &chat.Chat{}
	c, err := f.repo.GetConversation(f.ctx, f.convID)
	require.NoError(t, err)
	agg.Conversation = *c
	m, err := agg.PostMessage(chat.Message{SenderID: sender, Type: chat.MessageTypeText, Content: &text}, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.repo.SaveMessage(f.ctx, *m))
	return *m
}

var discard = logger.Discard()

func strPtr(s string) *string { return &s }

func cursorOf(at time.Time, id string) repository.Cursor {
	return repository.Cursor{CreatedAt: at, ID: id}
}
