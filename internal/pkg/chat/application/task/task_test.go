package task

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/infrastructure/logger"
	push "marketplace-chat/internal/infrastructure/push/port"
	qport "marketplace-chat/internal/infrastructure/queue/port"
	"marketplace-chat/internal/pkg/chat/application/archival"
	chat "marketplace-chat/internal/pkg/chat/application/domain"
	"marketplace-chat/internal/pkg/chat/application/usecase"
	"marketplace-chat/internal/pkg/chat/persistence/repository/adapter"
)

type recordingServer struct {
	handlers map[string]qport.Handler
}

func newRecordingServer() *recordingServer {
	return &recordingServer{handlers: map[string]qport.Handler{}}
}

func (s *recordingServer) Register(taskType string, h qport.Handler) { s.handlers[taskType] = h }
func (s *recordingServer) Run(context.Context) error                 { return nil }
func (s *recordingServer) Stop(context.Context) error                { return nil }

type recordingClient struct {
	mu    sync.Mutex
	tasks []qport.Task
	opts  []qport.EnqueueOption
	err   error
}

func (c *recordingClient) Enqueue(_ context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	c.tasks = append(c.tasks, t)
	c.opts = append(c.opts, opts...)
	return uuid.NewString(), nil
}

func (c *recordingClient) Close() error { return nil }

type recordingScheduler struct {
	entries map[string]string
}

func (s *recordingScheduler) Register(cronspec string, t qport.Task, _ ...qport.EnqueueOption) (string, error) {
	s.entries[t.Type] = cronspec
	return uuid.NewString(), nil
}

func (s *recordingScheduler) Run(context.Context) error { return nil }

type fakeSender struct {
	sent []push.Notification
	err  error
}

func (f *fakeSender) Send(_ context.Context, n push.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func TestEnqueuer_RoundTripThroughNotifyHandler(t *testing.T) {
	client := &recordingClient{}
	enq := NewEnqueuer(client)
	notice := usecase.OfflineNotice{
		RecipientID: "bob", SenderID: "alice", SenderName: "Alice",
		ConversationID: "c1", MessageID: "m1", Preview: "hello",
	}
	require.NoError(t, enq.NotifyOfflineMessage(context.Background(), notice))
	require.Len(t, client.tasks, 1)
	assert.Equal(t, NotifyOfflineTaskType, client.tasks[0].Type)
	assert.Equal(t, QueueChat, client.opts[0].Queue)

	srv := newRecordingServer()
	sender := &fakeSender{}
	RegisterNotifyOfflineTask(srv, sender, logger.Discard())
	require.NoError(t, srv.handlers[NotifyOfflineTaskType](context.Background(), client.tasks[0]))

	require.Len(t, sender.sent, 1)
	n := sender.sent[0]
	assert.Equal(t, "bob", n.UserID)
	assert.Equal(t, "Alice", n.Title)
	assert.Equal(t, "hello", n.Body)
	assert.Equal(t, "m1", n.MessageID)
	assert.Equal(t, "alice", n.Data["senderId"])
}

func TestNotifyOfflineTask_Failures(t *testing.T) {
	srv := newRecordingServer()
	sender := &fakeSender{err: errors.New("gateway timeout")}
	RegisterNotifyOfflineTask(srv, sender, logger.Discard())
	h := srv.handlers[NotifyOfflineTaskType]

	err := h(context.Background(), qport.Task{Type: NotifyOfflineTaskType, Payload: []byte("{")})
	assert.ErrorIs(t, err, qport.ErrSkipRetry)

	payload, _ := json.Marshal(NotifyOfflinePayload{RecipientID: "bob", MessageID: "m1"})
	err = h(context.Background(), qport.Task{Type: NotifyOfflineTaskType, Payload: payload})
	require.Error(t, err)
	assert.NotErrorIs(t, err, qport.ErrSkipRetry, "delivery failures are retried")
}

func TestIndexMessageTask(t *testing.T) {
	repo := adapter.NewMemoryChatRepository()
	ctx := context.Background()
	a, b := chat.NormalizePair(uuid.NewString(), uuid.NewString())
	conv, _, err := repo.CreateConversation(ctx, chat.Conversation{ID: uuid.NewString(), UserA: a, UserB: b, Status: chat.ConversationActive, CreatedAt: time.Now()})
	require.NoError(t, err)
	text := "quote attached"
	msg, err := chat.NewMessage(chat.Message{ConversationID: conv.ID, SenderID: a, Type: chat.MessageTypeText, Content: &text})
	require.NoError(t, err)
	require.NoError(t, repo.SaveMessage(ctx, *msg))

	client := &recordingClient{}
	require.NoError(t, NewEnqueuer(client).IndexMessage(ctx, msg.ID))

	srv := newRecordingServer()
	RegisterIndexMessageTask(srv, repo)
	require.NoError(t, srv.handlers[IndexMessageTaskType](ctx, client.tasks[0]))
	assert.True(t, repo.Indexed(msg.ID))

	payload, _ := json.Marshal(IndexMessagePayload{MessageID: uuid.NewString()})
	err = srv.handlers[IndexMessageTaskType](ctx, qport.Task{Type: IndexMessageTaskType, Payload: payload})
	assert.ErrorIs(t, err, qport.ErrSkipRetry)
}

func TestEnqueuer_DuplicateIndexIsNotAnError(t *testing.T) {
	client := &recordingClient{err: qport.ErrDuplicate}
	assert.NoError(t, NewEnqueuer(client).IndexMessage(context.Background(), "m1"))

	client.err = errors.New("redis down")
	assert.Error(t, NewEnqueuer(client).IndexMessage(context.Background(), "m1"))
}

func TestMaintenance_ScheduleAndRun(t *testing.T) {
	sched := &recordingScheduler{entries: map[string]string{}}
	require.NoError(t, ScheduleMaintenance(sched, "0 3 * * *", "30 4 * * *"))
	assert.Equal(t, "0 3 * * *", sched.entries[ArchiveInactiveTaskType])
	assert.Equal(t, "30 4 * * *", sched.entries[CleanupImagesTaskType])

	srv := newRecordingServer()
	jobs := archival.NewJobs(adapter.NewMemoryChatRepository(), nil, archival.Config{}, logger.Discard())
	RegisterMaintenanceTasks(srv, jobs)
	assert.NoError(t, srv.handlers[ArchiveInactiveTaskType](context.Background(), qport.Task{Type: ArchiveInactiveTaskType}))
	assert.NoError(t, srv.handlers[CleanupImagesTaskType](context.Background(), qport.Task{Type: CleanupImagesTaskType}))
}
