package adapter

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
)

// MemoryChatRepository keeps the chat store in process memory. It backs the
// use case tests and a DB-less development mode; all methods are safe for
// concurrent use.
type MemoryChatRepository struct {
	mu            sync.RWMutex
	conversations map[string]*chat.Conversation
	byKey         map[string]string
	messages      map[string]*chat.Message
	byConv        map[string][]string
	images        map[string]*chat.MessageImage
	indexed       map[string]bool
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		conversations: make(map[string]*chat.Conversation),
		byKey:         make(map[string]string),
		messages:      make(map[string]*chat.Message),
		byConv:        make(map[string][]string),
		images:        make(map[string]*chat.MessageImage),
		indexed:       make(map[string]bool),
	}
}

var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

func pairKey(a, b, link string) string {
	return a + "\x00" + b + "\x00" + link
}

func copyMessage(m *chat.Message) chat.Message {
	out := *m
	if m.Metadata != nil {
		out.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func (r *MemoryChatRepository) CreateConversation(_ context.Context, c chat.Conversation) (chat.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(c.UserA, c.UserB, c.OriginLink)
	if id, ok := r.byKey[key]; ok {
		return *r.conversations[id], false, nil
	}
	stored := c
	r.conversations[c.ID] = &stored
	r.byKey[key] = c.ID
	return stored, true, nil
}

func (r *MemoryChatRepository) GetConversation(_ context.Context, id string) (*chat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *MemoryChatRepository) ListConversations(_ context.Context, userID string, status chat.ConversationStatus, limit, offset int) ([]repository.ConversationSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*chat.Conversation
	for _, c := range r.conversations {
		if c.HasParticipant(userID) && c.Status == status {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		ai, aj := matched[i].ActivityAt(), matched[j].ActivityAt()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return matched[i].ID > matched[j].ID
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]repository.ConversationSummary, 0, len(matched))
	for _, c := range matched {
		s := repository.ConversationSummary{Conversation: *c}
		ids := r.byConv[c.ID]
		if len(ids) > 0 {
			last := copyMessage(r.messages[ids[len(ids)-1]])
			s.LastMessage = &last
		}
		for _, id := range ids {
			m := r.messages[id]
			if m.SenderID != userID && m.ReadAt == nil {
				s.UnreadCount++
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *MemoryChatRepository) ArchiveConversation(_ context.Context, id, userID string, at time.Time) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c.Status == chat.ConversationActive {
		ts, by := at, userID
		c.Status = chat.ConversationArchived
		c.ArchivedAt = &ts
		c.ArchivedBy = &by
		r.archiveMessagesLocked(id)
	}
	out := *c
	return &out, nil
}

func (r *MemoryChatRepository) archiveMessagesLocked(conversationID string) {
	for _, mid := range r.byConv[conversationID] {
		r.messages[mid].IsArchived = true
	}
}

func (r *MemoryChatRepository) UnreadCounts(_ context.Context, userID string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int)
	for id, c := range r.conversations {
		if !c.HasParticipant(userID) || c.Status != chat.ConversationActive {
			continue
		}
		for _, mid := range r.byConv[id] {
			m := r.messages[mid]
			if m.SenderID != userID && m.ReadAt == nil {
				out[id]++
			}
		}
	}
	return out, nil
}

func (r *MemoryChatRepository) SaveMessage(_ context.Context, m chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveMessageLocked(m)
}

func (r *MemoryChatRepository) saveMessageLocked(m chat.Message) error {
	c, ok := r.conversations[m.ConversationID]
	if !ok {
		return repository.ErrNotFound
	}
	stored := copyMessage(&m)
	r.messages[m.ID] = &stored

	// Keep per-conversation ids in (createdAt, id) order.
	ids := r.byConv[m.ConversationID]
	i := sort.Search(len(ids), func(i int) bool {
		return messageAfter(r.messages[ids[i]], &stored)
	})
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = m.ID
	r.byConv[m.ConversationID] = ids

	if c.LastMessageAt == nil || m.CreatedAt.After(*c.LastMessageAt) {
		ts := m.CreatedAt
		c.LastMessageAt = &ts
	}
	return nil
}

// messageAfter reports whether a sorts strictly after b in history order.
func messageAfter(a, b *chat.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (r *MemoryChatRepository) GetMessage(_ context.Context, id string) (*chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyMessage(m)
	return &out, nil
}

func (r *MemoryChatRepository) ListMessages(_ context.Context, conversationID string, before *repository.Cursor, limit int) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}

	ids := r.byConv[conversationID]
	var out []chat.Message
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		m := r.messages[ids[i]]
		if m.IsArchived {
			continue
		}
		if before != nil && !messageAfter(&chat.Message{CreatedAt: before.CreatedAt, ID: before.ID}, m) {
			continue
		}
		out = append(out, copyMessage(m))
	}
	return out, nil
}

func (r *MemoryChatRepository) MarkMessageRead(_ context.Context, messageID string, at time.Time) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if m.ReadAt == nil {
		ts := at
		m.ReadAt = &ts
	}
	out := copyMessage(m)
	return &out, nil
}

func (r *MemoryChatRepository) MarkAllRead(_ context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, mid := range r.byConv[conversationID] {
		m := r.messages[mid]
		if m.SenderID != readerID && m.ReadAt == nil {
			ts := at
			m.ReadAt = &ts
			n++
		}
	}
	return n, nil
}

// SearchMessages matches when every query term occurs in the content,
// ranking by the number of term occurrences then recency.
func (r *MemoryChatRepository) SearchMessages(_ context.Context, userID, conversationID, query string, limit int) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	type hit struct {
		msg  chat.Message
		rank int
	}
	var hits []hit
	for cid, c := range r.conversations {
		if !c.HasParticipant(userID) || (conversationID != "" && cid != conversationID) {
			continue
		}
		for _, mid := range r.byConv[cid] {
			m := r.messages[mid]
			if m.IsArchived || m.Content == nil {
				continue
			}
			body := strings.ToLower(*m.Content)
			rank := 0
			for _, t := range terms {
				n := strings.Count(body, t)
				if n == 0 {
					rank = 0
					break
				}
				rank += n
			}
			if rank > 0 {
				hits = append(hits, hit{msg: copyMessage(m), rank: rank})
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank > hits[j].rank
		}
		return hits[i].msg.CreatedAt.After(hits[j].msg.CreatedAt)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]chat.Message, len(hits))
	for i, h := range hits {
		out[i] = h.msg
	}
	return out, nil
}

func (r *MemoryChatRepository) IndexMessage(_ context.Context, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[messageID]; !ok {
		return repository.ErrNotFound
	}
	r.indexed[messageID] = true
	return nil
}

// Indexed reports whether IndexMessage ran for messageID.
func (r *MemoryChatRepository) Indexed(messageID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexed[messageID]
}

func (r *MemoryChatRepository) SaveImageMessage(_ context.Context, m chat.Message, img chat.MessageImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.saveMessageLocked(m); err != nil {
		return err
	}
	stored := img
	r.images[img.ID] = &stored
	return nil
}

func (r *MemoryChatRepository) GetImageByMessage(_ context.Context, messageID string) (*chat.MessageImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, img := range r.images {
		if img.MessageID == messageID {
			out := *img
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *MemoryChatRepository) DeleteImage(_ context.Context, imageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[imageID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.images, imageID)
	return nil
}

func (r *MemoryChatRepository) ListExpiredImages(_ context.Context, now time.Time, after *repository.ImageCursor, limit int) ([]chat.MessageImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []chat.MessageImage
	for _, img := range r.images {
		if img.DeleteAfter.After(now) {
			continue
		}
		if after != nil && !imageAfter(img.DeleteAfter, img.ID, *after) {
			continue
		}
		out = append(out, *img)
	}
	sort.Slice(out, func(i, j int) bool {
		return imageAfter(out[j].DeleteAfter, out[j].ID, repository.ImageCursor{DeleteAfter: out[i].DeleteAfter, ID: out[i].ID})
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryChatRepository) ArchiveInactive(_ context.Context, cutoff time.Time, limit int, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []*chat.Conversation
	for _, c := range r.conversations {
		if c.Status == chat.ConversationActive && c.ActivityAt().Before(cutoff) {
			stale = append(stale, c)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].ActivityAt().Before(stale[j].ActivityAt()) })
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	for _, c := range stale {
		ts := at
		c.Status = chat.ConversationAutoArchived
		c.ArchivedAt = &ts
		r.archiveMessagesLocked(c.ID)
	}
	return int64(len(stale)), nil
}

// imageAfter reports whether (at, id) sorts strictly after c.
func imageAfter(at time.Time, id string, c repository.ImageCursor) bool {
	if !at.Equal(c.DeleteAfter) {
		return at.After(c.DeleteAfter)
	}
	return id > c.ID
}
