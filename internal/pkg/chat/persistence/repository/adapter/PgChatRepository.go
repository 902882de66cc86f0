package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

var errNilPool = errors.New("PgChatRepository: nil pool")

const conversationColumns = `id::text, user_a, user_b, origin_link, status, created_at, last_message_at, archived_at, archived_by`

const messageColumns = `id::text, conversation_id::text, sender_id, type, content, attachment_ref, metadata, created_at, read_at, is_archived`

const imageColumns = `id::text, message_id::text, storage_key, width, height, created_at, delete_after`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*chat.Conversation, error) {
	var (
		c      chat.Conversation
		status string
	)
	if err := row.Scan(&c.ID, &c.UserA, &c.UserB, &c.OriginLink, &status, &c.CreatedAt, &c.LastMessageAt, &c.ArchivedAt, &c.ArchivedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	c.Status = chat.ConversationStatus(status)
	return &c, nil
}

func scanMessage(row rowScanner) (*chat.Message, error) {
	var (
		m   chat.Message
		typ string
	)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &typ, &m.Content, &m.AttachmentRef, &m.Metadata, &m.CreatedAt, &m.ReadAt, &m.IsArchived); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	m.Type = chat.MessageType(typ)
	return &m, nil
}

func scanImage(row rowScanner) (*chat.MessageImage, error) {
	var img chat.MessageImage
	if err := row.Scan(&img.ID, &img.MessageID, &img.StorageKey, &img.Width, &img.Height, &img.CreatedAt, &img.DeleteAfter); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

// metadata is NOT NULL in the schema; a nil map would be sent as NULL.
func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func (r *PgChatRepository) CreateConversation(ctx context.Context, c chat.Conversation) (chat.Conversation, bool, error) {
	if r == nil || r.pool == nil {
		return chat.Conversation{}, false, errNilPool
	}
	created, err := scanConversation(r.pool.QueryRow(ctx, `
		INSERT INTO chat.conversation (id, user_a, user_b, origin_link, status, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)
		ON CONFLICT (user_a, user_b, origin_link) DO NOTHING
		RETURNING `+conversationColumns,
		c.ID, c.UserA, c.UserB, c.OriginLink, string(c.Status), c.CreatedAt,
	))
	if err == nil {
		return *created, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return chat.Conversation{}, false, err
	}

	// Lost the race or the pair already existed: return the winner.
	existing, err := scanConversation(r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM chat.conversation
		WHERE user_a = $1 AND user_b = $2 AND origin_link = $3
	`, c.UserA, c.UserB, c.OriginLink))
	if err != nil {
		return chat.Conversation{}, false, err
	}
	return *existing, false, nil
}

func (r *PgChatRepository) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	if !isUUID(id) {
		return nil, repository.ErrNotFound
	}
	return scanConversation(r.pool.QueryRow(ctx,
		"SELECT "+conversationColumns+" FROM chat.conversation WHERE id = $1::uuid", id))
}

func (r *PgChatRepository) ListConversations(ctx context.Context, userID string, status chat.ConversationStatus, limit, offset int) ([]repository.ConversationSummary, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id::text, c.user_a, c.user_b, c.origin_link, c.status, c.created_at,
		       c.last_message_at, c.archived_at, c.archived_by,
		       lm.id::text, lm.sender_id, lm.type, lm.content, lm.attachment_ref, lm.metadata,
		       lm.created_at, lm.read_at, lm.is_archived,
		       (SELECT count(*) FROM chat.message u
		         WHERE u.conversation_id = c.id AND u.sender_id <> $1 AND u.read_at IS NULL)
		FROM chat.conversation c
		LEFT JOIN LATERAL (
			SELECT m.id, m.sender_id, m.type, m.content, m.attachment_ref, m.metadata,
			       m.created_at, m.read_at, m.is_archived
			FROM chat.message m
			WHERE m.conversation_id = c.id
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT 1
		) lm ON true
		WHERE (c.user_a = $1 OR c.user_b = $1) AND c.status = $2
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, c.id DESC
		LIMIT $3 OFFSET $4
	`, userID, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ConversationSummary
	for rows.Next() {
		var (
			s        repository.ConversationSummary
			cStatus  string
			mID      *string
			mSender  *string
			mType    *string
			mContent *string
			mRef     *string
			mMeta    map[string]string
			mAt      *time.Time
			mRead    *time.Time
			mArch    *bool
			unread   int64
		)
		c := &s.Conversation
		if err := rows.Scan(
			&c.ID, &c.UserA, &c.UserB, &c.OriginLink, &cStatus, &c.CreatedAt,
			&c.LastMessageAt, &c.ArchivedAt, &c.ArchivedBy,
			&mID, &mSender, &mType, &mContent, &mRef, &mMeta, &mAt, &mRead, &mArch,
			&unread,
		); err != nil {
			return nil, err
		}
		c.Status = chat.ConversationStatus(cStatus)
		s.UnreadCount = int(unread)
		if mID != nil {
			s.LastMessage = &chat.Message{
				ID:             *mID,
				ConversationID: c.ID,
				SenderID:       deref(mSender),
				Type:           chat.MessageType(deref(mType)),
				Content:        mContent,
				AttachmentRef:  mRef,
				Metadata:       mMeta,
				ReadAt:         mRead,
				IsArchived:     mArch != nil && *mArch,
			}
			if mAt != nil {
				s.LastMessage.CreatedAt = *mAt
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PgChatRepository) ArchiveConversation(ctx context.Context, id, userID string, at time.Time) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	if !isUUID(id) {
		return nil, repository.ErrNotFound
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	c, err := scanConversation(tx.QueryRow(ctx, `
		UPDATE chat.conversation
		SET status = 'ARCHIVED', archived_at = $2, archived_by = $3
		WHERE id = $1::uuid AND status = 'ACTIVE'
		RETURNING `+conversationColumns,
		id, at, userID,
	))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// Already archived (or missing): nothing to change.
		return scanConversation(tx.QueryRow(ctx,
			"SELECT "+conversationColumns+" FROM chat.conversation WHERE id = $1::uuid", id))
	case err != nil:
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		"UPDATE chat.message SET is_archived = true WHERE conversation_id = $1::uuid AND NOT is_archived", id,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PgChatRepository) UnreadCounts(ctx context.Context, userID string) (map[string]int, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT m.conversation_id::text, count(*)
		FROM chat.message m
		JOIN chat.conversation c ON c.id = m.conversation_id
		WHERE (c.user_a = $1 OR c.user_b = $1)
		  AND c.status = 'ACTIVE'
		  AND m.sender_id <> $1
		  AND m.read_at IS NULL
		GROUP BY m.conversation_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int64
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = int(n)
	}
	return out, rows.Err()
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m chat.Message) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertMessage(ctx, tx, m); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertMessage(ctx context.Context, tx pgx.Tx, m chat.Message) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO chat.message (
			id, conversation_id, sender_id, type, content, attachment_ref, metadata, created_at, is_archived
		) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8, false)
	`, m.ID, m.ConversationID, m.SenderID, string(m.Type), m.Content, m.AttachmentRef, metadataOrEmpty(m.Metadata), m.CreatedAt); err != nil {
		return err
	}
	// GREATEST keeps last_message_at monotonic when sends commit out of order.
	ct, err := tx.Exec(ctx, `
		UPDATE chat.conversation
		SET last_message_at = GREATEST(COALESCE(last_message_at, $2), $2)
		WHERE id = $1::uuid
	`, m.ConversationID, m.CreatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PgChatRepository) GetMessage(ctx context.Context, id string) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	if !isUUID(id) {
		return nil, repository.ErrNotFound
	}
	return scanMessage(r.pool.QueryRow(ctx,
		"SELECT "+messageColumns+" FROM chat.message WHERE id = $1::uuid", id))
}

func (r *PgChatRepository) ListMessages(ctx context.Context, conversationID string, before *repository.Cursor, limit int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if before == nil {
		rows, err = r.pool.Query(ctx, `
			SELECT `+messageColumns+`
			FROM chat.message
			WHERE conversation_id = $1::uuid AND NOT is_archived
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, conversationID, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+messageColumns+`
			FROM chat.message
			WHERE conversation_id = $1::uuid AND NOT is_archived
			  AND (created_at, id) < ($2, $3::uuid)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		`, conversationID, before.CreatedAt, before.ID, limit)
	}
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]chat.Message, error) {
	defer rows.Close()
	var msgs []chat.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

func (r *PgChatRepository) MarkMessageRead(ctx context.Context, messageID string, at time.Time) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	if !isUUID(messageID) {
		return nil, repository.ErrNotFound
	}
	// COALESCE keeps the first read timestamp.
	return scanMessage(r.pool.QueryRow(ctx, `
		UPDATE chat.message
		SET read_at = COALESCE(read_at, $2)
		WHERE id = $1::uuid
		RETURNING `+messageColumns,
		messageID, at,
	))
}

func (r *PgChatRepository) MarkAllRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errNilPool
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.message
		SET read_at = $3
		WHERE conversation_id = $1::uuid AND sender_id <> $2 AND read_at IS NULL
	`, conversationID, readerID, at)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PgChatRepository) SearchMessages(ctx context.Context, userID, conversationID, query string, limit int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT m.id::text, m.conversation_id::text, m.sender_id, m.type, m.content, m.attachment_ref,
		       m.metadata, m.created_at, m.read_at, m.is_archived
		FROM chat.message m
		JOIN chat.conversation c ON c.id = m.conversation_id
		WHERE (c.user_a = $1 OR c.user_b = $1)
		  AND ($2 = '' OR m.conversation_id::text = $2)
		  AND NOT m.is_archived
		  AND COALESCE(m.search_vector, to_tsvector('simple', COALESCE(m.content, '')))
		      @@ websearch_to_tsquery('simple', $3)
		ORDER BY ts_rank(COALESCE(m.search_vector, to_tsvector('simple', COALESCE(m.content, ''))),
		                 websearch_to_tsquery('simple', $3)) DESC,
		         m.created_at DESC
		LIMIT $4
	`, userID, conversationID, query, limit)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (r *PgChatRepository) IndexMessage(ctx context.Context, messageID string) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.message
		SET search_vector = to_tsvector('simple', COALESCE(content, ''))
		WHERE id = $1::uuid
	`, messageID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PgChatRepository) SaveImageMessage(ctx context.Context, m chat.Message, img chat.MessageImage) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertMessage(ctx, tx, m); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO chat.message_image (id, message_id, storage_key, width, height, created_at, delete_after)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7)
	`, img.ID, img.MessageID, img.StorageKey, img.Width, img.Height, img.CreatedAt, img.DeleteAfter); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PgChatRepository) GetImageByMessage(ctx context.Context, messageID string) (*chat.MessageImage, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	if !isUUID(messageID) {
		return nil, repository.ErrNotFound
	}
	return scanImage(r.pool.QueryRow(ctx,
		"SELECT "+imageColumns+" FROM chat.message_image WHERE message_id = $1::uuid", messageID))
}

func (r *PgChatRepository) DeleteImage(ctx context.Context, imageID string) error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	ct, err := r.pool.Exec(ctx, "DELETE FROM chat.message_image WHERE id = $1::uuid", imageID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PgChatRepository) ListExpiredImages(ctx context.Context, now time.Time, after *repository.ImageCursor, limit int) ([]chat.MessageImage, error) {
	if r == nil || r.pool == nil {
		return nil, errNilPool
	}
	var afterAt *time.Time
	var afterID *string
	if after != nil {
		afterAt, afterID = &after.DeleteAfter, &after.ID
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+imageColumns+`
		FROM chat.message_image
		WHERE delete_after <= $1
		  AND ($2::timestamptz IS NULL OR (delete_after, id) > ($2::timestamptz, $3::uuid))
		ORDER BY delete_after, id
		LIMIT $4
	`, now, afterAt, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.MessageImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *img)
	}
	return out, rows.Err()
}

func (r *PgChatRepository) ArchiveInactive(ctx context.Context, cutoff time.Time, limit int, at time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errNilPool
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	// SKIP LOCKED lets a manual trigger overlap the scheduled run without
	// both waiting on the same rows.
	rows, err := tx.Query(ctx, `
		WITH batch AS (
			SELECT id FROM chat.conversation
			WHERE status = 'ACTIVE' AND COALESCE(last_message_at, created_at) < $1
			ORDER BY COALESCE(last_message_at, created_at)
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE chat.conversation c
		SET status = 'AUTO_ARCHIVED', archived_at = $3
		FROM batch
		WHERE c.id = batch.id
		RETURNING c.id::text
	`, cutoff, limit, at)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(ids) > 0 {
		if _, err := tx.Exec(ctx,
			"UPDATE chat.message SET is_archived = true WHERE conversation_id = ANY($1::uuid[]) AND NOT is_archived", ids,
		); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
