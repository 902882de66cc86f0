package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/identity"
	"marketplace-chat/internal/infrastructure/ratelimit"
	"marketplace-chat/internal/infrastructure/realtime"
	chat "marketplace-chat/internal/pkg/chat/application/domain"
	"marketplace-chat/internal/pkg/chat/application/presence"
	"marketplace-chat/internal/pkg/chat/application/typing"
	"marketplace-chat/internal/pkg/chat/application/usecase"
	apperrors "marketplace-chat/pkg/errors"
)

// Client to server intents.
const (
	IntentJoinConversation  = "join_conversation"
	IntentLeaveConversation = "leave_conversation"
	IntentSendMessage       = "send_message"
	IntentMarkRead          = "mark_read"
	IntentTypingStart       = "typing_start"
	IntentTypingStop        = "typing_stop"
	IntentHeartbeat         = "heartbeat"
	IntentSetAway           = "set_away"
	IntentGetPresence       = "get_presence"
)

const maxPresenceQuery = 200

// SocketDeps groups what the realtime gateway talks to.
type SocketDeps struct {
	Router    *realtime.Router
	Publisher *Publisher
	Verifier  identity.Verifier
	Presence  *presence.Tracker
	Typing    *typing.Tracker
	Limiter   RateLimiter
	Join      *usecase.JoinConversationUseCase
	Send      *usecase.SendMessageUseCase
	MarkRead  *usecase.MarkReadUseCase
	Log       logrus.FieldLogger
}

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
type ChatSocketController struct {
	SocketDeps
	inflightTimeout time.Duration
	now             func() time.Time
}

func NewChatSocketController(deps SocketDeps) *ChatSocketController {
	return &ChatSocketController{SocketDeps: deps, inflightTimeout: requestTimeout, now: time.Now}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers on marketplace front-ends connect from several origins; the
	// bearer credential is what authorizes the socket.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type inboundFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type conversationRef struct {
	ConversationID string `json:"conversationId"`
}

func (r conversationRef) validate() error {
	if strings.TrimSpace(r.ConversationID) == "" {
		return apperrors.Validation("conversationId is required")
	}
	return nil
}

type outgoingMessage struct {
	Type          chat.MessageType  `json:"type"`
	Content       *string           `json:"content"`
	AttachmentRef *string           `json:"attachmentRef"`
	Metadata      map[string]string `json:"metadata"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
}

type sendMessageData struct {
	ConversationID string           `json:"conversationId"`
	Message        *outgoingMessage `json:"message"`
}

func (d sendMessageData) validate() error {
	if err := (conversationRef{d.ConversationID}).validate(); err != nil {
		return err
	}
	if d.Message == nil {
		return apperrors.Validation("message is required")
	}
	return nil
}

type markReadData struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	MarkAll        bool   `json:"markAll"`
}

type presenceQuery struct {
	UserIDs []string `json:"userIds"`
}

func (q presenceQuery) validate() error {
	if len(q.UserIDs) == 0 {
		return apperrors.Validation("userIds is required")
	}
	if len(q.UserIDs) > maxPresenceQuery {
		return apperrors.Validationf("at most %d userIds per request", maxPresenceQuery)
	}
	return nil
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return apperrors.Validation("data is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.Validation("malformed data")
	}
	return nil
}

// credential reads the bearer token from the Authorization header, falling
// back to the token query parameter for browser clients.
func credential(c *gin.Context) string {
	if tok := identity.FromAuthorization(c.GetHeader("Authorization")); tok != "" {
		return tok
	}
	return c.Query("token")
}

// Handle authenticates, upgrades and then serves frames until the client
// disconnects. Credential failures are answered with 401 before upgrading.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := ctl.Verifier.Verify(c.Request.Context(), credential(c))
		if err != nil {
			respondError(c, apperrors.ErrUnauthenticated)
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			ctl.Log.WithFields(logrus.Fields{"function": "ChatSocket", "user_id": userID}).WithError(err).Debug("websocket upgrade failed")
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.serve(c.Request.Context(), conn)
	}
}

func (ctl *ChatSocketController) serve(ctx context.Context, conn *realtime.Connection) {
	conn.Start()
	ctl.connected(ctx, conn)
	defer ctl.disconnected(ctx, conn)

	for {
		data, err := conn.Read()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				ctl.Log.WithFields(logrus.Fields{"function": "ChatSocket", "connection_id": conn.ID}).WithError(err).Debug("read loop ended")
			}
			return
		}
		ctl.dispatch(ctx, conn, data)
	}
}

func (ctl *ChatSocketController) connected(ctx context.Context, conn *realtime.Connection) {
	log := ctl.Log.WithFields(logrus.Fields{"function": "ChatSocket", "user_id": conn.UserID, "connection_id": conn.ID})
	ctl.Router.Attach(conn)

	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	count, err := ctl.Presence.SetOnline(ctx, conn.UserID)
	if err != nil {
		log.WithError(err).Warn("presence update failed on connect")
	}
	if count == 1 {
		ctl.Router.BroadcastAll(encodeEvent(eventFrame{
			Type: EventUserOnline,
			Data: presenceEvent{UserID: conn.UserID, Status: string(presence.StatusOnline), LastSeen: ctl.now().UTC()},
		}), conn.UserID)
	}
	ctl.Publisher.PushUnread(ctx, conn.UserID)
	log.WithField("connections", count).Info("realtime connection established")
}

// disconnected runs on a context detached from the request so cleanup
// completes after the client is gone.
func (ctl *ChatSocketController) disconnected(reqCtx context.Context, conn *realtime.Connection) {
	local, tracked := ctl.Router.Detach(conn)
	conn.Close(websocket.CloseNormalClosure, "session closed")
	if !tracked {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), ctl.inflightTimeout)
	defer cancel()
	log := ctl.Log.WithFields(logrus.Fields{"function": "ChatSocket", "user_id": conn.UserID, "connection_id": conn.ID})

	remaining, err := ctl.Presence.SetOffline(ctx, conn.UserID)
	if err != nil {
		log.WithError(err).Warn("presence update failed on disconnect")
		remaining = int64(local)
	}
	if remaining > 0 {
		log.WithField("connections", remaining).Debug("realtime connection closed")
		return
	}

	convs, err := ctl.Typing.ClearForUser(ctx, conn.UserID)
	if err != nil {
		log.WithError(err).Warn("typing cleanup failed")
	}
	for _, convID := range convs {
		ctl.Router.BroadcastExceptUser(convID, encodeEvent(eventFrame{
			Type: EventUserTyping,
			Data: typingEvent{ConversationID: convID, UserID: conn.UserID, IsTyping: false},
		}), conn.UserID)
	}
	ctl.Router.BroadcastAll(encodeEvent(eventFrame{
		Type: EventUserOffline,
		Data: presenceEvent{UserID: conn.UserID, Status: string(presence.StatusOffline), LastSeen: ctl.now().UTC()},
	}), conn.UserID)
	log.Info("user went offline")
}

func (ctl *ChatSocketController) dispatch(ctx context.Context, conn *realtime.Connection, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		ctl.replyError(conn, "", apperrors.Validation("invalid frame"))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	switch frame.Type {
	case IntentJoinConversation:
		ctl.reply(conn, frame, ctl.handleJoin(ctx, conn, frame.Data))
	case IntentLeaveConversation:
		ctl.reply(conn, frame, ctl.handleLeave(conn, frame.Data))
	case IntentSendMessage:
		ctl.reply(conn, frame, ctl.handleSend(ctx, conn, frame.Data))
	case IntentMarkRead:
		ctl.reply(conn, frame, ctl.handleMarkRead(ctx, conn, frame.Data))
	case IntentTypingStart, IntentTypingStop:
		ctl.handleTyping(ctx, conn, frame.Type == IntentTypingStart, frame.Data)
	case IntentHeartbeat:
		ctl.reply(conn, frame, ctl.handleHeartbeat(ctx, conn))
	case IntentSetAway:
		ctl.reply(conn, frame, ctl.handleSetAway(ctx, conn))
	case IntentGetPresence:
		ctl.handlePresence(ctx, conn, frame)
	default:
		ctl.replyError(conn, frame.RequestID, apperrors.Validationf("unknown message type %q", frame.Type))
	}
}

// result is what a request/response intent hands back for its ack. A nil
// data with nil err acks plain success.
type result struct {
	data  any
	err   error
	after func()
}

func (ctl *ChatSocketController) reply(conn *realtime.Connection, frame inboundFrame, res result) {
	ack := ackFrame{Type: EventAck, RequestID: frame.RequestID, Intent: frame.Type, Success: res.err == nil, Data: res.data}
	if res.err != nil {
		ack.Error = newErrorBody(res.err)
		if apperrors.KindOf(res.err) == apperrors.KindInternal {
			ctl.Log.WithFields(logrus.Fields{"function": "ChatSocket", "intent": frame.Type, "user_id": conn.UserID}).WithError(res.err).Error("intent failed")
		}
	}
	_ = conn.Send(encodeEvent(ack))
	if res.err == nil && res.after != nil {
		res.after()
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, requestID string, err error) {
	_ = conn.Send(encodeEvent(errorFrame{Type: EventError, RequestID: requestID, Error: newErrorBody(err)}))
}

func (ctl *ChatSocketController) handleJoin(ctx context.Context, conn *realtime.Connection, raw json.RawMessage) result {
	var in conversationRef
	if err := decodeData(raw, &in); err != nil {
		return result{err: err}
	}
	if err := in.validate(); err != nil {
		return result{err: err}
	}
	conv, err := ctl.Join.Execute(ctx, usecase.JoinConversationInput{ConversationID: in.ConversationID, UserID: conn.UserID})
	if err != nil {
		return result{err: err}
	}
	ctl.Router.Join(conv.ID, conn)

	typers, err := ctl.Typing.ActiveTypers(ctx, conv.ID)
	if err != nil {
		typers = nil
	}
	active := make([]string, 0, len(typers))
	for _, id := range typers {
		if id != conn.UserID {
			active = append(active, id)
		}
	}
	return result{data: gin.H{"conversationId": conv.ID, "status": conv.Status, "typing": active}}
}

func (ctl *ChatSocketController) handleLeave(conn *realtime.Connection, raw json.RawMessage) result {
	var in conversationRef
	if err := decodeData(raw, &in); err != nil {
		return result{err: err}
	}
	if err := in.validate(); err != nil {
		return result{err: err}
	}
	ctl.Router.Leave(in.ConversationID, conn)
	return result{data: gin.H{"conversationId": in.ConversationID}}
}

func (ctl *ChatSocketController) handleSend(ctx context.Context, conn *realtime.Connection, raw json.RawMessage) result {
	var in sendMessageData
	if err := decodeData(raw, &in); err != nil {
		return result{err: err}
	}
	if err := in.validate(); err != nil {
		return result{err: err}
	}
	if err := checkRate(ctx, ctl.Limiter, ctl.Log, ratelimit.ActionSendMessage, conn.UserID); err != nil {
		return result{err: err}
	}

	sent, err := ctl.Send.Execute(ctx, usecase.SendMessageInput{
		ConversationID: in.ConversationID,
		SenderID:       conn.UserID,
		Type:           in.Message.Type,
		Content:        in.Message.Content,
		AttachmentRef:  in.Message.AttachmentRef,
		Metadata:       in.Message.Metadata,
		Width:          in.Message.Width,
		Height:         in.Message.Height,
	})
	if err != nil {
		return result{err: err}
	}

	return result{
		data: gin.H{"messageId": sent.Message.ID, "createdAt": sent.Message.CreatedAt},
		after: func() {
			ctl.Publisher.MessageSent(ctx, sent, conn)
			// Sending ends composition.
			if stopped, err := ctl.Typing.StopTyping(ctx, in.ConversationID, conn.UserID); err == nil && stopped {
				ctl.broadcastTyping(in.ConversationID, conn.UserID, false)
			}
		},
	}
}

func (ctl *ChatSocketController) handleMarkRead(ctx context.Context, conn *realtime.Connection, raw json.RawMessage) result {
	var in markReadData
	if err := decodeData(raw, &in); err != nil {
		return result{err: err}
	}
	if err := (conversationRef{in.ConversationID}).validate(); err != nil {
		return result{err: err}
	}
	at := ctl.now().UTC()
	res, err := ctl.MarkRead.Execute(ctx, usecase.MarkReadInput{
		ConversationID: in.ConversationID,
		UserID:         conn.UserID,
		MessageID:      in.MessageID,
		MarkAll:        in.MarkAll,
	})
	if err != nil {
		return result{err: err}
	}

	data := gin.H{"count": res.Count, "markAll": res.MarkAll}
	if res.Message != nil {
		data["message"] = toMessageDTO(*res.Message)
	}
	return result{
		data:  gin.H{"result": data},
		after: func() { ctl.Publisher.MessagesRead(ctx, in.ConversationID, conn.UserID, res, at) },
	}
}

// handleTyping is fire-and-forget: failures are logged, never replied.
func (ctl *ChatSocketController) handleTyping(ctx context.Context, conn *realtime.Connection, start bool, raw json.RawMessage) {
	log := ctl.Log.WithFields(logrus.Fields{"function": "ChatSocket", "user_id": conn.UserID})
	var in conversationRef
	if err := decodeData(raw, &in); err != nil || in.validate() != nil {
		log.Debug("ignoring malformed typing frame")
		return
	}
	// Membership was checked when the room was joined.
	if !conn.InRoom(in.ConversationID) {
		log.WithField("conversation_id", in.ConversationID).Debug("typing outside a joined room ignored")
		return
	}

	if start {
		// A repeated start only refreshes the marker; peers already know.
		if extended, err := ctl.Typing.ExtendTyping(ctx, in.ConversationID, conn.UserID); err == nil && extended {
			return
		}
		if err := ctl.Typing.StartTyping(ctx, in.ConversationID, conn.UserID); err != nil {
			log.WithError(err).Warn("typing start failed")
			return
		}
		ctl.broadcastTyping(in.ConversationID, conn.UserID, true)
		return
	}
	stopped, err := ctl.Typing.StopTyping(ctx, in.ConversationID, conn.UserID)
	if err != nil {
		log.WithError(err).Warn("typing stop failed")
		return
	}
	if stopped {
		ctl.broadcastTyping(in.ConversationID, conn.UserID, false)
	}
}

func (ctl *ChatSocketController) broadcastTyping(conversationID, userID string, isTyping bool) {
	ctl.Router.BroadcastExceptUser(conversationID, encodeEvent(eventFrame{
		Type: EventUserTyping,
		Data: typingEvent{ConversationID: conversationID, UserID: userID, IsTyping: isTyping},
	}), userID)
}

// handleHeartbeat keeps the presence record alive. A record that already
// lapsed while sockets stayed open is restored with this node's live
// connection count. The ack carries the status actually stored.
func (ctl *ChatSocketController) handleHeartbeat(ctx context.Context, conn *realtime.Connection) result {
	alive, err := ctl.Presence.Heartbeat(ctx, conn.UserID)
	if err != nil {
		return result{err: apperrors.Internal("presence unavailable", err)}
	}
	if !alive {
		if err := ctl.restorePresence(ctx, conn); err != nil {
			return result{err: apperrors.Internal("presence unavailable", err)}
		}
	}
	rec, _, err := ctl.Presence.Get(ctx, conn.UserID)
	if err != nil {
		return result{err: apperrors.Internal("presence unavailable", err)}
	}
	return result{data: gin.H{"status": rec.Status}}
}

// handleSetAway marks a connected but inactive client AWAY. The state only
// returns to ONLINE through a new connection.
func (ctl *ChatSocketController) handleSetAway(ctx context.Context, conn *realtime.Connection) result {
	ok, err := ctl.Presence.SetAway(ctx, conn.UserID)
	if err == nil && !ok {
		if err = ctl.restorePresence(ctx, conn); err == nil {
			ok, err = ctl.Presence.SetAway(ctx, conn.UserID)
		}
	}
	if err != nil {
		return result{err: apperrors.Internal("presence unavailable", err)}
	}
	if !ok {
		return result{err: apperrors.Internal("presence unavailable", errors.New("presence record missing"))}
	}
	return result{data: gin.H{"status": presence.StatusAway}}
}

func (ctl *ChatSocketController) restorePresence(ctx context.Context, conn *realtime.Connection) error {
	n, err := ctl.Presence.Restore(ctx, conn.UserID, int64(ctl.Router.UserConnections(conn.UserID)))
	if err != nil {
		return err
	}
	ctl.Log.WithFields(logrus.Fields{"function": "ChatSocket", "user_id": conn.UserID, "connections": n}).Info("presence record restored")
	return nil
}

func (ctl *ChatSocketController) handlePresence(ctx context.Context, conn *realtime.Connection, frame inboundFrame) {
	var in presenceQuery
	err := decodeData(frame.Data, &in)
	if err == nil {
		err = in.validate()
	}
	if err != nil {
		ctl.replyError(conn, frame.RequestID, err)
		return
	}

	records, err := ctl.Presence.BulkPresence(ctx, in.UserIDs)
	if err != nil {
		ctl.replyError(conn, frame.RequestID, apperrors.Internal("presence unavailable", err))
		return
	}
	out := make([]presenceDTO, 0, len(in.UserIDs))
	for _, id := range in.UserIDs {
		rec := records[id]
		out = append(out, toPresenceDTO(id, rec, rec.Status != presence.StatusOffline))
	}
	_ = conn.Send(encodeEvent(eventFrame{Type: EventPresenceData, RequestID: frame.RequestID, Data: out}))
}
