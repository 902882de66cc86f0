package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"marketplace-chat/internal/infrastructure/identity"
	"marketplace-chat/internal/infrastructure/realtime"
	storage "marketplace-chat/internal/infrastructure/storage/port"
	"marketplace-chat/internal/pkg/chat/application/archival"
	"marketplace-chat/internal/pkg/chat/application/presence"
	"marketplace-chat/internal/pkg/chat/application/typing"
	"marketplace-chat/internal/pkg/chat/application/usecase"
	"marketplace-chat/internal/pkg/chat/presentation/controller"
)

// UseCases bundles the application services the chat endpoints call.
type UseCases struct {
	CreateConversation  *usecase.CreateConversationUseCase
	ListConversations   *usecase.ListConversationsUseCase
	GetConversation     *usecase.GetConversationUseCase
	ArchiveConversation *usecase.ArchiveConversationUseCase
	ListParticipants    *usecase.ListParticipantsUseCase
	JoinConversation    *usecase.JoinConversationUseCase
	UnreadCount         *usecase.GetUnreadCountUseCase
	SendMessage         *usecase.SendMessageUseCase
	FetchMessages       *usecase.FetchMessagesUseCase
	MarkRead            *usecase.MarkReadUseCase
	SearchMessages      *usecase.SearchMessagesUseCase
	RequestImageUpload  *usecase.RequestImageUploadUseCase
	ConfirmImageUpload  *usecase.ConfirmImageUploadUseCase
	EraseImage          *usecase.EraseImageUseCase
}

// Dependencies is everything RegisterRoutes needs to build controllers.
type Dependencies struct {
	UseCases
	Router     *realtime.Router
	Verifier   identity.Verifier
	Presence   *presence.Tracker
	Typing     *typing.Tracker
	Limiter    controller.RateLimiter
	Jobs       *archival.Jobs
	AdminToken string
	// Uploads is set when the object store receives uploads itself.
	Uploads storage.UploadTarget
	Log     logrus.FieldLogger
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, d Dependencies) {
	pub := controller.NewPublisher(d.Router, d.UnreadCount, d.Log)

	socketCtl := controller.NewChatSocketController(controller.SocketDeps{
		Router:    d.Router,
		Publisher: pub,
		Verifier:  d.Verifier,
		Presence:  d.Presence,
		Typing:    d.Typing,
		Limiter:   d.Limiter,
		Join:      d.JoinConversation,
		Send:      d.SendMessage,
		MarkRead:  d.MarkRead,
		Log:       d.Log,
	})

	// GET /api/v1/chat/ws -> websocket endpoint for realtime chat; it
	// authenticates itself before upgrading.
	g.GET("/chat/ws", socketCtl.Handle())

	if d.Uploads != nil {
		// PUT /api/v1/uploads/*key -> signed upload target, the signature is the credential
		g.PUT("/uploads/*key", controller.NewUploadController(d.Uploads, d.Log).Handle())
	}

	// POST /api/v1/admin/jobs/:name -> run archive or cleanup now
	g.POST("/admin/jobs/:name", controller.NewAdminJobController(d.Jobs, d.AdminToken).Handle())
	// GET /api/v1/admin/presence -> number of users currently online
	g.GET("/admin/presence", controller.NewAdminPresenceController(d.Presence, d.AdminToken).Handle())

	authed := g.Group("", Authenticate(d.Verifier))

	authed.POST("/conversations", controller.NewCreateConversationController(d.CreateConversation, d.Limiter, d.Log).Handle())
	authed.GET("/conversations", controller.NewListConversationsController(d.ListConversations).Handle())
	authed.GET("/conversations/:conversationId", controller.NewGetConversationController(d.GetConversation).Handle())
	authed.POST("/conversations/:conversationId/archive", controller.NewArchiveConversationController(d.ArchiveConversation).Handle())
	authed.GET("/conversations/:conversationId/participants", controller.NewListParticipantsController(d.ListParticipants).Handle())

	authed.GET("/conversations/:conversationId/messages", controller.NewGetMessagesController(d.FetchMessages).Handle())
	authed.POST("/conversations/:conversationId/messages", controller.NewSendMessageController(d.SendMessage, pub, d.Limiter, d.Log).Handle())
	authed.POST("/conversations/:conversationId/read", controller.NewMarkReadController(d.MarkRead, pub).Handle())
	authed.GET("/messages/search", controller.NewSearchMessagesController(d.SearchMessages, d.Limiter, d.Log).Handle())

	authed.POST("/conversations/:conversationId/images/upload-url", controller.NewRequestImageUploadController(d.RequestImageUpload).Handle())
	authed.POST("/conversations/:conversationId/images/confirm", controller.NewConfirmImageUploadController(d.ConfirmImageUpload, pub).Handle())
	authed.DELETE("/messages/:messageId/image", controller.NewEraseImageController(d.EraseImage).Handle())

	authed.GET("/unread", controller.NewUnreadCountController(d.UnreadCount).Handle())
}
