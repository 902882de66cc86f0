package errors

var (
	// Domain errors shared by the chat use cases and the gateway
	ErrConversationNotFound = NotFound("conversation not found")
	ErrMessageNotFound      = NotFound("message not found")
	ErrNotParticipant       = Forbidden("user is not a participant in this conversation")
	ErrOwnMessageRead       = Forbidden("cannot mark your own message as read")
	ErrNotImageOwner        = Forbidden("only the sender can erase an image")
	ErrOriginLinkForbidden  = Forbidden("requester is not a party to the originating application")
	ErrSelfConversation     = Validation("cannot open a conversation with yourself")
	ErrEmptyContent         = Validation("message content is required")
	ErrContentTooLong       = Validation("message content exceeds 5000 characters")
	ErrCaptionTooLong       = Validation("image caption exceeds 500 characters")
	ErrAttachmentRequired   = Validation("image messages require an attachment")
	ErrInvalidMessageType   = Validation("unsupported message type")
	ErrInvalidCursor        = Validation("invalid cursor")
	ErrMarkReadMode         = Validation("exactly one of messageId or markAll is required")
	ErrUnauthenticated      = Unauthenticated("missing or invalid credential")
	ErrApplicationNotFound  = NotFound("application not found")
	ErrImageNotFound        = NotFound("image not found")
	ErrMetadataInvalid      = Validation("metadata allows at most 20 entries with keys up to 64 and values up to 500 characters")
	ErrUnsupportedImage     = Validation("unsupported image type: use jpeg, png, webp or gif")
	ErrImageTooLarge        = Validation("image must be between 1 byte and 10 MiB")
	ErrImageDimensions      = Validation("image dimensions must be positive and at most 20000 pixels")
	ErrForeignStorageKey    = Validation("storage key does not belong to this conversation")
	ErrUploadMissing        = Validation("uploaded image not found; upload it before confirming")
	ErrEmptyQuery           = Validation("search query is required")
	ErrQueryTooLong         = Validation("search query exceeds 200 characters")
)
