package fergun

import "context"

// MessageCreatedHandler consumes one newly posted message.
type MessageCreatedHandler func(ctx context.Context, message *Message)

// MessageEditedHandler consumes one message-edited notification.
type MessageEditedHandler func(ctx context.Context, event MessageEditedEvent)

// MessageDeletedHandler consumes one message-deleted notification.
type MessageDeletedHandler func(ctx context.Context, event MessageDeletedEvent)

// MessageEditedEvent reports an edit observed on the gateway.
//
// Notifications can arrive in any order, concurrently, and with duplicates;
// consumers must tolerate all three.
type MessageEditedEvent struct {
	// ChannelID identifies the channel containing the edited message.
	ChannelID Snowflake
	// Message is the post-edit projection of the message.
	Message *Message
	// BeforeContent is the pre-edit text body when the gateway still holds a
	// copy. Link-preview resolution surfaces as an edit with unchanged content,
	// so consumers compare BeforeContent against Message.Content to tell a
	// genuine text edit apart.
	BeforeContent string
	// HasBefore reports whether BeforeContent is populated.
	HasBefore bool
}

// MessageDeletedEvent reports a deletion observed on the gateway.
type MessageDeletedEvent struct {
	// ChannelID identifies the channel that contained the message.
	ChannelID Snowflake
	// MessageID identifies the deleted message.
	MessageID Snowflake
}

// Gateway is the chat-platform collaborator consumed by the correlation
// subsystems.
//
// Implementations must be safe for unbounded concurrent callers. Errors from
// message operations wrap ErrMessageNotFound when the platform reports the
// message as gone.
type Gateway interface {
	// FetchMessage retrieves one message by channel and identifier.
	FetchMessage(ctx context.Context, channelID, messageID Snowflake) (*Message, error)
	// SendMessage publishes a new message and returns its projection with the
	// gateway-assigned identifier.
	SendMessage(ctx context.Context, request SendMessageRequest) (*Message, error)
	// EditMessage replaces the content of an existing message in place and
	// returns the updated projection.
	EditMessage(ctx context.Context, request EditMessageRequest) (*Message, error)
	// DeleteMessage removes an existing message.
	DeleteMessage(ctx context.Context, channelID, messageID Snowflake) error
	// ClearAllReactions removes every reaction from a message in one call.
	// Requires elevated channel permission.
	ClearAllReactions(ctx context.Context, channelID, messageID Snowflake) error
	// RemoveOwnReaction removes one reaction the bot's own account applied.
	RemoveOwnReaction(ctx context.Context, channelID, messageID Snowflake, emoji string) error
	// CanManageMessages reports whether the bot holds the elevated
	// message-management permission in the channel.
	CanManageMessages(ctx context.Context, channelID Snowflake) (bool, error)
	// SubscribeMessageCreated registers a handler for new messages and
	// returns its unsubscribe function.
	SubscribeMessageCreated(handler MessageCreatedHandler) (unsubscribe func())
	// SubscribeMessageEdited registers a handler for message edits and
	// returns its unsubscribe function.
	SubscribeMessageEdited(handler MessageEditedHandler) (unsubscribe func())
	// SubscribeMessageDeleted registers a handler for message deletions and
	// returns its unsubscribe function.
	SubscribeMessageDeleted(handler MessageDeletedHandler) (unsubscribe func())
}
