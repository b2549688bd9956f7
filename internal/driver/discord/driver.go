package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/unillama15/fergun/pkg/fergun"
)

const defaultMessageCacheSize = 1000

// Config contains Discord session settings.
type Config struct {
	// Token is the bot token, without the "Bot " prefix.
	Token string
	// MessageCacheSize bounds the session state cache that supplies pre-edit
	// content for edit events. Zero selects the default.
	MessageCacheSize int
}

// Option mutates driver configuration.
type Option func(*Driver)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(driver *Driver) {
		if logger != nil {
			driver.logger = logger
		}
	}
}

// Driver exposes one Discord bot session through the neutral gateway surface.
type Driver struct {
	session *discordgo.Session
	logger  *slog.Logger

	mu      sync.RWMutex
	baseCtx context.Context
}

var _ fergun.Gateway = (*Driver)(nil)

// New creates a Discord driver. The session connects when Start runs.
func New(cfg Config, options ...Option) (*Driver, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("new discord driver: empty token")
	}
	if cfg.MessageCacheSize <= 0 {
		cfg.MessageCacheSize = defaultMessageCacheSize
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("new discord driver: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent
	// The state cache is what lets edit events carry their pre-edit content.
	session.State.MaxMessageCount = cfg.MessageCacheSize

	driver := &Driver{
		session: session,
		logger:  slog.Default(),
		baseCtx: context.Background(),
	}
	for _, option := range options {
		option(driver)
	}

	return driver, nil
}

// Start opens the gateway connection and blocks until the context ends.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	d.baseCtx = ctx
	d.mu.Unlock()

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("start discord driver: open session: %w", err)
	}
	d.logger.Info("discord session open")

	<-ctx.Done()

	d.mu.Lock()
	d.baseCtx = context.Background()
	d.mu.Unlock()

	if err := d.session.Close(); err != nil {
		return fmt.Errorf("start discord driver: close session: %w", err)
	}
	d.logger.Info("discord session closed")

	return nil
}

func (d *Driver) handlerContext() context.Context {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.baseCtx
}

// FetchMessage retrieves one message by channel and identifier.
func (d *Driver) FetchMessage(ctx context.Context, channelID, messageID fergun.Snowflake) (*fergun.Message, error) {
	fetched, err := d.session.ChannelMessage(channelID.String(), messageID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapRESTError("fetch message", err)
	}

	message, err := mapMessage(fetched)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}

	return message, nil
}

// SendMessage publishes a new message, optionally as a reply with a file.
func (d *Driver) SendMessage(ctx context.Context, request fergun.SendMessageRequest) (*fergun.Message, error) {
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	payload := &discordgo.MessageSend{Content: request.Content}
	if !request.ReplyToID.IsZero() {
		payload.Reference = &discordgo.MessageReference{
			MessageID: request.ReplyToID.String(),
			ChannelID: request.ChannelID.String(),
		}
	}
	if request.File != nil {
		payload.Files = []*discordgo.File{{
			Name:        request.File.Name,
			ContentType: request.File.ContentType,
			Reader:      request.File.Reader,
		}}
	}

	sent, err := d.session.ChannelMessageSendComplex(request.ChannelID.String(), payload, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapRESTError("send message", err)
	}

	message, err := mapMessage(sent)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	return message, nil
}

// EditMessage replaces the content of an existing message in place.
func (d *Driver) EditMessage(ctx context.Context, request fergun.EditMessageRequest) (*fergun.Message, error) {
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}

	edited, err := d.session.ChannelMessageEdit(
		request.ChannelID.String(),
		request.MessageID.String(),
		request.Content,
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return nil, mapRESTError("edit message", err)
	}

	message, err := mapMessage(edited)
	if err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}

	return message, nil
}

// DeleteMessage removes an existing message.
func (d *Driver) DeleteMessage(ctx context.Context, channelID, messageID fergun.Snowflake) error {
	err := d.session.ChannelMessageDelete(channelID.String(), messageID.String(), discordgo.WithContext(ctx))

	return mapRESTError("delete message", err)
}

// ClearAllReactions removes every reaction from a message in one call.
func (d *Driver) ClearAllReactions(ctx context.Context, channelID, messageID fergun.Snowflake) error {
	err := d.session.MessageReactionsRemoveAll(channelID.String(), messageID.String(), discordgo.WithContext(ctx))

	return mapRESTError("clear all reactions", err)
}

// RemoveOwnReaction removes one reaction applied by the bot account.
func (d *Driver) RemoveOwnReaction(ctx context.Context, channelID, messageID fergun.Snowflake, emoji string) error {
	err := d.session.MessageReactionRemove(channelID.String(), messageID.String(), emoji, "@me", discordgo.WithContext(ctx))

	return mapRESTError("remove own reaction", err)
}

// CanManageMessages reports whether the bot holds the message-management
// permission in the channel.
func (d *Driver) CanManageMessages(ctx context.Context, channelID fergun.Snowflake) (bool, error) {
	if d.session.State == nil || d.session.State.User == nil {
		return false, fmt.Errorf("can manage messages: session identity unknown")
	}

	permissions, err := d.session.UserChannelPermissions(d.session.State.User.ID, channelID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return false, mapRESTError("can manage messages", err)
	}

	return permissions&discordgo.PermissionManageMessages != 0, nil
}

// SubscribeMessageCreated registers a handler for new messages.
func (d *Driver) SubscribeMessageCreated(handler fergun.MessageCreatedHandler) func() {
	return d.session.AddHandler(func(_ *discordgo.Session, event *discordgo.MessageCreate) {
		message, err := mapMessage(event.Message)
		if err != nil {
			d.logger.Warn("drop message created event", "error", err)
			return
		}
		handler(d.handlerContext(), message)
	})
}

// SubscribeMessageEdited registers a handler for message edits.
func (d *Driver) SubscribeMessageEdited(handler fergun.MessageEditedHandler) func() {
	return d.session.AddHandler(func(_ *discordgo.Session, event *discordgo.MessageUpdate) {
		edited, err := mapMessageUpdate(event)
		if err != nil {
			d.logger.Warn("drop message edited event", "error", err)
			return
		}
		handler(d.handlerContext(), *edited)
	})
}

// SubscribeMessageDeleted registers a handler for message deletions.
func (d *Driver) SubscribeMessageDeleted(handler fergun.MessageDeletedHandler) func() {
	return d.session.AddHandler(func(_ *discordgo.Session, event *discordgo.MessageDelete) {
		deleted, err := mapMessageDelete(event)
		if err != nil {
			d.logger.Warn("drop message deleted event", "error", err)
			return
		}
		handler(d.handlerContext(), *deleted)
	})
}
