package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/unillama15/fergun/internal/commandcache"
	"github.com/unillama15/fergun/pkg/fergun"
)

// CommandCallback receives trigger messages the bridge decided the command
// layer should (re-)process.
type CommandCallback func(ctx context.Context, message *fergun.Message)

// Option mutates bridge configuration.
type Option func(*Bridge)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(bridge *Bridge) {
		if logger != nil {
			bridge.logger = logger
		}
	}
}

// Bridge drives cache lookups and cascading response mutations from gateway
// notifications.
//
// Every notification runs as an independent fire-and-forget unit of work
// with its own error boundary; a failing cascade is logged and never
// propagated back to the gateway dispatcher. No ordering is guaranteed
// between cascades for different triggers.
type Bridge struct {
	gateway fergun.Gateway
	cache   *commandcache.Cache
	forward CommandCallback
	logger  *slog.Logger

	mu           sync.Mutex
	unsubscribes []func()
	cascades     sync.WaitGroup
}

// New creates a bridge over the provided collaborators. The forward callback
// may be nil when no command layer re-processes edited triggers.
func New(gateway fergun.Gateway, cache *commandcache.Cache, forward CommandCallback, options ...Option) (*Bridge, error) {
	if gateway == nil {
		return nil, fmt.Errorf("new bridge: nil gateway")
	}
	if cache == nil {
		return nil, fmt.Errorf("new bridge: nil cache")
	}

	bridge := &Bridge{
		gateway: gateway,
		cache:   cache,
		forward: forward,
		logger:  slog.Default(),
	}
	for _, option := range options {
		option(bridge)
	}

	return bridge, nil
}

// Start subscribes to the gateway edit and delete streams.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.unsubscribes = append(b.unsubscribes,
		b.gateway.SubscribeMessageDeleted(b.handleDeleted),
		b.gateway.SubscribeMessageEdited(b.handleEdited),
	)
}

// Close unsubscribes from the gateway and waits for in-flight cascades until
// the context expires.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	unsubscribes := b.unsubscribes
	b.unsubscribes = nil
	b.mu.Unlock()

	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}

	drained := make(chan struct{})
	go func() {
		b.cascades.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close bridge: %w", ctx.Err())
	}
}

func (b *Bridge) handleDeleted(ctx context.Context, event fergun.MessageDeletedEvent) {
	b.spawnCascade(ctx, "trigger-deleted", func(cascadeCtx context.Context, logger *slog.Logger) {
		b.cascadeDelete(cascadeCtx, logger, event)
	})
}

func (b *Bridge) handleEdited(ctx context.Context, event fergun.MessageEditedEvent) {
	b.spawnCascade(ctx, "trigger-edited", func(cascadeCtx context.Context, logger *slog.Logger) {
		b.cascadeEdit(cascadeCtx, logger, event)
	})
}

// spawnCascade runs one unit of work on its own goroutine behind a panic
// boundary so a failing cascade cannot destabilize the dispatcher.
func (b *Bridge) spawnCascade(ctx context.Context, kind string, run func(context.Context, *slog.Logger)) {
	logger := b.logger.With(
		"cascade_id", uuid.NewString(),
		"cascade", kind,
	)

	b.cascades.Add(1)
	go func() {
		defer b.cascades.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Warn("cascade panic recovered", "panic", recovered)
			}
		}()

		run(context.WithoutCancel(ctx), logger)
	}()
}

// cascadeDelete mirrors trigger deletion onto the cached response. Deletion
// is best effort and never re-queued; the cache entry is removed regardless
// of the gateway outcome.
func (b *Bridge) cascadeDelete(ctx context.Context, logger *slog.Logger, event fergun.MessageDeletedEvent) {
	responseID, cached := b.cache.Get(event.MessageID)
	if !cached {
		return
	}

	response, err := b.gateway.FetchMessage(ctx, event.ChannelID, responseID)
	switch {
	case errors.Is(err, fergun.ErrMessageNotFound):
		logger.Warn("cached response already gone",
			"trigger_id", event.MessageID,
			"response_id", responseID,
		)
	case err != nil:
		logger.Warn("fetch cached response",
			"trigger_id", event.MessageID,
			"response_id", responseID,
			"error", err,
		)
	default:
		if deleteErr := b.gateway.DeleteMessage(ctx, event.ChannelID, response.ID); deleteErr != nil {
			logger.Warn("delete cached response",
				"trigger_id", event.MessageID,
				"response_id", responseID,
				"error", deleteErr,
			)
		}
	}

	b.cache.Remove(event.MessageID)
}

// cascadeEdit reacts to a trigger edit: filters out non-edits, undoes stale
// response state, and forwards the trigger to the command layer.
func (b *Bridge) cascadeEdit(ctx context.Context, logger *slog.Logger, event fergun.MessageEditedEvent) {
	message := event.Message
	if message == nil {
		return
	}
	if strings.TrimSpace(message.Content) == "" || message.AuthorIsBot {
		return
	}
	if !event.HasBefore {
		logger.Debug("previous trigger content unavailable, skipping", "trigger_id", message.ID)
		return
	}
	if event.BeforeContent == message.Content {
		// Link-preview resolution reports an edit without a text change.
		logger.Debug("trigger content unchanged, skipping", "trigger_id", message.ID)
		return
	}

	responseID, cached := b.cache.Get(message.ID)
	if !cached {
		b.forwardEdited(ctx, message)
		return
	}

	response, err := b.gateway.FetchMessage(ctx, event.ChannelID, responseID)
	switch {
	case err != nil:
		logger.Warn("cached response no longer reachable",
			"trigger_id", message.ID,
			"response_id", responseID,
			"error", err,
		)
		b.cache.Remove(message.ID)
	case response.HasAttachments():
		// Attachment-bearing responses cannot be edited in place; drop the
		// response so the re-run sends a fresh one.
		if deleteErr := b.gateway.DeleteMessage(ctx, event.ChannelID, response.ID); deleteErr != nil {
			logger.Warn("delete attachment response",
				"trigger_id", message.ID,
				"response_id", responseID,
				"error", deleteErr,
			)
		}
		b.cache.Remove(message.ID)
	case len(response.Reactions) > 0:
		b.clearResponseReactions(ctx, logger, event.ChannelID, response)
	}

	b.forwardEdited(ctx, message)
}

// clearResponseReactions undoes reaction-based UI state before the response
// is considered for re-editing. With elevated permission all reactions go in
// one call; otherwise only the bot's own reactions are removed, one at a time.
func (b *Bridge) clearResponseReactions(ctx context.Context, logger *slog.Logger, channelID fergun.Snowflake, response *fergun.Message) {
	canManage, err := b.gateway.CanManageMessages(ctx, channelID)
	if err != nil {
		logger.Warn("resolve manage-messages permission",
			"channel_id", channelID,
			"error", err,
		)
		canManage = false
	}

	if canManage {
		if err := b.gateway.ClearAllReactions(ctx, channelID, response.ID); err != nil {
			logger.Warn("clear response reactions",
				"response_id", response.ID,
				"error", err,
			)
		}
		return
	}

	for _, reaction := range response.Reactions {
		if !reaction.Me {
			continue
		}
		if err := b.gateway.RemoveOwnReaction(ctx, channelID, response.ID, reaction.Emoji); err != nil {
			logger.Warn("remove own response reaction",
				"response_id", response.ID,
				"emoji", reaction.Emoji,
				"error", err,
			)
		}
	}
}

func (b *Bridge) forwardEdited(ctx context.Context, message *fergun.Message) {
	if b.forward == nil {
		return
	}
	b.forward(ctx, message)
}
