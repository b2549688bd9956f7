package responder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/unillama15/fergun/internal/commandcache"
	"github.com/unillama15/fergun/pkg/fergun"
)

// Option mutates responder configuration.
type Option func(*Responder)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(responder *Responder) {
		if logger != nil {
			responder.logger = logger
		}
	}
}

// Responder decides between editing a previous response and sending a new
// one, consulting the correlation cache around every gateway call. The cache
// is never held locked across a gateway call; existence of the previous
// response is re-checked by the edit attempt itself.
type Responder struct {
	gateway fergun.Gateway
	cache   *commandcache.Cache
	logger  *slog.Logger
}

// New creates a responder over the provided collaborators.
func New(gateway fergun.Gateway, cache *commandcache.Cache, options ...Option) (*Responder, error) {
	if gateway == nil {
		return nil, fmt.Errorf("new responder: nil gateway")
	}
	if cache == nil {
		return nil, fmt.Errorf("new responder: nil cache")
	}

	responder := &Responder{
		gateway: gateway,
		cache:   cache,
		logger:  slog.Default(),
	}
	for _, option := range options {
		option(responder)
	}

	return responder, nil
}

// Reply edits the response already correlated with the trigger, or sends and
// registers a new one when no editable response exists.
//
// The cache entry is left untouched on the edit path: an edited response
// keeps its original eviction priority.
func (r *Responder) Reply(ctx context.Context, channelID, triggerID fergun.Snowflake, content string) (*fergun.Message, error) {
	if responseID, cached := r.cache.Get(triggerID); cached {
		edited, err := r.gateway.EditMessage(ctx, fergun.EditMessageRequest{
			ChannelID: channelID,
			MessageID: responseID,
			Content:   content,
		})
		if err == nil {
			return edited, nil
		}
		if !errors.Is(err, fergun.ErrMessageNotFound) {
			r.logger.Warn("edit cached response",
				"trigger_id", triggerID,
				"response_id", responseID,
				"error", err,
			)
		}
		// The previous response is gone or unusable; fall through to a fresh
		// send, which overwrites the stale cache entry.
	}

	sent, err := r.gateway.SendMessage(ctx, fergun.SendMessageRequest{
		ChannelID: channelID,
		Content:   content,
		ReplyToID: triggerID,
	})
	if err != nil {
		return nil, fmt.Errorf("reply to trigger %s: send message: %w", triggerID, err)
	}
	r.cache.Put(triggerID, sent.ID)

	return sent, nil
}

// ReplyWithAttachment never edits in place: attachments cannot be swapped by
// edit, so any previously cached response is deleted before a fresh one is
// sent and registered. The response identifier changes, the "one live
// response per trigger" contract does not.
func (r *Responder) ReplyWithAttachment(ctx context.Context, channelID, triggerID fergun.Snowflake, content string, file fergun.FileUpload) (*fergun.Message, error) {
	if responseID, cached := r.cache.Get(triggerID); cached {
		if err := r.gateway.DeleteMessage(ctx, channelID, responseID); err != nil && !errors.Is(err, fergun.ErrMessageNotFound) {
			r.logger.Warn("delete previous response",
				"trigger_id", triggerID,
				"response_id", responseID,
				"error", err,
			)
		}
		r.cache.Remove(triggerID)
	}

	sent, err := r.gateway.SendMessage(ctx, fergun.SendMessageRequest{
		ChannelID: channelID,
		Content:   content,
		ReplyToID: triggerID,
		File:      &file,
	})
	if err != nil {
		return nil, fmt.Errorf("reply to trigger %s: send attachment message: %w", triggerID, err)
	}
	r.cache.Put(triggerID, sent.ID)

	return sent, nil
}
