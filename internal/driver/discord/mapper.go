package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/unillama15/fergun/pkg/fergun"
)

// mapMessage converts a platform message into the domain representation.
// Webhook messages may carry a nil author; those map to a zero author that is
// treated as a bot so they never re-enter command handling.
func mapMessage(message *discordgo.Message) (*fergun.Message, error) {
	if message == nil {
		return nil, fmt.Errorf("map message: nil message")
	}

	id, err := fergun.ParseSnowflake(message.ID)
	if err != nil {
		return nil, fmt.Errorf("map message: id: %w", err)
	}
	channelID, err := fergun.ParseSnowflake(message.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("map message %s: channel id: %w", message.ID, err)
	}

	mapped := &fergun.Message{
		ID:          id,
		ChannelID:   channelID,
		AuthorIsBot: true,
		Content:     message.Content,
	}
	if message.Author != nil {
		authorID, err := fergun.ParseSnowflake(message.Author.ID)
		if err != nil {
			return nil, fmt.Errorf("map message %s: author id: %w", message.ID, err)
		}
		mapped.AuthorID = authorID
		mapped.AuthorIsBot = message.Author.Bot
	}

	for _, attachment := range message.Attachments {
		if attachment == nil {
			continue
		}
		attachmentID, err := fergun.ParseSnowflake(attachment.ID)
		if err != nil {
			return nil, fmt.Errorf("map message %s: attachment id: %w", message.ID, err)
		}
		mapped.Attachments = append(mapped.Attachments, fergun.Attachment{
			ID:   attachmentID,
			Name: attachment.Filename,
			URL:  attachment.URL,
		})
	}

	for _, reaction := range message.Reactions {
		if reaction == nil || reaction.Emoji == nil {
			continue
		}
		mapped.Reactions = append(mapped.Reactions, fergun.Reaction{
			Emoji: reaction.Emoji.APIName(),
			Count: reaction.Count,
			Me:    reaction.Me,
		})
	}

	return mapped, nil
}

// mapMessageUpdate converts an edit event. The previous content comes from
// the session state cache and is absent when the message aged out of it.
func mapMessageUpdate(update *discordgo.MessageUpdate) (*fergun.MessageEditedEvent, error) {
	if update == nil || update.Message == nil {
		return nil, fmt.Errorf("map message update: nil update")
	}

	message, err := mapMessage(update.Message)
	if err != nil {
		return nil, fmt.Errorf("map message update: %w", err)
	}

	event := &fergun.MessageEditedEvent{
		ChannelID: message.ChannelID,
		Message:   message,
	}
	if update.BeforeUpdate != nil {
		event.BeforeContent = update.BeforeUpdate.Content
		event.HasBefore = true
	}

	return event, nil
}

func mapMessageDelete(deletion *discordgo.MessageDelete) (*fergun.MessageDeletedEvent, error) {
	if deletion == nil || deletion.Message == nil {
		return nil, fmt.Errorf("map message delete: nil deletion")
	}

	messageID, err := fergun.ParseSnowflake(deletion.ID)
	if err != nil {
		return nil, fmt.Errorf("map message delete: id: %w", err)
	}
	channelID, err := fergun.ParseSnowflake(deletion.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("map message delete %s: channel id: %w", deletion.ID, err)
	}

	return &fergun.MessageDeletedEvent{
		ChannelID: channelID,
		MessageID: messageID,
	}, nil
}
