package fergun

import (
	"fmt"
	"io"
)

// Message is the neutral projection of one chat message.
type Message struct {
	// ID is the message snowflake assigned by the gateway.
	ID Snowflake
	// ChannelID identifies the channel containing the message.
	ChannelID Snowflake
	// AuthorID identifies the message author when known.
	AuthorID Snowflake
	// AuthorIsBot reports whether the author is an automated account.
	AuthorIsBot bool
	// Content is the plain text body.
	Content string
	// Attachments lists file attachments carried by the message.
	Attachments []Attachment
	// Reactions lists aggregated emoji reactions on the message.
	Reactions []Reaction
}

// HasAttachments reports whether the message carries at least one attachment.
func (m *Message) HasAttachments() bool {
	return m != nil && len(m.Attachments) > 0
}

// Attachment describes one uploaded file on a message.
type Attachment struct {
	// ID is the attachment snowflake.
	ID Snowflake
	// Name is the original filename.
	Name string
	// URL is the retrievable attachment location.
	URL string
}

// Reaction describes one aggregated emoji reaction on a message.
type Reaction struct {
	// Emoji is the gateway token for the emoji (name, or name:id for custom ones).
	Emoji string
	// Count is how many users applied this reaction.
	Count int
	// Me reports whether the bot's own account applied this reaction.
	Me bool
}

// FileUpload carries one outbound attachment payload.
type FileUpload struct {
	// Name is the filename presented to the destination platform.
	Name string
	// ContentType is the MIME type when known.
	ContentType string
	// Reader streams the attachment bytes.
	Reader io.Reader
}

// SendMessageRequest describes a new outbound message.
type SendMessageRequest struct {
	// ChannelID identifies the destination channel.
	ChannelID Snowflake
	// Content is the message body. Optional when File is set.
	Content string
	// ReplyToID optionally links the message as a reply to another message.
	ReplyToID Snowflake
	// File optionally attaches one file upload.
	File *FileUpload
}

// Validate checks the request envelope before dispatch.
func (r SendMessageRequest) Validate() error {
	if r.ChannelID.IsZero() {
		return fmt.Errorf("%w: missing channel id", ErrInvalidRequest)
	}
	if r.Content == "" && r.File == nil {
		return fmt.Errorf("%w: missing message content", ErrInvalidRequest)
	}
	if r.File != nil {
		if r.File.Name == "" {
			return fmt.Errorf("%w: missing file name", ErrInvalidRequest)
		}
		if r.File.Reader == nil {
			return fmt.Errorf("%w: missing file reader", ErrInvalidRequest)
		}
	}

	return nil
}

// EditMessageRequest describes a content edit of an existing message.
type EditMessageRequest struct {
	// ChannelID identifies the channel containing the message.
	ChannelID Snowflake
	// MessageID identifies the message to edit.
	MessageID Snowflake
	// Content is the replacement body.
	Content string
}

// Validate checks the request envelope before dispatch.
func (r EditMessageRequest) Validate() error {
	if r.ChannelID.IsZero() {
		return fmt.Errorf("%w: missing channel id", ErrInvalidRequest)
	}
	if r.MessageID.IsZero() {
		return fmt.Errorf("%w: missing message id", ErrInvalidRequest)
	}
	if r.Content == "" {
		return fmt.Errorf("%w: missing message content", ErrInvalidRequest)
	}

	return nil
}
