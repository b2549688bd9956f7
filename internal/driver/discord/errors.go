package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/unillama15/fergun/pkg/fergun"
)

// mapRESTError translates discordgo REST failures into domain sentinels so
// callers can branch on errors.Is without importing platform types.
func mapRESTError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%s: %w", operation, fergun.ErrMessageNotFound)
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}
