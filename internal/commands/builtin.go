package commands

import (
	"context"
	"fmt"

	"github.com/unillama15/fergun/internal/responder"
)

// RegisterBuiltins wires the builtin commands into the router.
func RegisterBuiltins(router *Router, respond *responder.Responder) error {
	if router == nil {
		return fmt.Errorf("register builtins: nil router")
	}
	if respond == nil {
		return fmt.Errorf("register builtins: nil responder")
	}

	if err := router.Register("ping", pingHandler(respond)); err != nil {
		return fmt.Errorf("register builtins: %w", err)
	}
	if err := router.Register("echo", echoHandler(respond)); err != nil {
		return fmt.Errorf("register builtins: %w", err)
	}

	return nil
}

// pingHandler replies with pong; re-running it edits the previous pong.
func pingHandler(respond *responder.Responder) HandlerFunc {
	return func(ctx context.Context, request *Request) error {
		_, err := respond.Reply(ctx, request.Message.ChannelID, request.Message.ID, "pong!")
		if err != nil {
			return fmt.Errorf("send pong: %w", err)
		}

		return nil
	}
}

// echoHandler replies with the invocation arguments. Editing the trigger's
// arguments edits the echoed response instead of posting a second one.
func echoHandler(respond *responder.Responder) HandlerFunc {
	return func(ctx context.Context, request *Request) error {
		body := request.Args
		if body == "" {
			body = "nothing to echo"
		}

		_, err := respond.Reply(ctx, request.Message.ChannelID, request.Message.ID, body)
		if err != nil {
			return fmt.Errorf("send echo: %w", err)
		}

		return nil
	}
}
