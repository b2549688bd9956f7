package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/unillama15/fergun/pkg/fergun"
)

// DefaultPrefix marks ordinary command invocations.
const DefaultPrefix = "f!"

// Request carries one parsed command invocation.
type Request struct {
	// Message is the trigger message containing the invocation.
	Message *fergun.Message
	// Name is the lowercased command name without prefix or mention suffix.
	Name string
	// Args is the raw argument remainder after the command name.
	Args string
}

// HandlerFunc executes one command invocation.
type HandlerFunc func(ctx context.Context, request *Request) error

// Option mutates router configuration.
type Option func(*Router)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(router *Router) {
		if logger != nil {
			router.logger = logger
		}
	}
}

// Router parses prefix commands out of trigger messages and dispatches them.
// Dispatch is safe for concurrent callers; handler failures and panics are
// logged and never propagate to the caller.
type Router struct {
	prefix string
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRouter creates a command router for the given invocation prefix.
func NewRouter(prefix string, options ...Option) (*Router, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, fmt.Errorf("new command router: empty prefix")
	}

	router := &Router{
		prefix:   prefix,
		logger:   slog.Default(),
		handlers: make(map[string]HandlerFunc),
	}
	for _, option := range options {
		option(router)
	}

	return router, nil
}

// Register binds a handler to a command name.
func (r *Router) Register(name string, handler HandlerFunc) error {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return fmt.Errorf("register command: empty name")
	}
	if handler == nil {
		return fmt.Errorf("register command %s: nil handler", normalized)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[normalized]; exists {
		return fmt.Errorf("register command %s: duplicate name", normalized)
	}
	r.handlers[normalized] = handler

	return nil
}

// Dispatch parses a trigger message and runs the matching handler, if any.
// Its signature matches the bridge's command callback.
func (r *Router) Dispatch(ctx context.Context, message *fergun.Message) {
	if message == nil || message.AuthorIsBot {
		return
	}

	request, matched := r.parse(message)
	if !matched {
		return
	}

	r.mu.RLock()
	handler, exists := r.handlers[request.Name]
	r.mu.RUnlock()
	if !exists {
		r.logger.Debug("unknown command", "command", request.Name, "trigger_id", message.ID)
		return
	}

	if err := r.runSafely(ctx, handler, request); err != nil {
		r.logger.Warn("command failed",
			"command", request.Name,
			"trigger_id", message.ID,
			"error", err,
		)
	}
}

// runSafely executes one handler behind a panic boundary.
func (r *Router) runSafely(ctx context.Context, handler HandlerFunc, request *Request) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		err = fmt.Errorf("command %s: panic recovered: %v", request.Name, recovered)
	}()

	if err := handler(ctx, request); err != nil {
		return fmt.Errorf("command %s: %w", request.Name, err)
	}

	return nil
}

func (r *Router) parse(message *fergun.Message) (*Request, bool) {
	text := strings.TrimSpace(message.Content)
	if !strings.HasPrefix(text, r.prefix) {
		return nil, false
	}

	invocation := strings.TrimSpace(text[len(r.prefix):])
	if invocation == "" {
		return nil, false
	}

	name := invocation
	args := ""
	if separator := strings.IndexAny(invocation, " \t\n"); separator >= 0 {
		name = invocation[:separator]
		args = strings.TrimSpace(invocation[separator:])
	}

	name = strings.ToLower(name)
	if mentionSeparator := strings.Index(name, "@"); mentionSeparator >= 0 {
		name = name[:mentionSeparator]
	}
	if name == "" {
		return nil, false
	}

	return &Request{Message: message, Name: name, Args: args}, true
}
