package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/unillama15/fergun/internal/commandcache"
	"github.com/unillama15/fergun/pkg/fergun"
)

type fakeGateway struct {
	mu sync.Mutex

	nextID   fergun.Snowflake
	messages map[fergun.Snowflake]*fergun.Message

	sendErr error
	editErr error

	sendCalls   int
	editCalls   int
	deleteCalls int
	lastSend    fergun.SendMessageRequest
	lastEdit    fergun.EditMessageRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextID:   9000 << 22,
		messages: make(map[fergun.Snowflake]*fergun.Message),
	}
}

func (g *fakeGateway) FetchMessage(_ context.Context, _, messageID fergun.Snowflake) (*fergun.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	message, exists := g.messages[messageID]
	if !exists {
		return nil, fmt.Errorf("fetch message: %w", fergun.ErrMessageNotFound)
	}

	return message, nil
}

func (g *fakeGateway) SendMessage(_ context.Context, request fergun.SendMessageRequest) (*fergun.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sendCalls++
	g.lastSend = request
	if g.sendErr != nil {
		return nil, g.sendErr
	}

	g.nextID += 1 << 22
	sent := &fergun.Message{
		ID:        g.nextID,
		ChannelID: request.ChannelID,
		Content:   request.Content,
	}
	if request.File != nil {
		sent.Attachments = []fergun.Attachment{{ID: g.nextID, Name: request.File.Name}}
	}
	g.messages[sent.ID] = sent

	return sent, nil
}

func (g *fakeGateway) EditMessage(_ context.Context, request fergun.EditMessageRequest) (*fergun.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.editCalls++
	g.lastEdit = request
	if g.editErr != nil {
		return nil, g.editErr
	}
	message, exists := g.messages[request.MessageID]
	if !exists {
		return nil, fmt.Errorf("edit message: %w", fergun.ErrMessageNotFound)
	}
	message.Content = request.Content

	return message, nil
}

func (g *fakeGateway) DeleteMessage(_ context.Context, _, messageID fergun.Snowflake) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.deleteCalls++
	delete(g.messages, messageID)

	return nil
}

func (g *fakeGateway) ClearAllReactions(context.Context, fergun.Snowflake, fergun.Snowflake) error {
	return nil
}

func (g *fakeGateway) RemoveOwnReaction(context.Context, fergun.Snowflake, fergun.Snowflake, string) error {
	return nil
}

func (g *fakeGateway) CanManageMessages(context.Context, fergun.Snowflake) (bool, error) {
	return false, nil
}

func (g *fakeGateway) SubscribeMessageCreated(fergun.MessageCreatedHandler) func() { return func() {} }
func (g *fakeGateway) SubscribeMessageEdited(fergun.MessageEditedHandler) func()   { return func() {} }
func (g *fakeGateway) SubscribeMessageDeleted(fergun.MessageDeletedHandler) func() { return func() {} }

var _ fergun.Gateway = (*fakeGateway)(nil)

func newTestCache(t *testing.T) *commandcache.Cache {
	t.Helper()

	cache, err := commandcache.New(commandcache.Config{Capacity: 32})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(func() {
		if err := cache.Close(); err != nil {
			t.Errorf("close cache: %v", err)
		}
	})

	return cache
}

func newTestResponder(t *testing.T, gateway *fakeGateway, cache *commandcache.Cache) *Responder {
	t.Helper()

	built, err := New(gateway, cache)
	if err != nil {
		t.Fatalf("new responder: %v", err)
	}

	return built
}

const (
	channelID fergun.Snowflake = 42
	triggerID fergun.Snowflake = 500 << 22
)

func TestReplyIsIdempotentPerTrigger(t *testing.T) {
	t.Parallel()

	gateway := newFakeGateway()
	cache := newTestCache(t)
	built := newTestResponder(t, gateway, cache)

	identifiers := make(map[fergun.Snowflake]struct{})
	for round := 1; round <= 3; round++ {
		response, err := built.Reply(context.Background(), channelID, triggerID, fmt.Sprintf("result %d", round))
		if err != nil {
			t.Fatalf("reply round %d: %v", round, err)
		}
		identifiers[response.ID] = struct{}{}
	}

	if len(identifiers) != 1 {
		t.Fatalf("distinct response identifiers = %d, want 1", len(identifiers))
	}
	if gateway.sendCalls != 1 {
		t.Fatalf("send calls = %d, want 1", gateway.sendCalls)
	}
	if gateway.editCalls != 2 {
		t.Fatalf("edit calls = %d, want 2", gateway.editCalls)
	}
	if gateway.lastEdit.Content != "result 3" {
		t.Fatalf("final content = %q, want %q", gateway.lastEdit.Content, "result 3")
	}
	if size := cache.Size(); size != 1 {
		t.Fatalf("cache size = %d, want 1", size)
	}
}

func TestReplySendsFreshWhenResponseVanished(t *testing.T) {
	t.Parallel()

	gateway := newFakeGateway()
	cache := newTestCache(t)
	built := newTestResponder(t, gateway, cache)

	first, err := built.Reply(context.Background(), channelID, triggerID, "first")
	if err != nil {
		t.Fatalf("first reply: %v", err)
	}

	// Simulate the response disappearing out from under the cache.
	if err := gateway.DeleteMessage(context.Background(), channelID, first.ID); err != nil {
		t.Fatalf("delete response: %v", err)
	}

	second, err := built.Reply(context.Background(), channelID, triggerID, "second")
	if err != nil {
		t.Fatalf("second reply: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("vanished response was not replaced with a fresh message")
	}

	registered, found := cache.Get(triggerID)
	if !found || registered != second.ID {
		t.Fatalf("cache entry = (%d, %v), want (%d, true)", registered, found, second.ID)
	}
	if gateway.sendCalls != 2 {
		t.Fatalf("send calls = %d, want 2", gateway.sendCalls)
	}
}

func TestReplyTreatsEditFailureAsAbsence(t *testing.T) {
	t.Parallel()

	gateway := newFakeGateway()
	cache := newTestCache(t)
	built := newTestResponder(t, gateway, cache)

	if _, err := built.Reply(context.Background(), channelID, triggerID, "first"); err != nil {
		t.Fatalf("first reply: %v", err)
	}

	gateway.editErr = errors.New("gateway timeout")
	response, err := built.Reply(context.Background(), channelID, triggerID, "second")
	if err != nil {
		t.Fatalf("reply after edit failure: %v", err)
	}
	if response.Content != "second" {
		t.Fatalf("content = %q, want %q", response.Content, "second")
	}
	if gateway.sendCalls != 2 {
		t.Fatalf("send calls = %d, want 2", gateway.sendCalls)
	}
}

func TestReplyPropagatesSendFailure(t *testing.T) {
	t.Parallel()

	gateway := newFakeGateway()
	gateway.sendErr = errors.New("channel gone")
	cache := newTestCache(t)
	built := newTestResponder(t, gateway, cache)

	if _, err := built.Reply(context.Background(), channelID, triggerID, "result"); err == nil {
		t.Fatal("expected send failure to propagate")
	}
	if size := cache.Size(); size != 0 {
		t.Fatalf("cache size = %d, want 0 after failed send", size)
	}
}

func TestReplyLinksResponseAsReply(t *testing.T) {
	t.Parallel()

	gateway := newFakeGateway()
	cache := newTestCache(t)
	built := newTestResponder(t, gateway, cache)

	if _, err := built.Reply(context.Background(), channelID, triggerID, "result"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if gateway.lastSend.ReplyToID != triggerID {
		t.Fatalf("reply_to = %d, want %d", gateway.lastSend.ReplyToID, triggerID)
	}
}

func TestReplyWithAttachmentAlwaysReplaces(t *testing.T) {
	t.Parallel()

	gateway := newFakeGateway()
	cache := newTestCache(t)
	built := newTestResponder(t, gateway, cache)

	first, err := built.ReplyWithAttachment(context.Background(), channelID, triggerID, "chart", fergun.FileUpload{
		Name:   "chart.png",
		Reader: strings.NewReader("png"),
	})
	if err != nil {
		t.Fatalf("first attachment reply: %v", err)
	}

	second, err := built.ReplyWithAttachment(context.Background(), channelID, triggerID, "chart v2", fergun.FileUpload{
		Name:   "chart.png",
		Reader: strings.NewReader("png"),
	})
	if err != nil {
		t.Fatalf("second attachment reply: %v", err)
	}

	if second.ID == first.ID {
		t.Fatal("attachment reply edited in place instead of replacing")
	}
	if gateway.deleteCalls != 1 {
		t.Fatalf("delete calls = %d, want 1", gateway.deleteCalls)
	}
	if gateway.editCalls != 0 {
		t.Fatalf("edit calls = %d, want 0", gateway.editCalls)
	}

	registered, found := cache.Get(triggerID)
	if !found || registered != second.ID {
		t.Fatalf("cache entry = (%d, %v), want (%d, true)", registered, found, second.ID)
	}
	if size := cache.Size(); size != 1 {
		t.Fatalf("cache size = %d, want 1", size)
	}
}
