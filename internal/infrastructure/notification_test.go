package infrastructure

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/mediabot-go/internal/domain"
	"go.uber.org/zap"
)

// textChat is a domain.Chat that only records text messages
type textChat struct {
	domain.Chat
	chats []int64
	texts []string
	err   error
}

func (c *textChat) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	c.chats = append(c.chats, chatID)
	c.texts = append(c.texts, text)
	return 1, c.err
}

func TestNotificationService_Disabled(t *testing.T) {
	chat := &textChat{}
	n := NewNotificationService(chat, 0, zap.NewNop())

	assert.NoError(t, n.Send(context.Background(), "t", "m"))
	assert.Empty(t, chat.texts)
}

func TestNotificationService_RequestFailed(t *testing.T) {
	chat := &textChat{}
	n := NewNotificationService(chat, 99, zap.NewNop())

	req := domain.NewDownloadRequest(1, 2, "https://youtu.be/dQw4w9WgXcQ", domain.PlatformYouTube)
	req.Kind = domain.KindAudio
	req.State = domain.StateProbeFailed
	req.ErrorMessage = "video unavailable"

	n.NotifyRequestFailed(context.Background(), req)

	assert.Equal(t, []int64{99}, chat.chats)
	assert.True(t, strings.HasPrefix(chat.texts[0], "Request Failed\n"))
	assert.Contains(t, chat.texts[0], "probe_failed")
	assert.Contains(t, chat.texts[0], "video unavailable")
}

func TestNotificationService_SendError(t *testing.T) {
	chat := &textChat{err: errors.New("forbidden")}
	n := NewNotificationService(chat, 99, zap.NewNop())

	assert.Error(t, n.Send(context.Background(), "t", "m"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
	assert.Equal(t, "Ки...", truncateString("Кино", 2))
}
