package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/mediabot-go/internal/domain"
	"go.uber.org/zap"
)

// mockBotAPI records every call made through the BotAPI interface
type mockBotAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
	sendErr  error
	updates  chan tgbotapi.Update
	stopped  bool
}

func newMockBotAPI() *mockBotAPI {
	return &mockBotAPI{nextID: 100, updates: make(chan tgbotapi.Update, 10)}
}

func (m *mockBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	if m.sendErr != nil {
		return tgbotapi.Message{}, m.sendErr
	}
	m.nextID++
	return tgbotapi.Message{MessageID: m.nextID}, nil
}

func (m *mockBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockBotAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockBotAPI) StopReceivingUpdates() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func TestTelegramChat_SendChoice(t *testing.T) {
	api := newMockBotAPI()
	chat := NewTelegramChat(api, 100, zap.NewNop())

	id, err := chat.SendChoice(context.Background(), 5, "Pick one", [][]domain.Choice{
		{{Label: "Audio", Token: "audio_https://youtu.be/dQw4w9WgXcQ"}, {Label: "Video", Token: "video_https://youtu.be/dQw4w9WgXcQ"}},
		{{Label: "Cancel", Token: "cancel_search"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 101, id)

	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "Pick one", msg.Text)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "cancel_search", *markup.InlineKeyboard[1][0].CallbackData)
}

func TestTelegramChat_SendChoiceRejectsLongToken(t *testing.T) {
	api := newMockBotAPI()
	chat := NewTelegramChat(api, 100, zap.NewNop())

	long := make([]byte, domain.MaxCallbackDataLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := chat.SendChoice(context.Background(), 5, "p", [][]domain.Choice{{{Label: "x", Token: string(long)}}})
	assert.ErrorIs(t, err, domain.ErrCallbackTooLong)
	assert.Empty(t, api.sent)
}

func TestTelegramChat_SendMedia(t *testing.T) {
	api := newMockBotAPI()
	chat := NewTelegramChat(api, 100, zap.NewNop())
	path := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))

	require.NoError(t, chat.SendAudio(context.Background(), 5, path, "caption"))
	require.NoError(t, chat.SendVideo(context.Background(), 5, path, "video instead of audio"))

	require.Len(t, api.sent, 2)
	audio := api.sent[0].(tgbotapi.AudioConfig)
	assert.Equal(t, "caption", audio.Caption)
	video := api.sent[1].(tgbotapi.VideoConfig)
	assert.True(t, video.SupportsStreaming)
}

func TestTelegramChat_SendMediaErrors(t *testing.T) {
	api := newMockBotAPI()
	chat := NewTelegramChat(api, 100, zap.NewNop())

	err := chat.SendAudio(context.Background(), 5, filepath.Join(t.TempDir(), "missing.mp3"), "")
	assert.ErrorIs(t, err, domain.ErrDelivery)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video"), 0644))
	api.sendErr = errors.New("Request Entity Too Large")
	err = chat.SendVideo(context.Background(), 5, path, "")
	assert.ErrorIs(t, err, domain.ErrDelivery)
}

func TestTelegramChat_RequestsUseRequest(t *testing.T) {
	api := newMockBotAPI()
	chat := NewTelegramChat(api, 100, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, chat.DeleteMessage(ctx, 5, 10))
	require.NoError(t, chat.AnswerCallback(ctx, "cb-1", ""))
	require.NoError(t, chat.EditMessage(ctx, 5, 10, "edited"))

	assert.Empty(t, api.sent)
	require.Len(t, api.requests, 3)
	_, ok := api.requests[0].(tgbotapi.DeleteMessageConfig)
	assert.True(t, ok)
	_, ok = api.requests[1].(tgbotapi.CallbackConfig)
	assert.True(t, ok)
}

func TestTelegramChat_RateLimiterHonoursContext(t *testing.T) {
	api := newMockBotAPI()
	chat := NewTelegramChat(api, 0.001, zap.NewNop())

	_, err := chat.SendText(context.Background(), 5, "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = chat.SendText(ctx, 5, "second")
	assert.Error(t, err)
	assert.Len(t, api.sent, 1)
}

// recordingHandler captures dispatched updates
type recordingHandler struct {
	mu        sync.Mutex
	messages  []domain.IncomingMessage
	callbacks []domain.IncomingCallback
}

func (h *recordingHandler) HandleMessage(ctx context.Context, msg domain.IncomingMessage) {
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()
}

func (h *recordingHandler) HandleCallback(ctx context.Context, cb domain.IncomingCallback) {
	h.mu.Lock()
	h.callbacks = append(h.callbacks, cb)
	h.mu.Unlock()
}

func TestTelegramPoller_Dispatch(t *testing.T) {
	api := newMockBotAPI()
	handler := &recordingHandler{}
	poller := NewTelegramPoller(api, handler, 1, zap.NewNop())

	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: 10},
		From:      &tgbotapi.User{ID: 20},
		Text:      "/search lofi beats",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 7}},
	}}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 2,
		Chat:      &tgbotapi.Chat{ID: 10},
		From:      &tgbotapi.User{ID: 20},
		Text:      "https://youtu.be/dQw4w9WgXcQ",
	}}
	api.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 20},
		Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 10}},
		Data:    "audio_https://youtu.be/dQw4w9WgXcQ",
	}}
	api.updates <- tgbotapi.Update{UpdateID: 9}
	close(api.updates)

	require.NoError(t, poller.Run(context.Background()))

	require.Len(t, handler.messages, 2)
	assert.Equal(t, "search", handler.messages[0].Command)
	assert.Equal(t, "lofi beats", handler.messages[0].Args)
	assert.Empty(t, handler.messages[1].Command)
	assert.Equal(t, int64(20), handler.messages[1].UserID)

	require.Len(t, handler.callbacks, 1)
	assert.Equal(t, domain.IncomingCallback{
		ID: "cb-1", ChatID: 10, UserID: 20, MessageID: 3, Data: "audio_https://youtu.be/dQw4w9WgXcQ",
	}, handler.callbacks[0])
}

func TestTelegramPoller_StopsOnCancel(t *testing.T) {
	api := newMockBotAPI()
	poller := NewTelegramPoller(api, &recordingHandler{}, 1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, poller.Run(ctx))
	assert.True(t, api.stopped)
}
