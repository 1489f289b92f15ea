package infrastructure

import (
	"context"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/mediabot-go/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MaxUploadBytes is the Bot API limit for files sent by a bot
const MaxUploadBytes = 50 << 20

// BotAPI is the subset of *tgbotapi.BotAPI used by the transport
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramChat implements domain.Chat on the Telegram Bot API. Outbound calls
// share one rate limiter so bursts stay under the flood limits.
type TelegramChat struct {
	api     BotAPI
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewTelegramChat creates a new Telegram chat transport
func NewTelegramChat(api BotAPI, sendRate float64, logger *zap.Logger) *TelegramChat {
	burst := int(sendRate)
	if burst < 1 {
		burst = 1
	}
	return &TelegramChat{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(sendRate), burst),
		logger:  logger,
	}
}

func (c *TelegramChat) send(ctx context.Context, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	return c.api.Send(msg)
}

func (c *TelegramChat) request(ctx context.Context, msg tgbotapi.Chattable) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.api.Request(msg)
	return err
}

// SendText sends a plain message and returns its id
func (c *TelegramChat) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	sent, err := c.send(ctx, tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// SendChoice sends a message with an inline keyboard, one row per slice
func (c *TelegramChat) SendChoice(ctx context.Context, chatID int64, prompt string, rows [][]domain.Choice) (int, error) {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, choice := range row {
			if len(choice.Token) > domain.MaxCallbackDataLen {
				return 0, fmt.Errorf("%w: button %q", domain.ErrCallbackTooLong, choice.Label)
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(choice.Label, choice.Token))
		}
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(buttons...))
	}

	msg := tgbotapi.NewMessage(chatID, prompt)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)

	sent, err := c.send(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send choice: %w", err)
	}
	return sent.MessageID, nil
}

// SendAudio uploads a staged audio file
func (c *TelegramChat) SendAudio(ctx context.Context, chatID int64, path, caption string) error {
	if err := checkUpload(path); err != nil {
		return err
	}
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(path))
	audio.Caption = caption
	if _, err := c.send(ctx, audio); err != nil {
		return fmt.Errorf("%w: audio upload: %v", domain.ErrDelivery, err)
	}
	return nil
}

// SendVideo uploads a staged video file
func (c *TelegramChat) SendVideo(ctx context.Context, chatID int64, path, caption string) error {
	if err := checkUpload(path); err != nil {
		return err
	}
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.Caption = caption
	video.SupportsStreaming = true
	if _, err := c.send(ctx, video); err != nil {
		return fmt.Errorf("%w: video upload: %v", domain.ErrDelivery, err)
	}
	return nil
}

// EditMessage replaces the text of a message sent by the bot
func (c *TelegramChat) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := c.request(ctx, tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// DeleteMessage removes a message sent by the bot
func (c *TelegramChat) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := c.request(ctx, tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// AnswerCallback stops the client-side spinner on an inline button
func (c *TelegramChat) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := c.request(ctx, tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

func checkUpload(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	if info.Size() > MaxUploadBytes {
		return fmt.Errorf("%w: file is %d MB, limit is %d MB", domain.ErrDelivery, info.Size()>>20, MaxUploadBytes>>20)
	}
	return nil
}
