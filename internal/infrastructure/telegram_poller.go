package infrastructure

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/mediabot-go/internal/domain"
	"go.uber.org/zap"
)

// TelegramPoller long-polls the Bot API and hands updates to a handler
type TelegramPoller struct {
	api     BotAPI
	handler domain.UpdateHandler
	timeout int
	logger  *zap.Logger
}

// NewTelegramPoller creates a new update poller
func NewTelegramPoller(api BotAPI, handler domain.UpdateHandler, timeout int, logger *zap.Logger) *TelegramPoller {
	return &TelegramPoller{
		api:     api,
		handler: handler,
		timeout: timeout,
		logger:  logger,
	}
}

// Run receives updates until ctx is cancelled
func (p *TelegramPoller) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.timeout
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := p.api.GetUpdatesChan(u)
	p.logger.Info("Telegram poller started", zap.Int("timeout", p.timeout))

	for {
		select {
		case <-ctx.Done():
			p.api.StopReceivingUpdates()
			p.logger.Info("Telegram poller stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			p.dispatch(ctx, update)
		}
	}
}

func (p *TelegramPoller) dispatch(ctx context.Context, update tgbotapi.Update) {
	if msg, ok := toIncomingMessage(update); ok {
		p.handler.HandleMessage(ctx, msg)
		return
	}
	if cb, ok := toIncomingCallback(update); ok {
		p.handler.HandleCallback(ctx, cb)
		return
	}
	p.logger.Debug("Ignoring update", zap.Int("update_id", update.UpdateID))
}

func toIncomingMessage(update tgbotapi.Update) (domain.IncomingMessage, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return domain.IncomingMessage{}, false
	}
	in := domain.IncomingMessage{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if msg.From != nil {
		in.UserID = msg.From.ID
	}
	if msg.IsCommand() {
		in.Command = msg.Command()
		in.Args = msg.CommandArguments()
	}
	return in, true
}

func toIncomingCallback(update tgbotapi.Update) (domain.IncomingCallback, bool) {
	cb := update.CallbackQuery
	if cb == nil {
		return domain.IncomingCallback{}, false
	}
	in := domain.IncomingCallback{ID: cb.ID, Data: cb.Data}
	if cb.From != nil {
		in.UserID = cb.From.ID
	}
	if cb.Message != nil && cb.Message.Chat != nil {
		in.ChatID = cb.Message.Chat.ID
		in.MessageID = cb.Message.MessageID
	}
	return in, true
}
