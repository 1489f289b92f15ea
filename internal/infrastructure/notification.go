package infrastructure

import (
	"context"
	"fmt"

	"github.com/yourusername/mediabot-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService sends operator notifications to the admin chat
type NotificationService struct {
	chat        domain.Chat
	adminChatID int64
	logger      *zap.Logger
}

// NewNotificationService creates a new notification service. A zero
// adminChatID disables notifications.
func NewNotificationService(chat domain.Chat, adminChatID int64, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		chat:        chat,
		adminChatID: adminChatID,
		logger:      logger,
	}
}

// Send sends a notification
func (n *NotificationService) Send(ctx context.Context, title, message string) error {
	if n.adminChatID == 0 {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	if _, err := n.chat.SendText(ctx, n.adminChatID, title+"\n"+message); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("title", title),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))

	return nil
}

// NotifyStarted sends notification when the bot comes online
func (n *NotificationService) NotifyStarted(ctx context.Context, version string) {
	n.Send(ctx, "Bot Started", fmt.Sprintf("mediabot %s is online", version))
}

// NotifyRequestFailed sends notification when a download request ends in failure
func (n *NotificationService) NotifyRequestFailed(ctx context.Context, req *domain.DownloadRequest) {
	title := "Request Failed"
	message := fmt.Sprintf("%s: %s (%s, %s)\n%s",
		req.State, truncateString(req.SourceURL, 60), req.Platform, req.Kind, truncateString(req.ErrorMessage, 200))
	n.Send(ctx, title, message)
}

// NotifyFallback sends notification when audio was delivered as video
func (n *NotificationService) NotifyFallback(ctx context.Context, req *domain.DownloadRequest) {
	title := "Audio Fallback"
	message := fmt.Sprintf("Delivered video instead of audio: %s", truncateString(req.SourceURL, 60))
	n.Send(ctx, title, message)
}

// truncateString truncates a string to the specified number of characters
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
