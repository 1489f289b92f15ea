package domain

import "context"

// Choice is one inline button
type Choice struct {
	Label string
	Token string
}

// Chat defines the chat presentation layer consumed by the bot
type Chat interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendChoice(ctx context.Context, chatID int64, prompt string, rows [][]Choice) (int, error)
	SendAudio(ctx context.Context, chatID int64, path, caption string) error
	SendVideo(ctx context.Context, chatID int64, path, caption string) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// IncomingMessage is a text message or command received from a user
type IncomingMessage struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Text      string
	Command   string // without the leading slash, empty for plain text
	Args      string
}

// IncomingCallback is an inline button press
type IncomingCallback struct {
	ID        string
	ChatID    int64
	UserID    int64
	MessageID int
	Data      string
}

// UpdateHandler receives chat events from a transport
type UpdateHandler interface {
	HandleMessage(ctx context.Context, msg IncomingMessage)
	HandleCallback(ctx context.Context, cb IncomingCallback)
}
