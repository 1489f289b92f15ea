package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediabot-go/internal/domain"
	"github.com/yourusername/mediabot-go/pkg/logger"
)

const msgHelp = "Send me a YouTube or VK link and I will fetch it as audio or video.\n" +
	"Send any other text to search YouTube, or use /search <query>.\n" +
	"/cancel stops a search in progress."

const (
	msgUnrecognized    = "I can not handle this link. Send a YouTube or VK video link, or /search <query>."
	msgNothingToCancel = "Nothing to cancel."
	msgGenericError    = "Something went wrong. Please try again."
)

// DefaultSweepInterval is how often expired search sessions are dropped
const DefaultSweepInterval = time.Minute

// Dispatcher routes chat events to the controller and search orchestrator.
// Every event runs in its own goroutine; no error escapes a handler.
type Dispatcher struct {
	controller *Controller
	search     *SearchOrchestrator
	chat       domain.Chat
	logger     *zap.Logger
	events     *logger.MultiLogger

	sweepInterval time.Duration

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	janitor  sync.WaitGroup
	workerWg sync.WaitGroup
}

// NewDispatcher creates a new update dispatcher
func NewDispatcher(
	controller *Controller,
	search *SearchOrchestrator,
	chat domain.Chat,
	logger *zap.Logger,
	events *logger.MultiLogger,
) *Dispatcher {
	return &Dispatcher{
		controller:    controller,
		search:        search,
		chat:          chat,
		logger:        logger,
		events:        events,
		sweepInterval: DefaultSweepInterval,
		stopChan:      make(chan struct{}),
	}
}

// Start starts the session janitor
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already running")
	}
	d.running = true
	d.mu.Unlock()

	d.janitor.Add(1)
	go d.sweepSessions(ctx)
	return nil
}

// Stop stops the janitor and waits for in-flight handlers
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher not running")
	}
	d.running = false
	d.mu.Unlock()

	close(d.stopChan)
	d.janitor.Wait()
	d.workerWg.Wait()
	return nil
}

// IsRunning returns whether the dispatcher is running
func (d *Dispatcher) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Wait blocks until every handler started so far has returned
func (d *Dispatcher) Wait() {
	d.workerWg.Wait()
}

// HandleMessage implements domain.UpdateHandler
func (d *Dispatcher) HandleMessage(ctx context.Context, msg domain.IncomingMessage) {
	d.spawn("message", func() { d.routeMessage(ctx, msg) })
}

// HandleCallback implements domain.UpdateHandler
func (d *Dispatcher) HandleCallback(ctx context.Context, cb domain.IncomingCallback) {
	d.spawn("callback", func() { d.routeCallback(ctx, cb) })
}

func (d *Dispatcher) spawn(kind string, fn func()) {
	d.workerWg.Add(1)
	go func() {
		defer d.workerWg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.events.LogAppError("Panic in update handler",
					zap.String("update", kind),
					zap.Any("panic", r),
					zap.Stack("stack"))
			}
		}()
		fn()
	}()
}

func (d *Dispatcher) routeMessage(ctx context.Context, msg domain.IncomingMessage) {
	switch msg.Command {
	case "start", "help":
		d.reply(ctx, msg.ChatID, msgHelp)
		return
	case "search":
		if strings.TrimSpace(msg.Args) == "" {
			d.check("search_prompt", d.search.Begin(ctx, msg.ChatID, msg.UserID))
			return
		}
		d.check("search", d.search.Search(ctx, msg.ChatID, msg.UserID, msg.Args))
		return
	case "cancel":
		cancelled, err := d.search.CancelPending(ctx, msg.ChatID, msg.UserID)
		if err == nil && !cancelled {
			d.reply(ctx, msg.ChatID, msgNothingToCancel)
		}
		d.check("cancel", err)
		return
	case "":
	default:
		d.reply(ctx, msg.ChatID, msgHelp)
		return
	}

	link := domain.ClassifyText(msg.Text)

	if d.search.Pending(msg.UserID) && link.Kind != domain.LinkDirect {
		query := strings.TrimSpace(msg.Text)
		if query == "" {
			d.reply(ctx, msg.ChatID, msgSearchEmpty)
			return
		}
		d.check("search", d.search.Search(ctx, msg.ChatID, msg.UserID, query))
		return
	}

	switch link.Kind {
	case domain.LinkDirect:
		_, err := d.controller.OfferFormat(ctx, msg.ChatID, msg.UserID, link)
		d.check("offer_format", err)
	case domain.LinkSearchQuery:
		d.check("search", d.search.Search(ctx, msg.ChatID, msg.UserID, link.Query))
	default:
		d.reply(ctx, msg.ChatID, msgUnrecognized)
	}
}

func (d *Dispatcher) routeCallback(ctx context.Context, cb domain.IncomingCallback) {
	if err := d.chat.AnswerCallback(ctx, cb.ID, ""); err != nil {
		d.logger.Debug("Failed to answer callback", zap.String("id", cb.ID), zap.Error(err))
	}

	choice, err := domain.DecodeCallback(cb.Data)
	if err != nil {
		d.reply(ctx, cb.ChatID, msgGenericError)
		d.check("decode_callback", err)
		return
	}

	switch choice.Action {
	case domain.ActionAudio, domain.ActionVideo:
		d.check("format_choice", d.controller.HandleChoice(ctx, cb, choice))
	case domain.ActionSearchSelect:
		d.check("search_select", d.search.Select(ctx, cb, choice.URL))
	case domain.ActionCancelSearch:
		d.check("search_cancel", d.search.Cancel(ctx, cb.ChatID, cb.UserID, cb.MessageID))
	}
}

// check logs a handler error. Failures the user was already told about are
// expected outcomes, everything else goes to the error log.
func (d *Dispatcher) check(op string, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, domain.ErrExtraction),
		errors.Is(err, domain.ErrTranscodeUnavailable),
		errors.Is(err, domain.ErrDelivery),
		errors.Is(err, domain.ErrMalformedCallback),
		errors.Is(err, domain.ErrCallbackTooLong),
		errors.Is(err, domain.ErrInProgress),
		errors.Is(err, domain.ErrEmptyQuery):
		d.logger.Info("Handler finished with error", zap.String("op", op), zap.Error(err))
	default:
		d.events.LogAppError("Handler failed", zap.String("op", op), zap.Error(err))
	}
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	if _, err := d.chat.SendText(ctx, chatID, text); err != nil {
		d.logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (d *Dispatcher) sweepSessions(ctx context.Context) {
	defer d.janitor.Done()

	ticker := time.NewTicker(d.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopChan:
			return
		case <-ticker.C:
			if n := d.search.Sweep(); n > 0 {
				d.events.LogSearchEvent("sessions_expired", zap.Int("count", n))
			}
		}
	}
}
