package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/mediabot-go/internal/domain"
	"github.com/yourusername/mediabot-go/pkg/logger"
	"go.uber.org/zap"
)

const (
	msgSearchPrompt    = "What should I search for? Send your query, or /cancel."
	msgSearchEmpty     = "The search query is empty. Send a few words to search for."
	msgSearchNoResults = "Nothing found. Try a different query."
	msgSearchFailed    = "Search is unavailable right now. Please try again later."
	msgSearchCancelled = "Search cancelled."
	labelCancelSearch  = "❌ Cancel"
)

// SearchOrchestrator runs top-N searches and owns one SearchSession per user
type SearchOrchestrator struct {
	searcher   domain.Searcher
	chat       domain.Chat
	controller *Controller
	config     *domain.SearchConfig
	logger     *zap.Logger
	events     *logger.MultiLogger

	mu       sync.Mutex
	sessions map[int64]*domain.SearchSession
	now      func() time.Time
}

// NewSearchOrchestrator creates a new search orchestrator
func NewSearchOrchestrator(
	searcher domain.Searcher,
	chat domain.Chat,
	controller *Controller,
	config *domain.SearchConfig,
	logger *zap.Logger,
	events *logger.MultiLogger,
) *SearchOrchestrator {
	return &SearchOrchestrator{
		searcher:   searcher,
		chat:       chat,
		controller: controller,
		config:     config,
		logger:     logger,
		events:     events,
		sessions:   make(map[int64]*domain.SearchSession),
		now:        time.Now,
	}
}

// Begin starts the stateful flow: the next plain text from userID is the query
func (o *SearchOrchestrator) Begin(ctx context.Context, chatID, userID int64) error {
	o.mu.Lock()
	o.sessions[userID] = &domain.SearchSession{
		UserID:    userID,
		ChatID:    chatID,
		State:     domain.SessionAwaitingQuery,
		CreatedAt: o.now(),
	}
	o.mu.Unlock()

	o.events.LogSearchEvent("search_prompted", zap.Int64("user_id", userID))
	_, err := o.chat.SendText(ctx, chatID, msgSearchPrompt)
	return err
}

// Pending reports whether userID has a live session waiting for a query
func (o *SearchOrchestrator) Pending(userID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[userID]
	return ok && s.State == domain.SessionAwaitingQuery && !s.Expired(o.now(), o.config.SessionTTL)
}

// Search runs query and shows the numbered results. A new query replaces any
// session the user already had.
func (o *SearchOrchestrator) Search(ctx context.Context, chatID, userID int64, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.ErrEmptyQuery
	}

	session := &domain.SearchSession{
		UserID:    userID,
		ChatID:    chatID,
		State:     domain.SessionResultsShown,
		Query:     query,
		CreatedAt: o.now(),
	}
	o.mu.Lock()
	o.sessions[userID] = session
	o.mu.Unlock()

	hits, err := o.searcher.Search(ctx, query, o.config.Limit)
	if err != nil {
		o.drop(userID, session)
		o.logger.Warn("Search failed", zap.String("query", query), zap.Error(err))
		o.events.LogSearchEvent("search_failed", zap.Int64("user_id", userID), zap.String("query", query), zap.Error(err))
		o.sendText(ctx, chatID, msgSearchFailed)
		return err
	}
	if len(hits) > o.config.Limit {
		hits = hits[:o.config.Limit]
	}

	rows, shown := o.resultRows(hits)
	if len(shown) == 0 {
		o.drop(userID, session)
		o.events.LogSearchEvent("search_empty", zap.Int64("user_id", userID), zap.String("query", query))
		_, err := o.chat.SendText(ctx, chatID, msgSearchNoResults)
		return err
	}

	msgID, err := o.chat.SendChoice(ctx, chatID, fmt.Sprintf("Results for %q:", query), rows)
	if err != nil {
		o.drop(userID, session)
		return err
	}

	o.mu.Lock()
	session.Results = shown
	session.MessageID = msgID
	o.mu.Unlock()

	o.events.LogSearchEvent("search_results",
		zap.Int64("user_id", userID),
		zap.String("query", query),
		zap.Int("count", len(shown)))
	return nil
}

// resultRows builds one button per hit plus a cancel row. Hits whose link cannot
// be encoded in a callback are skipped.
func (o *SearchOrchestrator) resultRows(hits []domain.SearchHit) ([][]domain.Choice, []domain.SearchHit) {
	rows := make([][]domain.Choice, 0, len(hits)+1)
	shown := make([]domain.SearchHit, 0, len(hits))

	for _, hit := range hits {
		token, err := domain.EncodeCallback(domain.ActionSearchSelect, hit.URL)
		if err != nil && hit.ID != "" {
			token, err = domain.EncodeCallback(domain.ActionSearchSelect, "https://youtu.be/"+hit.ID)
		}
		if err != nil {
			o.logger.Debug("Skipping search hit", zap.String("url", hit.URL), zap.Error(err))
			continue
		}
		shown = append(shown, hit)
		label := fmt.Sprintf("%d. %s", len(shown), domain.TruncateTitle(hit.Title, o.config.TitleMaxLen))
		rows = append(rows, []domain.Choice{{Label: label, Token: token}})
	}
	if len(shown) == 0 {
		return nil, nil
	}

	cancel, _ := domain.EncodeCallback(domain.ActionCancelSearch, "")
	rows = append(rows, []domain.Choice{{Label: labelCancelSearch, Token: cancel}})
	return rows, shown
}

// Select consumes the user's session and offers the format choice for url
func (o *SearchOrchestrator) Select(ctx context.Context, cb domain.IncomingCallback, url string) error {
	session := o.take(cb.UserID)
	if session != nil && session.MessageID != 0 {
		if err := o.chat.DeleteMessage(ctx, cb.ChatID, session.MessageID); err != nil {
			o.logger.Debug("Failed to delete results message", zap.Error(err))
		}
	}

	link := domain.ClassifyText(url)
	if link.Kind != domain.LinkDirect {
		o.sendText(ctx, cb.ChatID, msgMalformedChoice)
		return fmt.Errorf("%w: search selection is not a media link", domain.ErrMalformedCallback)
	}

	o.events.LogSearchEvent("search_selected", zap.Int64("user_id", cb.UserID), zap.String("url", url))
	_, err := o.controller.OfferFormat(ctx, cb.ChatID, cb.UserID, link)
	return err
}

// Cancel discards the user's session and acknowledges. It never searches or downloads.
func (o *SearchOrchestrator) Cancel(ctx context.Context, chatID, userID int64, messageID int) error {
	session := o.take(userID)
	if messageID == 0 && session != nil {
		messageID = session.MessageID
	}
	if messageID != 0 {
		if err := o.chat.DeleteMessage(ctx, chatID, messageID); err != nil {
			o.logger.Debug("Failed to delete results message", zap.Error(err))
		}
	}

	o.events.LogSearchEvent("search_cancelled", zap.Int64("user_id", userID))
	_, err := o.chat.SendText(ctx, chatID, msgSearchCancelled)
	return err
}

// CancelPending cancels a stateful search that is still waiting for a query
func (o *SearchOrchestrator) CancelPending(ctx context.Context, chatID, userID int64) (bool, error) {
	if !o.Pending(userID) {
		return false, nil
	}
	return true, o.Cancel(ctx, chatID, userID, 0)
}

// Sweep removes expired sessions and returns how many were dropped
func (o *SearchOrchestrator) Sweep() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	dropped := 0
	for userID, s := range o.sessions {
		if s.Expired(now, o.config.SessionTTL) {
			delete(o.sessions, userID)
			dropped++
		}
	}
	return dropped
}

// Sessions returns the number of live sessions
func (o *SearchOrchestrator) Sessions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sessions)
}

func (o *SearchOrchestrator) take(userID int64) *domain.SearchSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.sessions[userID]
	delete(o.sessions, userID)
	return s
}

// drop removes session only if it is still the user's current one
func (o *SearchOrchestrator) drop(userID int64, session *domain.SearchSession) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sessions[userID] == session {
		delete(o.sessions, userID)
	}
}

func (o *SearchOrchestrator) sendText(ctx context.Context, chatID int64, text string) {
	if _, err := o.chat.SendText(ctx, chatID, text); err != nil {
		o.logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
