package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/mediabot-go/internal/domain"
	"github.com/yourusername/mediabot-go/internal/infrastructure"
	"github.com/yourusername/mediabot-go/pkg/logger"
	"go.uber.org/zap"
)

// User-facing texts
const (
	msgChooseFormat        = "Choose a format:"
	msgLinkTooLong         = "This link is too long to handle. Please send a shorter link."
	msgMalformedChoice     = "Something went wrong with that button. Please send the link again."
	msgAlreadyRunning      = "This download is already in progress."
	msgLoadingAudio        = "Downloading audio, please wait..."
	msgLoadingVideo        = "Downloading video, please wait..."
	msgExtractionFailed    = "Could not fetch this media. Check the link and try again."
	msgTranscodeFailed     = "Could not convert this media to audio. Please request the video instead."
	msgDeliveryFailed      = "Could not send the file. It may be too large for Telegram."
	captionVideoSubstitute = "Audio conversion is unavailable, here is the video instead"
)

// LabelAudio and LabelVideo name the two format buttons
const (
	LabelAudio = "🎵 Audio"
	LabelVideo = "🎬 Video"
)

// cleanupTimeout bounds the notices and deletes sent after a request ends,
// which survive cancellation of the request context
const cleanupTimeout = 10 * time.Second

// offerKey identifies the format offer a callback was pressed on
type offerKey struct {
	chatID    int64
	messageID int
}

// Controller runs download requests from format offer to cleanup
type Controller struct {
	repo      domain.RequestRepository
	extractor domain.Extractor
	staging   *infrastructure.StagingStore
	chat      domain.Chat
	notifier  *infrastructure.NotificationService
	config    *domain.ExtractorConfig
	logger    *zap.Logger
	events    *logger.MultiLogger

	mu     sync.Mutex
	active map[offerKey]struct{}
}

// NewController creates a new request lifecycle controller
func NewController(
	repo domain.RequestRepository,
	extractor domain.Extractor,
	staging *infrastructure.StagingStore,
	chat domain.Chat,
	notifier *infrastructure.NotificationService,
	config *domain.ExtractorConfig,
	logger *zap.Logger,
	events *logger.MultiLogger,
) *Controller {
	return &Controller{
		repo:      repo,
		extractor: extractor,
		staging:   staging,
		chat:      chat,
		notifier:  notifier,
		config:    config,
		logger:    logger,
		events:    events,
		active:    make(map[offerKey]struct{}),
	}
}

// formatTokens encodes the two format buttons for url, falling back to the
// canonical short link when the full one does not fit in a callback.
func formatTokens(link domain.Classification) (audio, video string, err error) {
	for _, u := range []string{link.URL, link.ShortURL()} {
		audio, err = domain.EncodeCallback(domain.ActionAudio, u)
		if err != nil {
			continue
		}
		video, err = domain.EncodeCallback(domain.ActionVideo, u)
		if err == nil {
			return audio, video, nil
		}
	}
	return "", "", err
}

// OfferFormat creates a request for a direct link and presents the audio and video choices
func (c *Controller) OfferFormat(ctx context.Context, chatID, userID int64, link domain.Classification) (*domain.DownloadRequest, error) {
	if link.Kind != domain.LinkDirect {
		return nil, fmt.Errorf("%w: not a direct link", domain.ErrMalformedCallback)
	}

	req := domain.NewDownloadRequest(chatID, userID, link.URL, link.Platform)
	if err := c.repo.Create(req); err != nil {
		c.logger.Warn("Failed to persist request", zap.String("id", req.ID), zap.Error(err))
	}
	c.logEvent("request_received", req)

	audio, video, err := formatTokens(link)
	if err != nil {
		c.sendText(ctx, chatID, msgLinkTooLong)
		c.finish(req, req.Cancel())
		return req, err
	}

	msgID, err := c.chat.SendChoice(ctx, chatID, msgChooseFormat, [][]domain.Choice{{
		{Label: LabelAudio, Token: audio},
		{Label: LabelVideo, Token: video},
	}})
	if err != nil {
		c.logger.Error("Failed to offer format", zap.String("id", req.ID), zap.Error(err))
		c.finish(req, req.Cancel())
		return req, err
	}

	req.OfferMessageID = msgID
	if err := c.advance(req, domain.StateFormatOffered); err != nil {
		return req, err
	}
	return req, nil
}

// HandleChoice resolves a format callback into a request and executes it.
// The token is self-contained, so a missing offer record only costs the audit link.
// Only one choice per offer message runs at a time; repeated taps get ErrInProgress.
func (c *Controller) HandleChoice(ctx context.Context, cb domain.IncomingCallback, choice domain.Callback) error {
	kind, ok := choice.Kind()
	if !ok {
		c.sendText(ctx, cb.ChatID, msgMalformedChoice)
		return fmt.Errorf("%w: %s is not a format", domain.ErrMalformedCallback, choice.Action)
	}

	key := offerKey{chatID: cb.ChatID, messageID: cb.MessageID}
	if !c.acquire(key) {
		c.sendText(ctx, cb.ChatID, msgAlreadyRunning)
		return fmt.Errorf("%w: offer %d in chat %d", domain.ErrInProgress, cb.MessageID, cb.ChatID)
	}
	defer c.releaseOffer(key)

	req, err := c.repo.FindOffered(cb.ChatID, cb.MessageID)
	if err != nil {
		c.logger.Warn("Failed to look up offer", zap.Int64("chat_id", cb.ChatID), zap.Error(err))
	}
	// The button may carry the short form of the offered link
	if req != nil && !domain.SameMedia(req.SourceURL, choice.URL) {
		req = nil
	}
	offered := req != nil

	if !offered {
		link := domain.ClassifyText(choice.URL)
		if link.Kind != domain.LinkDirect {
			c.sendText(ctx, cb.ChatID, msgMalformedChoice)
			return fmt.Errorf("%w: unsupported url in token", domain.ErrMalformedCallback)
		}
		req = domain.NewDownloadRequest(cb.ChatID, cb.UserID, choice.URL, link.Platform)
		req.OfferMessageID = cb.MessageID
		if err := c.repo.Create(req); err != nil {
			c.logger.Warn("Failed to persist request", zap.String("id", req.ID), zap.Error(err))
		}
		if err := req.Transition(domain.StateFormatOffered); err != nil {
			return err
		}
	}

	if err := req.ChooseFormat(kind); err != nil {
		return err
	}
	if offered {
		claimed, err := c.repo.ClaimOffered(req.ID, kind)
		switch {
		case err != nil:
			c.logger.Warn("Failed to claim offer", zap.String("id", req.ID), zap.Error(err))
		case !claimed:
			c.sendText(ctx, cb.ChatID, msgAlreadyRunning)
			return fmt.Errorf("%w: request %s", domain.ErrInProgress, req.ID)
		}
	}
	c.persist(req)
	c.logEvent("format_chosen", req)

	return c.Execute(ctx, req)
}

// Execute drives a FORMAT_CHOSEN request to a terminal state. Staged files and
// the loading message are removed on every exit path.
func (c *Controller) Execute(ctx context.Context, req *domain.DownloadRequest) error {
	loading := msgLoadingVideo
	if req.Kind == domain.KindAudio {
		loading = msgLoadingAudio
	}
	loadingID, loadingErr := c.chat.SendText(ctx, req.ChatID, loading)

	var res *infrastructure.Reservation
	defer func() {
		cleanupCtx, cancel := detached(ctx)
		defer cancel()

		c.staging.Release(res)
		req.StagedPath = ""
		if loadingErr == nil {
			if err := c.chat.DeleteMessage(cleanupCtx, req.ChatID, loadingID); err != nil {
				c.logger.Warn("Failed to delete loading message", zap.String("id", req.ID), zap.Error(err))
			}
		}
		c.persist(req)
		if req.State.IsFailure() {
			c.notifier.NotifyRequestFailed(cleanupCtx, req)
		}
	}()

	if err := c.advance(req, domain.StateProbing); err != nil {
		return err
	}

	info, err := c.extractor.Probe(ctx, req.SourceURL)
	if err != nil {
		return c.fail(ctx, req, domain.StateProbeFailed, err, msgExtractionFailed)
	}
	req.ProbedTitle = domain.SanitizeTitle(info.Title)
	caption := info.Title
	if caption == "" {
		caption = req.ProbedTitle
	}

	if err := c.advance(req, domain.StateDownloading); err != nil {
		return err
	}

	res, err = c.staging.Reserve(req.ProbedTitle, req.ID)
	if err != nil {
		return c.fail(ctx, req, domain.StateDownloadFailed, err, msgExtractionFailed)
	}

	result, fetchErr := c.extractor.Fetch(ctx, req.SourceURL, c.fetchOptions(req.Kind, res))

	var path string
	fallback := false
	switch req.Kind {
	case domain.KindAudio:
		if fetchErr != nil && !errors.Is(fetchErr, domain.ErrTranscodeUnavailable) {
			return c.fail(ctx, req, domain.StateDownloadFailed, fetchErr, msgExtractionFailed)
		}
		path, err = c.staging.Finalize(res.PathFor(c.config.AudioCodec))
		if err != nil {
			// Transcoding did not happen; look for the untranscoded source
			path, err = c.staging.Discover(res, c.config.AudioCodec)
			if err != nil {
				cause := fetchErr
				if cause == nil {
					cause = fmt.Errorf("%w: no %s output", domain.ErrTranscodeUnavailable, c.config.AudioCodec)
				}
				return c.fail(ctx, req, domain.StateTranscodeUnavailable, cause, msgTranscodeFailed)
			}
			fallback = true
		}
	default:
		if fetchErr != nil {
			return c.fail(ctx, req, domain.StateDownloadFailed, fetchErr, msgExtractionFailed)
		}
		path, err = c.stagedVideo(res, result)
		if err != nil {
			return c.fail(ctx, req, domain.StateDownloadFailed, err, msgExtractionFailed)
		}
	}

	req.StagedPath = path
	req.Fallback = fallback
	if err := c.advance(req, domain.StateStaged); err != nil {
		return err
	}
	if err := c.advance(req, domain.StateDelivering); err != nil {
		return err
	}

	var sendErr error
	switch {
	case fallback:
		sendErr = c.chat.SendVideo(ctx, req.ChatID, path, captionVideoSubstitute)
	case req.Kind == domain.KindAudio:
		sendErr = c.chat.SendAudio(ctx, req.ChatID, path, caption)
	default:
		sendErr = c.chat.SendVideo(ctx, req.ChatID, path, caption)
	}
	if sendErr != nil {
		return c.fail(ctx, req, domain.StateDeliveryFailed, sendErr, msgDeliveryFailed)
	}

	if fallback {
		c.notifier.NotifyFallback(ctx, req)
	}
	return c.advance(req, domain.StateDone)
}

// stagedVideo prefers the path yt-dlp reported and falls back to scanning the reservation
func (c *Controller) stagedVideo(res *infrastructure.Reservation, result *domain.FetchResult) (string, error) {
	if result != nil && result.Path != "" {
		if path, err := c.staging.Finalize(result.Path); err == nil {
			return path, nil
		}
	}
	return c.staging.Discover(res)
}

func (c *Controller) fetchOptions(kind domain.MediaKind, res *infrastructure.Reservation) domain.FetchOptions {
	opts := domain.FetchOptions{
		Kind:           kind,
		OutputTemplate: res.Template(),
		ToolLocation:   c.config.FFmpegLocation,
	}
	if kind == domain.KindAudio {
		opts.Transcode = &domain.TranscodeTarget{
			Codec:       c.config.AudioCodec,
			BitrateKbps: c.config.AudioBitrateKbps,
		}
		if c.config.ResampleAudio {
			opts.Transcode.SampleRateHz = c.config.ResampleRateHz
		}
	} else {
		opts.MaxVideoHeight = c.config.MaxVideoHeight
	}
	return opts
}

// advance applies a forward transition and records it
func (c *Controller) advance(req *domain.DownloadRequest, to domain.State) error {
	if err := req.Transition(to); err != nil {
		c.events.LogAppError("Invalid transition", zap.String("id", req.ID), zap.Error(err))
		return err
	}
	c.persist(req)
	c.logEvent("state_changed", req)
	return nil
}

// fail moves req into a failure state, tells the user and returns cause
func (c *Controller) fail(ctx context.Context, req *domain.DownloadRequest, to domain.State, cause error, userMsg string) error {
	if err := req.Fail(to, cause); err != nil {
		c.events.LogAppError("Invalid failure transition", zap.String("id", req.ID), zap.Error(err))
		return err
	}
	c.logger.Warn("Request failed",
		zap.String("id", req.ID),
		zap.String("state", string(req.State)),
		zap.String("url", req.SourceURL),
		zap.Error(cause))
	c.logEvent("state_changed", req, zap.Error(cause))

	// The user hears about the failure even when ctx was cancelled
	noticeCtx, cancel := detached(ctx)
	defer cancel()
	c.sendText(noticeCtx, req.ChatID, userMsg)
	return cause
}

// detached returns a context that outlives ctx's cancellation for cleanupTimeout
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

// acquire marks key as being handled; false if it already is
func (c *Controller) acquire(key offerKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.active[key]; busy {
		return false
	}
	c.active[key] = struct{}{}
	return true
}

func (c *Controller) releaseOffer(key offerKey) {
	c.mu.Lock()
	delete(c.active, key)
	c.mu.Unlock()
}

// finish records a terminal transition that happened outside Execute
func (c *Controller) finish(req *domain.DownloadRequest, err error) {
	if err != nil {
		c.events.LogAppError("Invalid transition", zap.String("id", req.ID), zap.Error(err))
		return
	}
	c.persist(req)
	c.logEvent("state_changed", req)
}

// persist saves req; the audit store never blocks delivery
func (c *Controller) persist(req *domain.DownloadRequest) {
	if err := c.repo.Update(req); err != nil {
		c.logger.Warn("Failed to persist request", zap.String("id", req.ID), zap.Error(err))
	}
}

func (c *Controller) logEvent(event string, req *domain.DownloadRequest, extra ...zap.Field) {
	fields := append([]zap.Field{
		zap.String("request_id", req.ID),
		zap.String("state", string(req.State)),
		zap.String("kind", string(req.Kind)),
		zap.String("platform", string(req.Platform)),
		zap.String("url", req.SourceURL),
	}, extra...)
	if req.Fallback {
		fields = append(fields, zap.Bool("fallback", true))
	}
	c.events.LogRequestEvent(event, fields...)
}

func (c *Controller) sendText(ctx context.Context, chatID int64, text string) {
	if _, err := c.chat.SendText(ctx, chatID, text); err != nil {
		c.logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
