package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/mediabot-go/internal/domain"
	"github.com/yourusername/mediabot-go/internal/infrastructure"
)

// sentFile records an upload together with whether the file existed at send time
type sentFile struct {
	ChatID  int64
	Path    string
	Caption string
	Existed bool
}

type sentChoice struct {
	ChatID    int64
	MessageID int
	Prompt    string
	Rows      [][]domain.Choice
}

// fakeChat implements domain.Chat and records every call
type fakeChat struct {
	mu       sync.Mutex
	nextID   int
	texts    []string
	choices  []sentChoice
	audios   []sentFile
	videos   []sentFile
	deleted  []int
	answered []string
	sendErr  error
	textErr  error
	// honorCtx makes every call fail once its context is done, like the rate-limited transport
	honorCtx bool
}

func newFakeChat() *fakeChat {
	return &fakeChat{nextID: 100}
}

func (c *fakeChat) id() int {
	c.nextID++
	return c.nextID
}

func (c *fakeChat) cancelled(ctx context.Context) error {
	if c.honorCtx {
		return ctx.Err()
	}
	return nil
}

func (c *fakeChat) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.cancelled(ctx); err != nil {
		return 0, err
	}
	if c.textErr != nil {
		return 0, c.textErr
	}
	c.texts = append(c.texts, text)
	return c.id(), nil
}

func (c *fakeChat) SendChoice(ctx context.Context, chatID int64, prompt string, rows [][]domain.Choice) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.cancelled(ctx); err != nil {
		return 0, err
	}
	id := c.id()
	c.choices = append(c.choices, sentChoice{ChatID: chatID, MessageID: id, Prompt: prompt, Rows: rows})
	return id, nil
}

func (c *fakeChat) SendAudio(ctx context.Context, chatID int64, path, caption string) error {
	return c.upload(ctx, &c.audios, chatID, path, caption)
}

func (c *fakeChat) SendVideo(ctx context.Context, chatID int64, path, caption string) error {
	return c.upload(ctx, &c.videos, chatID, path, caption)
}

func (c *fakeChat) upload(ctx context.Context, dst *[]sentFile, chatID int64, path, caption string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.cancelled(ctx); err != nil {
		return err
	}
	_, err := os.Stat(path)
	*dst = append(*dst, sentFile{ChatID: chatID, Path: path, Caption: caption, Existed: err == nil})
	return c.sendErr
}

func (c *fakeChat) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	return nil
}

func (c *fakeChat) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.cancelled(ctx); err != nil {
		return err
	}
	c.deleted = append(c.deleted, messageID)
	return nil
}

func (c *fakeChat) AnswerCallback(ctx context.Context, callbackID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answered = append(c.answered, callbackID)
	return nil
}

func (c *fakeChat) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func (c *fakeChat) Videos() []sentFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentFile(nil), c.videos...)
}

func (c *fakeChat) Deleted() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.deleted...)
}

func (c *fakeChat) Choices() []sentChoice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentChoice(nil), c.choices...)
}

// fakeExtractor writes the configured files into the output template's directory
type fakeExtractor struct {
	mu         sync.Mutex
	title      string
	probeErr   error
	writeExts  []string
	fetchErr   error
	reportPath bool
	probes     int
	fetches    int
	lastOpts   domain.FetchOptions

	// fetchStarted is signalled when Fetch begins; Fetch then waits on fetchGate
	fetchStarted chan struct{}
	fetchGate    chan struct{}
	onFetch      func()
}

func (e *fakeExtractor) Probe(ctx context.Context, url string) (*domain.ProbeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.probes++
	if e.probeErr != nil {
		return nil, e.probeErr
	}
	return &domain.ProbeResult{Title: e.title, ID: "dQw4w9WgXcQ"}, nil
}

func (e *fakeExtractor) Fetch(ctx context.Context, url string, opts domain.FetchOptions) (*domain.FetchResult, error) {
	if e.fetchStarted != nil {
		e.fetchStarted <- struct{}{}
	}
	if e.fetchGate != nil {
		<-e.fetchGate
	}
	if e.onFetch != nil {
		e.onFetch()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.fetches++
	e.lastOpts = opts

	result := &domain.FetchResult{}
	for _, ext := range e.writeExts {
		path := strings.Replace(opts.OutputTemplate, "%(ext)s", ext, 1)
		if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
			return nil, err
		}
		if e.reportPath {
			result.Path, result.Ext = path, ext
		}
	}
	if e.fetchErr != nil {
		return nil, e.fetchErr
	}
	return result, nil
}

func (e *fakeExtractor) Calls() (probes, fetches int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.probes, e.fetches
}

// memRepo implements domain.RequestRepository in memory
type memRepo struct {
	mu       sync.Mutex
	requests map[string]*domain.DownloadRequest
}

func newMemRepo() *memRepo {
	return &memRepo{requests: make(map[string]*domain.DownloadRequest)}
}

func (m *memRepo) Create(req *domain.DownloadRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *memRepo) Update(req *domain.DownloadRequest) error {
	return m.Create(req)
}

func (m *memRepo) FindByID(id string) (*domain.DownloadRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memRepo) FindOffered(chatID int64, messageID int) (*domain.DownloadRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if req.ChatID == chatID && req.OfferMessageID == messageID && req.State == domain.StateFormatOffered {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ClaimOffered(id string, kind domain.MediaKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.State != domain.StateFormatOffered {
		return false, nil
	}
	req.State = domain.StateFormatChosen
	req.Kind = kind
	return true, nil
}

func (m *memRepo) FindAll(filters map[string]interface{}) ([]*domain.DownloadRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.DownloadRequest, 0, len(m.requests))
	for _, req := range m.requests {
		cp := *req
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRepo) GetStats() (*domain.RequestStats, error) {
	return &domain.RequestStats{}, nil
}

// claimedElsewhere reports every offer as already claimed, as another bot
// instance sharing the database would
type claimedElsewhere struct {
	*memRepo
}

func (claimedElsewhere) ClaimOffered(id string, kind domain.MediaKind) (bool, error) {
	return false, nil
}

func (m *memRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// stubSearcher returns canned hits and counts calls
type stubSearcher struct {
	mu    sync.Mutex
	hits  []domain.SearchHit
	err   error
	calls int
	query string
	limit int
}

func (s *stubSearcher) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.query, s.limit = query, limit
	if s.err != nil {
		return nil, s.err
	}
	if len(s.hits) > limit {
		return s.hits[:limit], nil
	}
	return s.hits, nil
}

func (s *stubSearcher) Name() string { return "stub" }

func (s *stubSearcher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type testEnv struct {
	chat       *fakeChat
	extractor  *fakeExtractor
	repo       *memRepo
	staging    *infrastructure.StagingStore
	stagingDir string
	controller *Controller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := domain.DefaultConfig()
	env := &testEnv{
		chat:       newFakeChat(),
		extractor:  &fakeExtractor{title: "Never Gonna Give You Up"},
		repo:       newMemRepo(),
		stagingDir: filepath.Join(t.TempDir(), "downloads"),
	}
	log := zap.NewNop()
	env.staging = infrastructure.NewStagingStore(env.stagingDir, log)
	notifier := infrastructure.NewNotificationService(env.chat, 0, log)
	env.controller = NewController(env.repo, env.extractor, env.staging, env.chat, notifier, &cfg.Extractor, log, nil)
	return env
}

// stagedFiles lists what is left in the staging directory
func (e *testEnv) stagedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.stagingDir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func chosenRequest(t *testing.T, kind domain.MediaKind) *domain.DownloadRequest {
	t.Helper()
	req := domain.NewDownloadRequest(1, 2, "https://youtu.be/dQw4w9WgXcQ", domain.PlatformYouTube)
	require.NoError(t, req.Transition(domain.StateFormatOffered))
	require.NoError(t, req.ChooseFormat(kind))
	return req
}
