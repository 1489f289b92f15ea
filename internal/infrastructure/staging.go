package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yourusername/mediabot-go/internal/domain"
	"go.uber.org/zap"
)

// Reservation is a staging slot owned by one request
type Reservation struct {
	RequestID string
	Base      string // staging dir joined with the file base name, no extension
}

// Template returns the yt-dlp output template for the reservation
func (r *Reservation) Template() string {
	return r.Base + ".%(ext)s"
}

// PathFor returns the staged path for a given extension
func (r *Reservation) PathFor(ext string) string {
	return r.Base + "." + strings.TrimPrefix(ext, ".")
}

// StagingStore hands out collision-free file names in the staging directory
// and removes everything a request wrote once it is finished.
type StagingStore struct {
	dir      string
	logger   *zap.Logger
	mu       sync.Mutex
	inFlight map[string]string // base name -> request id
}

// NewStagingStore creates a new staging store rooted at dir
func NewStagingStore(dir string, logger *zap.Logger) *StagingStore {
	return &StagingStore{
		dir:      dir,
		logger:   logger,
		inFlight: make(map[string]string),
	}
}

// Dir returns the staging directory
func (s *StagingStore) Dir() string {
	return s.dir
}

// Reserve claims a base name derived from the sanitized title. When another
// in-flight request or a leftover file already uses it, the name gets a short
// suffix from the request id. A request may hold only one reservation.
func (s *StagingStore) Reserve(title, requestID string) (*Reservation, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	name := domain.SanitizeTitle(title)

	s.mu.Lock()
	defer s.mu.Unlock()

	// One request never holds two staged files
	for other, owner := range s.inFlight {
		if owner == requestID {
			return nil, fmt.Errorf("request %s already staging %q", requestID, other)
		}
	}

	if s.contended(name) {
		name = name + "-" + shortID(requestID)
	}
	if s.contended(name) {
		return nil, fmt.Errorf("staging name %q already in use", name)
	}
	s.inFlight[name] = requestID

	return &Reservation{RequestID: requestID, Base: filepath.Join(s.dir, name)}, nil
}

// contended must be called with mu held
func (s *StagingStore) contended(name string) bool {
	for other := range s.inFlight {
		if overlaps(name, other) {
			return true
		}
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), name+".") {
			return true
		}
	}
	return false
}

// overlaps reports whether files of one base could match the prefix of the other
func overlaps(a, b string) bool {
	return a == b || strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".")
}

// Finalize confirms that yt-dlp produced path
func (s *StagingStore) Finalize(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", filepath.Base(path), domain.ErrNotFound)
		}
		return "", err
	}
	if info.IsDir() || info.Size() == 0 {
		return "", fmt.Errorf("%s is empty: %w", filepath.Base(path), domain.ErrNotFound)
	}
	return path, nil
}

// Discover returns the first finished media file written for the reservation,
// skipping partial downloads and sidecar files. exclude lists extensions to ignore.
func (s *StagingStore) Discover(res *Reservation, exclude ...string) (string, error) {
	for _, path := range s.files(res) {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if !isMediaFile(path) || containsExt(exclude, ext) {
			continue
		}
		if final, err := s.Finalize(path); err == nil {
			return final, nil
		}
	}
	return "", fmt.Errorf("no media staged for %s: %w", filepath.Base(res.Base), domain.ErrNotFound)
}

// Release removes every file written for the reservation and frees its name.
// Safe to call more than once.
func (s *StagingStore) Release(res *Reservation) {
	if res == nil {
		return
	}

	for _, path := range s.files(res) {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to remove staged file",
				zap.String("request_id", res.RequestID),
				zap.String("path", path),
				zap.Error(err))
		}
	}

	s.mu.Lock()
	name := filepath.Base(res.Base)
	if s.inFlight[name] == res.RequestID {
		delete(s.inFlight, name)
	}
	s.mu.Unlock()
}

// InFlight returns the number of active reservations
func (s *StagingStore) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

func (s *StagingStore) files(res *Reservation) []string {
	entries, err := os.ReadDir(filepath.Dir(res.Base))
	if err != nil {
		return nil
	}
	prefix := filepath.Base(res.Base) + "."
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			files = append(files, filepath.Join(filepath.Dir(res.Base), e.Name()))
		}
	}
	return files
}

func containsExt(list []string, ext string) bool {
	for _, e := range list {
		if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
			return true
		}
	}
	return false
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// isMediaFile checks if a file is a finished audio or video file
func isMediaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	mediaExts := []string{".mp4", ".mkv", ".webm", ".mov", ".m4v", ".mp3", ".m4a", ".opus", ".ogg", ".aac", ".flac", ".wav"}
	for _, mediaExt := range mediaExts {
		if ext == mediaExt {
			return true
		}
	}
	return false
}
