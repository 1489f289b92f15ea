package domain

import "time"

// SearchHit is one candidate returned by a search provider
type SearchHit struct {
	Title string `json:"title"`
	ID    string `json:"id"`
	URL   string `json:"url"`
}

// YouTubeWatchURL builds the watch URL for a video id
func YouTubeWatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// SessionState tracks where a stateful search interaction is
type SessionState string

const (
	SessionAwaitingQuery SessionState = "awaiting_query"
	SessionResultsShown  SessionState = "results_shown"
)

// SearchSession is scoped to one user interaction and is never persisted
type SearchSession struct {
	UserID    int64
	ChatID    int64
	State     SessionState
	Query     string
	Results   []SearchHit
	MessageID int
	CreatedAt time.Time
}

// Expired reports whether the session is older than ttl. A zero ttl never expires.
func (s *SearchSession) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.CreatedAt) > ttl
}
