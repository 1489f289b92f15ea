package domain

// RequestRepository defines the interface for download request persistence
type RequestRepository interface {
	// Create creates a new request
	Create(req *DownloadRequest) error

	// Update updates an existing request
	Update(req *DownloadRequest) error

	// FindByID finds a request by ID
	FindByID(id string) (*DownloadRequest, error)

	// FindOffered finds the request whose format choice was posted as messageID in chatID.
	// Returns nil if none is waiting for a choice.
	FindOffered(chatID int64, messageID int) (*DownloadRequest, error)

	// ClaimOffered moves request id from FORMAT_OFFERED to FORMAT_CHOSEN with kind in one
	// conditional write. Returns false when the request was no longer waiting for a choice.
	ClaimOffered(id string, kind MediaKind) (bool, error)

	// FindAll finds all requests with optional filters
	FindAll(filters map[string]interface{}) ([]*DownloadRequest, error)

	// GetStats returns request statistics
	GetStats() (*RequestStats, error)
}

// RequestStats represents request statistics
type RequestStats struct {
	Total     int64           `json:"total"`
	InFlight  int64           `json:"in_flight"`
	Done      int64           `json:"done"`
	Failed    int64           `json:"failed"`
	Cancelled int64           `json:"cancelled"`
	Fallbacks int64           `json:"fallbacks"`
	ByState   map[State]int64 `json:"by_state"`
}
