package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MediaKind is the format the user asked for
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// ParseMediaKind converts a callback prefix into a MediaKind
func ParseMediaKind(s string) (MediaKind, bool) {
	switch MediaKind(s) {
	case KindAudio, KindVideo:
		return MediaKind(s), true
	default:
		return "", false
	}
}

// State is a step of the download request lifecycle
type State string

const (
	StateReceived      State = "received"
	StateFormatOffered State = "format_offered"
	StateFormatChosen  State = "format_chosen"
	StateProbing       State = "probing"
	StateDownloading   State = "downloading"
	StateStaged        State = "staged"
	StateDelivering    State = "delivering"
	StateDone          State = "done"

	StateProbeFailed          State = "probe_failed"
	StateDownloadFailed       State = "download_failed"
	StateTranscodeUnavailable State = "transcode_unavailable"
	StateDeliveryFailed       State = "delivery_failed"
	StateCancelled            State = "cancelled"
)

// allowedTransitions lists the forward edges of the lifecycle.
// Terminal states have no outgoing edges.
var allowedTransitions = map[State][]State{
	StateReceived:      {StateFormatOffered, StateCancelled},
	StateFormatOffered: {StateFormatChosen, StateCancelled},
	StateFormatChosen:  {StateProbing, StateCancelled},
	StateProbing:       {StateDownloading, StateProbeFailed},
	StateDownloading:   {StateStaged, StateDownloadFailed, StateTranscodeUnavailable},
	StateStaged:        {StateDelivering},
	StateDelivering:    {StateDone, StateDeliveryFailed},
}

// IsTerminal reports whether no further transition is possible from s
func (s State) IsTerminal() bool {
	_, ok := allowedTransitions[s]
	return !ok
}

// IsFailure reports whether s is a terminal failure
func (s State) IsFailure() bool {
	switch s {
	case StateProbeFailed, StateDownloadFailed, StateTranscodeUnavailable, StateDeliveryFailed:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a lifecycle edge
func CanTransition(from, to State) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Platform identifies the media hosting family of a link
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformVK      Platform = "vk"
)

// DownloadRequest represents one user-initiated download
type DownloadRequest struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	ChatID         int64      `json:"chat_id" gorm:"index:idx_offer"`
	UserID         int64      `json:"user_id"`
	OfferMessageID int        `json:"offer_message_id,omitempty" gorm:"index:idx_offer"`
	SourceURL      string     `json:"source_url" gorm:"not null"`
	Platform       Platform   `json:"platform"`
	Kind           MediaKind  `json:"kind,omitempty"`
	State          State      `json:"state" gorm:"not null;index"`
	ProbedTitle    string     `json:"probed_title,omitempty"`
	StagedPath     string     `json:"staged_path,omitempty"`
	Fallback       bool       `json:"fallback"` // audio request delivered as video
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewDownloadRequest creates a request in the RECEIVED state
func NewDownloadRequest(chatID, userID int64, url string, platform Platform) *DownloadRequest {
	now := time.Now()
	return &DownloadRequest{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		UserID:    userID,
		SourceURL: url,
		Platform:  platform,
		State:     StateReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the request to the next state
func (r *DownloadRequest) Transition(to State) error {
	if !CanTransition(r.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, to)
	}
	r.State = to
	now := time.Now()
	r.UpdatedAt = now
	if to.IsTerminal() {
		r.CompletedAt = &now
	}
	return nil
}

// ChooseFormat fixes the media kind and moves to FORMAT_CHOSEN.
// A kind cannot be changed once chosen.
func (r *DownloadRequest) ChooseFormat(kind MediaKind) error {
	if r.Kind != "" && r.Kind != kind {
		return fmt.Errorf("%w: kind already %s", ErrInvalidTransition, r.Kind)
	}
	if err := r.Transition(StateFormatChosen); err != nil {
		return err
	}
	r.Kind = kind
	return nil
}

// Fail moves the request into a terminal failure state and records the cause
func (r *DownloadRequest) Fail(to State, cause error) error {
	if !to.IsFailure() {
		return fmt.Errorf("%w: %s is not a failure state", ErrInvalidTransition, to)
	}
	if err := r.Transition(to); err != nil {
		return err
	}
	if cause != nil {
		r.ErrorMessage = cause.Error()
	}
	return nil
}

// Cancel moves the request to CANCELLED if it has not started downloading
func (r *DownloadRequest) Cancel() error {
	return r.Transition(StateCancelled)
}

// IsTerminal checks if the request is in a terminal state
func (r *DownloadRequest) IsTerminal() bool {
	return r.State.IsTerminal()
}
