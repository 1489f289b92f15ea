package domain

import "errors"

var (
	// ErrMalformedCallback indicates a callback token that cannot be decoded.
	ErrMalformedCallback = errors.New("malformed callback")
	// ErrCallbackTooLong indicates an encoded token exceeds the transport limit.
	ErrCallbackTooLong = errors.New("callback token too long")
	// ErrExtraction indicates a platform or network failure during probe, fetch or search.
	ErrExtraction = errors.New("extraction failed")
	// ErrTranscodeUnavailable indicates the local transcoding tool is missing.
	ErrTranscodeUnavailable = errors.New("transcoding tool unavailable")
	// ErrDelivery indicates the chat transport rejected an upload.
	ErrDelivery = errors.New("delivery failed")
	// ErrNotFound indicates a staged file or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInProgress indicates the request is already being handled.
	ErrInProgress = errors.New("request already in progress")
	// ErrEmptyQuery indicates a blank search query.
	ErrEmptyQuery = errors.New("empty search query")
	// ErrInvalidTransition indicates a lifecycle transition that is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
)
