package domain

import (
	"fmt"
	"strings"
)

// CallbackDelimiter separates the action prefix from the payload
const CallbackDelimiter = "_"

// MaxCallbackDataLen is the Telegram limit for inline button data, in bytes
const MaxCallbackDataLen = 64

// CallbackAction is the verb carried by a callback token
type CallbackAction string

const (
	ActionAudio        CallbackAction = "audio"
	ActionVideo        CallbackAction = "video"
	ActionSearchSelect CallbackAction = "search_video"
	ActionCancelSearch CallbackAction = "cancel_search"
)

// Callback is a decoded callback token
type Callback struct {
	Action CallbackAction
	URL    string
}

// Kind returns the media kind of a format-choice callback
func (c Callback) Kind() (MediaKind, bool) {
	return ParseMediaKind(string(c.Action))
}

// EncodeCallback builds a self-contained token for an inline button
func EncodeCallback(action CallbackAction, url string) (string, error) {
	var token string
	switch action {
	case ActionCancelSearch:
		token = string(action)
	case ActionAudio, ActionVideo, ActionSearchSelect:
		if url == "" {
			return "", fmt.Errorf("%w: empty url for %s", ErrMalformedCallback, action)
		}
		token = string(action) + CallbackDelimiter + url
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrMalformedCallback, action)
	}
	if len(token) > MaxCallbackDataLen {
		return "", fmt.Errorf("%w: %d bytes", ErrCallbackTooLong, len(token))
	}
	return token, nil
}

// DecodeCallback parses a token produced by EncodeCallback. The URL is rebuilt
// from every segment after the prefix because URLs may contain the delimiter.
func DecodeCallback(token string) (Callback, error) {
	if token == string(ActionCancelSearch) {
		return Callback{Action: ActionCancelSearch}, nil
	}

	parts := strings.Split(token, CallbackDelimiter)
	if len(parts) < 2 {
		return Callback{}, fmt.Errorf("%w: %q", ErrMalformedCallback, token)
	}

	var action CallbackAction
	var payload []string
	switch {
	case parts[0] == "search" && len(parts) >= 3 && parts[1] == "video":
		action, payload = ActionSearchSelect, parts[2:]
	case parts[0] == "format" && len(parts) >= 3:
		// format_<kind>_<url> buttons sent by earlier bot versions
		action, payload = CallbackAction(parts[1]), parts[2:]
	default:
		action, payload = CallbackAction(parts[0]), parts[1:]
	}

	if action != ActionSearchSelect {
		if _, ok := ParseMediaKind(string(action)); !ok {
			return Callback{}, fmt.Errorf("%w: unknown action %q", ErrMalformedCallback, action)
		}
	}

	url := strings.Join(payload, CallbackDelimiter)
	if url == "" {
		return Callback{}, fmt.Errorf("%w: empty payload", ErrMalformedCallback)
	}
	return Callback{Action: action, URL: url}, nil
}
