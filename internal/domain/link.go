package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// LinkKind is the outcome of classifying chat text
type LinkKind int

const (
	LinkUnrecognized LinkKind = iota
	LinkDirect
	LinkSearchQuery
)

func (k LinkKind) String() string {
	switch k {
	case LinkDirect:
		return "direct_link"
	case LinkSearchQuery:
		return "search_query"
	default:
		return "unrecognized"
	}
}

// Classification is the result of ClassifyText
type Classification struct {
	Kind     LinkKind
	URL      string
	Platform Platform
	MediaID  string
	Query    string
}

// ShortURL returns the canonical short form of a direct link, or URL when the
// platform has none.
func (c Classification) ShortURL() string {
	if c.Kind == LinkDirect && c.Platform == PlatformYouTube && c.MediaID != "" {
		return "https://youtu.be/" + c.MediaID
	}
	return c.URL
}

var (
	youtubeIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	vkVideoPattern   = regexp.MustCompile(`^(?:video|clip)(-?\d+_\d+)`)
	searchKeyword    = regexp.MustCompile(`(?i)^/?search(?:@\w+)?(?:\s+|$)`)
)

var youtubeHosts = map[string]bool{
	"youtube.com":          true,
	"youtube-nocookie.com": true,
}

var vkHosts = map[string]bool{
	"vk.com":     true,
	"vk.ru":      true,
	"vkvideo.ru": true,
}

// ClassifyText decides whether free-form chat text is a supported media link,
// a search query, or neither. It never touches the network.
func ClassifyText(text string) Classification {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Classification{Kind: LinkUnrecognized}
	}

	for _, field := range strings.Fields(trimmed) {
		if !looksLikeURL(field) {
			continue
		}
		if c, ok := classifyURL(field); ok {
			return c
		}
		// A link we cannot handle is never treated as a search query
		return Classification{Kind: LinkUnrecognized, URL: field}
	}

	query := strings.TrimSpace(searchKeyword.ReplaceAllString(trimmed, ""))
	if query == "" {
		return Classification{Kind: LinkUnrecognized}
	}
	return Classification{Kind: LinkSearchQuery, Query: query}
}

// SameMedia reports whether a and b are direct links to the same media item,
// regardless of host alias or extra query parameters.
func SameMedia(a, b string) bool {
	if a == b {
		return true
	}
	ca, cb := ClassifyText(a), ClassifyText(b)
	return ca.Kind == LinkDirect && cb.Kind == LinkDirect &&
		ca.Platform == cb.Platform && ca.MediaID != "" && ca.MediaID == cb.MediaID
}

// IsDirectLink reports whether text is a supported media link
func IsDirectLink(text string) bool {
	return ClassifyText(text).Kind == LinkDirect
}

func looksLikeURL(s string) bool {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "www.") {
		return true
	}
	host := lower
	if i := strings.IndexAny(host, "/?"); i >= 0 {
		host = host[:i]
	}
	host = normalizeHost(host)
	return youtubeHosts[host] || host == "youtu.be" || vkHosts[host]
}

func classifyURL(raw string) (Classification, bool) {
	withScheme := raw
	if !strings.Contains(raw, "://") {
		withScheme = "https://" + raw
	}
	u, err := url.Parse(withScheme)
	if err != nil || u.Host == "" {
		return Classification{}, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Classification{}, false
	}

	host := normalizeHost(strings.ToLower(u.Hostname()))
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch {
	case host == "youtu.be":
		if len(segments) >= 1 && youtubeIDPattern.MatchString(segments[0]) {
			return direct(raw, PlatformYouTube, segments[0]), true
		}
	case youtubeHosts[host]:
		if id := u.Query().Get("v"); youtubeIDPattern.MatchString(id) {
			return direct(raw, PlatformYouTube, id), true
		}
		if len(segments) >= 2 {
			switch segments[0] {
			case "shorts", "embed", "v", "live":
				if youtubeIDPattern.MatchString(segments[1]) {
					return direct(raw, PlatformYouTube, segments[1]), true
				}
			}
		}
	case vkHosts[host]:
		if len(segments) >= 1 {
			if m := vkVideoPattern.FindStringSubmatch(segments[len(segments)-1]); m != nil {
				return direct(raw, PlatformVK, m[1]), true
			}
		}
		if m := vkVideoPattern.FindStringSubmatch(u.Query().Get("z")); m != nil {
			return direct(raw, PlatformVK, m[1]), true
		}
	}
	return Classification{}, false
}

func normalizeHost(host string) string {
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}
	return host
}

func direct(raw string, platform Platform, id string) Classification {
	return Classification{Kind: LinkDirect, URL: raw, Platform: platform, MediaID: id}
}
