package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		kind     LinkKind
		platform Platform
		mediaID  string
		query    string
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", LinkDirect, PlatformYouTube, "dQw4w9WgXcQ", ""},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", LinkDirect, PlatformYouTube, "dQw4w9WgXcQ", ""},
		{"youtube shorts", "https://youtube.com/shorts/abcdefghijk", LinkDirect, PlatformYouTube, "abcdefghijk", ""},
		{"youtube mobile", "https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=10", LinkDirect, PlatformYouTube, "dQw4w9WgXcQ", ""},
		{"youtube music", "https://music.youtube.com/watch?v=dQw4w9WgXcQ", LinkDirect, PlatformYouTube, "dQw4w9WgXcQ", ""},
		{"youtube no scheme", "youtu.be/dQw4w9WgXcQ", LinkDirect, PlatformYouTube, "dQw4w9WgXcQ", ""},
		{"link inside text", "look at this https://youtu.be/dQw4w9WgXcQ please", LinkDirect, PlatformYouTube, "dQw4w9WgXcQ", ""},
		{"vk video", "https://vk.com/video-12345_67890", LinkDirect, PlatformVK, "-12345_67890", ""},
		{"vk clip", "https://vk.com/clip123_456", LinkDirect, PlatformVK, "123_456", ""},
		{"vk video in z param", "https://vk.com/videos-1?z=video-1_2%2Fpl_-1_-2", LinkDirect, PlatformVK, "-1_2", ""},
		{"vkvideo host", "https://vkvideo.ru/video-1_2", LinkDirect, PlatformVK, "-1_2", ""},
		{"youtube channel", "https://www.youtube.com/@somechannel", LinkUnrecognized, "", "", ""},
		{"unsupported host", "https://example.com/video.mp4", LinkUnrecognized, "", "", ""},
		{"vk profile", "https://vk.com/durov", LinkUnrecognized, "", "", ""},
		{"bad youtube id", "https://youtu.be/short", LinkUnrecognized, "", "", ""},
		{"plain words", "never gonna give you up", LinkSearchQuery, "", "", "never gonna give you up"},
		{"search keyword", "search lofi beats", LinkSearchQuery, "", "", "lofi beats"},
		{"search command", "/search lofi beats", LinkSearchQuery, "", "", "lofi beats"},
		{"search command with bot name", "/search@media_bot lofi", LinkSearchQuery, "", "", "lofi"},
		{"bare keyword", "search", LinkUnrecognized, "", "", ""},
		{"empty", "", LinkUnrecognized, "", "", ""},
		{"whitespace only", "   \t\n ", LinkUnrecognized, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ClassifyText(tt.text)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.platform, c.Platform)
			assert.Equal(t, tt.mediaID, c.MediaID)
			assert.Equal(t, tt.query, c.Query)
		})
	}
}

func TestClassifyText_KeepsOriginalURL(t *testing.T) {
	c := ClassifyText("  https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL1  ")

	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL1", c.URL)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", c.ShortURL())
}

func TestClassification_ShortURLForVK(t *testing.T) {
	c := ClassifyText("https://vk.com/video-1_2")
	assert.Equal(t, "https://vk.com/video-1_2", c.ShortURL())
}

func TestSameMedia(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "https://vk.com/video-1_2", "https://vk.com/video-1_2", true},
		{"long and short youtube", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL1&index=7", "https://youtu.be/dQw4w9WgXcQ", true},
		{"vk host alias", "https://vk.com/video-1_2", "https://vkvideo.ru/video-1_2", true},
		{"different youtube ids", "https://youtu.be/dQw4w9WgXcQ", "https://youtu.be/abcdefghijk", false},
		{"same id different platform", "https://vk.com/video-1_2", "https://youtu.be/dQw4w9WgXcQ", false},
		{"not a link", "cats", "https://youtu.be/dQw4w9WgXcQ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SameMedia(tt.a, tt.b))
			assert.Equal(t, tt.want, SameMedia(tt.b, tt.a))
		})
	}
}

func TestIsDirectLink(t *testing.T) {
	assert.True(t, IsDirectLink("https://youtu.be/dQw4w9WgXcQ"))
	assert.False(t, IsDirectLink("cats"))
	assert.False(t, IsDirectLink("https://example.com"))
}

func TestLinkKind_String(t *testing.T) {
	assert.Equal(t, "direct_link", LinkDirect.String())
	assert.Equal(t, "search_query", LinkSearchQuery.String())
	assert.Equal(t, "unrecognized", LinkUnrecognized.String())
}
