package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCallback(t *testing.T) {
	tests := []struct {
		name   string
		action CallbackAction
		url    string
	}{
		{"audio", ActionAudio, "https://youtu.be/dQw4w9WgXcQ"},
		{"video", ActionVideo, "https://youtu.be/dQw4w9WgXcQ"},
		{"url with underscores", ActionVideo, "https://vk.com/video-1_2"},
		{"id with underscore", ActionAudio, "https://youtu.be/ab_cd_ef_gh"},
		{"search select", ActionSearchSelect, "https://youtu.be/a_b-c_d_e_f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := EncodeCallback(tt.action, tt.url)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(token), MaxCallbackDataLen)

			cb, err := DecodeCallback(token)
			require.NoError(t, err)
			assert.Equal(t, tt.action, cb.Action)
			assert.Equal(t, tt.url, cb.URL)
		})
	}
}

func TestEncodeCallback_Cancel(t *testing.T) {
	token, err := EncodeCallback(ActionCancelSearch, "")
	require.NoError(t, err)
	assert.Equal(t, "cancel_search", token)

	cb, err := DecodeCallback(token)
	require.NoError(t, err)
	assert.Equal(t, ActionCancelSearch, cb.Action)
	assert.Empty(t, cb.URL)
}

func TestEncodeCallback_TooLong(t *testing.T) {
	long := "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=" + strings.Repeat("x", 40)

	_, err := EncodeCallback(ActionAudio, long)
	assert.ErrorIs(t, err, ErrCallbackTooLong)
}

func TestEncodeCallback_Invalid(t *testing.T) {
	_, err := EncodeCallback(ActionAudio, "")
	assert.ErrorIs(t, err, ErrMalformedCallback)

	_, err = EncodeCallback("gif", "https://youtu.be/dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrMalformedCallback)
}

func TestDecodeCallback_Malformed(t *testing.T) {
	for _, token := range []string{"", "audio", "audio_", "gif_https://x", "search_video", "cancel", "_https://x"} {
		t.Run(token, func(t *testing.T) {
			_, err := DecodeCallback(token)
			assert.ErrorIs(t, err, ErrMalformedCallback)
		})
	}
}

func TestDecodeCallback_LegacyFormatPrefix(t *testing.T) {
	cb, err := DecodeCallback("format_audio_https://vk.com/video-1_2")
	require.NoError(t, err)

	kind, ok := cb.Kind()
	assert.True(t, ok)
	assert.Equal(t, KindAudio, kind)
	assert.Equal(t, "https://vk.com/video-1_2", cb.URL)
}

func TestCallback_KindForSearch(t *testing.T) {
	_, ok := Callback{Action: ActionSearchSelect, URL: "x"}.Kind()
	assert.False(t, ok)
}
