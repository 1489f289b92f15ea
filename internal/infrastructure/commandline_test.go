package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteArg(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "--no-playlist", want: "--no-playlist"},
		{name: "empty", input: "", want: "''"},
		{name: "url with query", input: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=1", want: "'https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=1'"},
		{name: "output template", input: "downloads/My Song.%(ext)s", want: "'downloads/My Song.%(ext)s'"},
		{name: "single quote", input: "it's", want: `'it'\''s'`},
		{name: "dollar", input: "$HOME", want: "'$HOME'"},
		{name: "unicode", input: "Кино", want: "Кино"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteArg(tt.input))
		})
	}
}

func TestCommandLine(t *testing.T) {
	got := commandLine("yt-dlp", []string{"-x", "--audio-format", "mp3", "-o", "downloads/a b.%(ext)s", "https://youtu.be/dQw4w9WgXcQ"})
	assert.Equal(t, "yt-dlp -x --audio-format mp3 -o 'downloads/a b.%(ext)s' https://youtu.be/dQw4w9WgXcQ", got)
}

func TestCommandLineRedactsSecrets(t *testing.T) {
	got := commandLine("/usr/local/bin/yt-dlp", []string{
		"--username", "alice",
		"--password", "hunter2",
		"--add-header=Authorization:Bearer xyz",
		"https://vk.com/video-1_2",
	})

	assert.NotContains(t, got, "alice")
	assert.NotContains(t, got, "hunter2")
	assert.NotContains(t, got, "xyz")
	assert.Equal(t, "/usr/local/bin/yt-dlp --username <redacted> --password <redacted> --add-header=<redacted> https://vk.com/video-1_2", got)
}
