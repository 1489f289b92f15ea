package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "downloads", config.Staging.Dir)
	assert.Equal(t, "yt-dlp", config.Extractor.YTDLPBinary)
	assert.Equal(t, "mp3", config.Extractor.AudioCodec)
	assert.Equal(t, 192, config.Extractor.AudioBitrateKbps)
	assert.False(t, config.Extractor.ResampleAudio)
	assert.Equal(t, 0, config.Extractor.MaxVideoHeight)
	assert.Equal(t, 5, config.Search.Limit)
	assert.Equal(t, 50, config.Search.TitleMaxLen)
	assert.Equal(t, 10*time.Minute, config.Search.SessionTTL)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Empty(t, config.Bot.Token)
}
