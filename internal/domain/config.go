package domain

import "time"

// Config represents the application configuration
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Staging   StagingConfig   `mapstructure:"staging"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Search    SearchConfig    `mapstructure:"search"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// BotConfig contains chat transport configuration
type BotConfig struct {
	Token       string  `mapstructure:"token"`
	Debug       bool    `mapstructure:"debug"`
	PollTimeout int     `mapstructure:"poll_timeout"` // long-poll timeout in seconds
	SendRate    float64 `mapstructure:"send_rate"`    // outbound API calls per second
	AdminChatID int64   `mapstructure:"admin_chat_id"`
}

// StagingConfig contains the staging directory configuration
type StagingConfig struct {
	Dir string `mapstructure:"dir"`
}

// ExtractorConfig contains yt-dlp and transcoding configuration
type ExtractorConfig struct {
	YTDLPBinary      string `mapstructure:"ytdlp_binary"`
	FFmpegLocation   string `mapstructure:"ffmpeg_location"`
	AudioCodec       string `mapstructure:"audio_codec"`
	AudioBitrateKbps int    `mapstructure:"audio_bitrate_kbps"`
	ResampleAudio    bool   `mapstructure:"resample_audio"`
	ResampleRateHz   int    `mapstructure:"resample_rate_hz"`
	MaxVideoHeight   int    `mapstructure:"max_video_height"` // 0 means unrestricted
	CookieFile       string `mapstructure:"cookie_file"`
	LogsDir          string `mapstructure:"logs_dir"`
}

// SearchConfig contains search configuration
type SearchConfig struct {
	Limit        int           `mapstructure:"limit"`
	TitleMaxLen  int           `mapstructure:"title_max_len"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	RapidAPIKey  string        `mapstructure:"rapidapi_key"`
	RapidAPIHost string        `mapstructure:"rapidapi_host"`
}

// ServerConfig contains admin HTTP server configuration
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// DatabaseConfig contains request audit store configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // category log files
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Debug:       false,
			PollTimeout: 60,
			SendRate:    25,
		},
		Staging: StagingConfig{
			Dir: "downloads",
		},
		Extractor: ExtractorConfig{
			YTDLPBinary:      "yt-dlp",
			AudioCodec:       "mp3",
			AudioBitrateKbps: 192,
			ResampleAudio:    false,
			ResampleRateHz:   16000,
			MaxVideoHeight:   0,
			LogsDir:          "logs",
		},
		Search: SearchConfig{
			Limit:        5,
			TitleMaxLen:  50,
			SessionTTL:   10 * time.Minute,
			RapidAPIHost: "youtube-v31.p.rapidapi.com",
		},
		Server: ServerConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    8080,
		},
		Database: DatabaseConfig{
			Path: "data/requests.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "logs",
		},
	}
}
