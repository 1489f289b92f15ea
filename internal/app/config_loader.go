package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/mediabot-go/internal/domain"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "MEDIABOT"

// legacyEnv maps config keys to the plain variable names older deployments use
var legacyEnv = map[string]string{
	"bot.token":                 "BOT_TOKEN",
	"extractor.ffmpeg_location": "FFMPEG_PATH",
	"search.rapidapi_key":       "RAPIDAPI_KEY",
	"bot.admin_chat_id":         "ADMIN_CHAT_ID",
}

// envKeys lists the keys that may be overridden from the environment
var envKeys = []string{
	"bot.token", "bot.debug", "bot.poll_timeout", "bot.send_rate", "bot.admin_chat_id",
	"staging.dir",
	"extractor.ytdlp_binary", "extractor.ffmpeg_location", "extractor.audio_codec",
	"extractor.audio_bitrate_kbps", "extractor.resample_audio", "extractor.resample_rate_hz",
	"extractor.max_video_height", "extractor.cookie_file", "extractor.logs_dir",
	"search.limit", "search.title_max_len", "search.session_ttl", "search.rapidapi_key", "search.rapidapi_host",
	"server.enabled", "server.host", "server.port",
	"database.path",
	"logging.level", "logging.format", "logging.output_path", "logging.logs_dir",
}

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	// Set up viper
	v := viper.New()
	v.SetConfigType("yaml")

	// If config path is provided, use it
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.mediabot")
		v.AddConfigPath("/etc/mediabot")
	}

	// Read environment variables, including the legacy names
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		names := []string{key, EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		if legacy, ok := legacyEnv[key]; ok {
			names = append(names, legacy)
		}
		if err := v.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand environment variables in paths
	config = expandPaths(config)

	// Validate config
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadDotEnv copies KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("failed to set %s: %w", name, err)
		}
	}
	return nil
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Staging.Dir = expandPath(config.Staging.Dir)
	config.Database.Path = expandPath(config.Database.Path)
	config.Extractor.LogsDir = expandPath(config.Extractor.LogsDir)
	config.Extractor.CookieFile = expandPath(config.Extractor.CookieFile)
	config.Extractor.FFmpegLocation = expandPath(config.Extractor.FFmpegLocation)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	// Expand environment variables
	path = os.ExpandEnv(path)

	// Expand home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Bot.Token == "" {
		return fmt.Errorf("bot token not configured (set %s_BOT_TOKEN or BOT_TOKEN)", EnvPrefix)
	}

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Staging.Dir == "" {
		return fmt.Errorf("staging directory not configured")
	}

	if config.Search.Limit < 1 || config.Search.Limit > 10 {
		return fmt.Errorf("search limit must be between 1 and 10, got %d", config.Search.Limit)
	}

	if config.Extractor.AudioBitrateKbps <= 0 {
		return fmt.Errorf("audio bitrate must be positive")
	}

	if config.Extractor.ResampleAudio && config.Extractor.ResampleRateHz <= 0 {
		return fmt.Errorf("resample rate must be positive when resampling is enabled")
	}

	if config.Bot.SendRate <= 0 {
		config.Bot.SendRate = domain.DefaultConfig().Bot.SendRate
	}

	if config.Search.TitleMaxLen <= 0 {
		config.Search.TitleMaxLen = domain.DefaultConfig().Search.TitleMaxLen
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	// Marshal config to viper
	v.Set("bot", map[string]interface{}{
		"debug":         config.Bot.Debug,
		"poll_timeout":  config.Bot.PollTimeout,
		"send_rate":     config.Bot.SendRate,
		"admin_chat_id": config.Bot.AdminChatID,
	})
	v.Set("staging", map[string]interface{}{"dir": config.Staging.Dir})
	v.Set("extractor", map[string]interface{}{
		"ytdlp_binary":       config.Extractor.YTDLPBinary,
		"ffmpeg_location":    config.Extractor.FFmpegLocation,
		"audio_codec":        config.Extractor.AudioCodec,
		"audio_bitrate_kbps": config.Extractor.AudioBitrateKbps,
		"resample_audio":     config.Extractor.ResampleAudio,
		"resample_rate_hz":   config.Extractor.ResampleRateHz,
		"max_video_height":   config.Extractor.MaxVideoHeight,
		"logs_dir":           config.Extractor.LogsDir,
	})
	v.Set("search", map[string]interface{}{
		"limit":         config.Search.Limit,
		"title_max_len": config.Search.TitleMaxLen,
		"session_ttl":   config.Search.SessionTTL.String(),
		"rapidapi_host": config.Search.RapidAPIHost,
	})
	v.Set("server", map[string]interface{}{
		"enabled": config.Server.Enabled,
		"host":    config.Server.Host,
		"port":    config.Server.Port,
	})
	v.Set("database", map[string]interface{}{"path": config.Database.Path})
	v.Set("logging", map[string]interface{}{
		"level":       config.Logging.Level,
		"format":      config.Logging.Format,
		"output_path": config.Logging.OutputPath,
		"logs_dir":    config.Logging.LogsDir,
	})

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config file; secrets stay in the environment
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
