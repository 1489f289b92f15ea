package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryRequest   LogCategory = "request"   // Download request lifecycle events (JSON)
	CategorySearch    LogCategory = "search"    // Search sessions and provider calls (JSON)
	CategoryError     LogCategory = "error"     // Application errors (JSON)
	CategoryExtractor LogCategory = "extractor" // Raw yt-dlp output, written by the extractor
)

// Categories lists every category that has a daily log file
var Categories = []LogCategory{CategoryRequest, CategorySearch, CategoryError, CategoryExtractor}

// ParseCategory returns the category named s
func ParseCategory(s string) (LogCategory, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// MultiLogger provides categorized logging with separate daily files.
// A nil *MultiLogger discards everything.
type MultiLogger struct {
	loggers     map[LogCategory]*zap.Logger
	files       map[LogCategory]*os.File
	config      MultiLoggerConfig
	mu          sync.RWMutex
	currentDate string
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// structured lists the categories owned by MultiLogger and their minimum level
func (ml *MultiLogger) structured() map[LogCategory]zapcore.Level {
	level, err := zapcore.ParseLevel(ml.config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	return map[LogCategory]zapcore.Level{
		CategoryRequest: level,
		CategorySearch:  level,
		CategoryError:   zapcore.ErrorLevel,
	}
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	// Ensure logs directory exists
	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	ml := &MultiLogger{config: config}
	if err := ml.open(time.Now()); err != nil {
		return nil, err
	}
	return ml, nil
}

// open creates the loggers for date, replacing any previous set. Caller holds mu.
func (ml *MultiLogger) open(date time.Time) error {
	loggers := make(map[LogCategory]*zap.Logger)
	files := make(map[LogCategory]*os.File)

	// Create one JSON logger per structured category
	for category, level := range ml.structured() {
		logger, file, err := ml.createStructuredLogger(category, level, date)
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		loggers[category] = logger
		files[category] = file
	}

	// Swap in the new set and close the previous day's files
	for _, f := range ml.files {
		f.Close()
	}
	ml.loggers = loggers
	ml.files = files
	ml.currentDate = date.Format("20060102")
	return nil
}

// createStructuredLogger creates a JSON-formatted logger for a category
func (ml *MultiLogger) createStructuredLogger(category LogCategory, level zapcore.Level, date time.Time) (*zap.Logger, *os.File, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = "" // Don't include caller for cleaner logs

	encoder := zapcore.NewJSONEncoder(encoderConfig)

	file, err := os.OpenFile(CategoryLogPath(ml.config.LogsDir, category, date), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(file), level)
	return zap.New(core), file, nil
}

// CategoryLogPath generates the log file path for a category on date
func CategoryLogPath(logsDir string, category LogCategory, date time.Time) string {
	filename := fmt.Sprintf("%s-%s.log", category, date.Format("20060102"))
	return filepath.Join(logsDir, filename)
}

// rotate reopens the files when the day changed
func (ml *MultiLogger) rotate() {
	now := time.Now()
	ml.mu.RLock()
	same := ml.currentDate == now.Format("20060102")
	ml.mu.RUnlock()
	if same {
		return
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()
	// Another caller may have rotated while we waited for the lock
	if ml.currentDate == now.Format("20060102") {
		return
	}
	for _, logger := range ml.loggers {
		logger.Sync()
	}
	if err := ml.open(now); err != nil {
		fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
	}
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	if ml == nil {
		return ""
	}
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	if ml == nil {
		return zap.NewNop()
	}
	ml.rotate()

	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	// Return error logger as fallback
	if logger, ok := ml.loggers[CategoryError]; ok {
		return logger
	}
	return zap.NewNop()
}

// Request returns the request lifecycle logger (JSON format)
func (ml *MultiLogger) Request() *zap.Logger {
	return ml.GetLogger(CategoryRequest)
}

// Search returns the search logger (JSON format)
func (ml *MultiLogger) Search() *zap.Logger {
	return ml.GetLogger(CategorySearch)
}

// Error returns the error logger (JSON format)
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error (Go errors, panics)
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// LogRequestEvent logs a request lifecycle event with structured data
func (ml *MultiLogger) LogRequestEvent(event string, fields ...zap.Field) {
	ml.Request().Info(event, fields...)
}

// LogSearchEvent logs a search session event with structured data
func (ml *MultiLogger) LogSearchEvent(event string, fields ...zap.Field) {
	ml.Search().Info(event, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	if ml == nil {
		return nil
	}
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	if ml == nil {
		return nil
	}
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	for _, f := range ml.files {
		if err := f.Close(); err != nil {
			lastErr = err
		}
	}
	ml.loggers = map[LogCategory]*zap.Logger{}
	ml.files = nil
	return lastErr
}
