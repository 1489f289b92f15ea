package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/mediabot-go/internal/domain"
	"github.com/yourusername/mediabot-go/pkg/logger"
	"go.uber.org/zap"
)

// commandRunner executes binary with args, wiring its output to stdout and stderr
type commandRunner func(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error

func execRunner(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// YTDLPExtractor implements Extractor and Searcher on top of the yt-dlp binary
type YTDLPExtractor struct {
	config      *domain.ExtractorConfig
	eventLogger *logger.MultiLogger
	run         commandRunner
}

// NewYTDLPExtractor creates a new yt-dlp gateway
func NewYTDLPExtractor(config *domain.ExtractorConfig, eventLogger *logger.MultiLogger) *YTDLPExtractor {
	return &YTDLPExtractor{
		config:      config,
		eventLogger: eventLogger,
		run:         execRunner,
	}
}

// Name identifies the search provider
func (e *YTDLPExtractor) Name() string {
	return "yt-dlp"
}

type ytdlpInfo struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Ext     string       `json:"ext"`
	URL     string       `json:"url"`
	Entries []*ytdlpInfo `json:"entries"`
}

// Probe reads metadata for url without downloading
func (e *YTDLPExtractor) Probe(ctx context.Context, url string) (*domain.ProbeResult, error) {
	args := e.baseArgs()
	args = append(args, "--dump-single-json", "--skip-download", "--no-playlist", url)

	stdout, err := e.exec(ctx, "Probe: "+url, args)
	if err != nil {
		return nil, err
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout, &info); err != nil {
		return nil, fmt.Errorf("%w: invalid probe output: %v", domain.ErrExtraction, err)
	}

	return &domain.ProbeResult{Title: info.Title, ID: info.ID, Ext: info.Ext}, nil
}

// Fetch downloads url into opts.OutputTemplate
func (e *YTDLPExtractor) Fetch(ctx context.Context, url string, opts domain.FetchOptions) (*domain.FetchResult, error) {
	if opts.OutputTemplate == "" {
		return nil, fmt.Errorf("%w: output template required", domain.ErrExtraction)
	}
	if err := os.MkdirAll(filepath.Dir(opts.OutputTemplate), 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	args := e.buildFetchArgs(url, opts)
	stdout, err := e.exec(ctx, "Fetch: "+url, args)

	result := &domain.FetchResult{Path: lastLine(stdout)}
	if result.Path != "" {
		result.Ext = strings.TrimPrefix(filepath.Ext(result.Path), ".")
	}
	return result, err
}

// buildFetchArgs builds the yt-dlp arguments for a download
// Note: exec.Command passes args directly to process, no shell quoting needed
func (e *YTDLPExtractor) buildFetchArgs(url string, opts domain.FetchOptions) []string {
	args := e.baseArgs()
	args = append(args,
		"--no-playlist",
		"-o", opts.OutputTemplate,
		"--print", "after_move:filepath",
		"--no-simulate",
	)

	// The default format keeps a playable video behind if audio extraction fails
	if opts.Transcode != nil {
		args = append(args,
			"-x",
			"--audio-format", opts.Transcode.Codec,
			"--audio-quality", strconv.Itoa(opts.Transcode.BitrateKbps)+"K",
		)
		if opts.Transcode.SampleRateHz > 0 {
			args = append(args, "--postprocessor-args", "ffmpeg:-ar "+strconv.Itoa(opts.Transcode.SampleRateHz))
		}
	} else if opts.MaxVideoHeight > 0 {
		h := strconv.Itoa(opts.MaxVideoHeight)
		args = append(args, "-f", "best[height<="+h+"]/best")
	}

	location := opts.ToolLocation
	if location == "" {
		location = e.config.FFmpegLocation
	}
	if location != "" {
		args = append(args, "--ffmpeg-location", location)
	}

	return append(args, url)
}

// Search returns the top limit results from a flat YouTube search
func (e *YTDLPExtractor) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if limit < 1 {
		limit = 1
	}

	args := e.baseArgs()
	args = append(args, fmt.Sprintf("ytsearch%d:%s", limit, query), "--flat-playlist", "--dump-single-json")

	stdout, err := e.exec(ctx, "Search: "+query, args)
	if err != nil {
		return nil, err
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout, &info); err != nil {
		return nil, fmt.Errorf("%w: invalid search output: %v", domain.ErrExtraction, err)
	}

	hits := make([]domain.SearchHit, 0, len(info.Entries))
	for _, entry := range info.Entries {
		if entry == nil || entry.ID == "" {
			continue
		}
		hits = append(hits, domain.SearchHit{
			Title: entry.Title,
			ID:    entry.ID,
			URL:   domain.YouTubeWatchURL(entry.ID),
		})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (e *YTDLPExtractor) baseArgs() []string {
	args := []string{"--no-warnings", "--no-progress"}
	if e.config.CookieFile != "" && fileExists(e.config.CookieFile) {
		args = append(args, "--cookies", e.config.CookieFile)
	}
	return args
}

// exec runs yt-dlp, mirroring all output into the daily extractor log
func (e *YTDLPExtractor) exec(ctx context.Context, label string, args []string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	var outW, errW io.Writer = &stdout, &stderr

	logFile, err := e.openLogFile()
	if err != nil {
		if e.eventLogger != nil {
			e.eventLogger.LogAppError("Failed to open extractor log", zap.Error(err))
		}
	} else {
		defer logFile.Close()
		e.writeLogHeader(logFile, label, commandLine(e.config.YTDLPBinary, args))
		outW = io.MultiWriter(&stdout, logFile)
		errW = io.MultiWriter(&stderr, logFile)
	}

	runErr := e.run(ctx, e.config.YTDLPBinary, args, outW, errW)
	if runErr != nil {
		classified := classifyYTDLPError(runErr, stderr.String())
		if logFile != nil {
			e.writeLogFooter(logFile, false, classified.Error())
		}
		return stdout.Bytes(), classified
	}

	if logFile != nil {
		e.writeLogFooter(logFile, true, label)
	}
	return stdout.Bytes(), nil
}

// classifyYTDLPError maps a failed run onto the domain error taxonomy
func classifyYTDLPError(err error, stderr string) error {
	lower := strings.ToLower(stderr)
	if (strings.Contains(lower, "ffmpeg") || strings.Contains(lower, "ffprobe")) &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "not installed")) {
		return fmt.Errorf("%w: %s", domain.ErrTranscodeUnavailable, lastErrorLine(stderr))
	}
	if line := lastErrorLine(stderr); line != "" {
		return fmt.Errorf("%w: %s", domain.ErrExtraction, line)
	}
	return fmt.Errorf("%w: yt-dlp failed: %v", domain.ErrExtraction, err)
}

// lastErrorLine returns the last "ERROR:" line, or the last line of output
func lastErrorLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "ERROR:") {
			return strings.TrimSpace(lines[i])
		}
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// openLogFile opens the extractor log file for today
func (e *YTDLPExtractor) openLogFile() (*os.File, error) {
	if e.config.LogsDir == "" {
		return nil, fmt.Errorf("extractor logs directory not configured")
	}
	if err := os.MkdirAll(e.config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	dateStr := time.Now().Format("20060102")
	path := filepath.Join(e.config.LogsDir, "extractor-"+dateStr+".log")
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func (e *YTDLPExtractor) writeLogHeader(file *os.File, label, cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	file.WriteString(fmt.Sprintf("\n=== [%s] %s ===\n", timestamp, label))
	file.WriteString(fmt.Sprintf("$ %s\n", cmdLine))
}

func (e *YTDLPExtractor) writeLogFooter(file *os.File, success bool, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	file.WriteString(fmt.Sprintf("[%s] %s: %s\n", timestamp, status, message))
	file.WriteString("=== END ===\n\n")
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
