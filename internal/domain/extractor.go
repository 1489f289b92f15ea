package domain

import "context"

// ProbeResult is metadata obtained without downloading
type ProbeResult struct {
	Title string
	ID    string
	Ext   string
}

// TranscodeTarget asks the extractor to convert the download to audio
type TranscodeTarget struct {
	Codec        string
	BitrateKbps  int
	SampleRateHz int // 0 keeps the source rate
}

// FetchOptions controls one real download
type FetchOptions struct {
	Kind           MediaKind
	OutputTemplate string // path with an "%(ext)s" placeholder
	Transcode      *TranscodeTarget
	MaxVideoHeight int    // 0 means unrestricted
	ToolLocation   string // override path to the transcoding binary
}

// FetchResult reports what the extractor wrote
type FetchResult struct {
	Path string
	Ext  string // container extension before any transcoding
}

// Extractor defines the interface to the external media extraction engine
type Extractor interface {
	// Probe returns metadata for url without downloading it
	Probe(ctx context.Context, url string) (*ProbeResult, error)

	// Fetch downloads url according to opts
	Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error)
}

// Searcher defines a flat top-N search capability
type Searcher interface {
	// Search returns at most limit hits in ranking order
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Name identifies the provider in logs
	Name() string
}
