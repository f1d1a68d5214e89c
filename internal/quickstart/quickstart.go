// Package quickstart runs the blob storage walkthrough: create a container, upload a
// sample file, list the container, download the file and clean everything up.
package quickstart

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tizianocitro/blobquickstart/pkg/filestorage"
	"go.uber.org/zap"
)

// Options control what the walkthrough creates.
type Options struct {
	Banner        string
	Container     string
	PublicAccess  bool
	SampleContent string
	SamplePrefix  string
	SampleSuffix  string
	TempDir       string // "" means os.TempDir()
	DownloadName  string
	Pause         bool
}

// DefaultOptions returns the settings of the Azure Blob storage sample.
func DefaultOptions() Options {
	return Options{
		Banner:        "Azure Blob storage quick start sample",
		Container:     "quickstartcontainer",
		PublicAccess:  true,
		SampleContent: "Hello Azure!",
		SamplePrefix:  "sampleFile",
		SampleSuffix:  ".txt",
		DownloadName:  "downloadedFile.txt",
		Pause:         true,
	}
}

// Quickstart is one variant of the walkthrough.
// Run always performs cleanup, and returns the first step failure, if any, joined with
// cleanup failures. Failures are already printed to the console when Run returns.
type Quickstart interface {
	Run(ctx context.Context) error
}

// Modes accepted by New.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// New returns the variant for mode. out receives the console transcript and in is read
// for the pause before cleanup.
func New(mode string, storage filestorage.FileStorage, opts Options, out io.Writer, in io.Reader, logger *zap.Logger) (Quickstart, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(mode) {
	case ModeSync:
		return NewSyncRunner(storage, opts, out, in, logger), nil
	case ModeAsync:
		return NewAsyncRunner(storage, opts, out, in, logger), nil
	}
	return nil, fmt.Errorf("unsupported quickstart mode: %q", mode)
}
