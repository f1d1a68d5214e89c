package quickstart

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/tizianocitro/blobquickstart/pkg/filestorage"
	"go.uber.org/zap"
)

// SyncRunner performs every storage call in turn, blocking on each.
type SyncRunner struct {
	storage filestorage.FileStorage
	opts    Options
	out     io.Writer
	in      io.Reader
	logger  *zap.Logger
}

func NewSyncRunner(storage filestorage.FileStorage, opts Options, out io.Writer, in io.Reader, logger *zap.Logger) *SyncRunner {
	return &SyncRunner{storage: storage, opts: opts, out: out, in: in, logger: logger}
}

func (r *SyncRunner) Run(ctx context.Context) error {
	s := newSession(r.opts, r.out, r.in, r.logger)
	s.println(r.opts.Banner)

	stepErr := r.steps(ctx, s)
	if stepErr != nil {
		s.reportStepError(stepErr)
	}

	cleanupErr := s.cleanup(ctx, func(ctx context.Context) (bool, error) {
		return r.storage.DeleteContainerIfExists(ctx, r.opts.Container)
	})
	return errors.Join(stepErr, cleanupErr)
}

func (r *SyncRunner) steps(ctx context.Context, s *session) (err error) {
	container := r.opts.Container

	s.printf("Creating container: %s\n", container)
	start := time.Now()
	_, err = r.storage.CreateContainerIfNotExists(ctx, container, r.opts.PublicAccess)
	s.timed("create container", start, err)
	if err != nil {
		return err
	}

	source, err := s.createSampleFile()
	if err != nil {
		return err
	}
	s.printf("Creating a sample file at: %s\n", source)

	blobName := filepath.Base(source)
	s.println("Uploading the sample file")
	start = time.Now()
	err = filestorage.UploadFile(ctx, r.storage, container, blobName, source)
	s.timed("upload", start, err)
	if err != nil {
		return err
	}

	start = time.Now()
	objects, err := r.storage.ListObjects(ctx, container)
	s.timed("list", start, err)
	if err != nil {
		return err
	}
	s.printObjects(objects)

	target := s.downloadPath(source)
	start = time.Now()
	_, err = filestorage.DownloadFile(ctx, r.storage, container, blobName, target)
	s.timed("download", start, err)
	return err
}
