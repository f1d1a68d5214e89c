package quickstart

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"time"

	common "github.com/tizianocitro/blobquickstart/pkg"
	"github.com/tizianocitro/blobquickstart/pkg/filestorage"
	"go.uber.org/zap"
)

// result is the outcome delivered by a future.
type result[T any] struct {
	val T
	err error
}

// future runs fn on its own goroutine. The returned channel receives exactly one result.
func future[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) <-chan result[T] {
	ch := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- result[T]{val: v, err: err}
	}()
	return ch
}

// await blocks until f resolves or ctx is done.
func await[T any](ctx context.Context, f <-chan result[T]) (T, error) {
	select {
	case r := <-f:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// settle is await for futures whose work must not outlive the step: after ctx is done
// it still waits for fn to return.
func settle[T any](ctx context.Context, f <-chan result[T]) (T, error) {
	select {
	case r := <-f:
		return r.val, r.err
	case <-ctx.Done():
		<-f
		var zero T
		return zero, ctx.Err()
	}
}

// AsyncRunner launches each storage call as a future and subscribes to its outcome
// before issuing the next one. The local sample file is written while the container
// is being created; the storage calls themselves keep their order.
type AsyncRunner struct {
	storage filestorage.FileStorage
	opts    Options
	out     io.Writer
	in      io.Reader
	logger  *zap.Logger
}

func NewAsyncRunner(storage filestorage.FileStorage, opts Options, out io.Writer, in io.Reader, logger *zap.Logger) *AsyncRunner {
	return &AsyncRunner{storage: storage, opts: opts, out: out, in: in, logger: logger}
}

func (r *AsyncRunner) Run(ctx context.Context) error {
	s := newSession(r.opts, r.out, r.in, r.logger)
	s.println(r.opts.Banner)

	stepErr := r.steps(ctx, s)
	if stepErr != nil {
		s.reportStepError(stepErr)
	}

	cleanupErr := s.cleanup(ctx, func(ctx context.Context) (bool, error) {
		return await(ctx, future(ctx, func(ctx context.Context) (bool, error) {
			return r.storage.DeleteContainerIfExists(ctx, r.opts.Container)
		}))
	})
	return errors.Join(stepErr, cleanupErr)
}

func (r *AsyncRunner) steps(ctx context.Context, s *session) error {
	container := r.opts.Container

	s.printf("Creating container: %s\n", container)
	start := time.Now()
	created := future(ctx, func(ctx context.Context) (bool, error) {
		return r.storage.CreateContainerIfNotExists(ctx, container, r.opts.PublicAccess)
	})
	// The sample file only touches the local disk, so it is written concurrently.
	sample := future(ctx, func(context.Context) (string, error) {
		return s.createSampleFile()
	})

	// Not cancellable: cleanup must see the path even when creation fails.
	sampled := <-sample
	source, sampleErr := sampled.val, sampled.err
	_, err := settle(ctx, created)
	s.timed("create container", start, err)
	if err != nil {
		return err
	}
	if sampleErr != nil {
		return sampleErr
	}
	s.printf("Creating a sample file at: %s\n", source)

	blobName := filepath.Base(source)
	s.println("Uploading the sample file")
	start = time.Now()
	_, err = settle(ctx, future(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, filestorage.UploadFile(ctx, r.storage, container, blobName, source)
	}))
	s.timed("upload", start, err)
	if err != nil {
		return err
	}

	start = time.Now()
	items, errc := streamObjects(ctx, r.storage, container)
	for obj := range items {
		s.printObject(obj)
	}
	err = <-errc
	s.timed("list", start, err)
	if err != nil {
		return err
	}

	target := s.downloadPath(source)
	start = time.Now()
	_, err = settle(ctx, future(ctx, func(ctx context.Context) (int64, error) {
		return filestorage.DownloadFile(ctx, r.storage, container, blobName, target)
	}))
	s.timed("download", start, err)
	return err
}

// streamObjects emits the objects of storeBox one by one. After items is closed, errc
// delivers the terminal error (nil on success) and is closed too.
func streamObjects(ctx context.Context, storage filestorage.FileStorage, storeBox string) (<-chan common.ObjectInfo, <-chan error) {
	items := make(chan common.ObjectInfo)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(items)

		objects, err := storage.ListObjects(ctx, storeBox)
		if err != nil {
			errc <- err
			return
		}
		for _, obj := range objects {
			select {
			case items <- obj:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		errc <- nil
	}()

	return items, errc
}
