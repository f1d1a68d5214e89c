package quickstart

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	common "github.com/tizianocitro/blobquickstart/pkg"
	"go.uber.org/zap"
)

const cleanupTimeout = time.Minute

// session holds the console and the local files of one run, shared by both variants.
type session struct {
	opts   Options
	out    io.Writer
	in     io.Reader
	logger *zap.Logger

	sourceFile     string
	downloadedFile string
}

func newSession(opts Options, out io.Writer, in io.Reader, logger *zap.Logger) *session {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &session{opts: opts, out: out, in: in, logger: logger}
}

func (s *session) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *session) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

// reportStepError prints a failed step the way the console expects: service errors
// with their HTTP status and error code, anything else with its message.
func (s *session) reportStepError(err error) {
	if svcErr, ok := common.AsServiceError(err); ok {
		s.printf("Error returned from the service. Http code: %d and error code: %s\n", svcErr.StatusCode, svcErr.ErrorCode)
	} else {
		s.println(err.Error())
	}
	s.logger.Error("quickstart step failed", zap.Error(err))
}

// createSampleFile writes the sample content to a new temp file. The path is recorded
// before writing so that cleanup removes a partially written file too.
func (s *session) createSampleFile() (string, error) {
	f, err := os.CreateTemp(s.opts.TempDir, s.opts.SamplePrefix+"*"+s.opts.SampleSuffix)
	if err != nil {
		return "", fmt.Errorf("create sample file: %w", err)
	}
	s.sourceFile = f.Name()

	_, err = io.WriteString(f, s.opts.SampleContent)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("write sample file: %w", err)
	}
	return s.sourceFile, nil
}

// downloadPath returns the path next to the source file the blob is downloaded to.
func (s *session) downloadPath(source string) string {
	s.downloadedFile = filepath.Join(filepath.Dir(source), s.opts.DownloadName)
	return s.downloadedFile
}

func (s *session) printObjects(objects []common.ObjectInfo) {
	for _, obj := range objects {
		s.printObject(obj)
	}
}

func (s *session) printObject(obj common.ObjectInfo) {
	s.printf("URI of blob is: %s\n", obj.URL)
}

// pause blocks until a line (or EOF) is read from the console input or ctx is done.
// On ctx the read is abandoned; its goroutine ends with the input.
func (s *session) pause(ctx context.Context) {
	s.println("The program has completed successfully.")
	s.println("Press the 'Enter' key while in the console to delete the sample files, example container, and exit the application.")

	if !s.opts.Pause || s.in == nil {
		return
	}

	read := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(s.in).ReadString('\n')
		read <- err
	}()

	select {
	case err := <-read:
		if err != nil && !errors.Is(err, io.EOF) {
			s.logger.Warn("reading console input failed", zap.Error(err))
		}
	case <-ctx.Done():
		s.logger.Debug("pause interrupted", zap.Error(ctx.Err()))
	}
}

// cleanup deletes the container and the local files. It runs on a context detached from
// ctx's cancellation so an interrupted or timed out run still removes what it created.
func (s *session) cleanup(ctx context.Context, deleteContainer func(ctx context.Context) (bool, error)) error {
	s.pause(ctx)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	var errs []error

	s.println("Deleting the container")
	deleted, err := deleteContainer(ctx)
	if err != nil {
		if svcErr, ok := common.AsServiceError(err); ok {
			s.printf("Service error. Http code: %d and error code: %s\n", svcErr.StatusCode, svcErr.ErrorCode)
		} else {
			s.println(err.Error())
		}
		errs = append(errs, err)
	} else {
		s.logger.Debug("container cleanup finished", zap.Bool("deleted", deleted))
	}

	s.println("Deleting the source, and downloaded files")
	for _, path := range []string{s.downloadedFile, s.sourceFile} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("removing local file failed", zap.String("path", path), zap.Error(err))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// timed logs how long a step took.
func (s *session) timed(step string, start time.Time, err error) {
	fields := []zap.Field{zap.String("step", step), zap.Duration("elapsed", time.Since(start))}
	if err != nil {
		s.logger.Debug("step failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Debug("step completed", fields...)
}
