package quickstart

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	common "github.com/tizianocitro/blobquickstart/pkg"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// memStorage is an in-memory FileStorage that records every call.
type memStorage struct {
	mu       sync.Mutex
	calls    []string
	boxes    map[string]map[string][]byte
	public   map[string]bool
	failOn   map[string]error
	baseURL  string
	uploaded []string
	lastPut  []byte
}

func newMemStorage() *memStorage {
	return &memStorage{
		boxes:   make(map[string]map[string][]byte),
		public:  make(map[string]bool),
		failOn:  make(map[string]error),
		baseURL: "http://127.0.0.1:10000/devstoreaccount1",
	}
}

func (m *memStorage) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.failOn[call]
}

func (m *memStorage) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *memStorage) CreateContainerIfNotExists(_ context.Context, storeBox string, publicRead bool) (bool, error) {
	if err := m.record("create"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boxes[storeBox]; ok {
		return false, nil
	}
	m.boxes[storeBox] = make(map[string][]byte)
	m.public[storeBox] = publicRead
	return true, nil
}

func (m *memStorage) DeleteContainerIfExists(_ context.Context, storeBox string) (bool, error) {
	if err := m.record("delete"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boxes[storeBox]; !ok {
		return false, nil
	}
	delete(m.boxes, storeBox)
	return true, nil
}

func (m *memStorage) PutObject(_ context.Context, storeBox, fileName string, reader io.Reader) error {
	if err := m.record("put"); err != nil {
		return err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	box, ok := m.boxes[storeBox]
	if !ok {
		return &common.ServiceError{Provider: "mem", StatusCode: 404, ErrorCode: "ContainerNotFound"}
	}
	box[fileName] = data
	m.lastPut = data
	m.uploaded = append(m.uploaded, fileName)
	return nil
}

func (m *memStorage) GetObject(_ context.Context, storeBox, fileName string) (io.ReadCloser, error) {
	if err := m.record("get"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.boxes[storeBox][fileName]
	if !ok {
		return nil, &common.ServiceError{Provider: "mem", StatusCode: 404, ErrorCode: "BlobNotFound"}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) RemoveObject(_ context.Context, storeBox, fileName string) error {
	if err := m.record("remove"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.boxes[storeBox], fileName)
	return nil
}

func (m *memStorage) ListObjects(_ context.Context, storeBox string) ([]common.ObjectInfo, error) {
	if err := m.record("list"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var objects []common.ObjectInfo
	for name, data := range m.boxes[storeBox] {
		objects = append(objects, common.ObjectInfo{
			Name: name,
			URL:  m.baseURL + "/" + storeBox + "/" + name,
			Size: int64(len(data)),
		})
	}
	return objects, nil
}

func (m *memStorage) GetConnectionProperties() common.ConnectionProperties {
	return common.ConnectionProperties{}
}

func testOptions(t *testing.T) Options {
	opts := DefaultOptions()
	opts.TempDir = t.TempDir()
	opts.Pause = false
	return opts
}

var modes = []string{ModeSync, ModeAsync}

func runMode(t *testing.T, mode string, storage *memStorage, opts Options, in io.Reader) (string, error) {
	t.Helper()
	var out bytes.Buffer
	qs, err := New(mode, storage, opts, &out, in, zaptest.NewLogger(t))
	require.NoError(t, err)
	err = qs.Run(context.Background())
	return out.String(), err
}

func TestRun_HappyPath(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			storage := newMemStorage()
			opts := testOptions(t)

			out, err := runMode(t, mode, storage, opts, nil)
			require.NoError(t, err)

			assert.Equal(t, []string{"create", "put", "list", "get", "delete"}, storage.recorded())
			require.Len(t, storage.uploaded, 1)
			blob := storage.uploaded[0]
			assert.True(t, strings.HasPrefix(blob, "sampleFile"))
			assert.True(t, strings.HasSuffix(blob, ".txt"))

			lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
			require.Len(t, lines, 9)
			assert.Equal(t, "Azure Blob storage quick start sample", lines[0])
			assert.Equal(t, "Creating container: quickstartcontainer", lines[1])
			assert.Equal(t, "Creating a sample file at: "+filepath.Join(opts.TempDir, blob), lines[2])
			assert.Equal(t, "Uploading the sample file", lines[3])
			assert.Equal(t, "URI of blob is: "+storage.baseURL+"/quickstartcontainer/"+blob, lines[4])
			assert.Equal(t, "The program has completed successfully.", lines[5])
			assert.Contains(t, lines[6], "Press the 'Enter' key")
			assert.Equal(t, "Deleting the container", lines[7])
			assert.Equal(t, "Deleting the source, and downloaded files", lines[8])
		})
	}
}

func TestRun_PublicAccessIsRequested(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			storage := newMemStorage()
			opts := testOptions(t)
			opts.Container = "keepme"

			_, err := runMode(t, mode, storage, opts, nil)
			require.NoError(t, err)
			assert.True(t, storage.public["keepme"])
		})
	}
}

func TestRun_RemovesLocalFiles(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			storage := newMemStorage()
			opts := testOptions(t)

			_, err := runMode(t, mode, storage, opts, nil)
			require.NoError(t, err)

			entries, err := os.ReadDir(opts.TempDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestRun_UploadsSampleContent(t *testing.T) {
	storage := newMemStorage()
	opts := testOptions(t)
	opts.SampleContent = "Hello MinIO!"

	_, err := runMode(t, ModeAsync, storage, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello MinIO!", string(storage.lastPut))
}

func TestRun_ExistingContainerIsReused(t *testing.T) {
	storage := newMemStorage()
	storage.boxes["quickstartcontainer"] = map[string][]byte{"other.txt": []byte("x")}
	opts := testOptions(t)

	out, err := runMode(t, ModeSync, storage, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "URI of blob is: "))
}

func TestRun_ServiceErrorStillCleansUp(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			storage := newMemStorage()
			storage.failOn["put"] = &common.ServiceError{Provider: "azblob", StatusCode: 403, ErrorCode: "AuthorizationFailure"}
			opts := testOptions(t)

			out, err := runMode(t, mode, storage, opts, nil)
			require.Error(t, err)

			svcErr, ok := common.AsServiceError(err)
			require.True(t, ok)
			assert.Equal(t, 403, svcErr.StatusCode)

			assert.Equal(t, []string{"create", "put", "delete"}, storage.recorded())
			assert.Contains(t, out, "Error returned from the service. Http code: 403 and error code: AuthorizationFailure\n")
			assert.Contains(t, out, "The program has completed successfully.")
			assert.Contains(t, out, "Deleting the container")

			entries, err := os.ReadDir(opts.TempDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "sample file removed after a failed upload")
		})
	}
}

func TestRun_CreateFailureSkipsRemainingSteps(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			storage := newMemStorage()
			storage.failOn["create"] = errors.New("dial tcp: connection refused")
			opts := testOptions(t)

			out, err := runMode(t, mode, storage, opts, nil)
			require.Error(t, err)

			assert.Equal(t, []string{"create", "delete"}, storage.recorded())
			assert.Contains(t, out, "dial tcp: connection refused\n")
			assert.NotContains(t, out, "Uploading the sample file")

			entries, err := os.ReadDir(opts.TempDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestRun_DeleteFailureIsReported(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			storage := newMemStorage()
			storage.failOn["delete"] = &common.ServiceError{Provider: "azblob", StatusCode: 409, ErrorCode: "ContainerBeingDeleted"}
			opts := testOptions(t)

			out, err := runMode(t, mode, storage, opts, nil)
			require.Error(t, err)

			assert.Contains(t, out, "Service error. Http code: 409 and error code: ContainerBeingDeleted\n")
			assert.Contains(t, out, "Deleting the source, and downloaded files")

			entries, err := os.ReadDir(opts.TempDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "local files removed even when the container delete fails")
		})
	}
}

func TestRun_PauseWaitsForInput(t *testing.T) {
	storage := newMemStorage()
	opts := testOptions(t)
	opts.Pause = true

	in := strings.NewReader("\n")
	_, err := runMode(t, ModeSync, storage, opts, in)
	require.NoError(t, err)
	assert.Equal(t, 0, in.Len(), "the newline is consumed")
}

func TestRun_PauseToleratesClosedInput(t *testing.T) {
	storage := newMemStorage()
	opts := testOptions(t)
	opts.Pause = true

	_, err := runMode(t, ModeAsync, storage, opts, strings.NewReader(""))
	require.NoError(t, err)
	assert.Contains(t, storage.recorded(), "delete")
}

func TestRun_NoPauseLeavesInputUntouched(t *testing.T) {
	storage := newMemStorage()
	opts := testOptions(t)

	in := strings.NewReader("\n")
	_, err := runMode(t, ModeSync, storage, opts, in)
	require.NoError(t, err)
	assert.Equal(t, 1, in.Len())
}

func TestRun_CancelledContextStillDeletesContainer(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			storage := newMemStorage()
			opts := testOptions(t)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			qs, err := New(mode, storage, opts, io.Discard, nil, zap.NewNop())
			require.NoError(t, err)
			_ = qs.Run(ctx)

			assert.Contains(t, storage.recorded(), "delete")
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(ModeSync, nil, DefaultOptions(), nil, nil, nil)
	assert.EqualError(t, err, "storage is nil")

	_, err = New("reactive", newMemStorage(), DefaultOptions(), nil, nil, nil)
	assert.EqualError(t, err, `unsupported quickstart mode: "reactive"`)
}

func TestNew_ModeIsCaseInsensitive(t *testing.T) {
	qs, err := New("ASYNC", newMemStorage(), DefaultOptions(), nil, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &AsyncRunner{}, qs)

	qs, err = New("Sync", newMemStorage(), DefaultOptions(), nil, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &SyncRunner{}, qs)
}

func TestStreamObjects_PropagatesError(t *testing.T) {
	storage := newMemStorage()
	storage.failOn["list"] = errors.New("list failed")

	items, errc := streamObjects(context.Background(), storage, "box")
	for range items {
		t.Fatal("no items expected")
	}
	assert.EqualError(t, <-errc, "list failed")
}

func TestFutureAwait_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	defer close(block)

	f := future(ctx, func(context.Context) (int, error) {
		<-block
		return 1, nil
	})
	cancel()

	_, err := await(ctx, f)
	assert.ErrorIs(t, err, context.Canceled)
}

// lineReader runs inspect on the first read, then answers one newline, letting a test
// look at the local files while the run waits at the Enter prompt.
type lineReader struct {
	inspect func()
	done    bool
}

func (r *lineReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	r.done = true
	r.inspect()
	return copy(p, "\n"), nil
}

func TestRun_DownloadsNextToSource(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			storage := newMemStorage()
			opts := testOptions(t)
			opts.Pause = true

			var downloaded []byte
			var readErr error
			in := &lineReader{inspect: func() {
				downloaded, readErr = os.ReadFile(filepath.Join(opts.TempDir, "downloadedFile.txt"))
			}}

			_, err := runMode(t, mode, storage, opts, in)
			require.NoError(t, err)

			require.True(t, in.done, "the run paused before cleanup")
			require.NoError(t, readErr, "downloadedFile.txt sits next to the source file")
			assert.Equal(t, "Hello Azure!", string(downloaded))
		})
	}
}

func TestRun_CancelInterruptsPause(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			storage := newMemStorage()
			opts := testOptions(t)
			opts.Pause = true

			// Nothing is ever written: only cancellation can end the pause.
			pr, pw := io.Pipe()
			t.Cleanup(func() { _ = pw.Close() })

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			qs, err := New(mode, storage, opts, io.Discard, pr, zap.NewNop())
			require.NoError(t, err)

			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = qs.Run(ctx)
			}()

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("run still blocked at the Enter prompt after cancellation")
			}
			assert.Contains(t, storage.recorded(), "delete")
		})
	}
}

func TestSettle_WaitsForAbandonedWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var finished atomic.Bool
	f := future(ctx, func(context.Context) (int, error) {
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return 1, nil
	})

	_, err := settle(ctx, f)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.True(t, finished.Load(), "settle returned while the work was still running")
}
