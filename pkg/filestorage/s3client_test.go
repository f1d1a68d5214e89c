package filestorage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	common "github.com/tizianocitro/blobquickstart/pkg"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeS3 answers the bucket calls CreateContainerIfNotExists makes and records them.
type fakeS3 struct {
	mu    sync.Mutex
	calls []string

	publicAccessBlockStatus int
	policyStatus            int
	policyCode              string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	q := r.URL.Query()

	var call string
	status, code := http.StatusOK, ""
	switch {
	case r.Method == http.MethodDelete && q.Has("publicAccessBlock"):
		call = "delete public access block"
		status = f.publicAccessBlockStatus
		if status == http.StatusForbidden {
			code = "AccessDenied"
		}
	case r.Method == http.MethodPut && q.Has("policy"):
		call = "put bucket policy"
		status, code = f.policyStatus, f.policyCode
	case r.Method == http.MethodPut:
		call = "create bucket"
	case r.Method == http.MethodHead:
		call = "head bucket"
	default:
		call = r.Method + " " + r.URL.String()
		status, code = http.StatusNotImplemented, "NotImplemented"
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if code == "" {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>refused</Message></Error>`)
}

func (f *fakeS3) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newFakeS3Client(t *testing.T, fake *fakeS3, logger *zap.Logger) *S3Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := s3.NewFromConfig(aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("test", "test", ""),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(srv.URL)
		o.UsePathStyle = true
	})

	c, err := NewS3Client(client, common.ConnectionProperties{}, WithLogger(logger))
	require.NoError(t, err)
	return c
}

func TestS3Client_CreatePublicBucket(t *testing.T) {
	tests := []struct {
		name      string
		fake      *fakeS3
		wantCalls []string
		wantWarn  string
		wantErr   string
	}{
		{
			name: "public access block lifted and policy applied",
			fake: &fakeS3{publicAccessBlockStatus: http.StatusNoContent, policyStatus: http.StatusNoContent},
			wantCalls: []string{"create bucket", "head bucket", "delete public access block", "put bucket policy"},
		},
		{
			name:      "public access block cannot be lifted",
			fake:      &fakeS3{publicAccessBlockStatus: http.StatusForbidden},
			wantCalls: []string{"create bucket", "head bucket", "delete public access block"},
			wantWarn:  "public access block cannot be removed, bucket stays private",
		},
		{
			name:      "policy refused",
			fake:      &fakeS3{publicAccessBlockStatus: http.StatusNoContent, policyStatus: http.StatusForbidden, policyCode: "AccessDenied"},
			wantCalls: []string{"create bucket", "head bucket", "delete public access block", "put bucket policy"},
			wantWarn:  "public read policy refused, bucket stays private",
		},
		{
			name:      "policy rejected for another reason",
			fake:      &fakeS3{publicAccessBlockStatus: http.StatusNoContent, policyStatus: http.StatusBadRequest, policyCode: "MalformedPolicy"},
			wantCalls: []string{"create bucket", "head bucket", "delete public access block", "put bucket policy"},
			wantErr:   "MalformedPolicy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			storage := newFakeS3Client(t, tt.fake, zap.New(core))

			created, err := storage.CreateContainerIfNotExists(context.Background(), "quickstartcontainer", true)
			assert.True(t, created)
			assert.Equal(t, tt.wantCalls, tt.fake.recorded())

			if tt.wantErr != "" {
				require.Error(t, err)
				svcErr, ok := common.AsServiceError(err)
				require.True(t, ok)
				assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
				assert.Equal(t, tt.wantErr, svcErr.ErrorCode)
				return
			}
			require.NoError(t, err)

			if tt.wantWarn == "" {
				assert.Zero(t, logs.Len())
				return
			}
			assert.Equal(t, 1, logs.FilterMessage(tt.wantWarn).Len())
		})
	}
}

func TestS3Client_CreatePrivateBucketSkipsPolicy(t *testing.T) {
	fake := &fakeS3{}
	storage := newFakeS3Client(t, fake, zap.NewNop())

	created, err := storage.CreateContainerIfNotExists(context.Background(), "quickstartcontainer", false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"create bucket", "head bucket"}, fake.recorded())
}
