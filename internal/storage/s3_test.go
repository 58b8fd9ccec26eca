package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localnerve/jam-build-crm/internal/config"
)

// fakeS3 is a small in-memory S3 subset for path-style requests.
type fakeS3 struct {
	mu     sync.Mutex
	state  map[string]fakeObject
	aclErr bool
}

type fakeObject struct {
	body        []byte
	contentType string
	public      bool
}

func emptyResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) { //nolint:cyclop
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	query := req.URL.Query()

	if req.Method == http.MethodGet && query.Get("list-type") == "2" {
		keys := make([]string, 0, len(f.state))
		for k := range f.state {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-01-01T00:00:00Z</LastModified></Contents>",
				k, len(f.state[k].body))
		}
		b.WriteString("</ListBucketResult>")
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(b.String())),
			Header: http.Header{"Content-Type": {"application/xml"}}}, nil
	}

	switch req.Method {
	case http.MethodHead:
		obj, ok := f.state[key]
		if !ok {
			return emptyResponse(http.StatusNotFound), nil
		}
		resp := emptyResponse(http.StatusOK)
		resp.Header.Set("Content-Length", strconv.Itoa(len(obj.body)))
		resp.Header.Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		return resp, nil
	case http.MethodPut:
		if _, isACL := query["acl"]; isACL {
			if f.aclErr {
				return emptyResponse(http.StatusForbidden), nil
			}
			obj, ok := f.state[key]
			if !ok {
				return emptyResponse(http.StatusNotFound), nil
			}
			obj.public = req.Header.Get("X-Amz-Acl") == "public-read"
			f.state[key] = obj
			return emptyResponse(http.StatusOK), nil
		}
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.state[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		resp := emptyResponse(http.StatusOK)
		resp.Header.Set("ETag", `"etag"`)
		return resp, nil
	case http.MethodGet:
		obj, ok := f.state[key]
		if !ok {
			return emptyResponse(http.StatusNotFound), nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(obj.body)), Header: http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
		}}, nil
	case http.MethodDelete:
		delete(f.state, key)
		return emptyResponse(http.StatusNoContent), nil
	}
	return emptyResponse(http.StatusNotImplemented), nil
}

// decodeChunked unwraps a single chunk aws-chunked payload: <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	size, err := strconv.ParseInt(strings.SplitN(parts[0], ";", 2)[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size || !strings.HasPrefix(parts[2], "0") {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newFakeS3Bucket(t *testing.T) (*S3Bucket, *fakeS3) {
	t.Helper()
	fake := &fakeS3{state: make(map[string]fakeObject)}
	bucket, err := NewS3Bucket(context.Background(), S3Config{
		Region:          "us-east-1",
		Bucket:          "crm-bucket",
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: fake},
	})
	require.NoError(t, err)
	return bucket, fake
}

func TestNewS3BucketRequiresName(t *testing.T) {
	_, err := NewS3Bucket(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestS3BucketLifecycle(t *testing.T) {
	bucket, fake := newFakeS3Bucket(t)
	ctx := context.Background()
	lc := NewLifecycle(bucket, "storage.googleapis.com", zerolog.Nop()).WithClock(fixedClock(42))

	url, err := lc.Store(ctx, &File{Name: "report.PDF", ContentType: "application/pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/crm-bucket/documents/42-report.PDF", url)
	assert.True(t, fake.state["documents/42-report.PDF"].public)

	ok, err := bucket.Exists(ctx, "documents/42-report.PDF")
	require.NoError(t, err)
	assert.True(t, ok)

	_, rc, err := lc.Fetch(ctx, url)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF", string(body))

	report, err := lc.Usage(ctx)
	require.NoError(t, err)
	require.Contains(t, report, "documents")
	assert.Equal(t, int64(4), report["documents"].Size)

	require.NoError(t, lc.Remove(ctx, url))
	ok, err = bucket.Exists(ctx, "documents/42-report.PDF")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3BucketDeleteMissing(t *testing.T) {
	bucket, _ := newFakeS3Bucket(t)
	lc := NewLifecycle(bucket, "storage.googleapis.com", zerolog.Nop())

	err := lc.Remove(context.Background(), "documents/1-report.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestS3BucketMakePublicFailure(t *testing.T) {
	bucket, fake := newFakeS3Bucket(t)
	fake.aclErr = true
	lc := NewLifecycle(bucket, "storage.googleapis.com", zerolog.Nop())

	_, err := lc.Store(context.Background(), &File{Name: "a.png", Data: []byte("png")})
	require.Error(t, err)
	assert.Empty(t, fake.state)
}

func TestOpenSelectsDriver(t *testing.T) {
	bucket, err := Open(context.Background(), &config.Config{StorageDriver: "memory", StorageBucket: "crm-dev"})
	require.NoError(t, err)
	assert.Equal(t, "crm-dev", bucket.Name())

	_, err = Open(context.Background(), &config.Config{StorageDriver: "ftp"})
	assert.Error(t, err)

	_, err = Open(context.Background(), &config.Config{StorageDriver: "s3"})
	assert.Error(t, err)
}
