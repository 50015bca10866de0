package s3compat

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/b2/pkg/b2"
	"github.com/objectfs/b2/pkg/errors"
)

const listPage1 = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>unicornBox</Name>
  <Prefix>photos/</Prefix>
  <KeyCount>2</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>true</IsTruncated>
  <NextContinuationToken>page2</NextContinuationToken>
  <Contents><Key>photos/a.png</Key><Size>3</Size></Contents>
  <Contents><Key>photos/b.png</Key><Size>4</Size></Contents>
</ListBucketResult>`

const listPage2 = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>unicornBox</Name>
  <Prefix>photos/</Prefix>
  <KeyCount>1</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>photos/c.png</Key><Size>5</Size></Contents>
</ListBucketResult>`

const noSuchKey = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>Key not found</Message></Error>`

type fakeS3 struct {
	mu   sync.Mutex
	puts map[string]string
	auth []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/unicornBox" || r.URL.Path == "/unicornBox/":
		w.Header().Set("Content-Type", "application/xml")
		if r.URL.Query().Get("continuation-token") == "page2" {
			_, _ = io.WriteString(w, listPage2)
			return
		}
		_, _ = io.WriteString(w, listPage1)

	case r.Method == http.MethodHead && r.URL.Path == "/unicornBox/photos/a.png":
		w.Header().Set("Content-Length", "3")
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("ETag", `"abc"`)
		w.Header().Set("X-Amz-Meta-Author", "me")
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet && r.URL.Path == "/unicornBox/photos/a.png":
		w.Header().Set("Content-Type", "image/png")
		_, _ = io.WriteString(w, "png")

	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/unicornBox/"):
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.puts[strings.TrimPrefix(r.URL.Path, "/unicornBox/")] = string(data)
		f.mu.Unlock()
		w.Header().Set("ETag", `"def"`)
		w.WriteHeader(http.StatusOK)

	default:
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		if r.Method != http.MethodHead {
			_, _ = io.WriteString(w, noSuchKey)
		}
	}
}

func newTestClient(t *testing.T) (*Client, *fakeS3) {
	t.Helper()

	fake := &fakeS3{puts: make(map[string]string)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), Config{
		Endpoint:         srv.URL,
		ApplicationKeyID: "kittens",
		ApplicationKey:   "rainbows",
		Region:           "us-west-004",
		MaxRetries:       1,
	}, nil)
	require.NoError(t, err)
	return c, fake
}

func TestRegionFromEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint string
		want     string
	}{
		{"https://s3.us-west-004.backblazeb2.com", "us-west-004"},
		{"https://s3.eu-central-003.backblazeb2.com/", "eu-central-003"},
		{"http://127.0.0.1:9000", DefaultRegion},
		{"https://api.backblazeb2.com", DefaultRegion},
		{"::not a url", DefaultRegion},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, RegionFromEndpoint(tt.endpoint))
		})
	}
}

func TestNewClient_NilLoggerDiscards(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	require.NotNil(t, c.logger)
	assert.False(t, c.logger.Enabled(context.Background(), slog.LevelError))
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), Config{ApplicationKeyID: "k", ApplicationKey: "s"}, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingConfig))

	_, err = NewClient(context.Background(), Config{Endpoint: "https://s3.us-west-004.backblazeb2.com"}, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCredentialsMissing))
}

func TestNewFromSession(t *testing.T) {
	t.Parallel()

	c, err := NewFromSession(context.Background(),
		b2.SessionState{S3APIURL: "https://s3.us-west-004.backblazeb2.com"},
		b2.Credentials{AccountID: "unicorns", ApplicationKey: "rainbows"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "us-west-004", c.Region())
	assert.NotNil(t, c.S3())

	_, err = NewFromSession(context.Background(), b2.SessionState{}, b2.Credentials{AccountID: "a", ApplicationKey: "b"}, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingConfig))
}

func TestListObjectKeys(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t)

	keys, err := c.ListObjectKeys(context.Background(), "unicornBox", "photos/")
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/a.png", "photos/b.png", "photos/c.png"}, keys)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.NotEmpty(t, fake.auth)
	assert.Contains(t, fake.auth[0], "Credential=kittens/")
	assert.Contains(t, fake.auth[0], "/us-west-004/s3/")
}

func TestObjectRoundTrip(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.PutObject(ctx, "unicornBox", "notes/todo.txt", []byte("buy milk"), "text/plain"))
	fake.mu.Lock()
	assert.Equal(t, "buy milk", fake.puts["notes/todo.txt"])
	fake.mu.Unlock()

	info, err := c.HeadObject(ctx, "unicornBox", "photos/a.png")
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, `"abc"`, info.ETag)
	assert.Equal(t, "me", info.Metadata["author"])

	data, err := c.GetObject(ctx, "unicornBox", "photos/a.png", "")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestGetObject_NotFound(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)

	_, err := c.GetObject(context.Background(), "unicornBox", "missing.txt", "")
	b2Err, ok := errors.As(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "NoSuchKey", b2Err.APICode)
	assert.Equal(t, "object not found: missing.txt", b2Err.Message)
}

func TestUploadObject(t *testing.T) {
	t.Parallel()

	t.Run("plain", func(t *testing.T) {
		c, fake := newTestClient(t)

		require.NoError(t, c.UploadObject(context.Background(), "unicornBox", "a.txt", []byte("abc"), "text/plain"))
		fake.mu.Lock()
		defer fake.mu.Unlock()
		assert.Equal(t, "abc", fake.puts["a.txt"])
	})

	t.Run("accelerated", func(t *testing.T) {
		fake := &fakeS3{puts: make(map[string]string)}
		srv := httptest.NewServer(fake)
		t.Cleanup(srv.Close)

		c, err := NewClient(context.Background(), Config{
			Endpoint:         srv.URL,
			ApplicationKeyID: "kittens",
			ApplicationKey:   "rainbows",
			Accelerate:       true,
			Concurrency:      2,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultRegion, c.Region())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		require.NoError(t, c.UploadObject(ctx, "unicornBox", "b.txt", []byte("fast"), ""))

		fake.mu.Lock()
		defer fake.mu.Unlock()
		assert.Contains(t, fake.puts, "b.txt")
		assert.Len(t, c.transporters, 1)
	})
}
