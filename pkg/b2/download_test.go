package b2

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/b2/pkg/errors"
	"github.com/objectfs/b2/pkg/transport"
)

func TestDownloadFileByName(t *testing.T) {
	t.Parallel()

	c, rec := authorizedClient(t)
	rec.respond = func(*transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: 200, Header: http.Header{}, Body: io.NopCloser(strings.NewReader("png"))}, nil
	}

	d, err := c.DownloadFileByName(context.Background(), DownloadFileByNameArgs{
		BucketName: "unicornBox",
		FileName:   "unicorns-and_rainbows!@#$%^&.png",
	})
	require.NoError(t, err)
	defer d.Body.Close()

	req := rec.last(t)
	assert.Equal(t, "b2_download_file_by_name", req.Op)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "https://download/file/unicornBox/unicorns-and_rainbows!%40%23%24%25%5E%26.png", req.URL)
	assert.Equal(t, map[string]string{"Authorization": testToken}, req.Headers)
	assert.True(t, req.Stream)
	assert.Nil(t, req.JSON)

	data, err := io.ReadAll(d.Body)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestDownloadFileByID(t *testing.T) {
	t.Parallel()

	t.Run("flat id", func(t *testing.T) {
		c, rec := authorizedClient(t)

		d, err := c.DownloadFileByID(context.Background(), FileID("abcd1234"))
		require.NoError(t, err)
		defer d.Body.Close()

		req := rec.last(t)
		assert.Equal(t, "https://download/b2api/v2/b2_download_file_by_id?fileId=abcd1234", req.URL)
		assert.Equal(t, testToken, req.Headers["Authorization"])
		assert.True(t, req.Stream)
	})

	t.Run("range and overrides", func(t *testing.T) {
		c, rec := authorizedClient(t)

		d, err := c.DownloadFileByID(context.Background(), DownloadFileByIDArgs{
			FileID:    "abcd1234",
			Range:     "bytes=0-99",
			Overrides: ContentOverrides{ContentDisposition: "attachment", CacheControl: "max-age=60"},
		})
		require.NoError(t, err)
		defer d.Body.Close()

		req := rec.last(t)
		assert.Equal(t, "https://download/b2api/v2/b2_download_file_by_id?fileId=abcd1234&b2CacheControl=max-age%3D60&b2ContentDisposition=attachment", req.URL)
		assert.Equal(t, "bytes=0-99", req.Headers["Range"])
	})
}

func TestDownload_NormalizesHeaders(t *testing.T) {
	t.Parallel()

	c, rec := authorizedClient(t)
	rec.respond = func(*transport.Request) (*transport.Response, error) {
		h := http.Header{}
		h.Set("Content-Type", "image/png")
		h.Set("Content-Length", "3")
		h.Set("X-Bz-File-Id", "4_z27c88f1d182b150646ff0b16_f1004ba650fe24e6b_d20180809_m015245_c002_v0001109_t0053")
		h.Set("X-Bz-File-Name", "photos/a%20cat.png")
		h.Set("X-Bz-Content-Sha1", "deadbeef")
		h.Set("X-Bz-Upload-Timestamp", "1700000000000")
		h.Set("X-Bz-Info-Author", "J%C3%B6rg")
		h.Set("X-Bz-Info-src_last_modified_millis", "1699999999000")
		return &transport.Response{StatusCode: 206, Header: h, Body: io.NopCloser(strings.NewReader("png"))}, nil
	}

	d, err := c.DownloadFileByName(context.Background(), DownloadFileByNameArgs{BucketName: "unicornBox", FileName: "photos/a cat.png"})
	require.NoError(t, err)
	defer d.Body.Close()

	assert.Equal(t, 206, d.StatusCode)
	assert.Equal(t, "https://download/file/unicornBox/photos/a%20cat.png", rec.last(t).URL)
	assert.Equal(t, "4_z27c88f1d182b150646ff0b16_f1004ba650fe24e6b_d20180809_m015245_c002_v0001109_t0053", d.FileID)
	assert.Equal(t, "photos/a cat.png", d.FileName)
	assert.Equal(t, "deadbeef", d.ContentSha1)
	assert.Equal(t, "image/png", d.ContentType)
	assert.Equal(t, int64(3), d.ContentLength)
	assert.Equal(t, int64(1700000000000), d.Created().UnixMilli())

	assert.Equal(t, "photos/a%20cat.png", d.Headers["fileName"])
	assert.Equal(t, "deadbeef", d.Headers["contentSha1"])
	assert.Equal(t, "J%C3%B6rg", d.Headers["author"])

	assert.Equal(t, map[string]string{
		"author":                   "Jörg",
		"src_last_modified_millis": "1699999999000",
	}, d.Info)
}

func TestDownload_Errors(t *testing.T) {
	t.Parallel()

	t.Run("not authorized", func(t *testing.T) {
		rec := &recorder{}
		c := New(Credentials{}, WithExecutor(rec))

		_, err := c.DownloadFileByName(context.Background(), DownloadFileByNameArgs{BucketName: "b", FileName: "f"})
		assert.True(t, errors.HasCode(err, errors.ErrCodeNotAuthorized))
		_, err = c.DownloadFileByID(context.Background(), FileID("f"))
		assert.True(t, errors.HasCode(err, errors.ErrCodeNotAuthorized))
		assert.Empty(t, rec.requests())
	})

	t.Run("executor error is returned unchanged", func(t *testing.T) {
		c, rec := authorizedClient(t)
		want := errors.FromResponse("b2_download_file_by_id", 404, nil, []byte(`{"status":404,"code":"not_found","message":"file not present"}`))
		rec.respond = func(*transport.Request) (*transport.Response, error) { return nil, want }

		_, err := c.DownloadFileByID(context.Background(), FileID("missing"))
		assert.Same(t, want, err)
	})
}
