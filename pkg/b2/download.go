package b2

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/objectfs/b2/pkg/headers"
	"github.com/objectfs/b2/pkg/transport"
)

// ContentOverrides replace response headers of a download. B2 only honors
// them for tokens that allow it.
type ContentOverrides struct {
	ContentDisposition string
	ContentLanguage    string
	Expires            string
	CacheControl       string
	ContentEncoding    string
	ContentType        string
}

func (o ContentOverrides) query() url.Values {
	q := url.Values{}
	for key, v := range map[string]string{
		"b2ContentDisposition": o.ContentDisposition,
		"b2ContentLanguage":    o.ContentLanguage,
		"b2Expires":            o.Expires,
		"b2CacheControl":       o.CacheControl,
		"b2ContentEncoding":    o.ContentEncoding,
		"b2ContentType":        o.ContentType,
	} {
		if v != "" {
			q.Set(key, v)
		}
	}
	return q
}

// DownloadFileByNameArgs are the arguments of DownloadFileByName.
type DownloadFileByNameArgs struct {
	BucketName string
	FileName   string
	// Range is an HTTP byte range such as "bytes=0-99".
	Range              string
	Overrides          ContentOverrides
	OnDownloadProgress transport.ProgressFunc
}

// DownloadFileByIDArgs are the arguments of DownloadFileByID.
type DownloadFileByIDArgs struct {
	FileID             string
	Range              string
	Overrides          ContentOverrides
	OnDownloadProgress transport.ProgressFunc
}

// Download is a file being downloaded. The caller must close Body.
type Download struct {
	StatusCode int
	Header     http.Header
	// Headers holds the X-Bz-* headers keyed by camel-cased name, e.g. fileId.
	Headers map[string]string

	FileID          string
	FileName        string
	ContentSha1     string
	ContentType     string
	ContentLength   int64
	UploadTimestamp int64
	// Info holds the decoded X-Bz-Info-* headers keyed by lower-case name.
	Info map[string]string

	Body io.ReadCloser
}

// Created returns the upload time.
func (d *Download) Created() time.Time {
	return time.UnixMilli(d.UploadTimestamp)
}

// DownloadFileByName downloads the latest version of a file by bucket and name.
func (c *Client) DownloadFileByName(ctx context.Context, args DownloadFileByNameArgs, opts ...CallOption) (*Download, error) {
	st, err := c.session.authorized(opDownloadFileByName)
	if err != nil {
		return nil, err
	}
	u := downloadByNameURL(st, args.BucketName, args.FileName, args.Overrides.query())
	return c.download(ctx, opDownloadFileByName, st, u, args.Range, args.OnDownloadProgress, opts)
}

// DownloadFileByID downloads one file version.
func (c *Client) DownloadFileByID(ctx context.Context, in DownloadFileByIDInput, opts ...CallOption) (*Download, error) {
	args := in.downloadFileByIDArgs()

	st, err := c.session.authorized(opDownloadFileByID)
	if err != nil {
		return nil, err
	}
	u := c.downloadByIDURL(st, args.FileID, args.Overrides.query())
	return c.download(ctx, opDownloadFileByID, st, u, args.Range, args.OnDownloadProgress, opts)
}

func (c *Client) download(ctx context.Context, op string, st SessionState, u, byteRange string,
	progress transport.ProgressFunc, opts []CallOption) (*Download, error) {
	req := transport.Compose(func(r *transport.Request) {
		r.Op = op
		r.Method = http.MethodGet
		r.URL = u
		r.Stream = true
		if progress != nil {
			r.OnDownloadProgress = progress
		}
		r.SetHeader("Authorization", st.AuthorizationToken)
		if byteRange != "" {
			r.SetHeader("Range", byteRange)
		}
	}, opts...)

	resp, err := transport.Send(ctx, c.exec, req)
	if err != nil {
		return nil, err
	}
	return newDownload(resp), nil
}

func newDownload(resp *transport.Response) *Download {
	h := resp.Header
	if h == nil {
		h = http.Header{}
	}
	bz := headers.ExtractBzHeaders(h)

	d := &Download{
		StatusCode:  resp.StatusCode,
		Header:      h,
		Headers:     bz,
		FileID:      bz["fileId"],
		FileName:    bz["fileName"],
		ContentSha1: bz["contentSha1"],
		ContentType: h.Get("Content-Type"),
		Info:        make(map[string]string),
		Body:        resp.Body,
	}
	if name, err := url.PathUnescape(d.FileName); err == nil {
		d.FileName = name
	}
	if n, err := strconv.ParseInt(h.Get("Content-Length"), 10, 64); err == nil {
		d.ContentLength = n
	}
	if ts, err := strconv.ParseInt(bz["uploadTimestamp"], 10, 64); err == nil {
		d.UploadTimestamp = ts
	}

	infoPrefix := strings.ToLower(headers.InfoPrefix)
	for name, values := range h {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, infoPrefix) || len(values) == 0 {
			continue
		}
		v, err := url.PathUnescape(values[0])
		if err != nil {
			v = values[0]
		}
		d.Info[lower[len(infoPrefix):]] = v
	}
	if d.Body == nil {
		d.Body = http.NoBody
	}
	return d
}
