package b2

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/objectfs/b2/pkg/headers"
	"github.com/objectfs/b2/pkg/transport"
)

// UploadFileArgs are the arguments of UploadFile. UploadURL and
// UploadAuthToken come from GetUploadURL.
type UploadFileArgs struct {
	UploadURL       string
	UploadAuthToken string
	FileName        string
	Data            []byte
	// Hash is the SHA-1 hex digest of Data. It is computed when empty.
	Hash string
	// ContentType defaults to b2/x-auto.
	ContentType string
	// ContentLength overrides the Content-Length header when positive.
	ContentLength int64
	// Info is sent as X-Bz-Info-* headers.
	Info             map[string]string
	OnUploadProgress transport.ProgressFunc
}

// ListFileNamesArgs are the arguments of ListFileNames.
type ListFileNamesArgs struct {
	BucketID      string
	StartFileName string
	// MaxFileCount defaults to 100.
	MaxFileCount int
	Prefix       string
	Delimiter    string
}

// ListFileVersionsArgs are the arguments of ListFileVersions.
type ListFileVersionsArgs struct {
	BucketID      string
	StartFileName string
	StartFileID   string
	// MaxFileCount defaults to 100.
	MaxFileCount int
	Prefix       string
	Delimiter    string
}

// HideFileArgs are the arguments of HideFile.
type HideFileArgs struct {
	BucketID string
	FileName string
}

// GetFileInfoArgs are the arguments of GetFileInfo.
type GetFileInfoArgs struct {
	FileID string
}

// GetDownloadAuthorizationArgs are the arguments of GetDownloadAuthorization.
type GetDownloadAuthorizationArgs struct {
	BucketID               string
	FileNamePrefix         string
	ValidDurationInSeconds int64
	B2ContentDisposition   string
}

// DeleteFileVersionArgs are the arguments of DeleteFileVersion.
type DeleteFileVersionArgs struct {
	FileID   string
	FileName string
}

// CopyFileArgs are the arguments of CopyFile.
type CopyFileArgs struct {
	SourceFileID        string
	DestinationBucketID string
	FileName            string
	// Range is an HTTP byte range such as "bytes=0-99".
	Range string
	// MetadataDirective is COPY (default) or REPLACE. ContentType and
	// FileInfo are only sent with REPLACE.
	MetadataDirective string
	ContentType       string
	FileInfo          map[string]string
}

const MetadataDirectiveReplace = "REPLACE"

// sha1Hex returns the hex SHA-1 digest of data.
func sha1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// UploadFile uploads one file to an upload URL. Invalid or too many info
// headers fail before anything is sent. Redirects are not followed.
func (c *Client) UploadFile(ctx context.Context, args UploadFileArgs, opts ...CallOption) (*File, error) {
	info := make(map[string]string)
	if err := headers.AddInfoHeaders(info, args.Info, c.maxInfoHeaders); err != nil {
		return nil, err
	}

	contentType := args.ContentType
	if contentType == "" {
		contentType = ContentTypeAuto
	}

	req := c.uploadRequest(opUploadFile, args.UploadURL, args.UploadAuthToken, args.Data, args.Hash, args.ContentLength, args.OnUploadProgress,
		func(r *transport.Request) {
			r.SetHeader("Content-Type", contentType)
			r.SetHeader("X-Bz-File-Name", headers.EncodeFileName(args.FileName))
			for k, v := range info {
				r.SetHeader(k, v)
			}
		}, opts)

	var out File
	if err := c.send(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) uploadRequest(op, url, token string, data []byte, hash string, length int64,
	progress transport.ProgressFunc, extra func(*transport.Request), opts []CallOption) *transport.Request {
	if hash == "" {
		hash = sha1Hex(data)
	}
	if length <= 0 {
		length = int64(len(data))
	}
	if data == nil {
		data = []byte{}
	}

	return transport.Compose(func(r *transport.Request) {
		r.Op = op
		r.Method = http.MethodPost
		r.URL = url
		r.Data = data
		r.NoRedirect = true
		if progress != nil {
			r.OnUploadProgress = progress
		}
		r.SetHeader("Authorization", token)
		r.SetHeader("Content-Length", strconv.FormatInt(length, 10))
		r.SetHeader("X-Bz-Content-Sha1", hash)
		extra(r)
	}, opts...)
}

// ListFileNames lists file names in a bucket in alphabetical order.
func (c *Client) ListFileNames(ctx context.Context, args ListFileNamesArgs, opts ...CallOption) (*ListFilesResponse, error) {
	var out ListFilesResponse
	err := c.call(ctx, opListFileNames, func(SessionState) map[string]any {
		b := body{
			"bucketId":     args.BucketID,
			"maxFileCount": maxCount(args.MaxFileCount),
			"prefix":       args.Prefix,
			"delimiter":    nil,
		}.str("startFileName", args.StartFileName)
		if args.Delimiter != "" {
			b["delimiter"] = args.Delimiter
		}
		return b
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFileVersions lists every version of every file in a bucket.
func (c *Client) ListFileVersions(ctx context.Context, args ListFileVersionsArgs, opts ...CallOption) (*ListFilesResponse, error) {
	var out ListFilesResponse
	err := c.call(ctx, opListFileVersions, func(SessionState) map[string]any {
		return body{"bucketId": args.BucketID, "maxFileCount": maxCount(args.MaxFileCount)}.
			str("startFileName", args.StartFileName).
			str("startFileId", args.StartFileID).
			str("prefix", args.Prefix).
			str("delimiter", args.Delimiter)
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// HideFile hides a file name so it no longer shows up in ListFileNames.
func (c *Client) HideFile(ctx context.Context, args HideFileArgs, opts ...CallOption) (*File, error) {
	var out File
	err := c.call(ctx, opHideFile, func(SessionState) map[string]any {
		return body{"bucketId": args.BucketID, "fileName": args.FileName}
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFileInfo returns a file version's metadata.
func (c *Client) GetFileInfo(ctx context.Context, in GetFileInfoInput, opts ...CallOption) (*File, error) {
	args := in.getFileInfoArgs()

	var out File
	err := c.call(ctx, opGetFileInfo, func(SessionState) map[string]any {
		return body{"fileId": args.FileID}
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDownloadAuthorization returns a token for downloading files under a
// prefix of a private bucket.
func (c *Client) GetDownloadAuthorization(ctx context.Context, args GetDownloadAuthorizationArgs, opts ...CallOption) (*DownloadAuthorization, error) {
	var out DownloadAuthorization
	err := c.call(ctx, opGetDownloadAuthorization, func(SessionState) map[string]any {
		return body{
			"bucketId":               args.BucketID,
			"fileNamePrefix":         args.FileNamePrefix,
			"validDurationInSeconds": args.ValidDurationInSeconds,
		}.str("b2ContentDisposition", args.B2ContentDisposition)
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFileVersion deletes one version of a file.
func (c *Client) DeleteFileVersion(ctx context.Context, args DeleteFileVersionArgs, opts ...CallOption) (*DeleteFileVersionResponse, error) {
	var out DeleteFileVersionResponse
	err := c.call(ctx, opDeleteFileVersion, func(SessionState) map[string]any {
		return body{"fileId": args.FileID, "fileName": args.FileName}
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CopyFile copies a file, or a byte range of it, server-side.
func (c *Client) CopyFile(ctx context.Context, args CopyFileArgs, opts ...CallOption) (*File, error) {
	var out File
	err := c.call(ctx, opCopyFile, func(SessionState) map[string]any {
		b := body{"sourceFileId": args.SourceFileID, "fileName": args.FileName}.
			str("destinationBucketId", args.DestinationBucketID).
			str("range", args.Range).
			str("metadataDirective", args.MetadataDirective)
		if args.MetadataDirective == MetadataDirectiveReplace {
			ct := args.ContentType
			if ct == "" {
				ct = ContentTypeAuto
			}
			b["contentType"] = ct
			fileInfo := args.FileInfo
			if fileInfo == nil {
				fileInfo = map[string]string{}
			}
			b["fileInfo"] = fileInfo
		}
		return b
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func maxCount(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
