package b2

import (
	"context"
	"strconv"

	"github.com/objectfs/b2/pkg/transport"
)

// StartLargeFileArgs are the arguments of StartLargeFile.
type StartLargeFileArgs struct {
	BucketID string
	FileName string
	// ContentType defaults to b2/x-auto.
	ContentType string
	FileInfo    map[string]string
}

// GetUploadPartURLArgs are the arguments of GetUploadPartURL.
type GetUploadPartURLArgs struct {
	FileID string
}

// UploadPartArgs are the arguments of UploadPart. UploadURL and
// UploadAuthToken come from GetUploadPartURL.
type UploadPartArgs struct {
	UploadURL       string
	UploadAuthToken string
	// PartNumber starts at 1.
	PartNumber int
	Data       []byte
	// Hash is the SHA-1 hex digest of Data. It is computed when empty.
	Hash string
	// ContentLength overrides the Content-Length header when positive.
	ContentLength    int64
	OnUploadProgress transport.ProgressFunc
}

// FinishLargeFileArgs are the arguments of FinishLargeFile.
type FinishLargeFileArgs struct {
	FileID string
	// PartSha1Array holds the SHA-1 of every part, in part order.
	PartSha1Array []string
}

// CancelLargeFileArgs are the arguments of CancelLargeFile.
type CancelLargeFileArgs struct {
	FileID string
}

// ListPartsArgs are the arguments of ListParts.
type ListPartsArgs struct {
	FileID          string
	StartPartNumber int
	// MaxPartCount defaults to 100.
	MaxPartCount int
}

// ListUnfinishedLargeFilesArgs are the arguments of ListUnfinishedLargeFiles.
type ListUnfinishedLargeFilesArgs struct {
	BucketID    string
	NamePrefix  string
	StartFileID string
	// MaxFileCount defaults to 100.
	MaxFileCount int
}

// CopyPartArgs are the arguments of CopyPart.
type CopyPartArgs struct {
	SourceFileID string
	LargeFileID  string
	PartNumber   int
	Range        string
}

// StartLargeFile prepares a large file for part uploads.
func (c *Client) StartLargeFile(ctx context.Context, args StartLargeFileArgs, opts ...CallOption) (*File, error) {
	contentType := args.ContentType
	if contentType == "" {
		contentType = ContentTypeAuto
	}

	var out File
	err := c.call(ctx, opStartLargeFile, func(SessionState) map[string]any {
		return body{"bucketId": args.BucketID, "fileName": args.FileName, "contentType": contentType}.
			val("fileInfo", args.FileInfo, args.FileInfo != nil)
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUploadPartURL returns an upload URL and token for UploadPart.
func (c *Client) GetUploadPartURL(ctx context.Context, args GetUploadPartURLArgs, opts ...CallOption) (*UploadPartURL, error) {
	var out UploadPartURL
	err := c.call(ctx, opGetUploadPartURL, func(SessionState) map[string]any {
		return body{"fileId": args.FileID}
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadPart uploads one part of a large file. Redirects are not followed.
func (c *Client) UploadPart(ctx context.Context, args UploadPartArgs, opts ...CallOption) (*Part, error) {
	req := c.uploadRequest(opUploadPart, args.UploadURL, args.UploadAuthToken, args.Data, args.Hash, args.ContentLength, args.OnUploadProgress,
		func(r *transport.Request) {
			r.SetHeader("X-Bz-Part-Number", strconv.Itoa(args.PartNumber))
		}, opts)

	var out Part
	if err := c.send(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FinishLargeFile assembles the uploaded parts into a file.
func (c *Client) FinishLargeFile(ctx context.Context, args FinishLargeFileArgs, opts ...CallOption) (*File, error) {
	parts := args.PartSha1Array
	if parts == nil {
		parts = []string{}
	}

	var out File
	err := c.call(ctx, opFinishLargeFile, func(SessionState) map[string]any {
		return body{"fileId": args.FileID, "partSha1Array": parts}
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelLargeFile cancels an unfinished large file and deletes its parts.
func (c *Client) CancelLargeFile(ctx context.Context, args CancelLargeFileArgs, opts ...CallOption) (*CancelLargeFileResponse, error) {
	var out CancelLargeFileResponse
	err := c.call(ctx, opCancelLargeFile, func(SessionState) map[string]any {
		return body{"fileId": args.FileID}
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListParts lists the parts uploaded so far for a large file.
func (c *Client) ListParts(ctx context.Context, args ListPartsArgs, opts ...CallOption) (*ListPartsResponse, error) {
	var out ListPartsResponse
	err := c.call(ctx, opListParts, func(SessionState) map[string]any {
		return body{"fileId": args.FileID, "maxPartCount": maxCount(args.MaxPartCount)}.
			num("startPartNumber", int64(args.StartPartNumber))
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUnfinishedLargeFiles lists large files that were started but neither
// finished nor canceled.
func (c *Client) ListUnfinishedLargeFiles(ctx context.Context, args ListUnfinishedLargeFilesArgs, opts ...CallOption) (*ListUnfinishedLargeFilesResponse, error) {
	var out ListUnfinishedLargeFilesResponse
	err := c.call(ctx, opListUnfinishedLargeFiles, func(SessionState) map[string]any {
		return body{"bucketId": args.BucketID, "maxFileCount": maxCount(args.MaxFileCount)}.
			str("namePrefix", args.NamePrefix).
			str("startFileId", args.StartFileID)
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CopyPart copies a byte range of an existing file into a part of a large file.
func (c *Client) CopyPart(ctx context.Context, args CopyPartArgs, opts ...CallOption) (*Part, error) {
	var out Part
	err := c.call(ctx, opCopyPart, func(SessionState) map[string]any {
		return body{"sourceFileId": args.SourceFileID, "largeFileId": args.LargeFileID, "partNumber": args.PartNumber}.
			str("range", args.Range)
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
