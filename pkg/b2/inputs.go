package b2

// Most actions that take a single identifier accept either the identifier
// itself (BucketName, BucketID, FileID) or the full argument struct.

// BucketName names a bucket.
type BucketName string

// BucketID identifies a bucket.
type BucketID string

// FileID identifies a file version.
type FileID string

// CreateBucketInput is BucketName or CreateBucketArgs.
type CreateBucketInput interface {
	createBucketArgs() CreateBucketArgs
}

// DeleteBucketInput is BucketID or DeleteBucketArgs.
type DeleteBucketInput interface {
	deleteBucketArgs() DeleteBucketArgs
}

// UpdateBucketInput is BucketID or UpdateBucketArgs.
type UpdateBucketInput interface {
	updateBucketArgs() UpdateBucketArgs
}

// GetBucketInput is BucketName, BucketID or GetBucketArgs.
type GetBucketInput interface {
	getBucketArgs() GetBucketArgs
}

// GetUploadURLInput is BucketID or GetUploadURLArgs.
type GetUploadURLInput interface {
	getUploadURLArgs() GetUploadURLArgs
}

// GetFileInfoInput is FileID or GetFileInfoArgs.
type GetFileInfoInput interface {
	getFileInfoArgs() GetFileInfoArgs
}

// DownloadFileByIDInput is FileID or DownloadFileByIDArgs.
type DownloadFileByIDInput interface {
	downloadFileByIDArgs() DownloadFileByIDArgs
}

func (n BucketName) createBucketArgs() CreateBucketArgs {
	return CreateBucketArgs{BucketName: string(n)}
}
func (n BucketName) getBucketArgs() GetBucketArgs { return GetBucketArgs{BucketName: string(n)} }

// WithType returns the arguments creating bucket n with the given type.
func (n BucketName) WithType(bucketType string) CreateBucketArgs {
	return CreateBucketArgs{BucketName: string(n), BucketType: bucketType}
}

// WithType returns the arguments changing bucket id to the given type.
func (id BucketID) WithType(bucketType string) UpdateBucketArgs {
	return UpdateBucketArgs{BucketID: string(id), BucketType: bucketType}
}

func (id BucketID) deleteBucketArgs() DeleteBucketArgs { return DeleteBucketArgs{BucketID: string(id)} }
func (id BucketID) updateBucketArgs() UpdateBucketArgs { return UpdateBucketArgs{BucketID: string(id)} }
func (id BucketID) getBucketArgs() GetBucketArgs       { return GetBucketArgs{BucketID: string(id)} }
func (id BucketID) getUploadURLArgs() GetUploadURLArgs { return GetUploadURLArgs{BucketID: string(id)} }
func (id FileID) getFileInfoArgs() GetFileInfoArgs     { return GetFileInfoArgs{FileID: string(id)} }
func (id FileID) downloadFileByIDArgs() DownloadFileByIDArgs {
	return DownloadFileByIDArgs{FileID: string(id)}
}

func (a CreateBucketArgs) createBucketArgs() CreateBucketArgs             { return a }
func (a DeleteBucketArgs) deleteBucketArgs() DeleteBucketArgs             { return a }
func (a UpdateBucketArgs) updateBucketArgs() UpdateBucketArgs             { return a }
func (a GetBucketArgs) getBucketArgs() GetBucketArgs                      { return a }
func (a GetUploadURLArgs) getUploadURLArgs() GetUploadURLArgs             { return a }
func (a GetFileInfoArgs) getFileInfoArgs() GetFileInfoArgs                { return a }
func (a DownloadFileByIDArgs) downloadFileByIDArgs() DownloadFileByIDArgs { return a }

// body is a JSON request body that drops unset optional fields.
type body map[string]any

func (b body) str(key, v string) body {
	if v != "" {
		b[key] = v
	}
	return b
}

func (b body) num(key string, v int64) body {
	if v != 0 {
		b[key] = v
	}
	return b
}

func (b body) val(key string, v any, set bool) body {
	if set {
		b[key] = v
	}
	return b
}
