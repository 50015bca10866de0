package b2

import "time"

// Bucket types accepted by create and update. The server validates them.
const (
	BucketTypeAllPublic  = "allPublic"
	BucketTypeAllPrivate = "allPrivate"
	// BucketTypeSnapshot only appears in listings.
	BucketTypeSnapshot = "snapshot"
)

// Capabilities that can be granted to an application key.
const (
	CapabilityListKeys           = "listKeys"
	CapabilityWriteKeys          = "writeKeys"
	CapabilityDeleteKeys         = "deleteKeys"
	CapabilityListBuckets        = "listBuckets"
	CapabilityListAllBucketNames = "listAllBucketNames"
	CapabilityReadBuckets        = "readBuckets"
	CapabilityWriteBuckets       = "writeBuckets"
	CapabilityDeleteBuckets      = "deleteBuckets"
	CapabilityListFiles          = "listFiles"
	CapabilityReadFiles          = "readFiles"
	CapabilityShareFiles         = "shareFiles"
	CapabilityWriteFiles         = "writeFiles"
	CapabilityDeleteFiles        = "deleteFiles"
)

// ContentTypeAuto asks B2 to pick the content type from the file name.
const ContentTypeAuto = "b2/x-auto"

// Allowed describes what the authorizing key may do.
type Allowed struct {
	Capabilities []string `json:"capabilities"`
	BucketID     string   `json:"bucketId,omitempty"`
	BucketName   string   `json:"bucketName,omitempty"`
	NamePrefix   string   `json:"namePrefix,omitempty"`
}

// AuthorizeResponse is returned by b2_authorize_account.
type AuthorizeResponse struct {
	AccountID               string   `json:"accountId"`
	AuthorizationToken      string   `json:"authorizationToken"`
	APIURL                  string   `json:"apiUrl"`
	DownloadURL             string   `json:"downloadUrl"`
	S3APIURL                string   `json:"s3ApiUrl,omitempty"`
	RecommendedPartSize     int64    `json:"recommendedPartSize,omitempty"`
	AbsoluteMinimumPartSize int64    `json:"absoluteMinimumPartSize,omitempty"`
	Allowed                 *Allowed `json:"allowed,omitempty"`
}

// CORSRule is one entry of a bucket's CORS configuration.
type CORSRule struct {
	CORSRuleName      string   `json:"corsRuleName"`
	AllowedOrigins    []string `json:"allowedOrigins"`
	AllowedOperations []string `json:"allowedOperations"`
	AllowedHeaders    []string `json:"allowedHeaders,omitempty"`
	ExposeHeaders     []string `json:"exposeHeaders,omitempty"`
	MaxAgeSeconds     int      `json:"maxAgeSeconds"`
}

// LifecycleRule hides or deletes files under a prefix after a number of days.
type LifecycleRule struct {
	DaysFromHidingToDeleting  *int   `json:"daysFromHidingToDeleting"`
	DaysFromUploadingToHiding *int   `json:"daysFromUploadingToHiding"`
	FileNamePrefix            string `json:"fileNamePrefix"`
}

// Bucket is a bucket as reported by the server.
type Bucket struct {
	AccountID      string            `json:"accountId"`
	BucketID       string            `json:"bucketId"`
	BucketName     string            `json:"bucketName"`
	BucketType     string            `json:"bucketType"`
	BucketInfo     map[string]string `json:"bucketInfo,omitempty"`
	CORSRules      []CORSRule        `json:"corsRules,omitempty"`
	LifecycleRules []LifecycleRule   `json:"lifecycleRules,omitempty"`
	Revision       int               `json:"revision,omitempty"`
}

// ListBucketsResponse is returned by b2_list_buckets.
type ListBucketsResponse struct {
	Buckets []Bucket `json:"buckets"`
}

// UploadURL is a single-use upload target returned by b2_get_upload_url.
type UploadURL struct {
	BucketID           string `json:"bucketId"`
	UploadURL          string `json:"uploadUrl"`
	AuthorizationToken string `json:"authorizationToken"`
}

// UploadPartURL is a single-use part upload target returned by b2_get_upload_part_url.
type UploadPartURL struct {
	FileID             string `json:"fileId"`
	UploadURL          string `json:"uploadUrl"`
	AuthorizationToken string `json:"authorizationToken"`
}

// File is a file version, hide marker, or unfinished large file.
type File struct {
	AccountID       string            `json:"accountId,omitempty"`
	Action          string            `json:"action,omitempty"`
	BucketID        string            `json:"bucketId,omitempty"`
	ContentLength   int64             `json:"contentLength"`
	ContentSha1     string            `json:"contentSha1,omitempty"`
	ContentMd5      string            `json:"contentMd5,omitempty"`
	ContentType     string            `json:"contentType,omitempty"`
	FileID          string            `json:"fileId"`
	FileInfo        map[string]string `json:"fileInfo,omitempty"`
	FileName        string            `json:"fileName"`
	UploadTimestamp int64             `json:"uploadTimestamp"`
}

// Created returns the upload time.
func (f File) Created() time.Time {
	return time.UnixMilli(f.UploadTimestamp)
}

// ListFilesResponse is returned by b2_list_file_names and b2_list_file_versions.
// A nil NextFileName means there are no more pages.
type ListFilesResponse struct {
	Files        []File  `json:"files"`
	NextFileName *string `json:"nextFileName"`
	NextFileID   *string `json:"nextFileId,omitempty"`
}

// ListUnfinishedLargeFilesResponse is returned by b2_list_unfinished_large_files.
type ListUnfinishedLargeFilesResponse struct {
	Files      []File  `json:"files"`
	NextFileID *string `json:"nextFileId"`
}

// Part is one uploaded part of a large file.
type Part struct {
	FileID          string `json:"fileId"`
	PartNumber      int    `json:"partNumber"`
	ContentLength   int64  `json:"contentLength"`
	ContentSha1     string `json:"contentSha1"`
	ContentMd5      string `json:"contentMd5,omitempty"`
	UploadTimestamp int64  `json:"uploadTimestamp"`
}

// Created returns the upload time.
func (p Part) Created() time.Time {
	return time.UnixMilli(p.UploadTimestamp)
}

// ListPartsResponse is returned by b2_list_parts.
type ListPartsResponse struct {
	Parts          []Part `json:"parts"`
	NextPartNumber *int   `json:"nextPartNumber"`
}

// CancelLargeFileResponse is returned by b2_cancel_large_file.
type CancelLargeFileResponse struct {
	FileID    string `json:"fileId"`
	AccountID string `json:"accountId"`
	BucketID  string `json:"bucketId"`
	FileName  string `json:"fileName"`
}

// DeleteFileVersionResponse is returned by b2_delete_file_version.
type DeleteFileVersionResponse struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

// DownloadAuthorization is returned by b2_get_download_authorization.
type DownloadAuthorization struct {
	BucketID           string `json:"bucketId"`
	FileNamePrefix     string `json:"fileNamePrefix"`
	AuthorizationToken string `json:"authorizationToken"`
}

// Key is an application key. ApplicationKey is only set by b2_create_key.
type Key struct {
	KeyName             string   `json:"keyName"`
	ApplicationKeyID    string   `json:"applicationKeyId"`
	ApplicationKey      string   `json:"applicationKey,omitempty"`
	Capabilities        []string `json:"capabilities"`
	AccountID           string   `json:"accountId"`
	ExpirationTimestamp *int64   `json:"expirationTimestamp"`
	BucketID            *string  `json:"bucketId"`
	NamePrefix          *string  `json:"namePrefix"`
}

// ListKeysResponse is returned by b2_list_keys.
type ListKeysResponse struct {
	Keys                 []Key   `json:"keys"`
	NextApplicationKeyID *string `json:"nextApplicationKeyId"`
}
