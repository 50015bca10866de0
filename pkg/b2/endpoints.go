package b2

import (
	"net/url"
	"strings"

	"github.com/objectfs/b2/pkg/headers"
)

const (
	opAuthorizeAccount         = "b2_authorize_account"
	opCreateBucket             = "b2_create_bucket"
	opDeleteBucket             = "b2_delete_bucket"
	opListBuckets              = "b2_list_buckets"
	opUpdateBucket             = "b2_update_bucket"
	opGetUploadURL             = "b2_get_upload_url"
	opUploadFile               = "b2_upload_file"
	opListFileNames            = "b2_list_file_names"
	opListFileVersions         = "b2_list_file_versions"
	opListParts                = "b2_list_parts"
	opListUnfinishedLargeFiles = "b2_list_unfinished_large_files"
	opHideFile                 = "b2_hide_file"
	opGetFileInfo              = "b2_get_file_info"
	opGetDownloadAuthorization = "b2_get_download_authorization"
	opDownloadFileByName       = "b2_download_file_by_name"
	opDownloadFileByID         = "b2_download_file_by_id"
	opDeleteFileVersion        = "b2_delete_file_version"
	opStartLargeFile           = "b2_start_large_file"
	opGetUploadPartURL         = "b2_get_upload_part_url"
	opUploadPart               = "b2_upload_part"
	opFinishLargeFile          = "b2_finish_large_file"
	opCancelLargeFile          = "b2_cancel_large_file"
	opCopyFile                 = "b2_copy_file"
	opCopyPart                 = "b2_copy_part"
	opCreateKey                = "b2_create_key"
	opDeleteKey                = "b2_delete_key"
	opListKeys                 = "b2_list_keys"
)

// apiURL returns <apiUrl><version>/<op>.
func (c *Client) apiURL(st SessionState, op string) string {
	return st.APIURL + c.apiVersion + "/" + op
}

func (c *Client) authorizeURL() string {
	return strings.TrimRight(c.authURL, "/") + c.apiVersion + "/" + opAuthorizeAccount
}

// downloadByNameURL returns <downloadUrl>/file/<bucket>/<encoded name>[?query].
func downloadByNameURL(st SessionState, bucketName, fileName string, query url.Values) string {
	u := st.DownloadURL + "/file/" + bucketName + "/" + headers.EncodeFileName(fileName)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// downloadByIDURL returns <downloadUrl><version>/b2_download_file_by_id?fileId=<id>[&query].
func (c *Client) downloadByIDURL(st SessionState, fileID string, query url.Values) string {
	u := st.DownloadURL + c.apiVersion + "/" + opDownloadFileByID + "?fileId=" + url.QueryEscape(fileID)
	if len(query) > 0 {
		u += "&" + query.Encode()
	}
	return u
}
