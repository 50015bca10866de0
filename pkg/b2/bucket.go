package b2

import "context"

// CreateBucketArgs are the arguments of CreateBucket.
type CreateBucketArgs struct {
	BucketName     string
	BucketType     string
	BucketInfo     map[string]string
	CORSRules      []CORSRule
	LifecycleRules []LifecycleRule
}

// DeleteBucketArgs are the arguments of DeleteBucket.
type DeleteBucketArgs struct {
	BucketID string
}

// UpdateBucketArgs are the arguments of UpdateBucket. Nil fields are left
// unchanged on the server.
type UpdateBucketArgs struct {
	BucketID       string
	BucketType     string
	BucketInfo     map[string]string
	CORSRules      []CORSRule
	LifecycleRules []LifecycleRule
	IfRevisionIs   int
}

// GetBucketArgs select one bucket. BucketName wins when both are set.
type GetBucketArgs struct {
	BucketName string
	BucketID   string
}

// GetUploadURLArgs are the arguments of GetUploadURL.
type GetUploadURLArgs struct {
	BucketID string
}

// CreateBucket creates a bucket in the authorized account. A bare BucketName
// leaves the type to the server; BucketName.WithType sets it.
func (c *Client) CreateBucket(ctx context.Context, in CreateBucketInput, opts ...CallOption) (*Bucket, error) {
	args := in.createBucketArgs()

	var out Bucket
	err := c.call(ctx, opCreateBucket, func(st SessionState) map[string]any {
		return body{"accountId": st.AccountID, "bucketName": args.BucketName}.
			str("bucketType", args.BucketType).
			val("bucketInfo", args.BucketInfo, args.BucketInfo != nil).
			val("corsRules", args.CORSRules, args.CORSRules != nil).
			val("lifecycleRules", args.LifecycleRules, args.LifecycleRules != nil)
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBucket deletes an empty bucket and returns it as it was.
func (c *Client) DeleteBucket(ctx context.Context, in DeleteBucketInput, opts ...CallOption) (*Bucket, error) {
	args := in.deleteBucketArgs()

	var out Bucket
	err := c.call(ctx, opDeleteBucket, func(st SessionState) map[string]any {
		return body{"accountId": st.AccountID, "bucketId": args.BucketID}
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBuckets lists the buckets of the authorized account.
func (c *Client) ListBuckets(ctx context.Context, opts ...CallOption) (*ListBucketsResponse, error) {
	var out ListBucketsResponse
	err := c.call(ctx, opListBuckets, func(st SessionState) map[string]any {
		return body{"accountId": st.AccountID}
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBucket looks a bucket up by name or id through b2_list_buckets. The
// result holds zero or one bucket.
func (c *Client) GetBucket(ctx context.Context, in GetBucketInput, opts ...CallOption) (*ListBucketsResponse, error) {
	args := in.getBucketArgs()

	var out ListBucketsResponse
	err := c.call(ctx, opListBuckets, func(st SessionState) map[string]any {
		b := body{"accountId": st.AccountID}
		if args.BucketName != "" {
			b["bucketName"] = args.BucketName
		} else {
			b["bucketId"] = args.BucketID
		}
		return b
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBucket changes a bucket's type, info, CORS or lifecycle rules. A bare
// BucketID changes nothing and returns the bucket as it is; use
// BucketID.WithType or UpdateBucketArgs to change it.
func (c *Client) UpdateBucket(ctx context.Context, in UpdateBucketInput, opts ...CallOption) (*Bucket, error) {
	args := in.updateBucketArgs()

	var out Bucket
	err := c.call(ctx, opUpdateBucket, func(st SessionState) map[string]any {
		return body{"accountId": st.AccountID, "bucketId": args.BucketID}.
			str("bucketType", args.BucketType).
			val("bucketInfo", args.BucketInfo, args.BucketInfo != nil).
			val("corsRules", args.CORSRules, args.CORSRules != nil).
			val("lifecycleRules", args.LifecycleRules, args.LifecycleRules != nil).
			num("ifRevisionIs", int64(args.IfRevisionIs))
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUploadURL returns an upload URL and token for UploadFile.
func (c *Client) GetUploadURL(ctx context.Context, in GetUploadURLInput, opts ...CallOption) (*UploadURL, error) {
	args := in.getUploadURLArgs()

	var out UploadURL
	err := c.call(ctx, opGetUploadURL, func(SessionState) map[string]any {
		return body{"bucketId": args.BucketID}
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
