package b2

import "context"

// CreateKeyArgs are the arguments of CreateKey. BucketID and NamePrefix
// restrict the key; ValidDurationInSeconds makes it expire.
type CreateKeyArgs struct {
	Capabilities           []string
	KeyName                string
	ValidDurationInSeconds int64
	BucketID               string
	NamePrefix             string
}

// DeleteKeyArgs are the arguments of DeleteKey.
type DeleteKeyArgs struct {
	ApplicationKeyID string
}

// ListKeysArgs are the arguments of ListKeys.
type ListKeysArgs struct {
	MaxKeyCount           int
	StartApplicationKeyID string
}

// CreateKey creates an application key. The secret is only returned here.
func (c *Client) CreateKey(ctx context.Context, args CreateKeyArgs, opts ...CallOption) (*Key, error) {
	capabilities := args.Capabilities
	if capabilities == nil {
		capabilities = []string{}
	}

	var out Key
	err := c.call(ctx, opCreateKey, func(st SessionState) map[string]any {
		return body{"accountId": st.AccountID, "capabilities": capabilities, "keyName": args.KeyName}.
			num("validDurationInSeconds", args.ValidDurationInSeconds).
			str("bucketId", args.BucketID).
			str("namePrefix", args.NamePrefix)
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteKey deletes an application key and returns it as it was.
func (c *Client) DeleteKey(ctx context.Context, args DeleteKeyArgs, opts ...CallOption) (*Key, error) {
	var out Key
	err := c.call(ctx, opDeleteKey, func(SessionState) map[string]any {
		return body{"applicationKeyId": args.ApplicationKeyID}
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListKeys lists the application keys of the authorized account.
func (c *Client) ListKeys(ctx context.Context, args ListKeysArgs, opts ...CallOption) (*ListKeysResponse, error) {
	var out ListKeysResponse
	err := c.call(ctx, opListKeys, func(st SessionState) map[string]any {
		return body{"accountId": st.AccountID}.
			num("maxKeyCount", int64(args.MaxKeyCount)).
			str("startApplicationKeyId", args.StartApplicationKeyID)
	}, &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
