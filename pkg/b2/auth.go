package b2

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/objectfs/b2/pkg/errors"
	"github.com/objectfs/b2/pkg/transport"
)

// Credentials identify the caller to b2_authorize_account. ApplicationKeyID is
// used as the principal when set, AccountID otherwise.
type Credentials struct {
	AccountID        string
	ApplicationKeyID string
	ApplicationKey   string
}

func (c Credentials) principal() string {
	if c.ApplicationKeyID != "" {
		return c.ApplicationKeyID
	}
	return c.AccountID
}

// basicAuth returns the Authorization header value for the key pair.
func (c Credentials) basicAuth() (string, error) {
	id := c.principal()
	if id == "" {
		return "", errors.NewError(errors.ErrCodeCredentialsMissing, "Invalid accountId or applicationKeyId").
			WithComponent("b2").
			WithOperation(opAuthorizeAccount)
	}
	if c.ApplicationKey == "" {
		return "", errors.NewError(errors.ErrCodeCredentialsMissing, "Invalid applicationKey").
			WithComponent("b2").
			WithOperation(opAuthorizeAccount)
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(id+":"+c.ApplicationKey)), nil
}

// Authorize calls b2_authorize_account and stores the token, API URL, download
// URL and account id in the session. A failed call leaves the session as it was.
func (c *Client) Authorize(ctx context.Context, opts ...CallOption) (*AuthorizeResponse, error) {
	auth, err := c.creds.basicAuth()
	if err != nil {
		return nil, err
	}

	req := transport.Compose(func(r *transport.Request) {
		r.Op = opAuthorizeAccount
		r.Method = http.MethodGet
		r.URL = c.authorizeURL()
		r.SetHeader("Authorization", auth)
	}, opts...)

	var out AuthorizeResponse
	if err := c.send(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.AuthorizationToken == "" || out.APIURL == "" {
		return nil, errors.NewError(errors.ErrCodeMalformedResponse, "authorize response is missing authorizationToken or apiUrl").
			WithComponent("b2").
			WithOperation(opAuthorizeAccount)
	}

	c.session.set(&out, c.creds.AccountID)
	st := c.session.State()
	c.logger.Info("B2 account authorized",
		"account", st.AccountID,
		"api_url", st.APIURL,
		"download_url", st.DownloadURL)
	return &out, nil
}
