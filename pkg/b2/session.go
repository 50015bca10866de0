package b2

import (
	"strings"
	"sync"

	"github.com/objectfs/b2/pkg/errors"
)

// SessionState is a point-in-time copy of the session.
type SessionState struct {
	AccountID               string
	AuthorizationToken      string
	APIURL                  string
	DownloadURL             string
	S3APIURL                string
	RecommendedPartSize     int64
	AbsoluteMinimumPartSize int64
	Allowed                 *Allowed
}

// Authorized reports whether the state carries a token and API URL.
func (s SessionState) Authorized() bool {
	return s.AuthorizationToken != "" && s.APIURL != ""
}

// Session holds what b2_authorize_account returned. Only Authorize writes it;
// every other action reads a snapshot at entry.
type Session struct {
	mu    sync.RWMutex
	state SessionState
}

// State returns a copy of the current session.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) set(resp *AuthorizeResponse, accountID string) {
	if resp.AccountID != "" {
		accountID = resp.AccountID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionState{
		AccountID:               accountID,
		AuthorizationToken:      resp.AuthorizationToken,
		APIURL:                  strings.TrimRight(resp.APIURL, "/"),
		DownloadURL:             strings.TrimRight(resp.DownloadURL, "/"),
		S3APIURL:                resp.S3APIURL,
		RecommendedPartSize:     resp.RecommendedPartSize,
		AbsoluteMinimumPartSize: resp.AbsoluteMinimumPartSize,
		Allowed:                 resp.Allowed,
	}
}

// authorized returns the snapshot used by an action, or NOT_AUTHORIZED.
func (s *Session) authorized(op string) (SessionState, error) {
	st := s.State()
	if !st.Authorized() {
		return st, errors.NewError(errors.ErrCodeNotAuthorized, "Invalid authorizationToken").
			WithComponent("b2").
			WithOperation(op)
	}
	return st, nil
}
