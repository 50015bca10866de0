// Package headers encodes and decodes the X-Bz-* headers used by the B2 native API.
package headers

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/objectfs/b2/pkg/errors"
)

const (
	// InfoPrefix marks a custom file-info header.
	InfoPrefix = "X-Bz-Info-"
	// BzPrefix marks every B2-specific header.
	BzPrefix = "X-Bz-"

	// DefaultMaxInfoHeaders is the number of custom info headers B2 accepts on an upload.
	DefaultMaxInfoHeaders = 10
)

var validInfoKey = regexp.MustCompile(`(?i)^[a-z0-9_-]+$`)

// AddInfoHeaders validates info and writes one X-Bz-Info-<key> header per entry
// into dst, with URL-encoded values. A count over max is reported before any key
// is checked, and dst is left untouched on either failure. max <= 0 means
// DefaultMaxInfoHeaders.
func AddInfoHeaders(dst map[string]string, info map[string]string, max int) error {
	if len(info) == 0 {
		return nil
	}
	if max <= 0 {
		max = DefaultMaxInfoHeaders
	}

	if len(info) > max {
		return errors.NewError(errors.ErrCodeTooManyInfoHeaders,
			fmt.Sprintf("Too many info headers: maximum of %d allowed", max)).
			WithComponent("headers").
			WithDetail("count", len(info))
	}

	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var invalid []string
	for _, k := range keys {
		if !validInfoKey.MatchString(k) {
			invalid = append(invalid, k)
		}
	}
	if len(invalid) > 0 {
		return errors.NewError(errors.ErrCodeInvalidInfoHeader,
			"Info header keys contain invalid characters: "+strings.Join(invalid, "   ")).
			WithComponent("headers").
			WithDetail("keys", invalid)
	}

	for _, k := range keys {
		dst[InfoPrefix+k] = EncodeURIComponent(info[k])
	}
	return nil
}

// ExtractBzHeaders collects every X-Bz-* header (matched case-insensitively) into a
// map keyed by the camel-cased remainder of the name. X-Bz-Info- is stripped
// whole, so X-Bz-Info-foo-bar becomes fooBar and X-Bz-File-Name becomes fileName.
// Values are returned as sent.
func ExtractBzHeaders(h http.Header) map[string]string {
	out := make(map[string]string)
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		if key, ok := bzKey(name); ok {
			out[key] = values[0]
		}
	}
	return out
}

func bzKey(name string) (string, bool) {
	lower := strings.ToLower(name)
	infoPrefix := strings.ToLower(InfoPrefix)
	bzPrefix := strings.ToLower(BzPrefix)

	switch {
	case strings.HasPrefix(lower, infoPrefix):
		return camelCase(lower[len(infoPrefix):]), true
	case strings.HasPrefix(lower, bzPrefix):
		return camelCase(lower[len(bzPrefix):]), true
	default:
		return "", false
	}
}

func camelCase(s string) string {
	words := strings.Split(s, "-")
	var b strings.Builder
	b.Grow(len(s))
	for i, w := range words {
		if i == 0 || w == "" {
			b.WriteString(w)
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}
