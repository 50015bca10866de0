package headers

import "strings"

const upperhex = "0123456789ABCDEF"

// EncodeURIComponent percent-encodes s byte-wise over its UTF-8 form, leaving
// A-Z a-z 0-9 and - _ . ! ~ * ' ( ) as they are.
func EncodeURIComponent(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

// EncodeFileName encodes each "/"-separated segment of name with
// EncodeURIComponent and keeps the separators.
func EncodeFileName(name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = EncodeURIComponent(seg)
	}
	return strings.Join(segments, "/")
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
