// Package imageref turns uploaded image references into provider payloads.
//
// A reference is either an inline data URI ("data:image/png;base64,....") or a
// remote locator. Providers that accept locators use the reference verbatim;
// providers that need raw bytes call Decode.
package imageref

import (
	"encoding/base64"
	"strings"
)

// InlinePrefix marks an inline data reference.
const InlinePrefix = "data:"

const defaultMIMEType = "image/png"

// IsInline reports whether ref is an inline data URI.
func IsInline(ref string) bool {
	return strings.HasPrefix(ref, InlinePrefix)
}

// Decode returns the payload bytes for ref. Inline references lose everything
// up to the first comma and the remainder is base64-decoded; when the tail is
// not valid base64 it is returned unprocessed. Anything else passes through.
func Decode(ref string) []byte {
	if !IsInline(ref) {
		return []byte(ref)
	}
	tail := ref[len(InlinePrefix):]
	if idx := strings.IndexByte(tail, ','); idx >= 0 {
		tail = tail[idx+1:]
	}
	if data, err := base64.StdEncoding.DecodeString(tail); err == nil {
		return data
	}
	if data, err := base64.RawStdEncoding.DecodeString(tail); err == nil {
		return data
	}
	return []byte(tail)
}

// MIMEType returns the media type declared by an inline reference, without
// parameters. Remote locators and inline references without a type report
// image/png.
func MIMEType(ref string) string {
	if !IsInline(ref) {
		return defaultMIMEType
	}
	header := ref[len(InlinePrefix):]
	if idx := strings.IndexByte(header, ','); idx >= 0 {
		header = header[:idx]
	}
	if idx := strings.IndexByte(header, ';'); idx >= 0 {
		header = header[:idx]
	}
	header = strings.ToLower(strings.TrimSpace(header))
	if header == "" {
		return defaultMIMEType
	}
	return header
}

// InlinePNG wraps base64 PNG data as a data URI.
func InlinePNG(b64 string) string {
	return InlinePrefix + defaultMIMEType + ";base64," + b64
}
