package convert

import (
	"fmt"
	"net/url"
	"strings"
)

// DecodeKey undoes notification key encoding: "+" becomes a space, then
// percent escapes are decoded.
func DecodeKey(key string) (string, error) {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return "", fmt.Errorf("decode key %q: %w: %w", key, ErrInvalidEvent, err)
	}
	return decoded, nil
}

// EncodeKey encodes key the way object stores do in notifications. Path
// separators are kept.
func EncodeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.QueryEscape(s)
	}
	return strings.Join(segments, "/")
}

// DerivedKey returns the sibling key of key under the target extension. The
// key is cut at the last "." of its final segment; a final segment without
// an extension gets the target appended.
func DerivedKey(key, target string) string {
	base := strings.LastIndexByte(key, '/') + 1
	dot := strings.LastIndexByte(key[base:], '.')
	if dot < 0 {
		return key + target
	}
	return key[:base+dot] + target
}
