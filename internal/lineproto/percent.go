package lineproto

import (
	"fmt"
	"net/url"
)

// PercentEncode escapes s the way the daemon's line protocol expects: a
// space becomes %20, never the "+" net/url's query-component escaping
// would produce, so AUTH passwords round-trip byte-for-byte. PathEscape
// already implements exactly this (path-segment escaping never folds
// space into "+"), so it is reused directly rather than hand-rolled.
func PercentEncode(s string) string {
	return url.PathEscape(s)
}

// PercentDecode reverses PercentEncode. A malformed %-escape is an error.
func PercentDecode(s string) (string, error) {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return "", &DecodeError{Input: s, Reason: err.Error()}
	}
	return decoded, nil
}

// DecodeError reports a malformed percent-encoded string.
type DecodeError struct {
	Input  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("lineproto: %s: %s", e.Reason, e.Input)
}
