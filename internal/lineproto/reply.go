package lineproto

import "strconv"

// Reply renders one response line: "<code> <rest>\n". Codes are the set
// spec.md §6 defines: 200 success, 400 malformed, 401 auth failed, 403 peer
// denied, 404 not found, 500 upstream error, 503 all backends down.
func Reply(code int, rest string) string {
	if rest == "" {
		return strconv.Itoa(code) + "\n"
	}
	return strconv.Itoa(code) + " " + rest + "\n"
}
