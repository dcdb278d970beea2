package lineproto

import (
	"fmt"
	"strconv"
	"strings"
)

// SerializeError reports a JSON object that is missing a field the target
// line format requires — a configuration-level mismatch between a map's
// declared output and what its command expects (spec.md §7's "decode"
// error kind), not a malformed-input error.
type SerializeError struct {
	Format string
	Field  string
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("lineproto: %s serialization missing field %q", e.Format, e.Field)
}

// Serialize reconstructs the colon/comma line payload for an identity
// command's result object, per spec.md §6. verb must be one that has a
// Target (GETPWNAM/GETPWUID/GETGRNAM/GETGRGID/GETGIDLIST).
func Serialize(verb Verb, obj map[string]any) (string, error) {
	switch verb {
	case VerbGetPwNam, VerbGetPwUid:
		return serializePasswd(obj)
	case VerbGetGrNam, VerbGetGrGid:
		return serializeGroup(obj)
	case VerbGetGidList:
		return serializeGidList(obj)
	default:
		return "", fmt.Errorf("lineproto: verb %s has no line serialization", verb)
	}
}

func serializePasswd(obj map[string]any) (string, error) {
	fields := []string{"name", "passwd", "uid", "gid", "gecos", "dir", "shell"}
	parts := make([]string, len(fields))
	for i, f := range fields {
		v, ok := obj[f]
		if !ok {
			return "", &SerializeError{Format: "passwd", Field: f}
		}
		parts[i] = scalarString(v)
	}
	return strings.Join(parts, ":"), nil
}

func serializeGroup(obj map[string]any) (string, error) {
	for _, f := range []string{"name", "passwd", "gid"} {
		if _, ok := obj[f]; !ok {
			return "", &SerializeError{Format: "group", Field: f}
		}
	}
	members, err := scalarList(obj, "mem")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%s:%s",
		scalarString(obj["name"]), scalarString(obj["passwd"]), scalarString(obj["gid"]),
		strings.Join(members, ",")), nil
}

func serializeGidList(obj map[string]any) (string, error) {
	if _, ok := obj["name"]; !ok {
		return "", &SerializeError{Format: "gidlist", Field: "name"}
	}
	gids, err := scalarList(obj, "gids")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", scalarString(obj["name"]), strings.Join(gids, ",")), nil
}

func scalarList(obj map[string]any, field string) ([]string, error) {
	raw, ok := obj[field]
	if !ok {
		return nil, &SerializeError{Format: field, Field: field}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &SerializeError{Format: field, Field: field}
	}
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = scalarString(v)
	}
	return out, nil
}

// scalarString renders a decoded JSON scalar the way the line protocol
// expects: integers without a trailing ".0" (encoding/json decodes every
// JSON number as float64).
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
