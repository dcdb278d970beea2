package lineproto_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webnis/webnis/internal/lineproto"
	"github.com/webnis/webnis/internal/record"
)

// TestSerialize_PasswdRoundTrip exercises the full boundary the daemon
// actually sees: a gdbm-sourced passwd line decoded by internal/record,
// marshaled to JSON (the HTTPS wire shape), unmarshaled back into a plain
// object, and re-serialized — reproducing the original 7-field line per
// spec.md §8.
func TestSerialize_PasswdRoundTrip(t *testing.T) {
	original := "mikevs:x:1000:1000:Mike:/home/mikevs:/bin/sh"
	rec, err := record.Parse(record.FormatPasswd, []byte(original))
	require.NoError(t, err)

	data, err := rec.MarshalJSON()
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))

	out, err := lineproto.Serialize(lineproto.VerbGetPwNam, obj)
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestSerialize_Passwd(t *testing.T) {
	obj := map[string]any{
		"name": "mikevs", "passwd": "x", "uid": float64(1000), "gid": float64(1000),
		"gecos": "Mike", "dir": "/home/mikevs", "shell": "/bin/sh",
	}
	out, err := lineproto.Serialize(lineproto.VerbGetPwNam, obj)
	require.NoError(t, err)
	assert.Equal(t, "mikevs:x:1000:1000:Mike:/home/mikevs:/bin/sh", out)
}

func TestSerialize_Passwd_MissingField(t *testing.T) {
	obj := map[string]any{"name": "mikevs"}
	_, err := lineproto.Serialize(lineproto.VerbGetPwNam, obj)
	assert.Error(t, err)
}

func TestSerialize_Group(t *testing.T) {
	obj := map[string]any{
		"name": "wheel", "passwd": "x", "gid": float64(10),
		"mem": []any{"mikevs", "root"},
	}
	out, err := lineproto.Serialize(lineproto.VerbGetGrNam, obj)
	require.NoError(t, err)
	assert.Equal(t, "wheel:x:10:mikevs,root", out)
}

func TestSerialize_Group_EmptyMembers(t *testing.T) {
	obj := map[string]any{"name": "empty", "passwd": "x", "gid": float64(99), "mem": []any{}}
	out, err := lineproto.Serialize(lineproto.VerbGetGrGid, obj)
	require.NoError(t, err)
	assert.Equal(t, "empty:x:99:", out)
}

func TestSerialize_GidList(t *testing.T) {
	obj := map[string]any{"name": "mikevs", "gids": []any{float64(10), float64(20), float64(30)}}
	out, err := lineproto.Serialize(lineproto.VerbGetGidList, obj)
	require.NoError(t, err)
	assert.Equal(t, "mikevs:10,20,30", out)
}

func TestSerialize_UnsupportedVerb(t *testing.T) {
	_, err := lineproto.Serialize(lineproto.VerbAuth, map[string]any{})
	assert.Error(t, err)
}
