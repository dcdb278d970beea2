package record_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webnis/webnis/internal/record"
)

func TestParse_Passwd(t *testing.T) {
	r, err := record.Parse(record.FormatPasswd, []byte("mikevs:x:1000:1000:Mike:/home/mikevs:/bin/sh"))
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"mikevs","passwd":"x","uid":1000,"gid":1000,"gecos":"Mike","dir":"/home/mikevs","shell":"/bin/sh"}`, string(data))
}

func TestParse_Passwd_WrongFieldCount(t *testing.T) {
	_, err := record.Parse(record.FormatPasswd, []byte("mikevs:x:1000"))
	require.Error(t, err)
	var decodeErr *record.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestParse_Group(t *testing.T) {
	r, err := record.Parse(record.FormatGroup, []byte("wheel:x:10:mikevs,alice"))
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"wheel","passwd":"x","gid":10,"mem":["mikevs","alice"]}`, string(data))
}

func TestParse_Group_EmptyMembers(t *testing.T) {
	r, err := record.Parse(record.FormatGroup, []byte("wheel:x:10:"))
	require.NoError(t, err)

	val, ok := r.Get("mem")
	require.True(t, ok)
	assert.Equal(t, []any{}, val)
}

func TestParse_Adjunct(t *testing.T) {
	r, err := record.Parse(record.FormatAdjunct, []byte("mikevs:$5$salt$hash:extra:fields"))
	require.NoError(t, err)

	name, _ := r.Get("name")
	passwd, _ := r.Get("passwd")
	assert.Equal(t, "mikevs", name)
	assert.Equal(t, "$5$salt$hash", passwd)
}

func TestParse_Adjunct_TooFewFields(t *testing.T) {
	_, err := record.Parse(record.FormatAdjunct, []byte("mikevs"))
	assert.Error(t, err)
}

func TestParse_KeyValue_NumberTyping(t *testing.T) {
	r, err := record.Parse(record.FormatKeyValue, []byte("k=123 v=1.2.3 name=mikevs neg=-5 dec=3.14"))
	require.NoError(t, err)

	k, _ := r.Get("k")
	assert.Equal(t, int64(123), k)

	v, _ := r.Get("v")
	assert.Equal(t, "1.2.3", v)

	neg, _ := r.Get("neg")
	assert.Equal(t, int64(-5), neg)

	dec, _ := r.Get("dec")
	assert.Equal(t, 3.14, dec)
}

func TestParse_KeyValue_MissingEquals(t *testing.T) {
	_, err := record.Parse(record.FormatKeyValue, []byte("noequalshere"))
	assert.Error(t, err)
}

func TestParse_ColonSeparated_IndexKeyed(t *testing.T) {
	r, err := record.Parse(record.FormatColonSeparated, []byte("a:42:c"))
	require.NoError(t, err)

	one, _ := r.Get("1")
	two, _ := r.Get("2")
	three, _ := r.Get("3")
	assert.Equal(t, "a", one)
	assert.Equal(t, int64(42), two)
	assert.Equal(t, "c", three)
}

func TestParse_WhitespaceSeparated_CollapsesRuns(t *testing.T) {
	r, err := record.Parse(record.FormatWhitespaceSep, []byte("a   42    c"))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
}

func TestParse_JSON(t *testing.T) {
	r, err := record.Parse(record.FormatJSON, []byte(`{"a":1,"b":"two"}`))
	require.NoError(t, err)

	a, _ := r.Get("a")
	b, _ := r.Get("b")
	assert.Equal(t, float64(1), a)
	assert.Equal(t, "two", b)
}

func TestParse_JSON_Malformed(t *testing.T) {
	_, err := record.Parse(record.FormatJSON, []byte(`not json`))
	assert.Error(t, err)
}

func TestRecord_PreservesFieldOrder(t *testing.T) {
	r := record.New()
	r.Set("z", 1)
	r.Set("a", 2)
	r.Set("m", 3)
	assert.Equal(t, []string{"z", "a", "m"}, r.Keys())
}
