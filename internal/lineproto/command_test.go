package lineproto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webnis/webnis/internal/lineproto"
)

func TestParseCommand_GetPwNam(t *testing.T) {
	cmd, err := lineproto.ParseCommand("GETPWNAM mikevs")
	require.NoError(t, err)
	assert.Equal(t, lineproto.VerbGetPwNam, cmd.Verb)
	assert.Equal(t, "mikevs", cmd.Arg)

	mapName, keyName, ok := lineproto.Target(cmd.Verb)
	require.True(t, ok)
	assert.Equal(t, "passwd", mapName)
	assert.Equal(t, "name", keyName)
}

func TestParseCommand_GetPwUid(t *testing.T) {
	cmd, err := lineproto.ParseCommand("GETPWUID 1000")
	require.NoError(t, err)
	assert.Equal(t, "1000", cmd.Arg)
	mapName, keyName, ok := lineproto.Target(cmd.Verb)
	require.True(t, ok)
	assert.Equal(t, "passwd", mapName)
	assert.Equal(t, "uid", keyName)
}

func TestParseCommand_GetGidList(t *testing.T) {
	cmd, err := lineproto.ParseCommand("GETGIDLIST mikevs")
	require.NoError(t, err)
	mapName, keyName, ok := lineproto.Target(cmd.Verb)
	require.True(t, ok)
	assert.Equal(t, "gidlist", mapName)
	assert.Equal(t, "name", keyName)
	assert.Equal(t, "mikevs", cmd.Arg)
}

func TestParseCommand_Auth(t *testing.T) {
	cmd, err := lineproto.ParseCommand("AUTH mikevs s3cret%20x pam login")
	require.NoError(t, err)
	assert.Equal(t, lineproto.VerbAuth, cmd.Verb)
	assert.Equal(t, "mikevs", cmd.Arg)
	assert.Equal(t, "s3cret x", cmd.Password)
	assert.Equal(t, "pam", cmd.Service)
	assert.Equal(t, "login", cmd.Remote)
}

func TestParseCommand_AuthMinimal(t *testing.T) {
	cmd, err := lineproto.ParseCommand("AUTH mikevs s3cret")
	require.NoError(t, err)
	assert.Equal(t, "mikevs", cmd.Arg)
	assert.Equal(t, "s3cret", cmd.Password)
	assert.Empty(t, cmd.Service)
	assert.Empty(t, cmd.Remote)
}

func TestParseCommand_AuthBadPassword(t *testing.T) {
	_, err := lineproto.ParseCommand("AUTH mikevs bad%2escape")
	// %2e is valid hex actually; use a genuinely truncated escape instead.
	_, err2 := lineproto.ParseCommand("AUTH mikevs bad%2")
	assert.NoError(t, err)
	assert.Error(t, err2)
}

func TestParseCommand_Set(t *testing.T) {
	cmd, err := lineproto.ParseCommand("SET remotehost=10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, lineproto.VerbSet, cmd.Verb)
	assert.Equal(t, "remotehost", cmd.Key)
	assert.Equal(t, "10.0.0.1", cmd.Value)
}

func TestParseCommand_Pam(t *testing.T) {
	cmd, err := lineproto.ParseCommand("PAM 1")
	require.NoError(t, err)
	assert.Equal(t, lineproto.VerbPam, cmd.Verb)
	assert.Equal(t, "1", cmd.Arg)
}

func TestParseCommand_UnknownVerb(t *testing.T) {
	_, err := lineproto.ParseCommand("FROBNICATE x")
	assert.Error(t, err)
}

func TestParseCommand_WrongArgCount(t *testing.T) {
	_, err := lineproto.ParseCommand("GETPWNAM")
	assert.Error(t, err)

	_, err = lineproto.ParseCommand("GETPWNAM a b")
	assert.Error(t, err)
}

func TestParseCommand_Empty(t *testing.T) {
	_, err := lineproto.ParseCommand("")
	assert.Error(t, err)
}
