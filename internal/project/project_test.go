package project_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webnis/webnis/internal/project"
	"github.com/webnis/webnis/internal/record"
)

func TestProject_NamedFields(t *testing.T) {
	rec, err := record.Parse(record.FormatPasswd, []byte("mikevs:x:1000:1000:Mike:/home/mikevs:/bin/sh"))
	require.NoError(t, err)

	tmpl := map[string]string{
		"login": "{name}",
		"home":  "{dir} ({shell})",
	}

	out := project.Project(tmpl, rec)
	assert.Equal(t, []string{"home", "login"}, out.Keys())

	login, _ := out.Get("login")
	home, _ := out.Get("home")
	assert.Equal(t, "mikevs", login)
	assert.Equal(t, "/home/mikevs (/bin/sh)", home)
}

func TestProject_IndexedFields(t *testing.T) {
	rec, err := record.Parse(record.FormatColonSeparated, []byte("a:b:c"))
	require.NoError(t, err)

	tmpl := map[string]string{"combined": "{1}-{2}-{3}"}

	out := project.Project(tmpl, rec)
	combined, _ := out.Get("combined")
	assert.Equal(t, "a-b-c", combined)
}

func TestProject_AbsentFieldSubstitutesEmpty(t *testing.T) {
	rec := record.New()
	rec.Set("present", "value")

	tmpl := map[string]string{"out": "[{present}][{missing}]"}

	out := project.Project(tmpl, rec)
	val, _ := out.Get("out")
	assert.Equal(t, "[value][]", val)
}

func TestProject_ResultKeysEqualTemplateKeys(t *testing.T) {
	rec := record.New()
	rec.Set("a", "1")

	tmpl := map[string]string{"x": "{a}", "y": "literal", "z": "{a}-{a}"}

	out := project.Project(tmpl, rec)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, out.Keys())
}

func TestProject_NumericValueStringified(t *testing.T) {
	rec, err := record.Parse(record.FormatPasswd, []byte("mikevs:x:1000:1000:Mike:/home/mikevs:/bin/sh"))
	require.NoError(t, err)

	tmpl := map[string]string{"id": "uid={uid}"}
	out := project.Project(tmpl, rec)
	id, _ := out.Get("id")
	assert.Equal(t, "uid=1000", id)
}
