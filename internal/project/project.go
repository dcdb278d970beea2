// Package project re-shapes a decoded record through a map's optional
// output template: a set of named patterns that pull fields out of the
// underlying record by index ("{1}") or name ("{name}").
package project

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/webnis/webnis/internal/record"
)

var templateToken = regexp.MustCompile(`\{([^{}]+)\}`)

// Project builds a new record whose fields are exactly tmpl's keys, each
// value produced by substituting every "{N}"/"{name}" reference in the
// matching pattern with the stringified field from rec. References to
// absent fields substitute the empty string. Literal text outside braces
// is copied verbatim.
func Project(tmpl map[string]string, rec *record.Record) *record.Record {
	out := record.New()

	keys := make([]string, 0, len(tmpl))
	for k := range tmpl {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		out.Set(key, substitute(tmpl[key], rec))
	}
	return out
}

func substitute(pattern string, rec *record.Record) string {
	return templateToken.ReplaceAllStringFunc(pattern, func(m string) string {
		name := m[1 : len(m)-1]
		val, ok := rec.Get(name)
		if !ok {
			return ""
		}
		return fmt.Sprint(val)
	})
}
