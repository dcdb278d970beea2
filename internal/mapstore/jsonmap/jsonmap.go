// Package jsonmap implements the "type: json" map backend: a JSON array of
// objects fully materialized into memory at load time, scanned linearly
// per lookup. Explicitly documented (spec §4.C) as unsuitable for large
// sets — there is no index.
package jsonmap

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Table is a fully materialized JSON array, searchable by a chosen key
// field.
type Table struct {
	rows []map[string]any
}

// Load reads and decodes the JSON array at path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jsonmap: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a JSON array already in memory.
func Parse(data []byte) (*Table, error) {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("jsonmap: decode: %w", err)
	}
	return &Table{rows: rows}, nil
}

// Lookup scans for the first row whose keyName field equals keyValue under
// JSON equality: numeric comparison when both sides parse as numbers,
// string comparison otherwise. Returns the matching row's JSON encoding
// and true, or false if nothing matches.
func (t *Table) Lookup(keyName, keyValue string) ([]byte, bool, error) {
	for _, row := range t.rows {
		v, ok := row[keyName]
		if !ok {
			continue
		}
		if jsonEquals(v, keyValue) {
			data, err := json.Marshal(row)
			if err != nil {
				return nil, false, fmt.Errorf("jsonmap: re-encode row: %w", err)
			}
			return data, true, nil
		}
	}
	return nil, false, nil
}

// jsonEquals compares a decoded JSON field value against a query string,
// using numeric comparison when both sides look numeric.
func jsonEquals(fieldValue any, query string) bool {
	switch v := fieldValue.(type) {
	case string:
		return v == query
	case float64:
		qf, ok := parseFloat(query)
		return ok && qf == v
	case bool:
		return (query == "true" && v) || (query == "false" && !v)
	default:
		return false
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
