package server

import (
	"encoding/json"
	"net/http"

	"github.com/webnis/webnis/internal/record"
)

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeResult(w http.ResponseWriter, status int, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorBody{Code: status, Message: message}})
}

// recordToValue turns a decoded Record into a plain value tree — used when
// handing a lookup result to the script host, which only deals in
// map[string]any/[]any/scalars, never *record.Record.
func recordToValue(rec *record.Record) map[string]any {
	out := make(map[string]any, rec.Len())
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		out[k] = v
	}
	return out
}
