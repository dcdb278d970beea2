// Package luamap implements the "type: lua" map backend: a lookup is a
// call into a named entry point of the shared embedded script host. Its
// return value is already a decoded record (the Parser is bypassed
// entirely), or the "no value" sentinel.
package luamap

import (
	"context"

	"github.com/webnis/webnis/internal/script"
)

// Backend dispatches map lookups to a Lua entry point through a shared
// *script.Host.
type Backend struct {
	host *script.Host
}

// New wraps an already-constructed script host.
func New(host *script.Host) *Backend {
	return &Backend{host: host}
}

// Lookup calls entrypoint with a request built from domain/keyName/keyValue,
// returning the script's table result as a plain value tree along with the
// status the script chose (§4.D's "table, status_code" convention), or
// ok=false with status 404 if the script returned nil (§4.C "no value"
// sentinel) or returned a table together with status 404.
func (b *Backend) Lookup(ctx context.Context, entrypoint, domain, keyName, keyValue string) (value any, status int, ok bool, err error) {
	result, status, err := b.host.Call(ctx, entrypoint, &script.Request{
		Domain:   domain,
		KeyName:  keyName,
		KeyValue: keyValue,
	})
	if err != nil {
		return nil, 0, false, err
	}
	if status == 404 || result == nil {
		return nil, 404, false, nil
	}
	return result, status, true, nil
}
