// Package script embeds a pool of Lua interpreters (via
// github.com/yuin/gopher-lua) that back "type: lua" maps. The auth endpoint
// does not call into scripts; a script can itself check a password through
// webnis.map_auth. Each interpreter is not reentrant, so every invocation takes one
// state exclusively from the pool for its duration (§5). The "webnis"
// library table injected into every state re-enters the already-running
// request's dispatch path through the ScriptHost interface, never by
// re-parsing HTTP.
package script

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Host owns a fixed-size pool of loaded Lua states, one script file shared
// across all of them.
type Host struct {
	states chan *lua.LState
}

// New loads scriptPath into size independent interpreter states, each with
// the webnis library table registered against delegate. size is typically
// GOMAXPROCS; it bounds how many script invocations can run concurrently
// before callers start blocking in Call.
func New(scriptPath string, size int, delegate ScriptHost) (*Host, error) {
	if size <= 0 {
		size = 1
	}

	h := &Host{states: make(chan *lua.LState, size)}

	for i := 0; i < size; i++ {
		L := lua.NewState()
		registerWebnisLibrary(L, delegate)
		if err := L.DoFile(scriptPath); err != nil {
			h.Close()
			return nil, fmt.Errorf("script: load %s: %w", scriptPath, err)
		}
		h.states <- L
	}

	return h, nil
}

// Close releases every interpreter state. Not safe to call concurrently
// with Call.
func (h *Host) Close() {
	close(h.states)
	for L := range h.states {
		L.Close()
	}
}

func (h *Host) acquire(ctx context.Context) (*lua.LState, error) {
	select {
	case L := <-h.states:
		return L, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Host) release(L *lua.LState) {
	h.states <- L
}

// Call invokes the global function named entrypoint with req projected as
// its sole "request" table argument, per the script return conventions:
// a single table result means 200; table+status means that status; nil
// means 404; a Lua-level error means 500 (the returned error).
func (h *Host) Call(ctx context.Context, entrypoint string, req *Request) (result any, status int, err error) {
	L, err := h.acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer h.release(L)

	fn := L.GetGlobal(entrypoint)
	if fn == lua.LNil {
		return nil, 0, fmt.Errorf("script: entrypoint %q not defined", entrypoint)
	}

	reqTbl := requestTable(L, req)

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    2,
		Protect: true,
	}, reqTbl); err != nil {
		return nil, 500, fmt.Errorf("script: %s: %w", entrypoint, err)
	}

	statusVal := L.Get(-1)
	resultVal := L.Get(-2)
	L.Pop(2)

	if resultVal == lua.LNil {
		return nil, 404, nil
	}

	code := 200
	if n, ok := statusVal.(lua.LNumber); ok {
		code = int(n)
	}

	return luaToGo(resultVal), code, nil
}

func registerWebnisLibrary(L *lua.LState, delegate ScriptHost) {
	webnisTable := L.NewTable()
	L.SetGlobal("webnis", webnisTable)

	L.SetField(webnisTable, "map_lookup", L.NewFunction(func(L *lua.LState) int {
		req := requestFromTable(L.CheckTable(1))
		mapName := L.CheckString(2)
		keyName := L.CheckString(3)
		keyValue := L.CheckString(4)

		value, ok, err := delegate.MapLookup(req, mapName, keyName, keyValue)
		if err != nil {
			L.RaiseError("map_lookup: %v", err)
			return 0
		}
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(goToLua(L, value))
		return 1
	}))

	L.SetField(webnisTable, "map_auth", L.NewFunction(func(L *lua.LState) int {
		req := requestFromTable(L.CheckTable(1))
		mapName := L.CheckString(2)
		keyName := L.CheckString(3)
		keyValue := L.CheckString(4)
		password := L.CheckString(5)

		ok, err := delegate.MapAuth(req, mapName, keyName, keyValue, password)
		if err != nil {
			L.RaiseError("map_auth: %v", err)
			return 0
		}
		L.Push(lua.LBool(ok))
		return 1
	}))

	L.SetField(webnisTable, "dprint", L.NewFunction(func(L *lua.LState) int {
		delegate.Debugf("%s", L.CheckString(1))
		return 0
	}))
}

func requestFromTable(t *lua.LTable) *Request {
	req := &Request{Params: make(map[string]string)}
	req.Domain = t.RawGetString("domain").String()
	req.Username = t.RawGetString("username").String()
	req.Password = t.RawGetString("password").String()
	req.KeyName = t.RawGetString("keyname").String()
	req.KeyValue = t.RawGetString("keyvalue").String()

	if paramsLV := t.RawGetString("params"); paramsLV.Type() == lua.LTTable {
		paramsLV.(*lua.LTable).ForEach(func(k, v lua.LValue) {
			req.Params[k.String()] = v.String()
		})
	}

	return req
}
