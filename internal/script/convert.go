package script

import (
	lua "github.com/yuin/gopher-lua"
)

// requestTable projects a Request into the Lua "request" table a script
// entry point receives as its argument.
func requestTable(L *lua.LState, req *Request) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("domain", lua.LString(req.Domain))
	t.RawSetString("username", lua.LString(req.Username))
	t.RawSetString("password", lua.LString(req.Password))
	t.RawSetString("keyname", lua.LString(req.KeyName))
	t.RawSetString("keyvalue", lua.LString(req.KeyValue))

	params := L.NewTable()
	for k, v := range req.Params {
		params.RawSetString(k, lua.LString(v))
	}
	t.RawSetString("params", params)

	return t
}

// goToLua converts a Go value tree (as produced by encoding/json or
// internal/record) into the matching Lua value.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, goToLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, goToLua(L, item))
		}
		return t
	default:
		return lua.LNil
	}
}

// luaToGo converts a Lua return value back into a plain Go value tree
// suitable for JSON encoding. A table with only sequential integer keys
// starting at 1 becomes a []any; any other table becomes a
// map[string]any.
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case *lua.LTable:
		return luaTableToGo(val)
	default:
		return nil
	}
}

func luaTableToGo(t *lua.LTable) any {
	length := t.Len()
	isArray := length > 0

	if isArray {
		for i := 1; i <= length; i++ {
			if t.RawGetInt(i) == lua.LNil {
				isArray = false
				break
			}
		}
	}
	if isArray {
		count := 0
		t.ForEach(func(_, _ lua.LValue) { count++ })
		isArray = count == length
	}

	if isArray {
		out := make([]any, length)
		for i := 1; i <= length; i++ {
			out[i-1] = luaToGo(t.RawGetInt(i))
		}
		return out
	}

	out := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		out[k.String()] = luaToGo(v)
	})
	return out
}
