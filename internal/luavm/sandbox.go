// Package luavm creates the sandboxed Lua VMs that evaluate fontman's
// declarative files (the font catalog and the user config).
package luavm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/fontman/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Sandbox disables functions that could execute commands (os), touch the
// filesystem (io), load external code (require, dofile, loadfile, load,
// loadstring) or escape the sandbox (debug). string, table and math stay.
func Sandbox(L *lua.LState) {
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)

	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)

	L.SetGlobal("debug", lua.LNil)
}

// New creates a sandboxed VM. When info is non-nil the read-only platform
// table is injected before any user code runs. The caller must Close it.
func New(info *platform.Info) (*lua.LState, error) {
	L := lua.NewState()
	Sandbox(L)

	if info != nil {
		if err := platform.InjectPlatformTable(L, info); err != nil {
			L.Close()
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	return L, nil
}

// Run evaluates src in a fresh sandboxed VM bound to ctx and returns the
// named global, which must be a table. The VM is closed before returning,
// so callers must copy whatever they need out of the table inside fn.
func Run(ctx context.Context, info *platform.Info, name, src string, fn func(*lua.LTable) error) error {
	L, err := New(info)
	if err != nil {
		return err
	}
	defer L.Close()
	L.SetContext(ctx)

	if err := L.DoString(src); err != nil {
		return &ParseError{Message: "Lua syntax error", Detail: err.Error()}
	}

	value := L.GetGlobal(name)
	table, ok := value.(*lua.LTable)
	if !ok {
		return &ParseError{
			Message: fmt.Sprintf("missing or invalid '%s' table", name),
			Detail:  fmt.Sprintf("expected table, got %s", value.Type()),
		}
	}

	return fn(table)
}

// ParseError is a declarative-file error with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	detail := e.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", e.Message, detail)
}

// StringField returns t[key] when it is a string, or def.
func StringField(t *lua.LTable, key, def string) string {
	if v, ok := t.RawGetString(key).(lua.LString); ok {
		return string(v)
	}
	return def
}

// StringList collects the string values of an array-like table in index
// order. nil holes (from platform.when) are skipped; any other non-string
// value is reported with its index.
func StringList(t *lua.LTable) ([]string, error) {
	var out []string
	for i := 1; i <= t.MaxN(); i++ {
		switch v := t.RawGetInt(i).(type) {
		case lua.LString:
			out = append(out, string(v))
		default:
			if v == lua.LNil {
				continue
			}
			return nil, fmt.Errorf("entry %d: expected string, got %s", i, v.Type())
		}
	}
	return out, nil
}
