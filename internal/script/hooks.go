package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/avhost/internal/scheduler"
)

// Names of the global Lua functions called by the scheduler.
const (
	HookUpdate = "update"
	HookDraw   = "draw"
	HookIdle   = "idle"
)

// Hooks returns scheduler hooks that call the script's global update, draw
// and idle functions. Functions are looked up on every call, so a script may
// define or replace them at any time.
func (h *Host) Hooks() scheduler.Hooks {
	return luaHooks{h: h}
}

// HasHooks reports whether the script defines any of the hook functions.
func (h *Host) HasHooks() bool {
	for _, name := range []string{HookUpdate, HookDraw, HookIdle} {
		if _, ok := h.L.GetGlobal(name).(*lua.LFunction); ok {
			return true
		}
	}
	return false
}

type luaHooks struct {
	h *Host
}

func (k luaHooks) Update() error { return k.h.callGlobal(HookUpdate) }
func (k luaHooks) Draw() error   { return k.h.callGlobal(HookDraw) }
func (k luaHooks) Idle() error   { return k.h.callGlobal(HookIdle) }

func (h *Host) callGlobal(name string) error {
	fn, ok := h.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil
	}
	err := h.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	return wrapLuaError(name, err)
}
