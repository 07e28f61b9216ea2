package script

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ScriptError is a Lua error with the chunk or hook it came from and the
// Lua traceback.
type ScriptError struct {
	Chunk     string
	Message   string
	Traceback string
	Cause     error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s", e.Chunk, e.Message)
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// Detail returns the message followed by the traceback, for diagnostics.
func (e *ScriptError) Detail() string {
	if e.Traceback == "" {
		return e.Error()
	}
	return e.Error() + "\n" + e.Traceback
}

// wrapLuaError converts a gopher-lua error into a ScriptError.
func wrapLuaError(chunk string, err error) error {
	if err == nil {
		return nil
	}
	se := &ScriptError{Chunk: chunk, Message: err.Error(), Cause: err}
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		if apiErr.Object != nil {
			se.Message = apiErr.Object.String()
		}
		se.Traceback = apiErr.StackTrace
		if apiErr.Cause != nil {
			se.Cause = apiErr.Cause
		}
	}
	return se
}
