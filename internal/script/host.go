package script

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/avhost/internal/audio"
	"github.com/roach88/avhost/internal/clock"
	"github.com/roach88/avhost/internal/scheduler"
)

// Options configures a Host.
type Options struct {
	// Args become the global arg table; Args[0] is the program name.
	Args []string

	// AppDir is where bundled modules live; <AppDir>/av/?.lua and
	// <AppDir>/av/?/init.lua are searched first.
	AppDir string

	// WorkDir is the main script's directory, searched after AppDir.
	WorkDir string

	// Clock backs av.now and av.sleep. Required.
	Clock clock.Clock

	// Stdout receives print output. Defaults to os.Stdout.
	Stdout io.Writer

	Logger *slog.Logger
}

// Host is an embedded Lua state plus the native services exposed to it.
//
// Thread-safety: a Host is not safe for concurrent use; the Lua state must be
// driven from the goroutine that runs the scheduler.
type Host struct {
	L      *lua.LState
	clock  clock.Clock
	stdout io.Writer
	logger *slog.Logger

	sched *scheduler.Scheduler
	quit  *scheduler.QuitFlag

	sounds map[*audio.SoundFile]struct{}
}

// New creates a Host with the standard libraries, the arg table, the module
// search path and the av module installed.
func New(opts Options) (*Host, error) {
	if opts.Clock == nil {
		return nil, fmt.Errorf("script: nil clock")
	}

	h := &Host{
		L:      lua.NewState(),
		clock:  opts.Clock,
		stdout: opts.Stdout,
		logger: opts.Logger,
		quit:   &scheduler.QuitFlag{},
		sounds: make(map[*audio.SoundFile]struct{}),
	}
	if h.stdout == nil {
		h.stdout = os.Stdout
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	h.setArgs(opts.Args)
	if err := h.setPackagePath(opts.AppDir, opts.WorkDir); err != nil {
		h.L.Close()
		return nil, err
	}
	h.L.SetGlobal("print", h.L.NewFunction(h.luaPrint))
	h.openAV()

	return h, nil
}

// Bind connects the av module to a scheduler and the quit flag the run loop
// watches. A nil quit keeps the host's own flag.
func (h *Host) Bind(s *scheduler.Scheduler, quit *scheduler.QuitFlag) {
	h.sched = s
	if quit != nil {
		h.quit = quit
	}
}

// Quit returns the flag set by av.quit.
func (h *Host) Quit() *scheduler.QuitFlag {
	return h.quit
}

// DoFile runs a script file.
func (h *Host) DoFile(path string) error {
	h.logger.Debug("running script", "path", path)
	return wrapLuaError(path, h.L.DoFile(path))
}

// DoString runs a chunk of Lua source under the given chunk name.
func (h *Host) DoString(code, name string) error {
	fn, err := h.L.Load(strings.NewReader(code), name)
	if err != nil {
		return wrapLuaError(name, err)
	}
	h.L.Push(fn)
	return wrapLuaError(name, h.L.PCall(0, lua.MultRet, nil))
}

// Close closes open sound files and the Lua state.
func (h *Host) Close() error {
	var firstErr error
	for sf := range h.sounds {
		if err := sf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(h.sounds, sf)
	}
	h.L.Close()
	return firstErr
}

func (h *Host) setArgs(args []string) {
	tbl := h.L.NewTable()
	for i, a := range args {
		tbl.RawSetInt(i, lua.LString(a))
	}
	h.L.SetGlobal("arg", tbl)
}

func (h *Host) setPackagePath(appDir, workDir string) error {
	pkg, ok := h.L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return fmt.Errorf("script: package library not loaded")
	}

	var prefix []string
	if appDir != "" {
		prefix = append(prefix,
			filepath.Join(appDir, "av", "?.lua"),
			filepath.Join(appDir, "av", "?", "init.lua"),
		)
	}
	if workDir != "" {
		prefix = append(prefix, filepath.Join(workDir, "?.lua"))
	}
	if len(prefix) == 0 {
		return nil
	}

	current := lua.LVAsString(h.L.GetField(pkg, "path"))
	h.L.SetField(pkg, "path", lua.LString(strings.Join(prefix, ";")+";"+current))
	return nil
}

func (h *Host) luaPrint(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, top)
	for i := 1; i <= top; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	fmt.Fprintln(h.stdout, strings.Join(parts, "\t"))
	return 0
}

// ResolveMain picks the main script: the first argument if given, otherwise
// main.lua in cwd. It returns the absolute script path and its directory.
func ResolveMain(args []string, cwd string) (mainFile, workDir string, err error) {
	name := filepath.Join(cwd, "main.lua")
	if len(args) > 0 && args[0] != "" {
		name = args[0]
		if !filepath.IsAbs(name) {
			name = filepath.Join(cwd, name)
		}
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", "", fmt.Errorf("resolve main script: %w", err)
	}
	return abs, filepath.Dir(abs), nil
}
