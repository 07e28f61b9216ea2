package script

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/avhost/internal/scheduler"
	"github.com/roach88/avhost/internal/testutil"
)

func newTestHost(t *testing.T, opts Options) (*Host, *testutil.ManualClock, *bytes.Buffer) {
	t.Helper()

	clk := testutil.NewManualClock(10)
	out := &bytes.Buffer{}
	opts.Clock = clk
	opts.Stdout = out

	h, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h, clk, out
}

func TestNew_RequiresClock(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestHost_ArgTable(t *testing.T) {
	h, _, out := newTestHost(t, Options{Args: []string{"main.lua", "alpha", "beta"}})

	require.NoError(t, h.DoString(`print(arg[0], arg[1], arg[2], #arg)`, "args"))
	assert.Equal(t, "main.lua\talpha\tbeta\t2\n", out.String())
}

func TestHost_PackagePath(t *testing.T) {
	app := t.TempDir()
	work := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(app, "av", "gfx"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(app, "av", "util.lua"), []byte(`return { name = "util" }`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(app, "av", "gfx", "init.lua"), []byte(`return { name = "gfx" }`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(work, "local.lua"), []byte(`return { name = "local" }`), 0644))

	h, _, out := newTestHost(t, Options{AppDir: app, WorkDir: work})

	require.NoError(t, h.DoString(`
		print(require("util").name)
		print(require("gfx").name)
		print(require("local").name)
	`, "paths"))
	assert.Equal(t, "util\ngfx\nlocal\n", out.String())
}

func TestHost_TimeServices(t *testing.T) {
	h, clk, out := newTestHost(t, Options{})

	require.NoError(t, h.DoString(`
		local av = require("av")
		local t0 = av.now()
		av.sleep(0.25)
		print(av.now() - t0)
	`, "time"))
	assert.Equal(t, "0.25\n", out.String())
	assert.Equal(t, 1, clk.Sleeps())
}

func TestHost_QuitSetsFlag(t *testing.T) {
	h, _, _ := newTestHost(t, Options{})
	assert.False(t, h.Quit().IsSet())

	require.NoError(t, h.DoString(`av.quit()`, "quit"))
	assert.True(t, h.Quit().IsSet())

	shared := &scheduler.QuitFlag{}
	h.Bind(nil, shared)
	require.NoError(t, h.DoString(`av.quit()`, "quit"))
	assert.True(t, shared.IsSet())
}

func TestHost_SyntaxError(t *testing.T) {
	h, _, _ := newTestHost(t, Options{})

	err := h.DoString(`this is not lua`, "broken.lua")
	require.Error(t, err)

	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "broken.lua", se.Chunk)
}

func TestHost_RuntimeErrorHasTraceback(t *testing.T) {
	h, _, _ := newTestHost(t, Options{})

	err := h.DoString(`
		local function inner() error("exploded") end
		inner()
	`, "runtime.lua")

	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "exploded")
	assert.Contains(t, se.Detail(), "exploded")
}

func TestHost_DoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.lua")
	require.NoError(t, os.WriteFile(path, []byte(`print("hello from file")`), 0644))

	h, _, out := newTestHost(t, Options{})
	require.NoError(t, h.DoFile(path))
	assert.Equal(t, "hello from file\n", out.String())

	err := h.DoFile(filepath.Join(dir, "missing.lua"))
	var se *ScriptError
	require.ErrorAs(t, err, &se)
}

func TestHost_SoundFile(t *testing.T) {
	h, _, out := newTestHost(t, Options{})
	path := filepath.Join(t.TempDir(), "out.wav")

	h.L.SetGlobal("OUT", luaString(path))
	require.NoError(t, h.DoString(`
		local f = av.soundfile(OUT, { samplerate = 8000, channels = 2 })
		local buf = {}
		for i = 1, 200 do buf[i] = math.sin(i / 10) end
		f:write(buf)
		f:write(0.5, -0.5)
		print(f:frames())
		f:close()
	`, "sound"))
	assert.Equal(t, "101\n", out.String())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	dec := wav.NewDecoder(file)
	require.True(t, dec.IsValidFile())
	assert.Equal(t, uint32(8000), dec.SampleRate)
	assert.Equal(t, uint16(2), dec.NumChans)
}

func TestHost_SoundFileBadFormat(t *testing.T) {
	h, _, _ := newTestHost(t, Options{})
	h.L.SetGlobal("OUT", luaString(filepath.Join(t.TempDir(), "bad.wav")))

	err := h.DoString(`av.soundfile(OUT, { bits = 13 })`, "sound")
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "bit depth")
}

func TestHost_CloseFinalisesOpenSoundFiles(t *testing.T) {
	clk := testutil.NewManualClock(0)
	h, err := New(Options{Clock: clk, Stdout: &bytes.Buffer{}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "leak.wav")
	h.L.SetGlobal("OUT", luaString(path))
	require.NoError(t, h.DoString(`local f = av.soundfile(OUT); f:write(0.1, 0.2, 0.3)`, "leak"))
	require.NoError(t, h.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	dec := wav.NewDecoder(file)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Len(t, buf.Data, 3)
}

func TestResolveMain(t *testing.T) {
	cwd := t.TempDir()

	main, dir, err := ResolveMain(nil, cwd)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "main.lua"), main)
	assert.Equal(t, cwd, dir)

	main, dir, err = ResolveMain([]string{filepath.Join("demos", "bounce.lua")}, cwd)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "demos", "bounce.lua"), main)
	assert.Equal(t, filepath.Join(cwd, "demos"), dir)

	abs := filepath.Join(cwd, "x", "y.lua")
	main, _, err = ResolveMain([]string{abs}, "/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, abs, main)
}
