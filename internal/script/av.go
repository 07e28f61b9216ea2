package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/avhost/internal/audio"
)

const soundFileType = "av.soundfile"

// openAV registers the av module for require and as a global.
func (h *Host) openAV() {
	mt := h.L.NewTypeMetatable(soundFileType)
	h.L.SetField(mt, "__index", h.L.SetFuncs(h.L.NewTable(), map[string]lua.LGFunction{
		"write":  h.soundWrite,
		"frames": h.soundFrames,
		"close":  h.soundClose,
	}))

	loader := func(L *lua.LState) int {
		L.Push(h.newAVTable(L))
		return 1
	}
	h.L.PreloadModule("av", loader)
	h.L.SetGlobal("av", h.newAVTable(h.L))
}

func (h *Host) newAVTable(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"now":       h.avNow,
		"sleep":     h.avSleep,
		"quit":      h.avQuit,
		"pending":   h.avPending,
		"updated":   h.avUpdated,
		"period":    h.avPeriod,
		"soundfile": h.avSoundFile,
	})
}

func (h *Host) avNow(L *lua.LState) int {
	L.Push(lua.LNumber(h.clock.Now()))
	return 1
}

func (h *Host) avSleep(L *lua.LState) int {
	h.clock.Sleep(float64(L.CheckNumber(1)))
	return 0
}

func (h *Host) avQuit(L *lua.LState) int {
	h.quit.Set()
	return 0
}

// avPending reports the scheduler's cached pending count. It does not
// recompute, so a script reading it inside a hook sees the value the
// scheduler acted on.
func (h *Host) avPending(L *lua.LState) int {
	var n int64
	if h.sched != nil {
		n = h.sched.PendingUpdates()
	}
	L.Push(lua.LNumber(n))
	return 1
}

func (h *Host) avUpdated(L *lua.LState) int {
	var n int64
	if h.sched != nil {
		n = h.sched.Updated()
	}
	L.Push(lua.LNumber(n))
	return 1
}

func (h *Host) avPeriod(L *lua.LState) int {
	if h.sched == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(h.sched.UpdatePeriod()))
	return 1
}

func (h *Host) avSoundFile(L *lua.LState) int {
	path := L.CheckString(1)
	var f audio.Format
	if opts := L.OptTable(2, nil); opts != nil {
		f.SampleRate = intField(L, opts, "samplerate")
		f.Channels = intField(L, opts, "channels")
		f.BitDepth = intField(L, opts, "bits")
	}

	sf, err := audio.Create(path, f)
	if err != nil {
		L.RaiseError("soundfile: %v", err)
		return 0
	}
	h.sounds[sf] = struct{}{}
	h.logger.Debug("sound file opened", "path", path, "samplerate", sf.Format().SampleRate)

	ud := L.NewUserData()
	ud.Value = sf
	L.SetMetatable(ud, L.GetTypeMetatable(soundFileType))
	L.Push(ud)
	return 1
}

func intField(L *lua.LState, tbl *lua.LTable, name string) int {
	switch v := L.GetField(tbl, name).(type) {
	case lua.LNumber:
		return int(v)
	case *lua.LNilType:
		return 0
	default:
		L.ArgError(2, name+" must be a number")
		return 0
	}
}

func checkSoundFile(L *lua.LState) *audio.SoundFile {
	ud := L.CheckUserData(1)
	if sf, ok := ud.Value.(*audio.SoundFile); ok {
		return sf
	}
	L.ArgError(1, "soundfile expected")
	return nil
}

// soundWrite accepts an array of numbers or any number of numeric arguments.
func (h *Host) soundWrite(L *lua.LState) int {
	sf := checkSoundFile(L)

	var samples []float32
	if tbl, ok := L.Get(2).(*lua.LTable); ok {
		n := tbl.Len()
		samples = make([]float32, 0, n)
		for i := 1; i <= n; i++ {
			num, ok := tbl.RawGetInt(i).(lua.LNumber)
			if !ok {
				L.ArgError(2, "samples must be numbers")
				return 0
			}
			samples = append(samples, float32(num))
		}
	} else {
		for i := 2; i <= L.GetTop(); i++ {
			samples = append(samples, float32(L.CheckNumber(i)))
		}
	}

	if err := sf.WriteFloat(samples); err != nil {
		L.RaiseError("soundfile: %v", err)
	}
	return 0
}

func (h *Host) soundFrames(L *lua.LState) int {
	sf := checkSoundFile(L)
	L.Push(lua.LNumber(sf.Frames()))
	return 1
}

func (h *Host) soundClose(L *lua.LState) int {
	sf := checkSoundFile(L)
	delete(h.sounds, sf)
	if err := sf.Close(); err != nil {
		L.RaiseError("soundfile: %v", err)
	}
	return 0
}
