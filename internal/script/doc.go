// Package script embeds the Lua runtime that hosts user programs.
//
// A Host owns one Lua state. It exposes the native services as the "av"
// module (also installed as the global av):
//
//	av.now()                    seconds on the host clock
//	av.sleep(seconds)           block the host thread
//	av.quit()                   ask the run loop to stop after this iteration
//	av.pending()                ticks due at the last scheduler check
//	av.updated()                ticks consumed so far
//	av.period()                 seconds per tick
//	av.soundfile(path [, fmt])  open a WAV file; fmt = {samplerate, channels, bits}
//	  f:write({samples...})     append interleaved samples in [-1, 1]
//	  f:frames()                frames written
//	  f:close()
//
// Scripts take part in the frame loop by defining global functions update,
// draw and idle. Hooks returns a scheduler.Hooks that calls them; an
// undefined function is skipped.
package script
