// Package sink implements the logical playback endpoint of an audio
// server: it aggregates an arbitrary number of concurrent sink inputs,
// mixes their PCM output under software volume and mute control, and
// hands the result to a driver while exposing the mix as a monitor
// source.
//
// A Sink has two views of its own state. The control side (this
// package's exported methods) is mutated from a single control
// thread. The IO side (threadInfo) is mutated exclusively by the IO
// thread that pulls rendered audio. The two communicate by posting
// messages on an asynchronous queue; they are never locked against
// each other.
package sink
