// Package engine runs the live monitoring pipeline.
//
// A Processor turns captured blocks into playback blocks: envelope
// follower, noise gate, then volume. It is driven from the audio
// subsystem's real-time callback and never allocates, locks, logs or
// blocks there. Everything the callback reports (levels, gate state,
// underruns, overruns) goes through atomics that the Engine's monitor
// goroutine reads periodically.
//
// Live setting changes are published as a new immutable config.Runtime
// swapped in atomically; the callback loads the current snapshot once per
// block.
package engine
