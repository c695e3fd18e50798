// Package dynamics provides the block-based processors of the monitoring
// path.
//
// Included processors:
//   - EnvelopeFollower: block RMS detector with attack/release smoothing
//     and a clamped dB output.
//   - Gate: noise gate whose gain ramps linearly between blocks with
//     separate attack and release slopes and optional hysteresis.
//   - Volume: fixed linear output scale with clamping to [-1, 1].
//
// All processors are mono and single-threaded. They allocate only in their
// constructors and setters, so Measure, Apply and Process are safe to call
// from a real-time audio callback. Parameter changes should occur outside
// audio processing callbacks.
package dynamics
