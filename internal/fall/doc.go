// Package fall turns a triaxial accelerometer stream into fall events.
//
// A Processor keeps an exponential accumulator of magnitude changes and
// signals when either the accumulator or the raw magnitude crosses its
// threshold. It emits at most one event per arming period.
package fall
