// Package countdown implements the cancellable escalation countdown.
//
// A Timer runs at most one countdown at a time. It ticks once per interval,
// reports the remaining time and calls the expiry callback exactly once,
// unless the countdown was cancelled first.
package countdown
