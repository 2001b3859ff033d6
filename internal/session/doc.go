// Package session implements the Safe-Walk session controller.
//
// A Controller owns the session state machine:
//
//	not_started -> grace_period -> monitoring -> fall_suspected -> escalated -> monitoring
//
// Every mutation happens on the goroutine running Controller.Run. Commands,
// motion samples, position fixes, timer callbacks and dispatch results are
// all posted to an unbounded mailbox and applied there in order, so producers
// never block on a busy controller.
package session
