// Package walk contains the core domain types of a Safe-Walk session.
//
// It defines the motion and position samples fed into a session, the alert
// record handed to dispatch sinks, the session state enum and the Snapshot
// observers receive. Clone helpers avoid leaking internal references.
package walk
