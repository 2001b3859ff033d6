// Package journal persists dispatched alerts and the location trail.
//
// SQLiteRepository is the durable store: it keeps alerts and positions in a
// SQLite database whose schema is managed by embedded golang-migrate
// migrations. FileRepository is a lightweight spool that appends one
// protobuf-JSON alert per line.
package journal
