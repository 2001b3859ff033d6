// Package client implements the safewalk CLI commands.
//
// Each command connects to the session server, performs one action and
// logs the result. Watch follows the snapshot stream and prints state
// changes and the escalation countdown.
package client
