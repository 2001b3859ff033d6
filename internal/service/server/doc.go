// Package server runs the Safe-Walk session controller behind the gRPC API.
//
// It loads the YAML settings, opens the configured alert destinations
// (SQLite journal, JSON-lines spool, MQTT broker), attaches the serial
// accelerometer when one is configured and serves WalkService until the
// context is canceled.
package server
