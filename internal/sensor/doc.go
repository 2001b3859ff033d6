// Package sensor delivers accelerometer samples to a session.
//
// Samples arrive as text lines, either "x,y,z" or "unix_ms,x,y,z", with
// components in m/s². The same line protocol is used for serial devices
// and for replay files.
package sensor
