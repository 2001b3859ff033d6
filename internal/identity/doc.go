// Package identity answers "is a user session active" for the alert path.
//
// LocalUser reports the operating system user of the device. Static is a
// fixed answer used by tests and headless deployments.
package identity
