// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper for WalkService with call
// timeouts and snapshot, alert and sample decoding.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
