// Package walk implements the gRPC transport for the Safe-Walk session.
//
// It adapts session snapshots, alerts and samples to protobuf messages and
// exposes a server that calls into a provided session service.
package walk
