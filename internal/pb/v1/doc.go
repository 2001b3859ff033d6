// Package pb defines the safewalk.v1.WalkService gRPC contract.
//
// Messages are protobuf well-known types (google.protobuf.Struct and
// google.protobuf.Empty), so the service descriptor and client stubs are
// maintained by hand instead of being generated. The conversion helpers in
// this package are the single place that knows the field names:
//
//	service WalkService {
//	  rpc StartSession(google.protobuf.Empty) returns (google.protobuf.Struct);     // snapshot
//	  rpc StopSession(google.protobuf.Empty) returns (google.protobuf.Struct);      // snapshot
//	  rpc AcknowledgeSafe(google.protobuf.Empty) returns (google.protobuf.Struct);  // snapshot
//	  rpc TriggerSOS(google.protobuf.Struct) returns (google.protobuf.Struct);      // {address} -> alert
//	  rpc GetSnapshot(google.protobuf.Empty) returns (google.protobuf.Struct);      // snapshot
//	  rpc WatchSnapshots(google.protobuf.Empty) returns (stream google.protobuf.Struct);
//	  rpc StreamMotion(stream google.protobuf.Struct) returns (google.protobuf.Struct); // {accepted}
//	  rpc ReportPosition(google.protobuf.Struct) returns (google.protobuf.Empty);
//	}
package pb
