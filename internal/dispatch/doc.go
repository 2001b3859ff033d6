// Package dispatch implements the alert egress of a Safe-Walk session.
//
// A Sink receives AlertRecords by value. Sinks never retry on behalf of the
// session; a sink that needs delivery guarantees provides them itself (the
// MQTT sink publishes with QoS 1, the journal writes durably).
package dispatch
