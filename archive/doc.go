// Package archive implements a streaming BSON archive driven by a generic
// traversal protocol.
//
// An Encoder receives "start container", "name the next element", "write a
// scalar" and "finish container" events and produces one BSON document per
// root container, written to the sink as soon as the container is finished.
// Containers are only materialized when their first child is written, so that
// empty objects and arrays are still emitted as a single open/close pair.
//
// A Decoder parses a concatenation of BSON documents up front and answers the
// same events. Named fields can be requested in any order; array elements are
// consumed sequentially. Elements written without a name are keyed
// "value0", "value1", ... by the encoder and looked up the same way by the decoder.
//
// Neither type is safe for concurrent use. Errors are sticky: once an
// operation fails, every subsequent call returns the same error.
package archive
