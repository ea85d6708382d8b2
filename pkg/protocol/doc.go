// Package protocol implements the binary wire protocol for widget value
// synchronization.
//
// Three links speak it: the browser client sends SetValue events to the
// server, the server sends ValueUpdate frames back to the other rendered
// instances of the same widget, and the server exchanges ReadyBatch and
// KernelMessage frames with the execution kernel. Values travel as opaque
// JSON; kernel messages may additionally carry raw auxiliary buffers,
// which is why the protocol is binary rather than JSON end to end.
//
// Every frame starts with a fixed 6-byte header (type, flags, 32-bit
// big-endian payload length) followed by a varint-encoded payload.
package protocol
