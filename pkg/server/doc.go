// Package server hosts per-client sessions over WebSocket.
//
// Each Session owns a widget.Registry and runs a single event-loop
// goroutine that applies every registry mutation. Frames decoded from
// the client connection and work handed to Dispatch are both funneled
// through that loop, so the registry never needs its own locking.
package server
