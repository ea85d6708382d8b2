// Package kernel links a session to its execution kernel.
//
// The link batches ready notifications into a single frame per flush
// window and routes inbound kernel traffic onto the session event
// loop, so the value registry is only ever touched from one goroutine.
package kernel
