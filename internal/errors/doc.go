// Package errors provides coded, self-describing errors for the
// inkwell CLI. Every code carries a message, an optional detail and a
// fix suggestion, so failures at startup read like diagnostics rather
// than stack traces.
package errors
