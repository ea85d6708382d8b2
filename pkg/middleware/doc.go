// Package middleware provides HTTP instrumentation shared by the
// inkwell server: Prometheus request metrics and OpenTelemetry traces.
// Both return standard func(http.Handler) http.Handler wrappers and
// compose with chi.
package middleware
