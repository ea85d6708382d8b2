// Package widget implements the value synchronization registry for
// interactive notebook elements.
//
// A logical widget (a slider bound to one kernel variable, say) can be
// rendered any number of times across the notebook. Every rendered instance
// registers itself with the Registry under the widget's ObjectID; when one
// instance produces a new value, the Registry updates the shared entry,
// notifies every other instance, and signals the application boundary that
// a fresh value is ready to be sent to the execution kernel.
//
// The Registry is an explicitly-owned service, not package-global state.
// Each notebook session constructs its own instance so tests and concurrent
// sessions stay isolated. All mutating calls must come from a single
// event-loop goroutine; see the concurrency notes on Registry.
package widget
