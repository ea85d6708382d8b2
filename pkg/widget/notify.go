package widget

// Notification is a directed message emitted by the Registry. All three
// kinds flow through a single ambient Notifier rather than per-pair
// channels; the production sink is the session event loop, which routes
// each kind to its consumer.
type Notification interface {
	notification()
}

// Update tells one member node that the synchronized value changed and its
// display must follow. It is never delivered to the broadcast initiator;
// this is the mechanism that breaks the input-event feedback loop.
type Update struct {
	ObjectID ObjectID
	Value    any
	Target   Node
}

// Ready tells the application boundary that the identity has a fresh value
// available. It carries the identity only; consumers that need the value
// call Registry.LookupValue.
type Ready struct {
	ObjectID ObjectID
}

// Incoming delivers an out-of-band kernel message to one member node.
type Incoming struct {
	ObjectID ObjectID
	Target   Node
	Message  any
	Buffers  [][]byte
}

func (Update) notification()   {}
func (Ready) notification()    {}
func (Incoming) notification() {}

// Notifier is the ambient channel notifications flow through.
type Notifier interface {
	Publish(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notification)

// Publish calls f(n).
func (f NotifierFunc) Publish(n Notification) { f(n) }

// DirectNotifier routes Update and Incoming notifications straight to
// their target nodes and drops Ready. Useful for tests and for hosts that
// run without an execution kernel.
type DirectNotifier struct{}

// Publish delivers n to its target, if any.
func (DirectNotifier) Publish(n Notification) {
	switch v := n.(type) {
	case Update:
		v.Target.ApplyUpdate(v.Value)
	case Incoming:
		v.Target.ReceiveMessage(v.Message, v.Buffers)
	}
}
