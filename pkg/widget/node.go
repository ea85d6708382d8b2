package widget

// Node is a reference to one mounted rendered instance of a widget.
// Equality is reference identity: two Nodes are the same member only if
// they are the literal same mounted instance. Implementations must
// therefore be pointer types.
type Node interface {
	// ApplyUpdate pushes a new synchronized value into this instance's
	// visual representation. Called for every member except the one that
	// initiated the broadcast.
	ApplyUpdate(value any)

	// ReceiveMessage delivers an out-of-band message from the kernel,
	// unrelated to the value-sync protocol (progress updates and the like).
	ReceiveMessage(message any, buffers [][]byte)
}

// Resolver supplies the initial value for a freshly mounted node whose
// identity has no registry entry yet. Implementations typically consult the
// node's declared default or an ambient override from resumed-session state.
type Resolver func(node Node) any
