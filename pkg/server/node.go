package server

import (
	"github.com/inkwell-dev/inkwell/pkg/widget"
)

// clientNode is the session-side stand-in for one rendered widget
// instance in the browser. Registry notifications addressed to it are
// forwarded to the client as frames.
type clientNode struct {
	session  *Session
	handle   string
	objectID widget.ObjectID

	// declared is the initial value carried by the widget's mount
	// declaration. The registry resolver reads it when this node is
	// the first member of a fresh entry.
	declared any

	// rebuild re-renders the widget's subtree on the client. Nil when
	// the mounting layer has no re-render hook.
	rebuild func() error
}

var _ widget.Node = (*clientNode)(nil)

func (n *clientNode) ApplyUpdate(value any) {
	n.session.sendValueUpdate(n.handle, n.objectID, value)
}

func (n *clientNode) ReceiveMessage(message any, buffers [][]byte) {
	n.session.sendKernelMessage(n.objectID, message, buffers)
}

// Rebuild satisfies host.Child.
func (n *clientNode) Rebuild() error {
	if n.rebuild == nil {
		return nil
	}
	return n.rebuild()
}

// resolveDeclared is the registry resolver: a fresh entry adopts the
// joining node's declared initial value.
func resolveDeclared(node widget.Node) any {
	if cn, ok := node.(*clientNode); ok {
		return cn.declared
	}
	return nil
}
