// Package host binds one rendered widget instance to the synchronization
// registry for the duration of its life on screen.
//
// A Controller is the lifecycle owner for a single mounted node: it
// registers the node with the registry on attach, feeds local input
// notifications through a trailing-edge debounce, and runs the remount
// protocol when the owning cell re-executes and the node's subtree is torn
// down and rebuilt in place. The remount protocol is what keeps the value
// a user typed from being lost - or rebroadcast - while the subtree is
// rebuilt.
package host
