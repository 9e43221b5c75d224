// SPDX-License-Identifier: MIT
package dagraph

import "errors"

// Sentinel errors for dagraph construction and mutation. Every exported
// method returns one of these (optionally wrapped with fmt.Errorf("%w"))
// instead of panicking on a caller-triggered condition.
var (
	// ErrUnknownParent is returned when a node references a parent id that
	// does not (yet) exist in the graph.
	ErrUnknownParent = errors.New("dagraph: unknown parent node")

	// ErrUnknownNode is returned when an operation references a node id
	// that does not exist in the graph.
	ErrUnknownNode = errors.New("dagraph: unknown node")

	// ErrInvalidKind is returned when a node is constructed with
	// Kind == KindNone or an unrecognized kind.
	ErrInvalidKind = errors.New("dagraph: invalid node kind")

	// ErrEdgeCapExceeded is returned when a node would need more parent or
	// child edges than the configured cap allows.
	ErrEdgeCapExceeded = errors.New("dagraph: edge cap exceeded")
)
