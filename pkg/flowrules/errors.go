package flowrules

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for condition building. These are local to a branch:
// traversal drops the affected branch and keeps going.
var (
	// ErrInvalidOperator indicates an operator or spatial relation outside the supported set.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInvalidParameter indicates a missing or malformed value in a node or call.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidGeofenceMode indicates a geofence shape mode other than polyline.
	ErrInvalidGeofenceMode = errors.New("invalid geofence mode")

	// ErrEmptyGeofenceNode indicates a geofence node without points or mode.
	ErrEmptyGeofenceNode = errors.New("empty georeference node")

	// ErrUnsupportedNodeType indicates a node type the translator does not know.
	// It is reported, never fatal.
	ErrUnsupportedNodeType = errors.New("unsupported node type")
)

// Sentinel errors for graph building and traversal. These abort a translation.
var (
	// ErrCyclicGraph indicates a node was reached twice along one path.
	ErrCyclicGraph = errors.New("cyclic flow graph")

	// ErrNodeNotFound indicates a wire references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode indicates two descriptors share an id.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrMissingNodeID indicates a descriptor without an id.
	ErrMissingNodeID = errors.New("node id missing")
)

// Sentinel errors for identifier assignment and rule generation.
var (
	// ErrNotReady indicates Finalize was called before all identifiers were assigned.
	ErrNotReady = errors.New("draft not ready")

	// ErrAlreadyEmitted indicates the draft's rule was already generated.
	ErrAlreadyEmitted = errors.New("rule already emitted")

	// ErrSlotMismatch indicates an identifier for a slot the draft's pattern does not have.
	ErrSlotMismatch = errors.New("slot does not match pattern shape")

	// ErrNoRuleAction indicates a draft whose action produces no rule (history sinks).
	ErrNoRuleAction = errors.New("action produces no rule")
)

// ConditionError wraps a condition building failure with node context.
type ConditionError struct {
	// NodeID is the decision or filter node being translated.
	NodeID string
	// Op is the operator or relation that was requested.
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ConditionError) Error() string {
	return fmt.Sprintf("node %s: condition %q: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConditionError) Unwrap() error {
	return e.Err
}

// CycleError reports the path that revisits a node.
type CycleError struct {
	// Path lists the node ids from the source to the repeated node, inclusive.
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCyclicGraph, strings.Join(e.Path, " -> "))
}

// Unwrap returns ErrCyclicGraph for errors.Is support.
func (e *CycleError) Unwrap() error {
	return ErrCyclicGraph
}

// NodeError wraps an error with node context.
type NodeError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// Op is the operation that failed (e.g., "decode", "finalize").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}
