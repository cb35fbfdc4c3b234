package flowrules

import (
	"errors"
	"fmt"
)

// Issue is a non-fatal problem found while walking a branch. The branch it
// belongs to is either dropped or, for ErrNoNegatedForm, kept
// under-constrained.
type Issue struct {
	NodeID string
	Err    error
}

// String renders the issue for logs and CLI output. Errors that already
// name the node are not prefixed again.
func (i Issue) String() string {
	var ce *ConditionError
	if errors.As(i.Err, &ce) && ce.NodeID == i.NodeID {
		return i.Err.Error()
	}
	return fmt.Sprintf("node %s: %v", i.NodeID, i.Err)
}

// ExtractDrafts walks the graph from node and returns one completed draft
// per path that reaches a sink. d is consumed: callers must not reuse it.
//
// Branch-local failures (bad operators, empty geofences, unsupported node
// types) drop the affected branch only. A cycle along the current path, or
// a wire to a missing node, aborts the walk.
func ExtractDrafts(g *FlowGraph, node FlowNode, d *Draft) ([]*Draft, error) {
	w := newWalker(g)
	return w.extract(node, d)
}

// walker carries per-walk state: the current path for cycle detection and
// the issues collected so far.
type walker struct {
	graph  *FlowGraph
	path   []string
	onPath map[string]bool
	issues []Issue
}

func newWalker(g *FlowGraph) *walker {
	return &walker{
		graph:  g,
		onPath: make(map[string]bool),
	}
}

func (w *walker) report(nodeID string, err error) {
	w.issues = append(w.issues, Issue{NodeID: nodeID, Err: err})
}

func (w *walker) extract(n FlowNode, d *Draft) ([]*Draft, error) {
	id := n.ID()
	if w.onPath[id] {
		path := make([]string, 0, len(w.path)+1)
		path = append(path, w.path...)
		return nil, &CycleError{Path: append(path, id)}
	}
	w.onPath[id] = true
	w.path = append(w.path, id)
	defer func() {
		delete(w.onPath, id)
		w.path = w.path[:len(w.path)-1]
	}()

	switch node := n.(type) {
	case *SourceNode:
		return w.source(node, d)
	case *SwitchNode:
		return w.switchNode(node, d)
	case *EdgeNode:
		return w.edge(node, d)
	case *GeoFenceNode:
		return w.geofence(node, d)
	case *MutatorNode:
		return w.mutator(node, d)
	case *SinkNode:
		d.Action = actionFrom(node.Action)
		return []*Draft{d}, nil
	default:
		w.report(id, fmt.Errorf("%w: %q", ErrUnsupportedNodeType, n.Type()))
		return nil, nil
	}
}

// follow continues the walk through every wire of one output port.
// A port without wires ends the branch with no draft; a port with several
// wires gives each target its own clone.
func (w *walker) follow(n FlowNode, port int, d *Draft) ([]*Draft, error) {
	ports := n.Ports()
	if port >= len(ports) || len(ports[port]) == 0 {
		return nil, nil
	}
	targets := ports[port]

	var drafts []*Draft
	for _, to := range targets {
		next, ok := w.graph.Node(to)
		if !ok {
			return nil, fmt.Errorf("%w: wire %s[%d] -> '%s'", ErrNodeNotFound, n.ID(), port, to)
		}
		branch := d
		if len(targets) > 1 {
			branch = d.Clone()
		}
		result, err := w.extract(next, branch)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, result...)
	}
	return drafts, nil
}

func (w *walker) source(n *SourceNode, d *Draft) ([]*Draft, error) {
	branch := d.Clone()
	branch.InputDevice.Type = n.DeviceType
	branch.InputDevice.ID = n.DeviceID
	if branch.FlowID == "" {
		branch.FlowID = n.FlowID()
	}
	return w.follow(n, 0, branch)
}

func (w *walker) switchNode(n *SwitchNode, d *Draft) ([]*Draft, error) {
	var drafts []*Draft
	for i, rule := range n.Rules {
		if !rule.Op.Known() {
			w.report(n.ID(), &ConditionError{NodeID: n.ID(), Op: string(rule.Op), Err: ErrInvalidOperator})
			continue
		}

		branch := d.Clone()
		if err := w.applySwitchRule(n, rule, branch); err != nil {
			w.report(n.ID(), err)
			continue
		}

		result, err := w.follow(n, i, branch)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, result...)
	}
	return drafts, nil
}

func (w *walker) applySwitchRule(n *SwitchNode, rule SwitchRule, d *Draft) error {
	switch rule.Op {
	case OpBetween:
		if rule.Value2 == "" {
			return &ConditionError{NodeID: n.ID(), Op: string(rule.Op), Err: fmt.Errorf("%w: between without upper bound", ErrInvalidParameter)}
		}
		if err := d.AddComparison(SlotFixed, n.Property, OpEqual, rule.Value+".."+rule.Value2); err != nil {
			return &ConditionError{NodeID: n.ID(), Op: string(rule.Op), Err: err}
		}
	case OpOtherwise:
		report, err := d.AddNegatedConditions(n)
		if err != nil {
			return err
		}
		// Malformed siblings were already reported on their own branch.
		if report.UnderConstrained() {
			for _, skipped := range report.Skipped {
				if skipped.Op == OpOtherwise || !errors.Is(skipped.Err, ErrNoNegatedForm) {
					continue
				}
				w.report(n.ID(), &ConditionError{NodeID: n.ID(), Op: string(skipped.Op), Err: skipped.Err})
			}
		}
		if name := stripQualifier(n.Property); name != "" {
			d.addAttribute(name)
		}
	default:
		if err := d.AddComparison(SlotFixed, n.Property, rule.Op, rule.Value); err != nil {
			return &ConditionError{NodeID: n.ID(), Op: string(rule.Op), Err: err}
		}
	}
	return nil
}

func (w *walker) edge(n *EdgeNode, d *Draft) ([]*Draft, error) {
	var drafts []*Draft
	for i, rule := range n.Rules {
		var before, after Operator
		switch rule.Edge {
		case EdgeUp:
			before, after = OpLess, OpGreaterOrEqual
		case EdgeDown:
			before, after = OpGreaterOrEqual, OpLess
		default:
			w.report(n.ID(), &ConditionError{NodeID: n.ID(), Op: string(rule.Edge), Err: ErrInvalidOperator})
			continue
		}

		branch := d.Clone()
		if err := branch.AddComparison(SlotFirst, n.Property, before, rule.Value); err != nil {
			w.report(n.ID(), &ConditionError{NodeID: n.ID(), Op: string(before), Err: err})
			continue
		}
		if err := branch.AddComparison(SlotSecond, n.Property, after, rule.Value); err != nil {
			w.report(n.ID(), &ConditionError{NodeID: n.ID(), Op: string(after), Err: err})
			continue
		}

		result, err := w.follow(n, i, branch)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, result...)
	}
	return drafts, nil
}

func (w *walker) geofence(n *GeoFenceNode, d *Draft) ([]*Draft, error) {
	var err error
	switch n.Filter {
	case FilterInside:
		err = d.AddSpatial(SlotFixed, RelCoveredBy, n.Mode, n.Points)
	case FilterOutside:
		err = d.AddSpatial(SlotFixed, RelDisjoint, n.Mode, n.Points)
	case FilterEnters:
		if err = d.AddSpatial(SlotFirst, RelDisjoint, n.Mode, n.Points); err == nil {
			err = d.AddSpatial(SlotSecond, RelCoveredBy, n.Mode, n.Points)
		}
	case FilterExits:
		if err = d.AddSpatial(SlotFirst, RelCoveredBy, n.Mode, n.Points); err == nil {
			err = d.AddSpatial(SlotSecond, RelDisjoint, n.Mode, n.Points)
		}
	default:
		err = fmt.Errorf("%w: geofence filter %q", ErrInvalidParameter, n.Filter)
	}
	if err != nil {
		w.report(n.ID(), &ConditionError{NodeID: n.ID(), Op: string(n.Filter), Err: err})
		return nil, nil
	}
	return w.follow(n, 0, d)
}

func (w *walker) mutator(n *MutatorNode, d *Draft) ([]*Draft, error) {
	for _, a := range n.Assignments {
		if len(a.Path) == 0 {
			w.report(n.ID(), fmt.Errorf("%w: assignment without target path", ErrInvalidParameter))
			continue
		}
		d.setInternal(a.Path, a.Value)
	}
	return w.follow(n, 0, d)
}
