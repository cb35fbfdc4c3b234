package flowrules

import (
	"fmt"

	"github.com/google/uuid"
)

// Slot names a subscription position in a rule pattern.
type Slot int

// Pattern slots. A fixed pattern uses SlotFixed only; a correlated pattern
// uses SlotFirst followed by SlotSecond.
const (
	SlotFixed Slot = iota
	SlotFirst
	SlotSecond
)

// String returns the slot name.
func (s Slot) String() string {
	switch s {
	case SlotFixed:
		return "fixed"
	case SlotFirst:
		return "first"
	case SlotSecond:
		return "second"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Slot) MarshalText() ([]byte, error) {
	switch s {
	case SlotFixed, SlotFirst, SlotSecond:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("%w: slot %d", ErrInvalidParameter, int(s))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Slot) UnmarshalText(text []byte) error {
	parsed, err := ParseSlot(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSlot parses a slot name. The numeric forms 0, 1 and 2 are accepted
// as aliases for fixed, first and second.
func ParseSlot(s string) (Slot, error) {
	switch s {
	case "fixed", "0":
		return SlotFixed, nil
	case "first", "1":
		return SlotFirst, nil
	case "second", "2":
		return SlotSecond, nil
	}
	return 0, fmt.Errorf("%w: slot %q", ErrInvalidParameter, s)
}

// Shape is the pattern form a draft has committed to.
type Shape string

// Pattern shapes. A draft without conditions stays ShapeUnset and is
// treated as fixed.
const (
	ShapeUnset      Shape = ""
	ShapeFixed      Shape = "fixed"
	ShapeCorrelated Shape = "correlated"
)

// Pattern holds the conditions and subscription identifiers of a draft.
// Fixed and First/Second are never populated at the same time.
type Pattern struct {
	Shape    Shape       `json:"shape,omitempty"`
	Fixed    []Condition `json:"fixed,omitempty"`
	First    []Condition `json:"first,omitempty"`
	Second   []Condition `json:"second,omitempty"`
	FixedID  string      `json:"fixed_id,omitempty"`
	FirstID  string      `json:"first_id,omitempty"`
	SecondID string      `json:"second_id,omitempty"`
}

// Correlated reports whether the pattern spans two consecutive events.
func (p Pattern) Correlated() bool {
	return p.Shape == ShapeCorrelated
}

// Slots returns the slots the pattern needs identifiers for.
func (p Pattern) Slots() []Slot {
	if p.Correlated() {
		return []Slot{SlotFirst, SlotSecond}
	}
	return []Slot{SlotFixed}
}

// Conditions returns the conditions of one slot.
func (p Pattern) Conditions(s Slot) []Condition {
	switch s {
	case SlotFirst:
		return p.First
	case SlotSecond:
		return p.Second
	default:
		return p.Fixed
	}
}

// Identifier returns the subscription identifier assigned to a slot.
func (p Pattern) Identifier(s Slot) string {
	switch s {
	case SlotFirst:
		return p.FirstID
	case SlotSecond:
		return p.SecondID
	default:
		return p.FixedID
	}
}

// InputDevice is the entity whose updates trigger the rule.
type InputDevice struct {
	Type       string   `json:"type"`
	ID         string   `json:"id"`
	Attributes []string `json:"attributes"`
}

// Action is the serializable form of a draft's sink action.
type Action struct {
	Type   ActionType  `json:"type"`
	Update *UpdateSink `json:"update,omitempty"`
	Post   *PostSink   `json:"post,omitempty"`
	Email  *EmailSink  `json:"email,omitempty"`
}

// actionFrom converts a sink action into its serializable form.
func actionFrom(a SinkAction) Action {
	switch v := a.(type) {
	case UpdateSink:
		return Action{Type: ActionUpdate, Update: &v}
	case PostSink:
		return Action{Type: ActionPost, Post: &v}
	case EmailSink:
		return Action{Type: ActionEmail, Email: &v}
	case HistorySink:
		return Action{Type: ActionHistory}
	}
	return Action{}
}

// Draft accumulates everything one branch of a flow contributes to a rule:
// the triggering device, the pattern conditions, message variables, values
// recorded by mutator nodes and the terminal action.
//
// Drafts are created per source, cloned wherever a branch forks and
// completed when the branch reaches a sink.
type Draft struct {
	ID      string `json:"id"`
	FlowID  string `json:"flow_id"`
	Service string `json:"service,omitempty"`
	Name    string `json:"name"`

	// Variables are the event attributes the rule projects, in first-seen order.
	Variables []string `json:"variables"`

	// InternalVariables holds values recorded by mutator nodes, keyed by path.
	InternalVariables map[string]any `json:"internal_variables"`

	Pattern     Pattern     `json:"pattern"`
	InputDevice InputDevice `json:"input_device"`
	Action      Action      `json:"action"`

	// Emitted is set once the rule has been generated.
	Emitted bool `json:"emitted"`
}

// NewDraft creates an empty draft for a flow.
func NewDraft(flowID, service string) *Draft {
	return &Draft{
		ID:                uuid.NewString(),
		FlowID:            flowID,
		Service:           service,
		Variables:         []string{},
		InternalVariables: make(map[string]any),
		InputDevice:       InputDevice{Attributes: []string{}},
	}
}

// Clone returns a deep copy of d with a fresh ID.
// Changes to the clone never affect d, and vice versa.
func (d *Draft) Clone() *Draft {
	c := &Draft{
		ID:                uuid.NewString(),
		FlowID:            d.FlowID,
		Service:           d.Service,
		Name:              d.Name,
		Variables:         cloneStrings(d.Variables),
		InternalVariables: cloneMap(d.InternalVariables),
		Pattern: Pattern{
			Shape:    d.Pattern.Shape,
			Fixed:    cloneConditions(d.Pattern.Fixed),
			First:    cloneConditions(d.Pattern.First),
			Second:   cloneConditions(d.Pattern.Second),
			FixedID:  d.Pattern.FixedID,
			FirstID:  d.Pattern.FirstID,
			SecondID: d.Pattern.SecondID,
		},
		InputDevice: InputDevice{
			Type:       d.InputDevice.Type,
			ID:         d.InputDevice.ID,
			Attributes: cloneStrings(d.InputDevice.Attributes),
		},
		Action:  Action{Type: d.Action.Type},
		Emitted: d.Emitted,
	}
	if d.Action.Update != nil {
		u := *d.Action.Update
		c.Action.Update = &u
	}
	if d.Action.Post != nil {
		p := *d.Action.Post
		c.Action.Post = &p
	}
	if d.Action.Email != nil {
		e := *d.Action.Email
		c.Action.Email = &e
	}
	return c
}

// addVariable registers an event attribute the rule must project.
func (d *Draft) addVariable(name string) {
	d.Variables = appendUnique(d.Variables, name)
}

// addAttribute registers an attribute the subscription must watch.
func (d *Draft) addAttribute(name string) {
	d.InputDevice.Attributes = appendUnique(d.InputDevice.Attributes, name)
}

// setInternal stores value at path, creating intermediate objects as needed.
// A non-object found along the path is replaced.
func (d *Draft) setInternal(path []string, value any) {
	if len(path) == 0 {
		return
	}
	if d.InternalVariables == nil {
		d.InternalVariables = make(map[string]any)
	}
	m := d.InternalVariables
	for _, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[key] = next
		}
		m = next
	}
	m[path[len(path)-1]] = cloneValue(value)
}

// internal returns the internal variable at a dotted path.
func (d *Draft) internal(path string) (any, bool) {
	var cur any = d.InternalVariables
	for _, key := range splitPath(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, path != ""
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneConditions(cs []Condition) []Condition {
	if cs == nil {
		return nil
	}
	out := make([]Condition, len(cs))
	for i, c := range cs {
		out[i] = c.clone()
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies the JSON-like values stored in internal variables.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return cloneStrings(val)
	default:
		return val
	}
}
