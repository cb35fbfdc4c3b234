package flowrules

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/flowrules/pkg/flowrules/config"
)

// Type tags used by the flow editor.
const (
	TypeDeviceSource  = "device out"
	TypeDeviceSink    = "device in"
	TypeSwitch        = "switch"
	TypeEdgeDetection = "edgedetection"
	TypeGeofence      = "geofence"
	TypeChange        = "change"
	TypeTemplate      = "template"
	TypeHTTPRequest   = "http request out"
	TypeHTTPRequestV2 = "http request"
	TypeHTTPPost      = "http post"
	TypeEmail         = "e-mail"
	TypeHistory       = "history"
)

// FlowNode is a decoded node of a flow graph.
//
// The set of implementations is closed: SourceNode, SwitchNode, EdgeNode,
// GeoFenceNode, MutatorNode, SinkNode and UnsupportedNode.
type FlowNode interface {
	// ID returns the node's unique identifier.
	ID() string
	// Type returns the editor type tag.
	Type() string
	// FlowID returns the identifier of the flow tab the node belongs to.
	FlowID() string
	// Ports returns the target node ids of every output port, in port order.
	Ports() [][]string

	flowNode()
}

type nodeBase struct {
	id    string
	kind  string
	flow  string
	wires [][]string
}

func (n *nodeBase) ID() string        { return n.id }
func (n *nodeBase) Type() string      { return n.kind }
func (n *nodeBase) FlowID() string    { return n.flow }
func (n *nodeBase) Ports() [][]string { return n.wires }
func (n *nodeBase) flowNode()         {}

// SourceNode is an input device: the entity whose updates start every branch.
type SourceNode struct {
	nodeBase
	DeviceType string
	DeviceID   string
}

// SwitchRule is one branch of a switch node. Value2 is only used by between.
type SwitchRule struct {
	Op         Operator
	Value      string
	ValueType  string
	Value2     string
	Value2Type string
}

// SwitchNode routes each rule to the output port with the same index.
type SwitchNode struct {
	nodeBase
	Property string
	Rules    []SwitchRule
}

// Edge is a threshold crossing direction.
type Edge string

// Edge directions.
const (
	EdgeUp   Edge = "edge-up"
	EdgeDown Edge = "edge-down"
)

// EdgeRule is one branch of an edge detection node.
type EdgeRule struct {
	Edge      Edge
	Value     string
	ValueType string
}

// EdgeNode detects a property crossing a threshold between two consecutive events.
type EdgeNode struct {
	nodeBase
	Property string
	Rules    []EdgeRule
}

// GeofenceFilter selects which position transitions a geofence passes.
type GeofenceFilter string

// Geofence filters.
const (
	FilterInside  GeofenceFilter = "inside"
	FilterOutside GeofenceFilter = "outside"
	FilterEnters  GeofenceFilter = "enters"
	FilterExits   GeofenceFilter = "exits"
)

// GeoPoint is a polyline vertex. Coordinates keep their textual form.
type GeoPoint struct {
	Latitude  string
	Longitude string
}

// GeoFenceNode filters events by position relative to an area.
type GeoFenceNode struct {
	nodeBase
	Filter GeofenceFilter
	Mode   string
	Points []GeoPoint
}

// Assignment stores Value at Path inside a draft's internal variables.
// Templated values hold an unresolved {{...}} reference to a message field.
type Assignment struct {
	Path      []string
	Value     any
	Templated bool
}

// MutatorNode records assignments consumed later by sink actions.
// Both change and template nodes decode to a MutatorNode.
type MutatorNode struct {
	nodeBase
	Assignments []Assignment
}

// SinkNode ends a branch with an action.
type SinkNode struct {
	nodeBase
	Action SinkAction
}

// UnsupportedNode is any node whose type the translator does not handle.
type UnsupportedNode struct {
	nodeBase
}

// ActionType identifies the kind of action a draft performs.
type ActionType string

// Action types. History produces no rule.
const (
	ActionNone    ActionType = ""
	ActionUpdate  ActionType = "update"
	ActionPost    ActionType = "post"
	ActionEmail   ActionType = "email"
	ActionHistory ActionType = "history"
)

// SinkAction is the terminal action described by a sink node.
//
// The set of implementations is closed: UpdateSink, PostSink, EmailSink
// and HistorySink.
type SinkAction interface {
	ActionType() ActionType
	sinkAction()
}

// UpdateSink writes attributes back to a device entity.
type UpdateSink struct {
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`
	// AttributesVar names the internal variable holding the attributes to write.
	AttributesVar string `json:"attributes_var"`
}

// PostSink sends an HTTP request.
type PostSink struct {
	// URL is the target. Empty means "taken from the url internal variable".
	URL string `json:"url"`
	// Method is the HTTP method. "use" means "taken from the method internal variable".
	Method string `json:"method"`
	// BodyVar names the internal variable holding the request body.
	BodyVar string `json:"body_var"`
}

// EmailSink sends an e-mail.
type EmailSink struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Server  string `json:"server"`
	// BodyVar names the internal variable holding the message body.
	BodyVar string `json:"body_var"`
}

// HistorySink stores raw notifications in the history store.
type HistorySink struct{}

func (UpdateSink) ActionType() ActionType  { return ActionUpdate }
func (PostSink) ActionType() ActionType    { return ActionPost }
func (EmailSink) ActionType() ActionType   { return ActionEmail }
func (HistorySink) ActionType() ActionType { return ActionHistory }

func (UpdateSink) sinkAction()  {}
func (PostSink) sinkAction()    {}
func (EmailSink) sinkAction()   {}
func (HistorySink) sinkAction() {}

// methodFromVariable is the editor's marker for "method comes from the message".
const methodFromVariable = "use"

// DecodeNode decodes one editor node descriptor.
// Unknown type tags decode to *UnsupportedNode; only a missing id is an error.
func DecodeNode(raw map[string]any) (FlowNode, error) {
	c := config.New(raw)

	base := nodeBase{
		id:    c.Text("id", ""),
		kind:  c.String("type", ""),
		flow:  c.String("z", ""),
		wires: decodeWires(c.Any("wires", nil)),
	}
	if base.id == "" {
		return nil, fmt.Errorf("%w: type %q", ErrMissingNodeID, base.kind)
	}

	switch base.kind {
	case TypeDeviceSource:
		return &SourceNode{
			nodeBase:   base,
			DeviceType: c.Text("_device_type", ""),
			DeviceID:   c.Text("_device_id", ""),
		}, nil

	case TypeSwitch:
		n := &SwitchNode{nodeBase: base, Property: c.String("property", "")}
		for _, r := range c.Sections("rules") {
			n.Rules = append(n.Rules, SwitchRule{
				Op:         Operator(r.String("t", "")),
				Value:      r.Text("v", ""),
				ValueType:  r.String("vt", ""),
				Value2:     r.Text("v2", ""),
				Value2Type: r.String("v2t", ""),
			})
		}
		return n, nil

	case TypeEdgeDetection:
		n := &EdgeNode{nodeBase: base, Property: c.String("property", "")}
		for _, r := range c.Sections("rules") {
			n.Rules = append(n.Rules, EdgeRule{
				Edge:      Edge(r.String("t", "")),
				Value:     r.Text("v", ""),
				ValueType: r.String("vt", ""),
			})
		}
		return n, nil

	case TypeGeofence:
		n := &GeoFenceNode{
			nodeBase: base,
			Filter:   GeofenceFilter(c.String("filter", "")),
			Mode:     c.String("mode", ""),
		}
		for _, p := range c.Sections("points") {
			n.Points = append(n.Points, GeoPoint{
				Latitude:  p.Text("latitude", ""),
				Longitude: p.Text("longitude", ""),
			})
		}
		return n, nil

	case TypeChange:
		n := &MutatorNode{nodeBase: base}
		for _, r := range c.Sections("rules") {
			a := Assignment{Path: splitPath(r.String("p", ""))}
			if r.String("tot", "") == "msg" {
				a.Value = "{{" + r.Text("to", "") + "}}"
				a.Templated = true
			} else {
				a.Value = r.Any("to", "")
			}
			n.Assignments = append(n.Assignments, a)
		}
		return n, nil

	case TypeTemplate:
		return &MutatorNode{
			nodeBase: base,
			Assignments: []Assignment{{
				Path:      splitPath(c.String("field", "payload")),
				Value:     c.String("template", ""),
				Templated: true,
			}},
		}, nil

	case TypeDeviceSink:
		return &SinkNode{nodeBase: base, Action: UpdateSink{
			DeviceID:      c.Text("_device_id", ""),
			DeviceType:    c.Text("_device_type", ""),
			AttributesVar: c.String("attrs", ""),
		}}, nil

	case TypeHTTPRequest, TypeHTTPRequestV2, TypeHTTPPost:
		return &SinkNode{nodeBase: base, Action: PostSink{
			URL:     c.String("url", ""),
			Method:  c.String("method", ""),
			BodyVar: c.String("body", ""),
		}}, nil

	case TypeEmail:
		return &SinkNode{nodeBase: base, Action: EmailSink{
			To:      c.String("to", ""),
			From:    c.String("from", ""),
			Subject: c.String("subject", ""),
			Server:  c.String("server", ""),
			BodyVar: c.String("body", ""),
		}}, nil

	case TypeHistory:
		return &SinkNode{nodeBase: base, Action: HistorySink{}}, nil

	default:
		return &UnsupportedNode{nodeBase: base}, nil
	}
}

// decodeWires converts the editor's [][]string wires, which arrive as
// nested []any after JSON decoding. Non-string targets are dropped.
func decodeWires(v any) [][]string {
	switch w := v.(type) {
	case [][]string:
		return w
	case []any:
		ports := make([][]string, 0, len(w))
		for _, p := range w {
			targets := []string{}
			switch list := p.(type) {
			case []string:
				targets = append(targets, list...)
			case []any:
				for _, t := range list {
					if s, ok := t.(string); ok {
						targets = append(targets, s)
					}
				}
			}
			ports = append(ports, targets)
		}
		return ports
	}
	return nil
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}
