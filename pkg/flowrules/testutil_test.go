package flowrules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Node descriptor builders used across tests. Descriptors mirror what the
// flow editor exports, with every node on flow tab testFlowID.

const testFlowID = "6a666fff.bfb128"

func wires(ports ...[]string) [][]string {
	return ports
}

func to(ids ...string) []string {
	return append([]string{}, ids...)
}

func sourceDesc(id string, next ...string) map[string]any {
	return map[string]any{
		"id":           id,
		"type":         TypeDeviceSource,
		"z":            testFlowID,
		"_device_type": "virtual",
		"_device_id":   "input-device",
		"wires":        wires(to(next...)),
	}
}

func switchDesc(id, property string, rules []map[string]any, ports ...[]string) map[string]any {
	rs := make([]any, len(rules))
	for i, r := range rules {
		rs[i] = r
	}
	return map[string]any{
		"id":       id,
		"type":     TypeSwitch,
		"z":        testFlowID,
		"property": property,
		"rules":    rs,
		"wires":    wires(ports...),
	}
}

func switchRule(op, v string) map[string]any {
	return map[string]any{"t": op, "v": v, "vt": "num"}
}

func betweenRule(lo, hi string) map[string]any {
	return map[string]any{"t": "btwn", "v": lo, "vt": "num", "v2": hi, "v2t": "num"}
}

func edgeDesc(id, property string, rules []map[string]any, ports ...[]string) map[string]any {
	d := switchDesc(id, property, rules, ports...)
	d["type"] = TypeEdgeDetection
	return d
}

func geofenceDesc(id, filter, mode string, points [][2]string, next ...string) map[string]any {
	ps := make([]any, len(points))
	for i, p := range points {
		ps[i] = map[string]any{"latitude": p[0], "longitude": p[1]}
	}
	return map[string]any{
		"id":     id,
		"type":   TypeGeofence,
		"z":      testFlowID,
		"filter": filter,
		"mode":   mode,
		"points": ps,
		"wires":  wires(to(next...)),
	}
}

func templateDesc(id, field, tmpl string, next ...string) map[string]any {
	return map[string]any{
		"id":       id,
		"type":     TypeTemplate,
		"z":        testFlowID,
		"field":    field,
		"template": tmpl,
		"wires":    wires(to(next...)),
	}
}

func changeDesc(id string, rules []map[string]any, next ...string) map[string]any {
	rs := make([]any, len(rules))
	for i, r := range rules {
		rs[i] = r
	}
	return map[string]any{
		"id":    id,
		"type":  TypeChange,
		"z":     testFlowID,
		"rules": rs,
		"wires": wires(to(next...)),
	}
}

func updateSinkDesc(id, attrs string) map[string]any {
	return map[string]any{
		"id":           id,
		"type":         TypeDeviceSink,
		"z":            testFlowID,
		"_device_id":   "output-device-id",
		"_device_type": "virtual",
		"attrs":        attrs,
		"wires":        wires(),
	}
}

func emailSinkDesc(id, body string) map[string]any {
	return map[string]any{
		"id":      id,
		"type":    TypeEmail,
		"z":       testFlowID,
		"to":      "ops@example.com",
		"from":    "flows@example.com",
		"subject": "alert",
		"server":  "smtp.example.com",
		"body":    body,
		"wires":   wires(),
	}
}

func historySinkDesc(id string) map[string]any {
	return map[string]any{"id": id, "type": TypeHistory, "z": testFlowID, "wires": wires()}
}

// mustGraph builds a graph or fails the test.
func mustGraph(t *testing.T, descriptors ...map[string]any) *FlowGraph {
	t.Helper()
	g, err := BuildGraph(descriptors)
	require.NoError(t, err)
	return g
}

// extractFrom walks the graph from the source with the given id.
func extractFrom(t *testing.T, g *FlowGraph, sourceID string) ([]*Draft, []Issue) {
	t.Helper()
	n, ok := g.Node(sourceID)
	require.True(t, ok, "node %s not found", sourceID)
	w := newWalker(g)
	drafts, err := w.extract(n, NewDraft("", ""))
	require.NoError(t, err)
	return drafts, w.issues
}

// queries returns the q term of each comparison in conds.
func queries(conds []Condition) []string {
	out := []string{}
	for _, c := range conds {
		if c.Comparison != nil {
			out = append(out, c.Comparison.String())
		}
	}
	return out
}
