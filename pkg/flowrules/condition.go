package flowrules

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoNegatedForm marks a sibling rule an otherwise branch could not negate.
// The branch is still produced, but it is under-constrained.
var ErrNoNegatedForm = errors.New("operator has no negated form")

// Comparison is a scalar test on an event attribute.
type Comparison struct {
	Property string   `json:"property"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// String renders the comparison as a broker query term, e.g. "temp > 30".
func (c Comparison) String() string {
	sym, _ := c.Operator.Symbol()
	return c.Property + " " + sym + " " + c.Value
}

// Spatial is a geo-query test on the entity's location.
type Spatial struct {
	Relation SpatialRelation `json:"georel"`
	Geometry string          `json:"geometry"`
	Coords   string          `json:"coords"`
}

// Condition is either a Comparison or a Spatial test.
type Condition struct {
	Comparison *Comparison `json:"comparison,omitempty"`
	Spatial    *Spatial    `json:"spatial,omitempty"`
}

// Expression returns the broker expression keys contributed by c.
func (c Condition) Expression() map[string]string {
	switch {
	case c.Comparison != nil:
		return map[string]string{"q": c.Comparison.String()}
	case c.Spatial != nil:
		return map[string]string{
			"georel":   string(c.Spatial.Relation),
			"geometry": c.Spatial.Geometry,
			"coords":   c.Spatial.Coords,
		}
	}
	return nil
}

func (c Condition) clone() Condition {
	var out Condition
	if c.Comparison != nil {
		cmp := *c.Comparison
		out.Comparison = &cmp
	}
	if c.Spatial != nil {
		sp := *c.Spatial
		out.Spatial = &sp
	}
	return out
}

// AddCondition adds a condition to slot, dispatching on op: comparison
// operators take a string value; spatial relations take []GeoPoint and
// a shape mode.
func (d *Draft) AddCondition(slot Slot, property, op string, value any, mode string) error {
	if o := Operator(op); o.Comparable() {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: comparison value must be text, got %T", ErrInvalidParameter, value)
		}
		return d.AddComparison(slot, property, o, s)
	}
	if rel := SpatialRelation(op); rel.Valid() {
		var points []GeoPoint
		if value != nil {
			p, ok := value.([]GeoPoint)
			if !ok {
				return fmt.Errorf("%w: spatial value must be points, got %T", ErrInvalidParameter, value)
			}
			points = p
		}
		return d.AddSpatial(slot, rel, mode, points)
	}
	return fmt.Errorf("%w: %q", ErrInvalidOperator, op)
}

// AddComparison adds "<property> <op> <value>" to slot and registers the
// property, with its message prefix stripped, as a variable and a watched
// attribute.
func (d *Draft) AddComparison(slot Slot, property string, op Operator, value string) error {
	if !op.Comparable() {
		return fmt.Errorf("%w: %q", ErrInvalidOperator, op)
	}
	name := stripQualifier(property)
	if name == "" {
		return fmt.Errorf("%w: empty property", ErrInvalidParameter)
	}

	d.addVariable(name)
	d.addAttribute(name)
	d.appendCondition(slot, Condition{Comparison: &Comparison{
		Property: name,
		Operator: op,
		Value:    value,
	}})
	return nil
}

// AddSpatial adds a geo-query built from a closed polyline to slot.
// Coordinates render as "lat,lon;" per vertex followed by the first vertex
// again, which closes the polygon.
func (d *Draft) AddSpatial(slot Slot, rel SpatialRelation, mode string, points []GeoPoint) error {
	if !rel.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOperator, rel)
	}
	if len(points) == 0 || mode == "" {
		return ErrEmptyGeofenceNode
	}
	if mode != GeofenceModePolyline {
		return fmt.Errorf("%w: %q", ErrInvalidGeofenceMode, mode)
	}

	var b strings.Builder
	for _, p := range points {
		b.WriteString(p.Latitude)
		b.WriteString(",")
		b.WriteString(p.Longitude)
		b.WriteString(";")
	}
	b.WriteString(points[0].Latitude)
	b.WriteString(",")
	b.WriteString(points[0].Longitude)

	d.appendCondition(slot, Condition{Spatial: &Spatial{
		Relation: rel,
		Geometry: GeometryPolygon,
		Coords:   b.String(),
	}})
	return nil
}

// NegationReport lists sibling rules an otherwise branch could not negate.
type NegationReport struct {
	Skipped []SkippedRule
}

// SkippedRule is a sibling rule left out of an otherwise branch.
type SkippedRule struct {
	Index int
	Op    Operator
	Err   error
}

// UnderConstrained reports whether some sibling could not be negated.
func (r NegationReport) UnderConstrained() bool {
	for _, s := range r.Skipped {
		if s.Op != OpOtherwise {
			return true
		}
	}
	return false
}

// AddNegatedConditions adds, as fixed conditions, the negation of every
// rule of a switch node, so the draft matches when no sibling does.
//
// eq/neq, lt/gte and lte/gt negate into each other; between negates into
// "< lo" and ">= hi". Contains and otherwise have no negated form and are
// reported instead, as are malformed siblings (unknown operator, between
// without an upper bound): the otherwise branch is kept without them.
func (d *Draft) AddNegatedConditions(n *SwitchNode) (NegationReport, error) {
	var report NegationReport
	for i, rule := range n.Rules {
		switch {
		case rule.Op == OpBetween:
			if rule.Value2 == "" {
				report.Skipped = append(report.Skipped, SkippedRule{
					Index: i,
					Op:    rule.Op,
					Err:   fmt.Errorf("%w: between without upper bound", ErrInvalidParameter),
				})
				continue
			}
			if err := d.AddComparison(SlotFixed, n.Property, OpLess, rule.Value); err != nil {
				return report, &ConditionError{NodeID: n.ID(), Op: string(OpLess), Err: err}
			}
			if err := d.AddComparison(SlotFixed, n.Property, OpGreaterOrEqual, rule.Value2); err != nil {
				return report, &ConditionError{NodeID: n.ID(), Op: string(OpGreaterOrEqual), Err: err}
			}
		case rule.Op == OpContains || rule.Op == OpOtherwise:
			report.Skipped = append(report.Skipped, SkippedRule{Index: i, Op: rule.Op, Err: ErrNoNegatedForm})
		default:
			neg, ok := rule.Op.Negated()
			if !ok {
				report.Skipped = append(report.Skipped, SkippedRule{Index: i, Op: rule.Op, Err: ErrInvalidOperator})
				continue
			}
			if err := d.AddComparison(SlotFixed, n.Property, neg, rule.Value); err != nil {
				return report, &ConditionError{NodeID: n.ID(), Op: string(neg), Err: err}
			}
		}
	}
	return report, nil
}

// appendCondition keeps Fixed and First/Second exclusive. A fixed condition
// on a correlated draft must hold for both events, so it joins both slots;
// committing to the correlated shape moves existing fixed conditions the
// same way.
func (d *Draft) appendCondition(slot Slot, c Condition) {
	p := &d.Pattern
	switch slot {
	case SlotFirst, SlotSecond:
		if p.Shape != ShapeCorrelated {
			p.Shape = ShapeCorrelated
			p.First = append(p.First, cloneConditions(p.Fixed)...)
			p.Second = append(p.Second, cloneConditions(p.Fixed)...)
			p.Fixed = nil
		}
		if slot == SlotFirst {
			p.First = append(p.First, c)
		} else {
			p.Second = append(p.Second, c)
		}
	default:
		if p.Shape == ShapeCorrelated {
			p.First = append(p.First, c.clone())
			p.Second = append(p.Second, c.clone())
			return
		}
		p.Shape = ShapeFixed
		p.Fixed = append(p.Fixed, c)
	}
}

// stripQualifier drops the leading message qualifier of a property path:
// "payload.output.a" becomes "output.a".
func stripQualifier(property string) string {
	if i := strings.Index(property, "."); i >= 0 {
		return property[i+1:]
	}
	return property
}
