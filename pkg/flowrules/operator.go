package flowrules

// Operator is a comparison operator tag as exported by the flow editor.
type Operator string

// Supported comparison operators.
const (
	OpEqual          Operator = "eq"
	OpNotEqual       Operator = "neq"
	OpLess           Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpGreater        Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpContains       Operator = "cont"
	OpBetween        Operator = "btwn"
	OpOtherwise      Operator = "else"
)

var operatorSymbols = map[Operator]string{
	OpEqual:          "==",
	OpNotEqual:       "!=",
	OpLess:           "<",
	OpLessOrEqual:    "<=",
	OpGreater:        ">",
	OpGreaterOrEqual: ">=",
	OpContains:       "~=",
}

var negatedOperators = map[Operator]Operator{
	OpEqual:          OpNotEqual,
	OpNotEqual:       OpEqual,
	OpLess:           OpGreaterOrEqual,
	OpGreaterOrEqual: OpLess,
	OpLessOrEqual:    OpGreater,
	OpGreater:        OpLessOrEqual,
}

// Symbol returns the broker query symbol for a comparison operator.
// Between and otherwise have no symbol of their own.
func (o Operator) Symbol() (string, bool) {
	s, ok := operatorSymbols[o]
	return s, ok
}

// Comparable reports whether o renders directly as a comparison.
func (o Operator) Comparable() bool {
	_, ok := operatorSymbols[o]
	return ok
}

// Negated returns the operator selecting exactly the complement of o.
// It is an involution over eq/neq, lt/gte and lte/gt.
func (o Operator) Negated() (Operator, bool) {
	n, ok := negatedOperators[o]
	return n, ok
}

// Known reports whether the editor operator is handled by the translator
// in some form, including between and otherwise.
func (o Operator) Known() bool {
	return o.Comparable() || o == OpBetween || o == OpOtherwise
}

// SpatialRelation is a broker geo-query relation.
type SpatialRelation string

// Supported spatial relations.
const (
	RelCoveredBy  SpatialRelation = "coveredBy"
	RelDisjoint   SpatialRelation = "disjoint"
	RelIntersects SpatialRelation = "intersects"
	RelEquals     SpatialRelation = "equals"
	RelNear       SpatialRelation = "near"
)

// Valid reports whether r is a supported relation.
func (r SpatialRelation) Valid() bool {
	switch r {
	case RelCoveredBy, RelDisjoint, RelIntersects, RelEquals, RelNear:
		return true
	}
	return false
}

// Geofence shape modes and geometries.
const (
	GeofenceModePolyline = "polyline"
	GeometryPolygon      = "polygon"
)
