/*
Package template rewrites message templates written in the flow editor into
the variable syntax understood by the rule engine.

# Overview

Flow authors reference message fields with mustache placeholders such as
{{payload.temperature}}. The rule engine expects ${temperature} and needs to
know which event attributes the rule must project. Resolve does both in one
pass:

	res := template.Resolve("Temp {{payload.temperature}} at {{payload.room}}")
	// res.Resolved:  "Temp ${temperature} at ${room}"
	// res.Variables: ["temperature", "room"]

Only the last path segment names the variable. A variable referenced several
times appears once in Variables, at the position it was first seen.

# Structured Values

Mutator nodes may store objects (for example a map of attributes to update).
ResolveValue encodes them as JSON, rewrites the placeholders and decodes the
result, so the structure survives with every string resolved:

	v, res, err := template.ResolveValue(map[string]any{"t": "{{payload.t}}"})
	// v: map[string]any{"t": "${t}"}

ResolveText is the same but returns the resolved JSON text instead.

# Malformed Templates

Processing stops at the first unbalanced marker pair and the remainder is
returned as-is. Text without markers resolves to itself with no variables.

# Thread Safety

Resolver holds no mutable state and is safe for concurrent use.
*/
package template
