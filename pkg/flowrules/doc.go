/*
Package flowrules translates event flows drawn in a visual flow editor into
context broker subscriptions and complex-event-processing rules.

# Overview

A flow is a set of nodes joined by wires. Device sources emit entity
updates, decision and filter nodes (switch, edge detection, geofence) narrow
them, mutator nodes (change, template) record values, and sinks (device
update, HTTP request, e-mail, history) act on them.

Every path from a source to a sink becomes a Draft: the device to watch, the
conditions an update must satisfy and the action to take. A draft needs one
subscription (a fixed pattern) or two (a correlated pattern, where the
second event must follow the first). Once the broker has assigned an
identifier to each subscription the draft can be finalized into a rule.

# Basic Usage

	flow, err := flowrules.ParseFlow(data)
	if err != nil {
	    log.Fatal(err)
	}

	t := flowrules.NewTranslator(flowrules.WithLogger(slog.Default()))
	result, err := t.Translate(ctx, flow)
	if err != nil {
	    log.Fatal(err)
	}

	for _, req := range result.Subscriptions {
	    id := createSubscription(req.Service, req.Subscription) // broker call
	    rule, err := t.Assign(ctx, req.Draft, req.Slot, id)
	    if err != nil {
	        log.Fatal(err)
	    }
	    if rule != nil {
	        publishRule(rule) // rule engine call
	    }
	}

# Conditions

Switch rules become fixed comparisons ("temperature > 30"). An otherwise
rule becomes the negation of its siblings. Edge detection rules become a
correlated pair: the value was below the threshold, then reached it.
Geofences become geo-queries over a closed polygon; "enters" and "exits"
are correlated like edges.

Branch-local problems (unknown operators, empty geofences, unsupported
node types) drop the branch and are reported as Issues. Cycles and wires to
missing nodes fail the translation.

# Templates

Values recorded by change and template nodes may reference message fields
with {{msg.payload.field}}. When a rule is generated they become rule
engine placeholders (${field}) and the field is added to the rule's
projection.

# Observability

Logging, metrics and tracing are opt-in:

	t := flowrules.NewTranslator(
	    flowrules.WithLogger(logger),
	    flowrules.WithMetrics(true),
	    flowrules.WithTracing(true),
	)

Metrics and spans go through the global OpenTelemetry providers.
*/
package flowrules
