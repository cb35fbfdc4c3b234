package flowrules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/flowrules/pkg/flowrules/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Flow is one flow document: the editor's node descriptors plus the
// identity the flow was stored under.
type Flow struct {
	ID      string           `json:"id"`
	Service string           `json:"service,omitempty"`
	Nodes   []map[string]any `json:"flow"`
}

// ParseFlow decodes a flow document. Both a bare node array and an object
// of the form {"id": ..., "service": ..., "flow": [...]} are accepted.
func ParseFlow(data []byte) (Flow, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var nodes []map[string]any
		if err := json.Unmarshal(data, &nodes); err != nil {
			return Flow{}, fmt.Errorf("parse flow: %w", err)
		}
		return Flow{Nodes: nodes}, nil
	}

	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return Flow{}, fmt.Errorf("parse flow: %w", err)
	}
	return f, nil
}

// Translation is the output of translating one flow.
type Translation struct {
	FlowID  string `json:"flow_id"`
	Service string `json:"service,omitempty"`

	// Drafts holds one pending rule per source-to-sink path, in walk order.
	Drafts []*Draft `json:"drafts"`

	// Subscriptions lists the subscriptions to create for Drafts.
	Subscriptions []SubscriptionRequest `json:"subscriptions"`

	// Issues lists the branches that were dropped or left under-constrained.
	Issues []Issue `json:"-"`
}

// Draft returns the draft with the given id.
func (t *Translation) Draft(id string) (*Draft, bool) {
	for _, d := range t.Drafts {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// RuleName returns the name of the n-th rule of a flow (1-based).
// Dots in the flow id become underscores.
func RuleName(flowID string, n int) string {
	return "rule_" + strings.ReplaceAll(flowID, ".", "_") + "_" + strconv.Itoa(n)
}

// Translator turns flows into drafts and subscriptions, and drafts whose
// identifiers have arrived into rules.
//
// A Translator holds no per-flow state. It is safe for concurrent use as
// long as callers do not share a Draft between goroutines.
type Translator struct {
	cfg translatorConfig
}

// NewTranslator creates a Translator.
//
// Example:
//
//	t := flowrules.NewTranslator(
//	    flowrules.WithSettings(settings),
//	    flowrules.WithLogger(logger),
//	)
func NewTranslator(opts ...Option) *Translator {
	cfg := defaultTranslatorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Translator{cfg: cfg}
}

// Translate walks every source of the flow and returns the drafts and the
// subscription requests they need.
//
// Graph errors (duplicate ids, dangling wires, cycles) fail the whole
// translation. Branch-local problems are returned as Issues.
func (t *Translator) Translate(ctx context.Context, flow Flow) (result *Translation, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	elapsed := observability.TimedOperation()

	ctx, span := t.cfg.spans.StartTranslateSpan(ctx, flow.ID, flow.Service)
	defer func() {
		t.cfg.spans.EndSpanWithError(span, err)
	}()

	observability.LogTranslationStart(t.cfg.logger, flow.ID, len(flow.Nodes))

	result, err = t.translate(ctx, flow)

	drafts := 0
	if result != nil {
		drafts = len(result.Drafts)
	}
	t.cfg.metrics.RecordTranslation(ctx, err == nil, time.Since(start), drafts)

	if err != nil {
		observability.LogTranslationError(t.cfg.logger, flow.ID, err, elapsed())
		return nil, err
	}
	observability.LogTranslationComplete(t.cfg.logger, result.FlowID, elapsed(), drafts, len(result.Subscriptions))
	return result, nil
}

func (t *Translator) translate(ctx context.Context, flow Flow) (*Translation, error) {
	logger := observability.EnrichLogger(t.cfg.logger, flow.ID, flow.Service)

	g, err := BuildGraph(flow.Nodes)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	result := &Translation{FlowID: flow.ID, Service: flow.Service}
	counters := make(map[string]int)

	for _, src := range g.Sources() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		w := newWalker(g)
		drafts, err := w.extract(src, NewDraft("", flow.Service))
		if err != nil {
			return nil, &NodeError{NodeID: src.ID(), Op: "extract", Err: err}
		}

		for _, issue := range w.issues {
			observability.LogIssue(logger, issue.NodeID, issue.Err)
			t.cfg.metrics.RecordBranchIssue(ctx, issue.NodeID)
			t.cfg.spans.AddSpanEvent(ctx, "branch.issue",
				attribute.String("node_id", issue.NodeID),
				attribute.String("error", issue.Err.Error()),
			)
		}
		result.Issues = append(result.Issues, w.issues...)

		for _, d := range drafts {
			if d.FlowID == "" {
				d.FlowID = flow.ID
			}
			counters[d.FlowID]++
			d.Name = RuleName(d.FlowID, counters[d.FlowID])
		}
		result.Drafts = append(result.Drafts, drafts...)
	}

	if result.FlowID == "" && len(result.Drafts) > 0 {
		result.FlowID = result.Drafts[0].FlowID
	}
	result.Subscriptions = ToSubscriptions(result.Drafts, EndpointsFrom(t.cfg.settings))
	return result, nil
}

// Finalize generates the rule for a ready draft. See the package-level
// Finalize for the failure modes.
func (t *Translator) Finalize(ctx context.Context, d *Draft) (rule *Rule, err error) {
	ctx, span := t.cfg.spans.StartFinalizeSpan(ctx, d.ID, d.Name)
	defer func() {
		t.cfg.spans.EndSpanWithError(span, err)
	}()

	rule, err = finalize(d, t.cfg.resolver)
	if err != nil {
		observability.LogFinalizeError(t.cfg.logger, d.ID, err)
		return nil, err
	}

	t.cfg.metrics.RecordRuleEmitted(ctx, string(rule.Action.Type))
	observability.LogRuleEmitted(t.cfg.logger, rule.Name, string(rule.Action.Type))
	return rule, nil
}

// Assign records a subscription identifier and, once every slot of the
// draft has one, generates its rule. It returns a nil rule while the draft
// is still waiting for identifiers, and for history drafts, which never
// produce a rule.
func (t *Translator) Assign(ctx context.Context, d *Draft, slot Slot, id string) (*Rule, error) {
	if err := AssignIdentifier(d, slot, id); err != nil {
		return nil, err
	}

	state := d.State()
	observability.LogIdentifierAssigned(t.cfg.logger, d.ID, slot.String(), state.String())
	if state != StateReady {
		return nil, nil
	}

	rule, err := t.Finalize(ctx, d)
	if errors.Is(err, ErrNoRuleAction) && d.Action.Type == ActionHistory {
		return nil, nil
	}
	return rule, err
}
