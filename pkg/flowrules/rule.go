package flowrules

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/randalmurphal/flowrules/pkg/flowrules/template"
)

// Rule is a rule engine rule definition.
type Rule struct {
	Name   string     `json:"name"`
	Text   string     `json:"text"`
	Action RuleAction `json:"action"`
}

// RuleAction is what the rule engine does when the rule fires.
type RuleAction struct {
	Type       ActionType     `json:"type"`
	Template   string         `json:"template"`
	Mirror     bool           `json:"mirror"`
	Parameters map[string]any `json:"parameters"`
}

// AttributeValue is one attribute written by an update action.
type AttributeValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Finalize generates the rule for a ready draft and marks it emitted.
//
// Templated values recorded by mutator nodes are resolved; variables they
// reference are added to the draft's projection. Finalize fails with
// ErrNotReady until every slot has an identifier, with ErrAlreadyEmitted on
// a second call, and with ErrNoRuleAction for history drafts. A failed call
// leaves the draft unchanged.
func Finalize(d *Draft) (*Rule, error) {
	return finalize(d, defaultResolver)
}

var defaultResolver = template.NewResolver()

func finalize(d *Draft, r *template.Resolver) (*Rule, error) {
	if d.Emitted {
		return nil, ErrAlreadyEmitted
	}
	if d.State() != StateReady {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, d.State())
	}

	b := &ruleBuilder{resolver: r, draft: d, variables: cloneStrings(d.Variables)}

	var action RuleAction
	var err error
	switch d.Action.Type {
	case ActionUpdate:
		action, err = b.updateAction()
	case ActionPost:
		action, err = b.postAction()
	case ActionEmail:
		action, err = b.emailAction()
	case ActionHistory:
		return nil, ErrNoRuleAction
	default:
		return nil, fmt.Errorf("%w: action %q", ErrNoRuleAction, d.Action.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("finalize %s: %w", d.Name, err)
	}

	d.Variables = b.variables
	d.Emitted = true

	return &Rule{
		Name:   d.Name,
		Text:   RuleText(d),
		Action: action,
	}, nil
}

// RuleText renders the pattern text of a draft whose identifiers are set:
//
//	select *, "<name>" as ruleName, ev.<v>? as <v> from pattern [every ev = iotEvent(...)]
//
// Correlated drafts chain two events and project from the second.
func RuleText(d *Draft) string {
	alias := "ev"
	if d.Pattern.Correlated() {
		alias = "ev2"
	}

	var b strings.Builder
	b.WriteString(`select *, "`)
	b.WriteString(d.Name)
	b.WriteString(`" as ruleName`)
	for _, v := range d.Variables {
		fmt.Fprintf(&b, ", %s.%s? as %s", alias, v, v)
	}

	b.WriteString(" from pattern [every ev = ")
	if d.Pattern.Correlated() {
		b.WriteString(eventFilter(d.Pattern.FirstID))
		b.WriteString(" -> ev2 = ")
		b.WriteString(eventFilter(d.Pattern.SecondID))
	} else {
		b.WriteString(eventFilter(d.Pattern.FixedID))
	}
	b.WriteString("]")
	return b.String()
}

func eventFilter(subscriptionID string) string {
	return `iotEvent(cast(subscriptionId?, String) = "` + subscriptionID + `")`
}

// ruleBuilder resolves action fields, collecting new variables locally so
// that a failure leaves the draft untouched.
type ruleBuilder struct {
	resolver  *template.Resolver
	draft     *Draft
	variables []string
}

func (b *ruleBuilder) collect(res template.Resolution) {
	for _, v := range res.Variables {
		b.variables = appendUnique(b.variables, v)
	}
}

func (b *ruleBuilder) text(v any) (string, error) {
	s, res, err := b.resolver.ResolveText(v)
	if err != nil {
		return "", err
	}
	b.collect(res)
	return s, nil
}

// object resolves v and returns it as a JSON object. Strings are parsed
// after resolution, since template nodes store objects as text.
func (b *ruleBuilder) object(v any) (map[string]any, error) {
	resolved, res, err := b.resolver.ResolveValue(v)
	if err != nil {
		return nil, err
	}
	b.collect(res)

	switch val := resolved.(type) {
	case map[string]any:
		return val, nil
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(val), &m); err != nil {
			return nil, fmt.Errorf("%w: expected a JSON object: %v", ErrInvalidParameter, err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: expected an object, got %T", ErrInvalidParameter, resolved)
}

func (b *ruleBuilder) updateAction() (RuleAction, error) {
	u := b.draft.Action.Update
	if u == nil {
		return RuleAction{}, fmt.Errorf("%w: update action without parameters", ErrInvalidParameter)
	}

	attributes := []AttributeValue{}
	if v, ok := b.draft.internal(u.AttributesVar); ok && v != nil {
		obj, err := b.object(v)
		if err != nil {
			return RuleAction{}, fmt.Errorf("attributes %q: %w", u.AttributesVar, err)
		}
		names := make([]string, 0, len(obj))
		for name := range obj {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			attributes = append(attributes, AttributeValue{Name: name, Value: obj[name]})
		}
	}

	return RuleAction{
		Type:     ActionUpdate,
		Template: "",
		Parameters: map[string]any{
			"id":         u.DeviceID,
			"type":       u.DeviceType,
			"isPattern":  false,
			"attributes": attributes,
		},
	}, nil
}

func (b *ruleBuilder) postAction() (RuleAction, error) {
	p := b.draft.Action.Post
	if p == nil {
		return RuleAction{}, fmt.Errorf("%w: post action without parameters", ErrInvalidParameter)
	}
	vars := b.draft.InternalVariables

	bodyVar, _ := b.draft.internal(p.BodyVar)
	body, err := b.text(bodyVar)
	if err != nil {
		return RuleAction{}, fmt.Errorf("body: %w", err)
	}

	var url any = p.URL
	if p.URL == "" {
		url = vars["url"]
	}
	resolvedURL, err := b.text(url)
	if err != nil {
		return RuleAction{}, fmt.Errorf("url: %w", err)
	}

	var method any = p.Method
	if p.Method == methodFromVariable {
		method = vars["method"]
	}
	resolvedMethod, err := b.text(method)
	if err != nil {
		return RuleAction{}, fmt.Errorf("method: %w", err)
	}

	var headers any = ""
	if h, ok := vars["headers"]; ok && h != nil {
		obj, err := b.object(h)
		if err != nil {
			return RuleAction{}, fmt.Errorf("headers: %w", err)
		}
		headers = obj
	}

	return RuleAction{
		Type:     ActionPost,
		Template: body,
		Parameters: map[string]any{
			"url":     resolvedURL,
			"method":  resolvedMethod,
			"headers": headers,
		},
	}, nil
}

func (b *ruleBuilder) emailAction() (RuleAction, error) {
	e := b.draft.Action.Email
	if e == nil {
		return RuleAction{}, fmt.Errorf("%w: email action without parameters", ErrInvalidParameter)
	}

	bodyVar, _ := b.draft.internal(e.BodyVar)
	body, err := b.text(bodyVar)
	if err != nil {
		return RuleAction{}, fmt.Errorf("body: %w", err)
	}

	return RuleAction{
		Type:     ActionEmail,
		Template: body,
		Parameters: map[string]any{
			"to":      e.To,
			"from":    e.From,
			"subject": e.Subject,
			"smtp":    e.Server,
		},
	}, nil
}
