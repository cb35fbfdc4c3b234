package flowrules

import (
	"github.com/randalmurphal/flowrules/pkg/flowrules/config"
)

// Endpoints are the notification URLs subscriptions point at.
type Endpoints struct {
	// RuleEngine receives notifications for drafts that produce a rule.
	RuleEngine string
	// History receives notifications for history drafts.
	History string
}

// EndpointsFrom derives notification URLs from settings.
func EndpointsFrom(s config.Settings) Endpoints {
	return Endpoints{
		RuleEngine: s.RuleEngineNotifyURL(),
		History:    s.HistoryNotifyURL(),
	}
}

// notifyURL picks the endpoint for a draft's action.
func (e Endpoints) notifyURL(a ActionType) string {
	if a == ActionHistory {
		return e.History
	}
	return e.RuleEngine
}

// EntityRef identifies the watched entity.
type EntityRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// SubjectCondition restricts notifications to matching updates.
type SubjectCondition struct {
	Attrs      []string          `json:"attrs"`
	Expression map[string]string `json:"expression"`
}

// Subject is what a subscription watches.
type Subject struct {
	Entities  []EntityRef       `json:"entities"`
	Condition *SubjectCondition `json:"condition,omitempty"`
}

// HTTPNotification is the notification target.
type HTTPNotification struct {
	URL string `json:"url"`
}

// Notification describes where matching updates are sent.
type Notification struct {
	HTTP HTTPNotification `json:"http"`
}

// Subscription is a context broker subscription body.
type Subscription struct {
	Description  string       `json:"description"`
	Subject      Subject      `json:"subject"`
	Notification Notification `json:"notification"`
}

// SubscriptionRequest is a subscription to create plus the handle needed
// to report its identifier back: the draft and the slot it fills.
type SubscriptionRequest struct {
	DraftID      string       `json:"draft_id"`
	Slot         Slot         `json:"slot"`
	Service      string       `json:"service,omitempty"`
	Subscription Subscription `json:"subscription"`

	// Draft is the draft the identifier must be assigned to.
	Draft *Draft `json:"-"`
}

// ToSubscriptions builds the subscriptions every draft needs: one for a
// fixed (or condition-less) draft, two for a correlated draft.
func ToSubscriptions(drafts []*Draft, ep Endpoints) []SubscriptionRequest {
	var reqs []SubscriptionRequest
	for _, d := range drafts {
		for _, slot := range d.Pattern.Slots() {
			reqs = append(reqs, SubscriptionRequest{
				DraftID:      d.ID,
				Slot:         slot,
				Service:      d.Service,
				Subscription: buildSubscription(d, d.Pattern.Conditions(slot), ep),
				Draft:        d,
			})
		}
	}
	return reqs
}

func buildSubscription(d *Draft, conds []Condition, ep Endpoints) Subscription {
	sub := Subscription{
		Description: "Subscription for " + d.InputDevice.ID,
		Subject: Subject{
			Entities: []EntityRef{{ID: d.InputDevice.ID, Type: d.InputDevice.Type}},
		},
		Notification: Notification{
			HTTP: HTTPNotification{URL: ep.notifyURL(d.Action.Type)},
		},
	}
	if len(conds) > 0 {
		sub.Subject.Condition = &SubjectCondition{
			Attrs:      cloneStrings(d.InputDevice.Attributes),
			Expression: mergeExpressions(conds),
		}
	}
	return sub
}

// expressionKeys fixes the merge order of expression keys.
var expressionKeys = []string{"q", "georel", "geometry", "coords"}

// mergeExpressions joins the expression keys of all conditions, in
// condition order, separating repeated keys with "; ".
func mergeExpressions(conds []Condition) map[string]string {
	expr := make(map[string]string)
	for _, c := range conds {
		terms := c.Expression()
		for _, key := range expressionKeys {
			term, ok := terms[key]
			if !ok {
				continue
			}
			if existing, ok := expr[key]; ok {
				expr[key] = existing + "; " + term
			} else {
				expr[key] = term
			}
		}
	}
	return expr
}
