package flowrules

import (
	"fmt"
)

// DraftState is the position of a draft in the identifier handshake.
type DraftState int

// Draft states. Transitions: Pending -> Partial -> Ready -> Emitted for
// correlated drafts, Pending -> Ready -> Emitted for fixed ones.
const (
	StatePending DraftState = iota
	StatePartial
	StateReady
	StateEmitted
)

// String returns the state name.
func (s DraftState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePartial:
		return "partial"
	case StateReady:
		return "ready"
	case StateEmitted:
		return "emitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// State derives the draft's state from its identifiers and emitted flag.
func (d *Draft) State() DraftState {
	if d.Emitted {
		return StateEmitted
	}
	if d.Pattern.Correlated() {
		first, second := d.Pattern.FirstID != "", d.Pattern.SecondID != ""
		switch {
		case first && second:
			return StateReady
		case first || second:
			return StatePartial
		default:
			return StatePending
		}
	}
	if d.Pattern.FixedID != "" {
		return StateReady
	}
	return StatePending
}

// AssignIdentifier records the broker identifier of the subscription
// created for slot. Identifiers may arrive in any order; assigning a slot
// again replaces its identifier.
func AssignIdentifier(d *Draft, slot Slot, id string) error {
	if d.Emitted {
		return ErrAlreadyEmitted
	}
	if id == "" {
		return fmt.Errorf("%w: empty subscription identifier", ErrInvalidParameter)
	}

	switch slot {
	case SlotFixed:
		if d.Pattern.Correlated() {
			return fmt.Errorf("%w: %s on a correlated draft", ErrSlotMismatch, slot)
		}
		d.Pattern.FixedID = id
	case SlotFirst, SlotSecond:
		if !d.Pattern.Correlated() {
			return fmt.Errorf("%w: %s on a fixed draft", ErrSlotMismatch, slot)
		}
		if slot == SlotFirst {
			d.Pattern.FirstID = id
		} else {
			d.Pattern.SecondID = id
		}
	default:
		return fmt.Errorf("%w: slot %d", ErrInvalidParameter, int(slot))
	}
	return nil
}
