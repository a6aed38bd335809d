package billing

import (
	"errors"
	"fmt"

	"github.com/lynqit/lynqit/app/models"
)

// ErrInvalidTransition is returned for subscription events that do not apply
// to the page's current billing state.
var ErrInvalidTransition = errors.New("invalid subscription transition")

// State is the billing state of a page.
type State struct {
	Plan              string
	CancelAtPeriodEnd bool
}

type Event string

const (
	EventActivate   Event = "activate"
	EventChangePlan Event = "change_plan"
	EventCancel     Event = "cancel"
	EventResume     Event = "resume"
	EventExpire     Event = "expire"
)

// StateOf reads the billing state of a page.
func StateOf(page *models.LynqitPage) State {
	return State{Plan: normalizePlan(page.SubscriptionPlan), CancelAtPeriodEnd: page.CancelAtPeriodEnd}
}

// PageStatus is the page status that belongs to a state.
func (s State) PageStatus() string {
	switch {
	case !isPaidPlan(s.Plan):
		return models.PageStatusActive
	case s.CancelAtPeriodEnd:
		return models.PageStatusCancelled
	default:
		return models.PageStatusActive
	}
}

// Transition applies ev to from. Allowed moves:
//
//	free             -activate(p)-> active(p)
//	active(p)        -activate(p)-> active(p)          (replayed payment)
//	active(p)        -change(q)---> active(q)
//	active(p)        -cancel------> active(p, cancel)
//	active(p,cancel) -resume------> active(p)
//	active(p[,c])    -expire------> free
func Transition(from State, ev Event, plan string) (State, error) {
	from.Plan = normalizePlan(from.Plan)
	paid := isPaidPlan(from.Plan)
	target := normalizePlan(plan)

	switch ev {
	case EventActivate:
		if !isPaidPlan(target) {
			return from, fmt.Errorf("%w: activate needs a paid plan", ErrInvalidTransition)
		}
		if !paid || (from.Plan == target && !from.CancelAtPeriodEnd) {
			return State{Plan: target}, nil
		}
	case EventChangePlan:
		if paid && !from.CancelAtPeriodEnd && isPaidPlan(target) {
			return State{Plan: target}, nil
		}
	case EventCancel:
		if paid {
			return State{Plan: from.Plan, CancelAtPeriodEnd: true}, nil
		}
	case EventResume:
		if paid && from.CancelAtPeriodEnd {
			return State{Plan: from.Plan}, nil
		}
	case EventExpire:
		if paid {
			return State{Plan: normalizePlan("free")}, nil
		}
	}
	return from, fmt.Errorf("%w: %s from %s (cancel=%t)", ErrInvalidTransition, ev, from.Plan, from.CancelAtPeriodEnd)
}
