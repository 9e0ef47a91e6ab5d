package domain

import (
	"time"
)

// forwardPath is the only order in which a trip may progress.
var forwardPath = []TripStatus{
	TripStatusRequested,
	TripStatusDriverAccepted,
	TripStatusEnrouteToPickup,
	TripStatusCustomerPicked,
	TripStatusAtDestination,
	TripStatusCompleted,
}

var forwardIndex = func() map[TripStatus]int {
	idx := make(map[TripStatus]int, len(forwardPath))
	for i, s := range forwardPath {
		idx[s] = i
	}
	return idx
}()

// NextStatus returns the immediate successor of s on the forward path.
func NextStatus(s TripStatus) (TripStatus, bool) {
	i, ok := forwardIndex[s]
	if !ok || i == len(forwardPath)-1 {
		return "", false
	}
	return forwardPath[i+1], true
}

// PreviousStatus returns the status a revert from s lands on.
// REQUESTED and COMPLETED have none.
func PreviousStatus(s TripStatus) (TripStatus, bool) {
	i, ok := forwardIndex[s]
	if !ok || i == 0 || s == TripStatusCompleted {
		return "", false
	}
	return forwardPath[i-1], true
}

// IsTerminal reports whether s is COMPLETED or CANCELLED.
// CANCELLED can still be restored.
func IsTerminal(s TripStatus) bool {
	return s == TripStatusCompleted || s == TripStatusCancelled
}

// Action is an operation a caller may perform on a trip in its current status.
type Action struct {
	Name   string     `json:"action"`
	Target TripStatus `json:"target_status"`
}

// Action names.
const (
	ActionAdvance = "advance"
	ActionRevert  = "revert"
	ActionCancel  = "cancel"
	ActionRestore = "restore"
)

// AvailableActions lists the legal next moves from s.
func AvailableActions(s TripStatus) []Action {
	var actions []Action
	if next, ok := NextStatus(s); ok {
		actions = append(actions, Action{Name: ActionAdvance, Target: next})
	}
	if prev, ok := PreviousStatus(s); ok {
		actions = append(actions, Action{Name: ActionRevert, Target: prev})
	}
	if !IsTerminal(s) {
		actions = append(actions, Action{Name: ActionCancel, Target: TripStatusCancelled})
	}
	if s == TripStatusCancelled {
		actions = append(actions, Action{Name: ActionRestore, Target: TripStatusRequested})
	}
	return actions
}

// Advance moves the trip to target, which must be the immediate successor of
// the current status or CANCELLED from a non-terminal status.
func (t *Trip) Advance(target TripStatus, description string, now time.Time) (Transition, error) {
	if target == TripStatusCancelled {
		if IsTerminal(t.Status) {
			return Transition{}, &TransitionError{Op: ActionCancel, From: t.Status, To: target}
		}
		return t.apply(target, string(target), description, now), nil
	}

	next, ok := NextStatus(t.Status)
	if !ok || next != target || t.Status == TripStatusCancelled {
		return Transition{}, &TransitionError{Op: ActionAdvance, From: t.Status, To: target}
	}
	return t.apply(target, string(target), description, now), nil
}

// Revert moves an in-progress trip back one step.
func (t *Trip) Revert(description string, now time.Time) (Transition, error) {
	prev, ok := PreviousStatus(t.Status)
	if !ok {
		return Transition{}, &TransitionError{Op: ActionRevert, From: t.Status}
	}
	return t.apply(prev, EventReverted, description, now), nil
}

// Cancel is Advance to CANCELLED with a prefixed description.
func (t *Trip) Cancel(reason string, now time.Time) (Transition, error) {
	return t.Advance(TripStatusCancelled, "Cancelled: "+reason, now)
}

// RestoreFromCancelled revives a cancelled trip back to REQUESTED.
func (t *Trip) RestoreFromCancelled(now time.Time) (Transition, error) {
	if t.Status != TripStatusCancelled {
		return Transition{}, &TransitionError{Op: ActionRestore, From: t.Status, To: TripStatusRequested}
	}
	return t.apply(TripStatusRequested, EventRestored, "Restored from cancelled", now), nil
}

// apply changes the status and appends the event together.
func (t *Trip) apply(to TripStatus, eventName, description string, now time.Time) Transition {
	from := t.Status
	t.Status = to
	t.UpdatedAt = now
	t.Events = append(t.Events, Event{
		TripID:      t.ID,
		Name:        eventName,
		Description: description,
		FromStatus:  from,
		ToStatus:    to,
		Timestamp:   now,
	})
	return Transition{
		TripID:      t.ID,
		TenantID:    t.TenantID,
		FromStatus:  from,
		ToStatus:    to,
		Description: description,
		Timestamp:   now,
	}
}
