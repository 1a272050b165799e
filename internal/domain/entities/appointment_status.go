package entities

import "fmt"

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// statusTransitions lists the permitted next states for each status.
// Statuses absent from the map, or mapped to nothing, are terminal.
var statusTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted},
	AppointmentStatusCompleted: {},
	AppointmentStatusCancelled: {},
}

// ParseAppointmentStatus converts a raw string into a known status.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	status := AppointmentStatus(s)
	if _, ok := statusTransitions[status]; !ok {
		return "", fmt.Errorf("unknown appointment status %q", s)
	}
	return status, nil
}

// Valid reports whether s is one of the four known statuses.
func (s AppointmentStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is allowed from s.
func (s AppointmentStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// OccupiesSlot reports whether an appointment in this status blocks its time slot.
func (s AppointmentStatus) OccupiesSlot() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// CanTransition reports whether from -> to is an edge of the status graph.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a TransitionError when from -> to is not allowed.
func ValidateTransition(from, to AppointmentStatus) error {
	if !to.Valid() {
		return &TransitionError{From: from, To: to, Reason: "unknown target status"}
	}
	if from.IsTerminal() {
		return &TransitionError{From: from, To: to, Reason: "current status is terminal", Terminal: true}
	}
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to, Reason: "transition not allowed"}
	}
	return nil
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From     AppointmentStatus
	To       AppointmentStatus
	Reason   string
	Terminal bool
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change appointment status from %s to %s: %s", e.From, e.To, e.Reason)
}

// OccupyingStatuses are the statuses that hold a slot.
func OccupyingStatuses() []AppointmentStatus {
	return []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed}
}

// RevenueStatuses are the statuses that count towards revenue.
func RevenueStatuses() []AppointmentStatus {
	return []AppointmentStatus{AppointmentStatusConfirmed, AppointmentStatusCompleted}
}
