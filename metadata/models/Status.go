package models

// Status is the lifecycle state of an order, batch or order item.
type Status string

// Lifecycle states for orders and order items.
const (
	StatusSubmitted    Status = "Submitted"
	StatusAccepted     Status = "Accepted"
	StatusInProduction Status = "InProduction"
	StatusSuspended    Status = "Suspended"
	StatusCancelled    Status = "Cancelled"
	StatusCompleted    Status = "Completed"
	StatusFailed       Status = "Failed"
	StatusTerminated   Status = "Terminated"
	StatusDownloaded   Status = "Downloaded"
)

// statusPrecedence orders states from earliest to latest. A batch takes the
// minimum of its items' states under this ordering, and an item may never
// regress along it except through an explicit cancel.
var statusPrecedence = map[Status]int{
	StatusSubmitted:    0,
	StatusAccepted:     1,
	StatusInProduction: 2,
	StatusSuspended:    3,
	StatusCancelled:    4,
	StatusCompleted:    5,
	StatusFailed:       6,
	StatusTerminated:   7,
	StatusDownloaded:   8,
}

// Precedence returns the position of s in the lifecycle ordering. Unknown
// states sort before Submitted.
func (s Status) Precedence() int {
	p, ok := statusPrecedence[s]
	if !ok {
		return -1
	}
	return p
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := statusPrecedence[s]
	return ok
}

// IsTerminal reports whether s is one of the terminal states.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusFailed, StatusTerminated, StatusDownloaded:
		return true
	}
	return false
}

// MinimumStatus returns the earliest of the given states under the
// precedence ordering. An empty slice yields Submitted.
func MinimumStatus(statuses []Status) Status {
	if len(statuses) == 0 {
		return StatusSubmitted
	}
	min := statuses[0]
	for _, s := range statuses[1:] {
		if s.Precedence() < min.Precedence() {
			min = s
		}
	}
	return min
}
