package entity

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusClaimed     Status = "claimed"
	StatusDistributed Status = "distributed"
	StatusExpired     Status = "expired"
)

// transitions is the complete lifecycle graph. Nothing leads back to available.
var transitions = map[Status][]Status{
	StatusAvailable: {StatusClaimed, StatusExpired},
	StatusClaimed:   {StatusDistributed},
}

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusClaimed, StatusDistributed, StatusExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is directly reachable from s.
// Staying in the same status is allowed so that an update may restate it.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return s.Valid()
	}
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}
