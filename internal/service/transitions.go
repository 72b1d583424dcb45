package service

import (
	"fmt"

	"github.com/brewdesk-pos/api/internal/enum"
)

// transitionTable defines the legal order status transitions. Key is the
// current status, value is the set of statuses it can move to. Terminal
// statuses map to an empty set; unknown statuses fail closed.
var transitionTable = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusConfirmed, enum.OrderStatusCancelled},
	enum.OrderStatusConfirmed: {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusCompleted},
	enum.OrderStatusCompleted: {},
	enum.OrderStatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal status move.
func CanTransition(from, to string) bool {
	for _, s := range transitionTable[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from the given one.
// Empty for terminal and unknown statuses.
func AllowedTransitions(from string) []string {
	allowed := transitionTable[from]
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out
}

// TimestampField names the order timestamp column a successful transition
// into the given status must stamp, or "" if none.
func TimestampField(to string) string {
	switch to {
	case enum.OrderStatusReady:
		return "prepared_at"
	case enum.OrderStatusCompleted:
		return "completed_at"
	}
	return ""
}

// TransitionError is returned for a disallowed status move. It carries the
// allowed next statuses so the client can recover.
type TransitionError struct {
	From    string
	To      string
	Allowed []string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s (allowed: %v)", e.From, e.To, e.Allowed)
}
