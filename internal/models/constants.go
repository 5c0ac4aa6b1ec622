package models

import (
	"fmt"
	"strings"
)

// Booking statuses. WAITING transitions to APPROVED or REJECTED exactly once.
const (
	StatusWaiting  = "WAITING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// State filters for booking list queries.
const (
	StateAll      = "ALL"
	StateCurrent  = "CURRENT"
	StatePast     = "PAST"
	StateFuture   = "FUTURE"
	StateWaiting  = "WAITING"
	StateApproved = "APPROVED"
	StateRejected = "REJECTED"
)

const (
	DefaultPageFrom = 0
	DefaultPageSize = 10
)

// ParseState normalizes a state filter. Empty input means ALL.
func ParseState(raw string) (string, error) {
	state := strings.ToUpper(strings.TrimSpace(raw))
	if state == "" {
		return StateAll, nil
	}
	switch state {
	case StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateApproved, StateRejected:
		return state, nil
	}
	return "", fmt.Errorf("unknown state: %s", raw)
}
