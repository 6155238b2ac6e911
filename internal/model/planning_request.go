package model

import (
	"errors"
	"fmt"
)

// ErrInvalidPlanningRequest is returned when a planning request's time window is inconsistent.
var ErrInvalidPlanningRequest = errors.New("invalid planning request")

// PlanningRequest is a time window, in seconds, during which a device asks to run.
type PlanningRequest struct {
	EarliestStart int
	LatestEnd     int
	MinDuration   int
	MaxDuration   int
}

// Validate checks earliestStart < latestEnd and minDuration <= maxDuration <= window length.
func (p PlanningRequest) Validate() error {
	switch {
	case p.EarliestStart < 0:
		return fmt.Errorf("%w: earliestStart %d is negative", ErrInvalidPlanningRequest, p.EarliestStart)
	case p.EarliestStart >= p.LatestEnd:
		return fmt.Errorf("%w: earliestStart %d must be before latestEnd %d", ErrInvalidPlanningRequest, p.EarliestStart, p.LatestEnd)
	case p.MinDuration < 0:
		return fmt.Errorf("%w: minDuration %d is negative", ErrInvalidPlanningRequest, p.MinDuration)
	case p.MinDuration > p.MaxDuration:
		return fmt.Errorf("%w: minDuration %d exceeds maxDuration %d", ErrInvalidPlanningRequest, p.MinDuration, p.MaxDuration)
	case p.MaxDuration > p.Window():
		return fmt.Errorf("%w: maxDuration %d exceeds window of %d", ErrInvalidPlanningRequest, p.MaxDuration, p.Window())
	}
	return nil
}

// Window returns the length of the allowed time window.
func (p PlanningRequest) Window() int {
	return p.LatestEnd - p.EarliestStart
}
