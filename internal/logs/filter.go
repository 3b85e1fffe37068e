package logs

import (
	"fmt"
	"strings"

	"github.com/charliek/respawn/internal/domain"
)

// MaxPatternLength is the maximum allowed length for filter patterns
const MaxPatternLength = 256

// ValidateFilter rejects filters the API should not accept
func ValidateFilter(filter domain.EventFilter) error {
	if len(filter.Pattern) > MaxPatternLength {
		return fmt.Errorf("%w: pattern exceeds maximum length of %d characters", domain.ErrInvalidFilter, MaxPatternLength)
	}
	for _, p := range filter.Phases {
		switch p {
		case domain.PhaseStart, domain.PhaseExit, domain.PhaseWait:
		default:
			return fmt.Errorf("%w: unknown phase %q", domain.ErrInvalidFilter, p)
		}
	}
	return nil
}

// Matches returns true if the event matches the filter criteria
func Matches(filter domain.EventFilter, event domain.SupervisionEvent) bool {
	if !filter.MatchesPhase(event.Phase) {
		return false
	}
	if filter.Pattern != "" && !strings.Contains(event.Message(), filter.Pattern) {
		return false
	}
	return true
}

// FilterEvents filters a slice of events
func FilterEvents(events []domain.SupervisionEvent, filter domain.EventFilter) ([]domain.SupervisionEvent, error) {
	if filter.IsEmpty() {
		return events, nil
	}
	if err := ValidateFilter(filter); err != nil {
		return nil, err
	}

	result := make([]domain.SupervisionEvent, 0, len(events))
	for _, event := range events {
		if Matches(filter, event) {
			result = append(result, event)
		}
	}

	return result, nil
}

// FilterEventsLimit filters events and returns at most the last limit of them
// along with the count before limiting
func FilterEventsLimit(events []domain.SupervisionEvent, filter domain.EventFilter, limit int) ([]domain.SupervisionEvent, int, error) {
	filtered, err := FilterEvents(events, filter)
	if err != nil {
		return nil, 0, err
	}

	total := len(filtered)
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	return filtered, total, nil
}
