package model

import "fmt"

// ItemEvent is something that happens to an item and may change its status.
type ItemEvent string

const (
	EventClaimSubmitted ItemEvent = "claim_submitted"
	EventClaimApproved  ItemEvent = "claim_approved"
	EventClaimRejected  ItemEvent = "claim_rejected"
	EventOwnerAdvance   ItemEvent = "owner_advance"
)

// revertToPrevious marks transitions whose target is the claim's saved
// pre-claim status rather than a fixed value.
const revertToPrevious = ""

// itemTransitions maps each event to the statuses it may fire from and the
// resulting status.
var itemTransitions = map[ItemEvent]map[string]string{
	EventClaimSubmitted: {
		ItemStatusLost:  ItemStatusPending,
		ItemStatusFound: ItemStatusPending,
	},
	EventClaimApproved: {
		ItemStatusPending: ItemStatusClaimed,
	},
	EventClaimRejected: {
		ItemStatusPending: revertToPrevious,
	},
	EventOwnerAdvance: {
		ItemStatusLost:    ItemStatusFound,
		ItemStatusFound:   ItemStatusClaimed,
		ItemStatusClaimed: ItemStatusReturned,
	},
}

// NextItemStatus returns the item status resulting from event firing while
// the item has the current status. For EventClaimRejected the claim's saved
// pre-claim status must be passed as previous; it is ignored otherwise.
// Disallowed transitions return an error wrapping ErrInvalidTransition.
func NextItemStatus(current string, event ItemEvent, previous string) (string, error) {
	next, ok := itemTransitions[event][current]
	if !ok {
		switch event {
		case EventClaimSubmitted:
			return "", fmt.Errorf("%w: cannot claim an item with status %q", ErrInvalidTransition, current)
		case EventClaimApproved, EventClaimRejected:
			return "", fmt.Errorf("%w: cannot review a claim while the item has status %q", ErrInvalidTransition, current)
		default:
			if allowed, ok := itemTransitions[EventOwnerAdvance][current]; ok {
				return "", fmt.Errorf("%w: allowed transition: %s -> %s", ErrInvalidTransition, current, allowed)
			}
			return "", fmt.Errorf("%w: no transition allowed from status %q", ErrInvalidTransition, current)
		}
	}

	if next == revertToPrevious {
		if !ValidInitialItemStatus(previous) {
			return "", fmt.Errorf("%w: invalid pre-claim status %q", ErrInvalidTransition, previous)
		}
		return previous, nil
	}
	return next, nil
}

// AllowedOwnerAdvance returns the single status the owner may move the item
// to next, or false if the item cannot be advanced directly (including while
// a claim is pending).
func AllowedOwnerAdvance(current string) (string, bool) {
	next, ok := itemTransitions[EventOwnerAdvance][current]
	return next, ok
}
