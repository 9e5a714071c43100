package model

import "time"

// Item represents a lost-or-found object report.
type Item struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Positions of stored images, in display order (not always populated).
	Images []int `json:"images,omitempty"`
}

// Item statuses. The status field changes only through the transition
// functions in status.go; nothing outside the store writes it directly.
const (
	ItemStatusLost     = "lost"
	ItemStatusFound    = "found"
	ItemStatusPending  = "pending"
	ItemStatusClaimed  = "claimed"
	ItemStatusReturned = "returned"
)

// ValidInitialItemStatus reports whether an item may be created with the
// given status. Reports start life as either lost or found.
func ValidInitialItemStatus(status string) bool {
	return status == ItemStatusLost || status == ItemStatusFound
}

// IsOwner reports whether the user created the item. Claim creation requires
// a non-owner; claim review and direct status changes require the owner.
func IsOwner(userID int64, item *Item) bool {
	return item != nil && item.CreatedBy == userID
}
