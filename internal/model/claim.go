package model

import "time"

// Claim is an assertion by a non-owner that an item belongs to them, subject
// to review by the item's owner.
type Claim struct {
	ID         int64     `json:"id"`
	ItemID     int64     `json:"item_id"`
	ClaimantID int64     `json:"claimant_id"`
	Message    string    `json:"message,omitempty"`
	Status     string    `json:"status"`

	// PreviousItemStatus is the item's status at claim-creation time.
	// Immutable once set; it is the only source of truth for restoring the
	// item when the claim is rejected.
	PreviousItemStatus string `json:"previous_item_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	ItemTitle    string `json:"item_title,omitempty"`
	ClaimantName string `json:"claimant_name,omitempty"`
}

// Claim statuses. A claim is created pending and transitions exactly once to
// approved or rejected; it is never re-opened or deleted.
const (
	ClaimStatusPending  = "pending"
	ClaimStatusApproved = "approved"
	ClaimStatusRejected = "rejected"
)
