package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// This file is the claim lifecycle coordinator: the only place that mutates
// an item's status together with a claim. Every mutation runs in a single
// transaction with its precondition checks, and every item update is guarded
// on the status read inside that transaction, so two requests racing on the
// same item are linearized: the loser observes the winner's committed status
// and fails its precondition instead of corrupting state.

// CreateClaim files a claim on an item and pulls the item into the pending
// status, making it unavailable for further claims until this one is
// resolved.
func CreateClaim(ctx context.Context, db *sql.DB, itemID, claimantID int64, message string) (*model.Claim, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", itemID, model.ErrNotFound)
	}

	if model.IsOwner(claimantID, item) {
		return nil, fmt.Errorf("%w: item owner cannot claim their own item", model.ErrForbidden)
	}

	// One claim per (item, claimant), ever: a reviewed claim still blocks a
	// second attempt by the same user, so this check runs before the item
	// state check. The unique index on claims is only a backstop; the check
	// has to share the transaction with the item update.
	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claims WHERE item_id = ? AND claimant_id = ?`,
		itemID, claimantID,
	).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("checking for existing claim: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: a claim for this item and user already exists", model.ErrConflict)
	}

	nextStatus, err := model.NextItemStatus(item.Status, model.EventClaimSubmitted, "")
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		nextStatus, itemID, item.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item status: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("updating item status: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("%w: cannot claim an item with status %q", model.ErrInvalidTransition, model.ItemStatusPending)
	}

	inserted, err := tx.ExecContext(ctx,
		`INSERT INTO claims (item_id, claimant_id, message, status, previous_item_status)
		 VALUES (?, ?, ?, ?, ?)`,
		itemID, claimantID, message, model.ClaimStatusPending, item.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating claim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	claimID, _ := inserted.LastInsertId()
	return GetClaim(ctx, db, claimID)
}

// ApproveClaim marks a pending claim approved and its item claimed.
func ApproveClaim(ctx context.Context, db *sql.DB, claimID, reviewerID int64) (*model.Claim, *model.Item, error) {
	return reviewClaim(ctx, db, claimID, reviewerID, true)
}

// RejectClaim marks a pending claim rejected and restores the item to the
// status it had before the claim was filed.
func RejectClaim(ctx context.Context, db *sql.DB, claimID, reviewerID int64) (*model.Claim, *model.Item, error) {
	return reviewClaim(ctx, db, claimID, reviewerID, false)
}

// reviewClaim is the shared review core; approve and reject differ only in
// the claim's terminal status and the item's resulting status.
func reviewClaim(ctx context.Context, db *sql.DB, claimID, reviewerID int64, approve bool) (*model.Claim, *model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	claim, err := getClaim(ctx, tx, claimID)
	if err != nil {
		return nil, nil, err
	}
	if claim == nil {
		return nil, nil, fmt.Errorf("claim %d: %w", claimID, model.ErrNotFound)
	}

	item, err := getItem(ctx, tx, claim.ItemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		// A claim always references an existing item; a missing one means
		// someone wrote around the store.
		return nil, nil, fmt.Errorf("claim %d references missing item %d", claimID, claim.ItemID)
	}

	if !model.IsOwner(reviewerID, item) {
		return nil, nil, fmt.Errorf("%w: only the item owner can review claims", model.ErrForbidden)
	}

	if claim.Status != model.ClaimStatusPending {
		return nil, nil, fmt.Errorf("%w: claim already reviewed (status %q)", model.ErrInvalidTransition, claim.Status)
	}

	event := model.EventClaimApproved
	claimStatus := model.ClaimStatusApproved
	if !approve {
		event = model.EventClaimRejected
		claimStatus = model.ClaimStatusRejected
	}

	itemStatus, err := model.NextItemStatus(item.Status, event, claim.PreviousItemStatus)
	if err != nil {
		return nil, nil, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		claimStatus, claimID, model.ClaimStatusPending,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("updating claim status: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, nil, fmt.Errorf("updating claim status: %w", err)
	} else if n == 0 {
		return nil, nil, fmt.Errorf("%w: claim already reviewed", model.ErrInvalidTransition)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		itemStatus, item.ID, model.ItemStatusPending,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("updating item status: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, nil, fmt.Errorf("updating item status: %w", err)
	} else if n == 0 {
		return nil, nil, fmt.Errorf("%w: cannot review a claim while the item has status %q", model.ErrInvalidTransition, item.Status)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing review: %w", err)
	}

	updatedClaim, err := GetClaim(ctx, db, claimID)
	if err != nil {
		return nil, nil, err
	}
	updatedItem, err := GetItem(ctx, db, item.ID)
	if err != nil {
		return nil, nil, err
	}
	return updatedClaim, updatedItem, nil
}

// GetClaim returns a claim by ID with joined item and claimant names, or nil
// if it does not exist.
func GetClaim(ctx context.Context, db *sql.DB, id int64) (*model.Claim, error) {
	c := &model.Claim{}
	err := db.QueryRowContext(ctx,
		`SELECT c.id, c.item_id, c.claimant_id, c.message, c.status, c.previous_item_status,
		        c.created_at, c.updated_at, i.title AS item_title, u.username AS claimant_name
		 FROM claims c
		 JOIN items i ON i.id = c.item_id
		 JOIN users u ON u.id = c.claimant_id
		 WHERE c.id = ?`, id,
	).Scan(&c.ID, &c.ItemID, &c.ClaimantID, &c.Message, &c.Status, &c.PreviousItemStatus,
		&c.CreatedAt, &c.UpdatedAt, &c.ItemTitle, &c.ClaimantName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return c, nil
}

// getClaim reads the bare claim row inside a transaction.
func getClaim(ctx context.Context, q querier, id int64) (*model.Claim, error) {
	c := &model.Claim{}
	err := q.QueryRowContext(ctx,
		`SELECT id, item_id, claimant_id, message, status, previous_item_status, created_at, updated_at
		 FROM claims WHERE id = ?`, id,
	).Scan(&c.ID, &c.ItemID, &c.ClaimantID, &c.Message, &c.Status, &c.PreviousItemStatus,
		&c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return c, nil
}

// ListClaimsForItem returns all claims filed against an item, newest first.
func ListClaimsForItem(ctx context.Context, db *sql.DB, itemID int64) ([]model.Claim, error) {
	return listClaims(ctx, db, `WHERE c.item_id = ?`, itemID)
}

// ListClaimsByClaimant returns the claims a user has filed, newest first.
func ListClaimsByClaimant(ctx context.Context, db *sql.DB, claimantID int64) ([]model.Claim, error) {
	return listClaims(ctx, db, `WHERE c.claimant_id = ?`, claimantID)
}

// ListClaimsReceived returns the claims filed against items the user
// reported, newest first.
func ListClaimsReceived(ctx context.Context, db *sql.DB, ownerID int64) ([]model.Claim, error) {
	return listClaims(ctx, db, `WHERE i.created_by = ?`, ownerID)
}

func listClaims(ctx context.Context, db *sql.DB, where string, arg int64) ([]model.Claim, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.id, c.item_id, c.claimant_id, c.message, c.status, c.previous_item_status,
		        c.created_at, c.updated_at, i.title AS item_title, u.username AS claimant_name
		 FROM claims c
		 JOIN items i ON i.id = c.item_id
		 JOIN users u ON u.id = c.claimant_id
		 `+where+`
		 ORDER BY c.created_at DESC, c.id DESC`, arg,
	)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		if err := rows.Scan(&c.ID, &c.ItemID, &c.ClaimantID, &c.Message, &c.Status, &c.PreviousItemStatus,
			&c.CreatedAt, &c.UpdatedAt, &c.ItemTitle, &c.ClaimantName); err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}
