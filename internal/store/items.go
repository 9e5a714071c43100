package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// CreateItem creates a new report. Status must be one of the two initial
// statuses (lost or found).
func CreateItem(ctx context.Context, db *sql.DB, title, description, category, location, status string, createdBy int64) (*model.Item, error) {
	if !model.ValidInitialItemStatus(status) {
		return nil, fmt.Errorf("%w: items are reported as %q or %q", model.ErrInvalidTransition,
			model.ItemStatusLost, model.ItemStatusFound)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (title, description, category, location, status, created_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, description, category, location, status, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := getItem(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	positions, err := listItemImagePositions(ctx, db, id)
	if err != nil {
		return nil, err
	}
	item.Images = positions
	return item, nil
}

// getItem reads the item row without its image positions. Works on both a
// *sql.DB and a *sql.Tx.
func getItem(ctx context.Context, q querier, id int64) (*model.Item, error) {
	item := &model.Item{}
	var description sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, title, description, category, location, status, created_by, created_at, updated_at
		 FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Title, &description, &item.Category, &item.Location,
		&item.Status, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.Description = description.String
	return item, nil
}

// querier is the read surface shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ListItems returns all items, newest first, optionally filtered by status
// and category.
func ListItems(ctx context.Context, db *sql.DB, status, category string) ([]model.Item, error) {
	query := `SELECT id, title, description, category, location, status, created_by, created_at, updated_at
	          FROM items WHERE 1=1`
	var args []any

	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var description sql.NullString
		if err := rows.Scan(&item.ID, &item.Title, &description, &item.Category, &item.Location,
			&item.Status, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Description = description.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// AdvanceItemStatus applies the owner's direct status progression
// (lost -> found -> claimed -> returned), used only when no claim is in
// flight. The update is guarded on the status the caller observed, so a
// racing claim loses cleanly.
func AdvanceItemStatus(ctx context.Context, db *sql.DB, id, actorID int64, next string) (*model.Item, error) {
	item, err := GetItem(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}

	if !model.IsOwner(actorID, item) {
		return nil, fmt.Errorf("%w: only the item owner can update its status", model.ErrForbidden)
	}

	allowed, err := model.NextItemStatus(item.Status, model.EventOwnerAdvance, "")
	if err != nil {
		return nil, err
	}
	if next != allowed {
		return nil, fmt.Errorf("%w: allowed transition: %s -> %s", model.ErrInvalidTransition, item.Status, allowed)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		next, id, item.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item status: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("updating item status: %w", err)
	} else if n == 0 {
		// The item changed under us, most likely a freshly created claim.
		return nil, fmt.Errorf("%w: item status changed concurrently", model.ErrInvalidTransition)
	}

	return GetItem(ctx, db, id)
}

// AddItemImage appends a processed image to the item's ordered image list and
// returns its position.
func AddItemImage(ctx context.Context, db *sql.DB, itemID int64, image []byte, mime string) (int, error) {
	var next int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM item_images WHERE item_id = ?`, itemID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("getting next image position: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO item_images (item_id, position, image, mime) VALUES (?, ?, ?, ?)`,
		itemID, next, image, mime,
	)
	if err != nil {
		return 0, fmt.Errorf("adding item image: %w", err)
	}
	return next, nil
}

// GetItemImage returns the image at the given position, or nil data if absent.
func GetItemImage(ctx context.Context, db *sql.DB, itemID int64, position int) ([]byte, string, error) {
	var image []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT image, mime FROM item_images WHERE item_id = ? AND position = ?`,
		itemID, position,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime, nil
}

func listItemImagePositions(ctx context.Context, db *sql.DB, itemID int64) ([]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT position FROM item_images WHERE item_id = ? ORDER BY position`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item images: %w", err)
	}
	defer rows.Close()

	var positions []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning image position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}
