package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"hargalist/internal"
	"hargalist/internal/util"
)

// EnqueueUnmatched adds a low-confidence row to the review queue. An
// equivalent pending entry for the same supplier only gets its frequency
// bumped, so repeated uploads do not flood the queue.
func (d *DB) EnqueueUnmatched(e internal.UnmatchedEntry) error {
	normalized := util.NormalizeKey(e.RawName)
	if normalized == "" {
		return errors.New("unmatched entry has no name")
	}

	_, err := d.conn.Exec(`
INSERT INTO unmatched_queue (uploadId, supplierId, rawName, normalizedName, rawUnit, context)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(supplierId, normalizedName) WHERE status = 'pending' DO UPDATE SET
  frequency = frequency + 1,
  uploadId = excluded.uploadId,
  updatedAt = CURRENT_TIMESTAMP
`, e.UploadID, e.SupplierID, e.RawName, normalized, e.RawUnit, e.Context)
	return err
}

func (d *DB) ListPendingUnmatched(supplierID *int64) ([]internal.UnmatchedEntry, error) {
	query := `
SELECT id, uploadId, supplierId, rawName, rawUnit, context, frequency, status, productId, createdAt, updatedAt
FROM unmatched_queue WHERE status = 'pending'`
	args := []any{}
	if supplierID != nil {
		query += ` AND supplierId = ?`
		args = append(args, *supplierID)
	}
	query += ` ORDER BY frequency DESC, createdAt ASC`

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.UnmatchedEntry
	for rows.Next() {
		var e internal.UnmatchedEntry
		var status string
		if err := rows.Scan(
			&e.ID, &e.UploadID, &e.SupplierID, &e.RawName, &e.RawUnit, &e.Context,
			&e.Frequency, &status, &e.ProductID, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		e.Status = internal.QueueStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// AssignUnmatched links a pending entry to a product. Terminal entries stay
// as they are; assigning them again is an error, not a silent rewrite.
func (d *DB) AssignUnmatched(entryID, productID int64) error {
	var exists int64
	err := d.conn.QueryRow(`SELECT id FROM products WHERE id = ?`, productID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product not found: %d", productID)
	}
	if err != nil {
		return err
	}

	res, err := d.conn.Exec(`
UPDATE unmatched_queue SET status = 'assigned', productId = ?, updatedAt = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'pending'
`, productID, entryID)
	if err != nil {
		return err
	}
	return requireTransition(res, entryID)
}

func (d *DB) IgnoreUnmatched(entryID int64) error {
	res, err := d.conn.Exec(`
UPDATE unmatched_queue SET status = 'ignored', updatedAt = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'pending'
`, entryID)
	if err != nil {
		return err
	}
	return requireTransition(res, entryID)
}

func requireTransition(res sql.Result, entryID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("queue entry %d is not pending", entryID)
	}
	return nil
}

func (d *DB) GetUnmatched(entryID int64) (*internal.UnmatchedEntry, error) {
	var e internal.UnmatchedEntry
	var status string
	err := d.conn.QueryRow(`
SELECT id, uploadId, supplierId, rawName, rawUnit, context, frequency, status, productId, createdAt, updatedAt
FROM unmatched_queue WHERE id = ?
`, entryID).Scan(
		&e.ID, &e.UploadID, &e.SupplierID, &e.RawName, &e.RawUnit, &e.Context,
		&e.Frequency, &status, &e.ProductID, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Status = internal.QueueStatus(status)
	return &e, nil
}
