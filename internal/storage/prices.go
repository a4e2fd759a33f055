package storage

import (
	"database/sql"
	"errors"
	"math"

	"hargalist/internal"
	"hargalist/internal/util"
)

// PriceChange is one reconciliation request, the representative row of a
// matched group.
type PriceChange struct {
	ProductID  int64
	SupplierID int64
	Amount     float64
	Unit       *string
	UnitPrice  *float64
	UploadID   *string
}

// UpsertPrice reconciles one observed price against the active one in a
// single transaction. Three cases:
//   - no active price: insert it, history reason "initial";
//   - same amount and unit: nothing changes, no history row;
//   - different amount: close the active row, write a history row with the
//     delta, insert the new active row.
//
// The partial unique index on (productId, supplierId) WHERE validTo IS NULL
// backs the one-active-price invariant even under concurrent writers.
func (d *DB) UpsertPrice(ch PriceChange) (internal.PriceAction, error) {
	if ch.Amount <= 0 {
		return "", errors.New("price amount must be positive")
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var activeID int64
	var activeAmount float64
	var activeUnit sql.NullString
	err = tx.QueryRow(`
SELECT id, amount, unit FROM prices
WHERE productId = ? AND supplierId = ? AND validTo IS NULL
`, ch.ProductID, ch.SupplierID).Scan(&activeID, &activeAmount, &activeUnit)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := insertActive(tx, ch); err != nil {
			return "", err
		}
		if err := insertHistory(tx, ch, nil, "initial"); err != nil {
			return "", err
		}
		if err := tx.Commit(); err != nil {
			return "", err
		}
		return internal.PriceCreated, nil

	case err != nil:
		return "", err
	}

	sameUnit := util.NormalizeKey(activeUnit.String) == util.NormalizeKey(deref(ch.Unit))
	if sameUnit && sameAmount(activeAmount, ch.Amount) {
		// already current, keep history clean
		return internal.PriceDuplicate, nil
	}

	if _, err := tx.Exec(`
UPDATE prices SET validTo = CURRENT_TIMESTAMP WHERE id = ?
`, activeID); err != nil {
		return "", err
	}
	if err := insertActive(tx, ch); err != nil {
		return "", err
	}
	if err := insertHistory(tx, ch, &activeAmount, "price_change"); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return internal.PriceUpdated, nil
}

func insertActive(tx *sql.Tx, ch PriceChange) error {
	_, err := tx.Exec(`
INSERT INTO prices (productId, supplierId, amount, unit, unitPrice, uploadId)
VALUES (?, ?, ?, ?, ?, ?)
`, ch.ProductID, ch.SupplierID, ch.Amount, ch.Unit, ch.UnitPrice, ch.UploadID)
	return err
}

func insertHistory(tx *sql.Tx, ch PriceChange, changedFrom *float64, reason string) error {
	var changePct *float64
	if changedFrom != nil && *changedFrom > 0 {
		pct := (ch.Amount - *changedFrom) / *changedFrom * 100
		changePct = &pct
	}
	_, err := tx.Exec(`
INSERT INTO price_history (productId, supplierId, price, unit, changedFrom, changePct, changeReason, uploadId)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, ch.ProductID, ch.SupplierID, ch.Amount, ch.Unit, changedFrom, changePct, reason, ch.UploadID)
	return err
}

func sameAmount(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ActivePrice returns the current price for a product from one supplier, or
// nil when none is active.
func (d *DB) ActivePrice(productID, supplierID int64) (*internal.PriceRecord, error) {
	var p internal.PriceRecord
	err := d.conn.QueryRow(`
SELECT id, productId, supplierId, amount, unit, unitPrice, validFrom, validTo, uploadId
FROM prices WHERE productId = ? AND supplierId = ? AND validTo IS NULL
`, productID, supplierID).Scan(
		&p.ID, &p.ProductID, &p.SupplierID, &p.Amount, &p.Unit, &p.UnitPrice,
		&p.ValidFrom, &p.ValidTo, &p.UploadID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActivePrices returns every active price, optionally for one supplier.
func (d *DB) ListActivePrices(supplierID *int64) ([]internal.PriceRecord, error) {
	query := `
SELECT id, productId, supplierId, amount, unit, unitPrice, validFrom, validTo, uploadId
FROM prices WHERE validTo IS NULL`
	args := []any{}
	if supplierID != nil {
		query += ` AND supplierId = ?`
		args = append(args, *supplierID)
	}
	query += ` ORDER BY productId`

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PriceRecord
	for rows.Next() {
		var p internal.PriceRecord
		if err := rows.Scan(
			&p.ID, &p.ProductID, &p.SupplierID, &p.Amount, &p.Unit, &p.UnitPrice,
			&p.ValidFrom, &p.ValidTo, &p.UploadID,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PriceHistory returns the full change log for one product+supplier pair,
// oldest first.
func (d *DB) PriceHistory(productID, supplierID int64) ([]internal.PriceHistoryRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, productId, supplierId, price, unit, changedFrom, changePct, changeReason, uploadId, createdAt
FROM price_history WHERE productId = ? AND supplierId = ? ORDER BY id ASC
`, productID, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PriceHistoryRecord
	for rows.Next() {
		var h internal.PriceHistoryRecord
		if err := rows.Scan(
			&h.ID, &h.ProductID, &h.SupplierID, &h.Price, &h.Unit, &h.ChangedFrom,
			&h.ChangePct, &h.ChangeReason, &h.UploadID, &h.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
