package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"hargalist/internal"
	"hargalist/internal/util"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS suppliers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  normalizedName TEXT NOT NULL UNIQUE,
  email TEXT,
  phone TEXT,
  address TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  rawName TEXT NOT NULL,
  displayName TEXT NOT NULL,
  stdName TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT 'other',
  unit TEXT,
  stdUnit TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(stdName, stdUnit)
);
CREATE INDEX IF NOT EXISTS idx_products_stdName ON products(stdName);

CREATE TABLE IF NOT EXISTS prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  productId INTEGER NOT NULL,
  supplierId INTEGER NOT NULL,
  amount REAL NOT NULL,
  unit TEXT,
  unitPrice REAL,
  validFrom TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  validTo TEXT,
  uploadId TEXT,
  FOREIGN KEY(productId) REFERENCES products(id),
  FOREIGN KEY(supplierId) REFERENCES suppliers(id)
);
CREATE INDEX IF NOT EXISTS idx_prices_product_supplier ON prices(productId, supplierId);
CREATE UNIQUE INDEX IF NOT EXISTS idx_prices_one_active
  ON prices(productId, supplierId) WHERE validTo IS NULL;

CREATE TABLE IF NOT EXISTS price_history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  productId INTEGER NOT NULL,
  supplierId INTEGER NOT NULL,
  price REAL NOT NULL,
  unit TEXT,
  changedFrom REAL,
  changePct REAL,
  changeReason TEXT NOT NULL,
  uploadId TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(productId) REFERENCES products(id),
  FOREIGN KEY(supplierId) REFERENCES suppliers(id)
);
CREATE INDEX IF NOT EXISTS idx_history_product_supplier ON price_history(productId, supplierId);

CREATE TABLE IF NOT EXISTS uploads (
  id TEXT PRIMARY KEY,
  filename TEXT NOT NULL,
  storedPath TEXT NOT NULL,
  mime TEXT NOT NULL,
  sizeBytes INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  approvalStatus TEXT NOT NULL DEFAULT 'pending',
  stage TEXT NOT NULL DEFAULT '',
  progressPct INTEGER NOT NULL DEFAULT 0,
  processingMs INTEGER NOT NULL DEFAULT 0,
  tokensUsed INTEGER NOT NULL DEFAULT 0,
  costUsd REAL NOT NULL DEFAULT 0,
  completeness REAL NOT NULL DEFAULT 0,
  bestMethod TEXT,
  errorsJson TEXT NOT NULL DEFAULT '[]',
  errorMessage TEXT,
  cancelRequested INTEGER NOT NULL DEFAULT 0,
  supplierId INTEGER,
  supplierHint TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(supplierId) REFERENCES suppliers(id)
);
CREATE INDEX IF NOT EXISTS idx_uploads_status ON uploads(status);

CREATE TABLE IF NOT EXISTS unmatched_queue (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  uploadId TEXT,
  supplierId INTEGER NOT NULL,
  rawName TEXT NOT NULL,
  normalizedName TEXT NOT NULL,
  rawUnit TEXT,
  context TEXT,
  frequency INTEGER NOT NULL DEFAULT 1,
  status TEXT NOT NULL DEFAULT 'pending',
  productId INTEGER,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(supplierId) REFERENCES suppliers(id)
);
CREATE INDEX IF NOT EXISTS idx_queue_status ON unmatched_queue(status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_queue_pending
  ON unmatched_queue(supplierId, normalizedName) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS mail_messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  uploadIdsJson TEXT NOT NULL DEFAULT '[]',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ---- suppliers ----

func (d *DB) FindOrCreateSupplier(name string) (internal.SupplierRecord, error) {
	normalized := util.NormalizeKey(name)
	if normalized == "" {
		return internal.SupplierRecord{}, errors.New("supplier name is empty")
	}

	_, err := d.conn.Exec(`
INSERT INTO suppliers (name, normalizedName) VALUES (?, ?)
ON CONFLICT(normalizedName) DO NOTHING
`, strings.TrimSpace(name), normalized)
	if err != nil {
		return internal.SupplierRecord{}, err
	}

	var s internal.SupplierRecord
	err = d.conn.QueryRow(`
SELECT id, name, email, phone, address FROM suppliers WHERE normalizedName = ?
`, normalized).Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address)
	if err != nil {
		return internal.SupplierRecord{}, err
	}
	return s, nil
}

func (d *DB) GetSupplier(id int64) (*internal.SupplierRecord, error) {
	var s internal.SupplierRecord
	err := d.conn.QueryRow(`
SELECT id, name, email, phone, address FROM suppliers WHERE id = ?
`, id).Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DB) ListSuppliers() ([]internal.SupplierRecord, error) {
	rows, err := d.conn.Query(`SELECT id, name, email, phone, address FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SupplierRecord
	for rows.Next() {
		var s internal.SupplierRecord
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Address); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ---- products ----

func (d *DB) FindOrCreateProduct(p internal.ProductRecord) (internal.ProductRecord, error) {
	stdUnit := ""
	if p.StdUnit != nil {
		stdUnit = *p.StdUnit
	}

	// stdUnit is stored as '' rather than NULL so the UNIQUE(stdName, stdUnit)
	// constraint holds for unitless products too.
	_, err := d.conn.Exec(`
INSERT INTO products (rawName, displayName, stdName, category, unit, stdUnit)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(stdName, stdUnit) DO NOTHING
`, p.RawName, p.DisplayName, p.StdName, string(p.Category), p.Unit, stdUnit)
	if err != nil {
		return internal.ProductRecord{}, err
	}

	var out internal.ProductRecord
	var category string
	err = d.conn.QueryRow(`
SELECT id, rawName, displayName, stdName, category, unit, stdUnit
FROM products WHERE stdName = ? AND stdUnit = ?
`, p.StdName, stdUnit).Scan(
		&out.ID, &out.RawName, &out.DisplayName, &out.StdName, &category, &out.Unit, &out.StdUnit,
	)
	if err != nil {
		return internal.ProductRecord{}, err
	}
	out.Category = internal.Category(category)
	return out, nil
}

func (d *DB) GetProduct(id int64) (*internal.ProductRecord, error) {
	var p internal.ProductRecord
	var category string
	err := d.conn.QueryRow(`
SELECT id, rawName, displayName, stdName, category, unit, stdUnit
FROM products WHERE id = ?
`, id).Scan(&p.ID, &p.RawName, &p.DisplayName, &p.StdName, &category, &p.Unit, &p.StdUnit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Category = internal.Category(category)
	return &p, nil
}

func (d *DB) ListProducts() ([]internal.ProductRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, rawName, displayName, stdName, category, unit, stdUnit FROM products ORDER BY id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ProductRecord
	for rows.Next() {
		var p internal.ProductRecord
		var category string
		if err := rows.Scan(&p.ID, &p.RawName, &p.DisplayName, &p.StdName, &category, &p.Unit, &p.StdUnit); err != nil {
			return nil, err
		}
		p.Category = internal.Category(category)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---- uploads ----

func (d *DB) InsertUpload(u internal.UploadRecord) error {
	_, err := d.conn.Exec(`
INSERT INTO uploads (id, filename, storedPath, mime, sizeBytes, status, supplierId, supplierHint)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, u.ID, u.Filename, u.StoredPath, u.Mime, u.SizeBytes, string(internal.UploadPending), u.SupplierID, u.SupplierHint)
	return err
}

func (d *DB) GetUpload(id string) (*internal.UploadRecord, error) {
	row := d.conn.QueryRow(`
SELECT id, filename, storedPath, mime, sizeBytes, status, approvalStatus, stage, progressPct,
       processingMs, tokensUsed, costUsd, completeness, bestMethod, errorsJson, errorMessage,
       cancelRequested, supplierId, supplierHint, createdAt, updatedAt
FROM uploads WHERE id = ?
`, id)
	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*internal.UploadRecord, error) {
	var u internal.UploadRecord
	var status, approval string
	var errorsJSON string
	var cancel int
	if err := row.Scan(
		&u.ID, &u.Filename, &u.StoredPath, &u.Mime, &u.SizeBytes, &status, &approval,
		&u.Stage, &u.ProgressPct, &u.ProcessingMs, &u.TokensUsed, &u.CostUSD, &u.Completeness,
		&u.BestMethod, &errorsJSON, &u.ErrorMessage, &cancel, &u.SupplierID, &u.SupplierHint,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Status = internal.UploadStatus(status)
	u.ApprovalStatus = internal.ApprovalStatus(approval)
	u.CancelRequested = cancel != 0
	_ = json.Unmarshal([]byte(errorsJSON), &u.Errors)
	return &u, nil
}

func (d *DB) ListUploadsByStatus(status internal.UploadStatus, limit int) ([]internal.UploadRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, filename, storedPath, mime, sizeBytes, status, approvalStatus, stage, progressPct,
       processingMs, tokensUsed, costUsd, completeness, bestMethod, errorsJson, errorMessage,
       cancelRequested, supplierId, supplierHint, createdAt, updatedAt
FROM uploads WHERE status = ? ORDER BY createdAt ASC LIMIT ?
`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.UploadRecord
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// ClaimUpload flips one pending upload to processing, guarding against two
// workers taking the same one.
func (d *DB) ClaimUpload(id string) (bool, error) {
	res, err := d.conn.Exec(`
UPDATE uploads SET status = ?, stage = 'classify', progressPct = 5, updatedAt = CURRENT_TIMESTAMP
WHERE id = ? AND status = ?
`, string(internal.UploadProcessing), id, string(internal.UploadPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (d *DB) UpdateUploadProgress(id, stage string, pct int) error {
	_, err := d.conn.Exec(`
UPDATE uploads SET stage = ?, progressPct = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, stage, pct, id)
	return err
}

func (d *DB) SetUploadSupplier(id string, supplierID int64) error {
	_, err := d.conn.Exec(`
UPDATE uploads SET supplierId = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, supplierID, id)
	return err
}

// FinishUpload writes the terminal status together with the run metadata.
func (d *DB) FinishUpload(u internal.UploadRecord) error {
	errorsJSON, _ := json.Marshal(u.Errors)
	if u.Errors == nil {
		errorsJSON = []byte("[]")
	}
	_, err := d.conn.Exec(`
UPDATE uploads SET
  status = ?, stage = ?, progressPct = ?, processingMs = ?, tokensUsed = ?,
  costUsd = ?, completeness = ?, bestMethod = ?, errorsJson = ?, errorMessage = ?,
  updatedAt = CURRENT_TIMESTAMP
WHERE id = ?
`, string(u.Status), u.Stage, u.ProgressPct, u.ProcessingMs, u.TokensUsed,
		u.CostUSD, u.Completeness, u.BestMethod, string(errorsJSON), u.ErrorMessage, u.ID)
	return err
}

func (d *DB) RequestUploadCancel(id string) error {
	res, err := d.conn.Exec(`
UPDATE uploads SET cancelRequested = 1, updatedAt = CURRENT_TIMESTAMP
WHERE id = ? AND status IN (?, ?)
`, id, string(internal.UploadPending), string(internal.UploadProcessing))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("upload %s is not cancellable", id)
	}
	return nil
}

func (d *DB) UploadCancelRequested(id string) (bool, error) {
	var cancel int
	err := d.conn.QueryRow(`SELECT cancelRequested FROM uploads WHERE id = ?`, id).Scan(&cancel)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return cancel != 0, err
}

// SweepStaleUploads fails processing uploads whose worker died, so pollers
// are not left watching a progress bar forever.
func (d *DB) SweepStaleUploads(olderThanMin int) (int64, error) {
	res, err := d.conn.Exec(`
UPDATE uploads SET status = ?, errorMessage = 'processing timed out', updatedAt = CURRENT_TIMESTAMP
WHERE status = ? AND updatedAt < datetime('now', ?)
`, string(internal.UploadFailed), string(internal.UploadProcessing),
		fmt.Sprintf("-%d minutes", olderThanMin))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) SetUploadApproval(id string, status internal.ApprovalStatus) error {
	res, err := d.conn.Exec(`
UPDATE uploads SET approvalStatus = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("upload not found: %s", id)
	}
	return nil
}

// ---- mail ----

func (d *DB) RecordMailMessage(provider, messageID, subject, sender, receivedAt string, uploadIDs []string) error {
	idsJSON, _ := json.Marshal(uploadIDs)
	_, err := d.conn.Exec(`
INSERT INTO mail_messages (provider, messageId, subject, sender, receivedAt, uploadIdsJson)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO NOTHING
`, provider, messageID, subject, sender, receivedAt, string(idsJSON))
	return err
}

func (d *DB) MailMessageSeen(provider, messageID string) (bool, error) {
	var id int64
	err := d.conn.QueryRow(`
SELECT id FROM mail_messages WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
