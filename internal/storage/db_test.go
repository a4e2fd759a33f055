package storage

import (
	"path/filepath"
	"testing"

	"hargalist/internal"
	"hargalist/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustSupplier(t *testing.T, db *DB, name string) internal.SupplierRecord {
	t.Helper()
	s, err := db.FindOrCreateSupplier(name)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustProduct(t *testing.T, db *DB, stdName, stdUnit string) internal.ProductRecord {
	t.Helper()
	p, err := db.FindOrCreateProduct(internal.ProductRecord{
		RawName:     stdName,
		DisplayName: stdName,
		StdName:     stdName,
		Category:    internal.CategoryOther,
		StdUnit:     util.StringPtr(stdUnit),
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFindOrCreateSupplierDedupes(t *testing.T) {
	db := openTestDB(t)

	a := mustSupplier(t, db, "CV Maju Jaya")
	b := mustSupplier(t, db, "  cv  maju jaya ")
	if a.ID != b.ID {
		t.Fatalf("ids differ: %d vs %d", a.ID, b.ID)
	}
	if a.Name != "CV Maju Jaya" {
		t.Fatalf("name = %q", a.Name)
	}
}

func TestFindOrCreateProductDedupes(t *testing.T) {
	db := openTestDB(t)

	a := mustProduct(t, db, "Apple Fuji", "kg")
	b := mustProduct(t, db, "Apple Fuji", "kg")
	if a.ID != b.ID {
		t.Fatalf("ids differ: %d vs %d", a.ID, b.ID)
	}

	c := mustProduct(t, db, "Apple Fuji", "pcs")
	if c.ID == a.ID {
		t.Fatal("different unit must create a different product")
	}

	d, err := db.FindOrCreateProduct(internal.ProductRecord{RawName: "Garam", DisplayName: "Garam", StdName: "Garam", Category: internal.CategoryOther})
	if err != nil {
		t.Fatal(err)
	}
	e, err := db.FindOrCreateProduct(internal.ProductRecord{RawName: "Garam", DisplayName: "Garam", StdName: "Garam", Category: internal.CategoryOther})
	if err != nil {
		t.Fatal(err)
	}
	if d.ID != e.ID {
		t.Fatal("unitless products must dedupe too")
	}
}

func TestUploadLifecycle(t *testing.T) {
	db := openTestDB(t)

	up := internal.UploadRecord{ID: "u-1", Filename: "harga.xlsx", StoredPath: "/tmp/u-1", Mime: "application/vnd.ms-excel", SizeBytes: 123}
	if err := db.InsertUpload(up); err != nil {
		t.Fatal(err)
	}

	ok, err := db.ClaimUpload("u-1")
	if err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	ok, err = db.ClaimUpload("u-1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second claim must fail")
	}

	if err := db.UpdateUploadProgress("u-1", "normalize", 60); err != nil {
		t.Fatal(err)
	}

	method := string(internal.MethodSpreadsheet)
	done := internal.UploadRecord{
		ID: "u-1", Status: internal.UploadCompleted, Stage: "done", ProgressPct: 100,
		ProcessingMs: 1500, TokensUsed: 1200, CostUSD: 0.004, Completeness: 0.98,
		BestMethod: &method,
	}
	if err := db.FinishUpload(done); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetUpload("u-1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Status != internal.UploadCompleted || got.ProgressPct != 100 {
		t.Fatalf("upload = %+v", got)
	}
	if got.BestMethod == nil || *got.BestMethod != method {
		t.Fatalf("bestMethod = %v", got.BestMethod)
	}
	if got.TokensUsed != 1200 {
		t.Fatalf("tokens = %d", got.TokensUsed)
	}
}

func TestUploadCancelFlag(t *testing.T) {
	db := openTestDB(t)

	if err := db.InsertUpload(internal.UploadRecord{ID: "u-2", Filename: "x.pdf", StoredPath: "/tmp/u-2", Mime: "application/pdf"}); err != nil {
		t.Fatal(err)
	}
	if err := db.RequestUploadCancel("u-2"); err != nil {
		t.Fatal(err)
	}
	cancelled, err := db.UploadCancelRequested("u-2")
	if err != nil || !cancelled {
		t.Fatalf("cancelled=%v err=%v", cancelled, err)
	}

	if err := db.FinishUpload(internal.UploadRecord{ID: "u-2", Status: internal.UploadFailed, Stage: "cancelled"}); err != nil {
		t.Fatal(err)
	}
	if err := db.RequestUploadCancel("u-2"); err == nil {
		t.Fatal("cancelling a terminal upload must fail")
	}
}
