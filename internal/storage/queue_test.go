package storage

import (
	"testing"

	"hargalist/internal"
	"hargalist/internal/util"
)

func TestEnqueueUnmatchedBumpsFrequency(t *testing.T) {
	db := openTestDB(t)
	sup := mustSupplier(t, db, "CV Maju Jaya")

	entry := internal.UnmatchedEntry{
		SupplierID: sup.ID,
		RawName:    "Barang Aneh",
		RawUnit:    util.StringPtr("pcs"),
		UploadID:   util.StringPtr("u-1"),
	}
	if err := db.EnqueueUnmatched(entry); err != nil {
		t.Fatal(err)
	}
	entry.RawName = "barang  ANEH" // same name modulo case and spacing
	entry.UploadID = util.StringPtr("u-2")
	if err := db.EnqueueUnmatched(entry); err != nil {
		t.Fatal(err)
	}

	pending, err := db.ListPendingUnmatched(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending=%d", len(pending))
	}
	if pending[0].Frequency != 2 {
		t.Fatalf("frequency = %d", pending[0].Frequency)
	}
	if pending[0].UploadID == nil || *pending[0].UploadID != "u-2" {
		t.Fatalf("uploadId = %v", pending[0].UploadID)
	}
}

func TestQueueTransitions(t *testing.T) {
	db := openTestDB(t)
	sup := mustSupplier(t, db, "S")
	prod := mustProduct(t, db, "Carrot", "kg")

	if err := db.EnqueueUnmatched(internal.UnmatchedEntry{SupplierID: sup.ID, RawName: "wortel impor"}); err != nil {
		t.Fatal(err)
	}
	pending, err := db.ListPendingUnmatched(nil)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending=%d err=%v", len(pending), err)
	}
	id := pending[0].ID

	if err := db.AssignUnmatched(id, prod.ID); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetUnmatched(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != internal.QueueAssigned || got.ProductID == nil || *got.ProductID != prod.ID {
		t.Fatalf("entry = %+v", got)
	}

	// terminal states are final
	if err := db.AssignUnmatched(id, prod.ID); err == nil {
		t.Fatal("re-assigning a terminal entry must fail")
	}
	if err := db.IgnoreUnmatched(id); err == nil {
		t.Fatal("ignoring a terminal entry must fail")
	}
}

func TestAssignUnknownProductFails(t *testing.T) {
	db := openTestDB(t)
	sup := mustSupplier(t, db, "S")

	if err := db.EnqueueUnmatched(internal.UnmatchedEntry{SupplierID: sup.ID, RawName: "misteri"}); err != nil {
		t.Fatal(err)
	}
	pending, _ := db.ListPendingUnmatched(nil)
	if err := db.AssignUnmatched(pending[0].ID, 9999); err == nil {
		t.Fatal("assigning to a missing product must fail")
	}
}

func TestEnqueueAfterTerminalCreatesNewEntry(t *testing.T) {
	db := openTestDB(t)
	sup := mustSupplier(t, db, "S")

	if err := db.EnqueueUnmatched(internal.UnmatchedEntry{SupplierID: sup.ID, RawName: "misteri"}); err != nil {
		t.Fatal(err)
	}
	pending, _ := db.ListPendingUnmatched(nil)
	if err := db.IgnoreUnmatched(pending[0].ID); err != nil {
		t.Fatal(err)
	}

	// the ignored entry no longer blocks a fresh pending one
	if err := db.EnqueueUnmatched(internal.UnmatchedEntry{SupplierID: sup.ID, RawName: "misteri"}); err != nil {
		t.Fatal(err)
	}
	pending, _ = db.ListPendingUnmatched(nil)
	if len(pending) != 1 || pending[0].Frequency != 1 {
		t.Fatalf("pending = %+v", pending)
	}
}
