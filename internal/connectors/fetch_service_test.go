package connectors

import (
	"path/filepath"
	"testing"

	"hargalist/internal"
	"hargalist/internal/storage"
)

type stubConnector struct {
	messages []internal.FetchedMailMessage
}

func (s *stubConnector) FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error) {
	return s.messages, nil
}

type registration struct {
	filename string
	hint     string
}

type stubRegistrar struct {
	seen []registration
}

func (s *stubRegistrar) RegisterUploadBytes(filename string, data []byte, supplierHint string) (internal.UploadRecord, error) {
	s.seen = append(s.seen, registration{filename: filename, hint: supplierHint})
	return internal.UploadRecord{ID: "upload-1", Filename: filename}, nil
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFetchAndStoreRegistersNewMessages(t *testing.T) {
	db := openTestDB(t)
	msg := internal.FetchedMailMessage{
		Provider:     "imap",
		MessageID:    "<a1@supplier>",
		Subject:      "Daftar Harga Agustus",
		From:         "PT Sumber Rejeki <order@sumber.co.id>",
		SupplierHint: "PT Sumber Rejeki",
		ReceivedAt:   "2026-08-01T08:00:00Z",
		Raw:          []byte("From: order@sumber.co.id\r\n\r\nharga terbaru"),
	}
	registrar := &stubRegistrar{}
	svc := NewFetchService(db, t.TempDir(), &stubConnector{messages: []internal.FetchedMailMessage{msg}}, registrar)

	result, err := svc.FetchAndStore("INBOX", 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.Fetched != 1 || result.Registered != 1 || result.Skipped != 0 {
		t.Fatalf("result = %+v", result)
	}

	if len(registrar.seen) != 1 {
		t.Fatalf("registrations = %d", len(registrar.seen))
	}
	if registrar.seen[0].hint != "PT Sumber Rejeki" {
		t.Fatalf("hint = %q, sender display name must reach the upload", registrar.seen[0].hint)
	}
	if registrar.seen[0].filename != "Daftar Harga Agustus.eml" {
		t.Fatalf("filename = %q", registrar.seen[0].filename)
	}

	seen, err := db.MailMessageSeen("imap", "<a1@supplier>")
	if err != nil || !seen {
		t.Fatalf("message not recorded: seen=%v err=%v", seen, err)
	}
}

func TestFetchAndStoreSkipsSeenMessages(t *testing.T) {
	db := openTestDB(t)
	msg := internal.FetchedMailMessage{
		Provider:   "gmail",
		MessageID:  "<b2@supplier>",
		Subject:    "Update Harga",
		From:       "cv.maju@example.com",
		ReceivedAt: "2026-08-02T08:00:00Z",
		Raw:        []byte("From: cv.maju@example.com\r\n\r\nharga"),
	}
	registrar := &stubRegistrar{}
	svc := NewFetchService(db, t.TempDir(), &stubConnector{messages: []internal.FetchedMailMessage{msg}}, registrar)

	if _, err := svc.FetchAndStore("INBOX", 10); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	result, err := svc.FetchAndStore("INBOX", 10)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if result.Registered != 0 || result.Skipped != 1 {
		t.Fatalf("result = %+v, refetch must not re-register", result)
	}
	if len(registrar.seen) != 1 {
		t.Fatalf("registrations = %d", len(registrar.seen))
	}
}
