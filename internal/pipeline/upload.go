package pipeline

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"hargalist/internal"
	"hargalist/internal/util"
)

// RegisterUpload copies a document into the upload store and creates the
// pending record the pipeline will pick up.
func (s *Service) RegisterUpload(path string, supplierHint string) (internal.UploadRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return internal.UploadRecord{}, fmt.Errorf("read %s: %w", path, err)
	}
	return s.RegisterUploadBytes(filepath.Base(path), data, supplierHint)
}

// RegisterUploadBytes registers in-memory content, used by the mail
// connectors for attachments that never touch the local filesystem.
func (s *Service) RegisterUploadBytes(filename string, data []byte, supplierHint string) (internal.UploadRecord, error) {
	if len(data) == 0 {
		return internal.UploadRecord{}, fmt.Errorf("upload %s is empty", filename)
	}

	id := uuid.NewString()
	dir := s.cfg.UploadDir
	if dir == "" {
		dir = "data/uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return internal.UploadRecord{}, err
	}

	stored := filepath.Join(dir, id+strings.ToLower(filepath.Ext(filename)))
	if err := os.WriteFile(stored, data, 0o644); err != nil {
		return internal.UploadRecord{}, err
	}

	up := internal.UploadRecord{
		ID:         id,
		Filename:   filename,
		StoredPath: stored,
		Mime:       mimeFor(filename),
		SizeBytes:  int64(len(data)),
		Status:     internal.UploadPending,
	}
	if strings.TrimSpace(supplierHint) != "" {
		up.SupplierHint = util.StringPtr(supplierHint)
	}

	if err := s.db.InsertUpload(up); err != nil {
		_ = os.Remove(stored)
		return internal.UploadRecord{}, err
	}
	return up, nil
}

func mimeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".eml":
		return "message/rfc822"
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
