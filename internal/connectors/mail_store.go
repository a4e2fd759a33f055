package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"hargalist/internal"
)

// MailStoreService archives raw fetched messages on disk, keyed by content
// hash so refetching the same message never duplicates the file.
type MailStoreService struct {
	rawMailDir string
}

func NewMailStoreService(rawMailDir string) *MailStoreService {
	return &MailStoreService{rawMailDir: rawMailDir}
}

func (s *MailStoreService) Store(msg internal.FetchedMailMessage) (string, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return "", err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return "", err
		}
	}

	return rawPath, nil
}
