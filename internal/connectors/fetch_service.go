package connectors

import (
	"fmt"
	"strings"

	"hargalist/internal"
	"hargalist/internal/storage"
)

// Registrar turns a fetched message into a pending upload. Satisfied by
// pipeline.Service.
type Registrar interface {
	RegisterUploadBytes(filename string, data []byte, supplierHint string) (internal.UploadRecord, error)
}

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
	registrar Registrar
}

type FetchResult struct {
	Fetched    int
	Registered int
	Skipped    int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, registrar Registrar) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(rawMailDir),
		registrar: registrar,
	}
}

// FetchAndStore pulls new messages from the inbox, archives each raw
// message, and registers every unseen one as a pending upload. Messages
// already recorded for this provider are skipped.
func (s *FetchService) FetchAndStore(label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(label, max)
	if err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		seen, err := s.db.MailMessageSeen(msg.Provider, msg.MessageID)
		if err != nil {
			return result, err
		}
		if seen {
			result.Skipped++
			continue
		}

		rawPath, err := s.store.Store(msg)
		if err != nil {
			return result, err
		}

		up, err := s.registrar.RegisterUploadBytes(uploadFilename(msg), msg.Raw, msg.SupplierHint)
		if err != nil {
			return result, fmt.Errorf("register message %s: %w", msg.MessageID, err)
		}

		if err := s.db.RecordMailMessage(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, []string{up.ID}); err != nil {
			return result, err
		}

		fmt.Printf("mail: registered upload %s from %s (%s)\n", up.ID, msg.From, rawPath)
		result.Registered++
	}

	return result, nil
}

func uploadFilename(msg internal.FetchedMailMessage) string {
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		return msg.MessageID + ".eml"
	}
	repl := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "<", "_", ">", "_", "|", "_", "?", "_", "*", "_")
	subject = repl.Replace(subject)
	if len(subject) > 80 {
		subject = subject[:80]
	}
	return subject + ".eml"
}
