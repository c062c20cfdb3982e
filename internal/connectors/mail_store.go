package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"oferta/internal"
	"oferta/internal/storage"
)

const StatusFetched = "fetched"

// MailStore writes raw messages to disk, content addressed, and records
// them in the inbox table as pending.
type MailStore struct {
	db         *storage.DB
	rawMailDir string
}

func NewMailStore(db *storage.DB, rawMailDir string) *MailStore {
	return &MailStore{db: db, rawMailDir: rawMailDir}
}

func (s *MailStore) Store(msg internal.FetchedMailMessage) (internal.InboxRow, error) {
	if msg.MessageID == "" {
		return internal.InboxRow{}, errors.New("store mail: empty message id")
	}
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.InboxRow{}, err
	}
	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.InboxRow{}, err
		}
	}

	return s.db.UpsertInbox(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, StatusFetched)
}
