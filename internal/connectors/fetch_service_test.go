package connectors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oferta/internal"
	"oferta/internal/storage"
)

type fakeConnector struct {
	messages []internal.FetchedMailMessage
	err      error
	mailbox  string
}

func (f *fakeConnector) Provider() string { return "fake" }

func (f *fakeConnector) FetchInbox(_ context.Context, mailbox string, max int) ([]internal.FetchedMailMessage, error) {
	f.mailbox = mailbox
	if f.err != nil {
		return nil, f.err
	}
	if len(f.messages) > max {
		return f.messages[:max], nil
	}
	return f.messages, nil
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "oferta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFetchAndStore(t *testing.T) {
	db := openDB(t)
	rawDir := filepath.Join(t.TempDir(), "raw")
	conn := &fakeConnector{messages: []internal.FetchedMailMessage{
		{Provider: "fake", MessageID: "<1@x>", Subject: "Normas", From: "a@x", ReceivedAt: "2024-03-15T10:00:00Z", Raw: []byte("one")},
		{Provider: "fake", MessageID: "<2@x>", Subject: "Historico", From: "b@x", ReceivedAt: "2024-03-15T11:00:00Z", Raw: []byte("two")},
	}}
	svc := NewFetchService(db, rawDir, conn)

	res, err := svc.FetchAndStore(context.Background(), "Oferta", 10)
	require.NoError(t, err)
	assert.Equal(t, FetchResult{Fetched: 2, Stored: 2}, res)
	assert.Equal(t, "Oferta", conn.mailbox)

	pending, err := db.ListInboxByStatus(StatusFetched, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "<1@x>", pending[0].MessageID)
	raw, err := os.ReadFile(pending[0].RawRef)
	require.NoError(t, err)
	assert.Equal(t, "one", string(raw))

	// refetching a handled message does not queue it again
	require.NoError(t, db.UpdateInboxStatus(pending[0].ID, "processed"))
	_, err = svc.FetchAndStore(context.Background(), "Oferta", 10)
	require.NoError(t, err)
	pending, err = db.ListInboxByStatus(StatusFetched, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestFetchAndStoreErrors(t *testing.T) {
	db := openDB(t)
	boom := errors.New("boom")
	_, err := NewFetchService(db, t.TempDir(), &fakeConnector{err: boom}).FetchAndStore(context.Background(), "INBOX", 5)
	assert.ErrorIs(t, err, boom)

	conn := &fakeConnector{messages: []internal.FetchedMailMessage{{Provider: "fake", Raw: []byte("x")}}}
	_, err = NewFetchService(db, t.TempDir(), conn).FetchAndStore(context.Background(), "INBOX", 5)
	assert.Error(t, err)
}
