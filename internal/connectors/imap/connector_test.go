package imap

import (
	"context"
	"testing"
	"time"

	"github.com/emersion/go-imap"

	"oferta/internal/config"
)

func TestNewConnectorRequiresCredentials(t *testing.T) {
	cfg := config.Config{IMAPHost: "mail.example.test", IMAPUser: "oferta"}
	if _, err := NewConnector(cfg); err == nil {
		t.Fatal("expected missing password error")
	}
	cfg.IMAPPassword = "secret"
	c, err := NewConnector(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c.Provider() != "imap" {
		t.Fatalf("provider=%s", c.Provider())
	}
}

func TestFetchInboxCancelled(t *testing.T) {
	c := &Connector{host: "127.0.0.1", port: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.FetchInbox(ctx, "INBOX", 10); err != context.Canceled {
		t.Fatalf("err=%v", err)
	}
}

func TestToFetched(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	msg := &imap.Message{
		Uid: 42,
		Envelope: &imap.Envelope{
			Subject: "Reporte historico",
			From: []*imap.Address{
				{PersonalName: "Coordinacion", MailboxName: "oferta", HostName: "example.test"},
				nil,
				{MailboxName: "bot", HostName: "example.test"},
			},
		},
	}

	got := toFetched(msg, []byte("raw"), now)
	if got.MessageID != "imap-42" {
		t.Fatalf("message id=%s", got.MessageID)
	}
	if got.From != "Coordinacion <oferta@example.test>, bot@example.test" {
		t.Fatalf("from=%s", got.From)
	}
	if got.ReceivedAt != "2024-03-15T12:00:00Z" || got.Provider != "imap" || string(got.Raw) != "raw" {
		t.Fatalf("unexpected %+v", got)
	}

	msg.Envelope.MessageId = "<abc@example.test>"
	msg.InternalDate = time.Date(2024, 3, 14, 8, 30, 0, 0, time.FixedZone("COT", -5*3600))
	got = toFetched(msg, nil, now)
	if got.MessageID != "<abc@example.test>" || got.ReceivedAt != "2024-03-14T13:30:00Z" {
		t.Fatalf("unexpected %+v", got)
	}
}
