package connectors

import (
	"context"

	"oferta/internal"
)

// MailConnector fetches unread messages from one mailbox of a provider.
type MailConnector interface {
	Provider() string
	FetchInbox(ctx context.Context, mailbox string, max int) ([]internal.FetchedMailMessage, error)
}
