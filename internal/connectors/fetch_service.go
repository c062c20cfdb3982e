package connectors

import (
	"context"

	"oferta/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStore
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		connector: connector,
		store:     NewMailStore(db, rawMailDir),
	}
}

// FetchAndStore pulls up to max unread messages and queues them for
// processing. Messages already in the inbox keep their status.
func (s *FetchService) FetchAndStore(ctx context.Context, mailbox string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, mailbox, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := s.store.Store(msg); err != nil {
			return res, err
		}
		res.Stored++
	}
	return res, nil
}
